// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"

	"github.com/captaincmd/pybuild/cmd/pybuild"
)

func main() {
	os.Exit(cmd.Execute())
}
