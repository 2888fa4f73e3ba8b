// SPDX-License-Identifier: MPL-2.0

package runtime

import "strconv"

// ExitCode is a child process exit status. Windows statuses such as
// STATUS_CONTROL_C_EXIT exceed 255 and are kept as reported.
type ExitCode int

// IsSuccess reports whether the child exited cleanly.
func (c ExitCode) IsSuccess() bool { return c == 0 }

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
