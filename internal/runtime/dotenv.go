// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
)

// LoadEnvFile reads a dotenv file and merges its contents into env, later
// files overriding earlier values. The path is resolved relative to
// basePath. A missing file reports false with a nil error.
func LoadEnvFile(env map[string]string, path, basePath string) (bool, error) {
	fullPath := filepath.FromSlash(path)
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(basePath, fullPath)
	}

	f, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read env file '%s': %w", path, err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return false, fmt.Errorf("failed to parse env file '%s': %w", path, err)
	}
	maps.Copy(env, values)
	return true, nil
}

// EnvList turns env into KEY=VALUE entries sorted by key, the form
// Command.Env expects.
func EnvList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
