// SPDX-License-Identifier: MPL-2.0

package manifest

import "context"

// LoadOptions defines explicit manifest loading inputs.
type LoadOptions struct {
	// ProjectDir is the directory holding the entry module and pybuild.cue.
	ProjectDir string
	// ManifestPath forces loading from a specific file when set. Relative
	// paths are resolved against ProjectDir.
	ManifestPath string
}

// Provider loads the manifest from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Manifest, string, error)
}

type fileProvider struct{}

// NewProvider creates a manifest provider backed by the filesystem.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads the manifest and returns it with the path it came from
// (empty when only defaults apply).
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Manifest, string, error) {
	return loadWithOptions(ctx, opts)
}
