// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds a project when its sources change.
//
// A Watcher monitors a directory tree, filters events through doublestar
// glob patterns and invokes a callback after a debounce period. Events within
// the debounce window are coalesced so the callback fires once with the full
// set of changed paths, and at most one callback runs at a time.
package watch
