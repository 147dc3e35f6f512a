// Package atomicfile writes files so that a concurrent reader never
// observes a partially written result: write to a temp file in the same
// directory, fsync, then rename over the destination.
package atomicfile

import (
	"os"

	"github.com/google/renameio/v2"
)

// WriteFile atomically replaces path with data, using mode for the final
// file's permission bits. Pass 0o600 for anything holding a secret.
func WriteFile(path string, data []byte, mode os.FileMode) error {
	return renameio.WriteFile(path, data, mode)
}
