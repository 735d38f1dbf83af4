// Package filestore holds the narrow seam between the authorization gate's
// transport layer and file storage. Storage layout and upload handling
// belong to the holdings service; this side only opens what a positive
// decision lets through.
package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Disk serves attached files from a single root directory. Stored paths are
// names relative to the root.
type Disk struct {
	root string
}

func NewDisk(root string) *Disk {
	return &Disk{root: root}
}

// Open returns a reader for the named file. Names that escape the root are
// rejected before touching the filesystem.
func (d *Disk) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if name == "" || !filepath.IsLocal(name) {
		return nil, fmt.Errorf("invalid file name %q", name)
	}
	f, err := os.Open(filepath.Join(d.root, name))
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return f, nil
}
