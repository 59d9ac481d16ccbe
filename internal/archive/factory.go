package archive

import (
	"context"
	"fmt"
)

// Options collects the fields needed to open any backend kind; it is the
// shape internal/config's Archive section decodes into.
type Options struct {
	Backend string // "memory", "file", or "s3"
	Path    string // FileArchive root
	S3      S3Config
}

// Open constructs the Archive named by opts.Backend.
func Open(ctx context.Context, opts Options) (Archive, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryArchive(), nil
	case "file":
		return NewFileArchive(opts.Path)
	case "s3":
		return NewS3Archive(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("archive: unknown backend %q", opts.Backend)
	}
}
