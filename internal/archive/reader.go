// Package archive reads compressed tar bundles of translation files.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ulikunitz/xz"
)

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// IsBundle reports whether path names a supported tar bundle.
func IsBundle(name string) bool {
	name = strings.ToLower(name)
	for _, ext := range []string{".tar.xz", ".txz", ".tar.gz", ".tgz", ".tar"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// NewReader opens a .tar, .tar.gz or .tar.xz bundle.
func NewReader(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var reader io.Reader = f
	var decompressor io.Closer

	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	case strings.HasSuffix(lower, ".tar"):
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported archive format: %s", name)
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Visitor is called for each regular file in a bundle with its cleaned
// member name. Return true to stop iteration.
type Visitor func(name string, content io.Reader) (stop bool, err error)

// Iterate walks the regular files of the bundle in archive order.
// Directories, links and hidden members are skipped.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Clean(strings.TrimPrefix(header.Name, "./"))
		if strings.HasPrefix(path.Base(name), ".") {
			continue
		}

		stop, err := visitor(name, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// Walk opens a bundle and iterates its files.
func Walk(name string, visitor Visitor) error {
	r, err := NewReader(name)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}
