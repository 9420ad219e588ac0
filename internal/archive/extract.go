// Package archive unpacks chart and helmfile archives into private scratch
// directories and computes the content digests reported for them.
package archive

import (
	"bufio"
	"compress/gzip"
	"context"
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nlepage/go-tarfs"
	"github.com/opencontainers/go-digest"
)

// ErrNotAnArchive is wrapped by ExtractionError for inputs that are neither
// a tar nor a gzipped tar stream.
var ErrNotAnArchive = errors.New("not a recognized archive format")

// ExtractionError is returned when an archive is absent, unreadable or not
// in a recognized container format.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %q: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Scope is an extracted archive. The directory it points to only exists
// until Close is called.
type Scope struct {
	// Root is the top level directory of the archive contents. Chart archives
	// contain a single directory named after the chart, in which case Root
	// points inside it.
	Root string
	dir  string
}

// Close removes the scratch directory and everything in it.
func (s *Scope) Close() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// Extractor unpacks archives below TempFolder, or the system default
// temporary directory if TempFolder is empty.
type Extractor struct {
	TempFolder string
}

// Extract unpacks the archive at path into a new, uniquely named scratch
// directory. The caller must Close the returned scope. On error nothing is
// left behind.
func (e *Extractor) Extract(ctx context.Context, path string) (_ *Scope, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("%w: is a directory", ErrNotAnArchive)}
	}

	dir, err := os.MkdirTemp(e.TempFolder, "extract-*")
	if err != nil {
		return nil, fmt.Errorf("error creating scratch directory: %w", err)
	}
	scope := &Scope{Root: dir, dir: dir}
	defer func() {
		if err != nil {
			err = errors.Join(err, scope.Close())
		}
	}()

	if err := unpack(path, dir); err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	switch {
	case len(entries) == 0:
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("%w: archive is empty", ErrNotAnArchive)}
	case len(entries) == 1 && entries[0].IsDir():
		scope.Root = filepath.Join(dir, entries[0].Name())
	}

	slog.DebugContext(ctx, "extracted archive", "archive", path, "root", scope.Root)
	return scope, nil
}

func unpack(path, dir string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	reader, closer, err := decompress(f)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closer())
	}()

	tfs, err := tarfs.New(reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotAnArchive, err)
	}
	if err := os.CopyFS(dir, tfs); err != nil {
		return fmt.Errorf("failed to copy archive contents: %w", err)
	}
	return nil
}

// decompress transparently unwraps gzip streams by sniffing the magic bytes.
func decompress(src io.Reader) (io.Reader, func() error, error) {
	buffered := bufio.NewReader(src)
	noop := func() error { return nil }

	header, err := buffered.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, noop, fmt.Errorf("failed to read data for gzip detection: %w", err)
	}

	const gzipMagic1, gzipMagic2 = 0x1F, 0x8B
	if len(header) == 2 && header[0] == gzipMagic1 && header[1] == gzipMagic2 {
		gzReader, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize gzip reader: %w", err)
		}
		return gzReader, gzReader.Close, nil
	}
	return buffered, noop, nil
}

// Digest returns the sha256 digest of the file at path.
func Digest(path string) (_ digest.Digest, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	dgst, err := digest.SHA256.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to compute digest of %q: %w", path, err)
	}
	return dgst, nil
}
