package archive

import (
	"archive/zip"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Locations inside a CSAR package.
const (
	CSARChartsDir  = "Definitions/OtherTemplates/"
	CSARImagesFile = "Files/images.txt"
)

// CSAR is a CSAR package whose chart archives were extracted. The archives
// only exist until Close is called.
type CSAR struct {
	*Scope
	// Charts are the extracted chart or helmfile archives in name order.
	Charts []string

	images    []string
	imagesErr error
}

// Images returns the image list shipped with the package. It fails if the
// package carries no readable image list.
func (c *CSAR) Images() ([]string, error) {
	return c.images, c.imagesErr
}

// ExtractCSAR extracts every archive below Definitions/OtherTemplates of the
// CSAR at path into a new scratch directory and reads the image list of the
// package.
func (e *Extractor) ExtractCSAR(ctx context.Context, path string) (_ *CSAR, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer func() {
		err = errors.Join(err, zr.Close())
	}()

	dir, err := os.MkdirTemp(e.TempFolder, "csar-*")
	if err != nil {
		return nil, fmt.Errorf("error creating scratch directory: %w", err)
	}
	csar := &CSAR{Scope: &Scope{Root: dir, dir: dir}}
	defer func() {
		if err != nil {
			err = errors.Join(err, csar.Close())
		}
	}()

	for _, f := range zr.File {
		if !isCSARChart(f.Name) {
			continue
		}
		dest, err := unzipFile(f, dir)
		if err != nil {
			return nil, &ExtractionError{Path: path, Err: err}
		}
		csar.Charts = append(csar.Charts, dest)
	}
	slices.Sort(csar.Charts)

	csar.images, csar.imagesErr = readLines(&zr.Reader, CSARImagesFile)
	if csar.imagesErr != nil {
		csar.imagesErr = fmt.Errorf("failed to read %s from %s: %w", CSARImagesFile, filepath.Base(path), csar.imagesErr)
	}

	slog.DebugContext(ctx, "extracted csar", "csar", path, "charts", len(csar.Charts))
	return csar, nil
}

func isCSARChart(name string) bool {
	return strings.HasPrefix(name, CSARChartsDir) && strings.HasSuffix(name, "tgz") && !strings.HasSuffix(name, "/")
}

func unzipFile(f *zip.File, dir string) (_ string, err error) {
	if !filepath.IsLocal(f.Name) {
		return "", fmt.Errorf("invalid entry name %q", f.Name)
	}
	dest := filepath.Join(dir, filepath.FromSlash(f.Name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}

	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() {
		err = errors.Join(err, src.Close())
	}()
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()
	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return dest, nil
}

func readLines(zr *zip.Reader, name string) (_ []string, err error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
