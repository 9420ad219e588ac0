// Package testutil provides fixtures shared by the package tests: chart
// directories and archives on disk and an in-process OCI registry.
package testutil

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFiles writes files relative to root, creating parent directories.
func WriteFiles(tb testing.TB, root string, files map[string]string) {
	tb.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(tb, os.WriteFile(path, []byte(content), 0o644))
	}
}

// Chart writes a chart directory named name below parent and returns its path.
func Chart(tb testing.TB, parent, name, version string, files map[string]string) string {
	tb.Helper()
	dir := filepath.Join(parent, name)
	WriteFiles(tb, dir, map[string]string{
		"Chart.yaml": fmt.Sprintf("apiVersion: v2\nname: %s\nversion: %s\n", name, version),
	})
	WriteFiles(tb, dir, files)
	return dir
}

// TarGz packages srcDir into a gzipped tar at dest, with the base name of
// srcDir as the single top level directory, the way helm package does.
func TarGz(tb testing.TB, srcDir, dest string) string {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(filepath.Dir(dest), 0o755))
	out, err := os.Create(dest)
	require.NoError(tb, err)
	defer func() {
		require.NoError(tb, out.Close())
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	base := filepath.Base(srcDir)

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(base, rel))
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	require.NoError(tb, err)
	require.NoError(tb, tw.Close())
	require.NoError(tb, gz.Close())
	return dest
}

// Zip writes a zip file at dest with the given entries, in name order.
func Zip(tb testing.TB, dest string, entries map[string][]byte) string {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(filepath.Dir(dest), 0o755))
	out, err := os.Create(dest)
	require.NoError(tb, err)
	defer func() {
		require.NoError(tb, out.Close())
	}()

	zw := zip.NewWriter(out)
	for _, name := range slices.Sorted(maps.Keys(entries)) {
		w, err := zw.Create(name)
		require.NoError(tb, err)
		_, err = w.Write(entries[name])
		require.NoError(tb, err)
	}
	require.NoError(tb, zw.Close())
	return dest
}

// ReadFile returns the contents of the file at path.
func ReadFile(tb testing.TB, path string) []byte {
	tb.Helper()
	data, err := os.ReadFile(path)
	require.NoError(tb, err)
	return data
}
