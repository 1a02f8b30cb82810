// Package archive extracts the connections table from a network-export ZIP.
package archive

import (
	"archive/zip"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoConnectionsFile is returned when the archive contains no connections
// table. This is a hard precondition failure for the rest of the pipeline.
var ErrNoConnectionsFile = eris.New("archive: no connections table found in export")

// conventionalPaths are the archive layouts exporters are known to produce,
// tried before falling back to a full filename search.
var conventionalPaths = []string{
	"Connections.csv",
	"connections.csv",
	"Connections/Connections.csv",
}

// ExtractConnectionsCSV opens a network-export ZIP and returns the raw text
// of its connections table.
func ExtractConnectionsCSV(zipPath string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "archive: open zip")
	}
	defer r.Close() //nolint:errcheck

	byName := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			byName[f.Name] = f
		}
	}

	for _, p := range conventionalPaths {
		if f, ok := byName[p]; ok {
			return readEntry(f)
		}
	}

	// Fallback: search the whole tree by base filename.
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.EqualFold(path.Base(f.Name), "connections.csv") {
			return readEntry(f)
		}
	}

	return "", ErrNoConnectionsFile
}

func readEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(err, "archive: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", eris.Wrapf(err, "archive: read entry %s", f.Name)
	}
	return string(data), nil
}
