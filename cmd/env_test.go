package main

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `First Name,Last Name,URL,Email Address,Company,Position,Connected On
Ada,Lovelace,,,Analytical Engines,Engineer,01 Mar 2026
`

func TestLoadContacts_FromCSV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "Connections.csv")
	require.NoError(t, os.WriteFile(p, []byte(testCSV), 0644))

	list, err := loadContacts("", p)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ada", list[0].FirstName)
}

func TestLoadContacts_FromZip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "export.zip")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("Connections.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte(testCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	list, err := loadContacts(p, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Lovelace", list[0].LastName)
}

func TestLoadContacts_FlagValidation(t *testing.T) {
	_, err := loadContacts("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--zip or --csv")

	_, err = loadContacts("a.zip", "b.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestShortID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "batch-1", shortID("batch-1"))
	long := "batch_abc123def456ghi789"
	assert.Equal(t, long[:16]+"…", shortID(long))
}
