package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/config"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/fields"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/intake"
	docaimocks "github.com/CEOAOVA/controlnotdev-sub000/pkg/docai/mocks"
	rendermocks "github.com/CEOAOVA/controlnotdev-sub000/pkg/render/mocks"
)

func newScanSession(t *testing.T) *intake.Session {
	t.Helper()
	c := &config.Config{}
	table, err := intake.DefaultStrategyTable()
	require.NoError(t, err)
	provider := fields.NewProvider(docaimocks.NewMockClient(t), time.Minute)
	p := intake.New(c, docaimocks.NewMockClient(t), rendermocks.NewMockClient(t), nil, nil, nil, provider, table)
	return p.NewSession()
}

func TestLoadScansByCategory(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{
		"vendedor/ine_frente.jpg",
		"vendedor/ine_reverso.jpg",
		"comprador/ine.png",
	} {
		full := filepath.Join(dir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("scan"), 0o600))
	}
	// A loose file at the top level lands in the first default bucket.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "predial.pdf"), []byte("doc"), 0o600))

	s := newScanSession(t)
	require.NoError(t, loadScans(s, dir))

	assert.Equal(t, 4, s.Files.Total())
	assert.Len(t, s.Files.Files("vendedor"), 3) // two scans + the loose file
	assert.Len(t, s.Files.Files("comprador"), 1)

	vendedor := s.Files.Files("vendedor")
	assert.Equal(t, "image/jpeg", vendedor[1].ContentType)
}

func TestLoadScansEmptyDirectory(t *testing.T) {
	s := newScanSession(t)
	assert.Error(t, loadScans(s, t.TempDir()))
}

func TestLoadScansMissingDirectory(t *testing.T) {
	s := newScanSession(t)
	assert.Error(t, loadScans(s, filepath.Join(t.TempDir(), "nope")))
}
