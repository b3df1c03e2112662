package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

// 1x1 transparent GIF.
var tinyGIF = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func newStore(t *testing.T, max int64) (*LocalImageStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalImageStore(dir, "/uploads/", max, nil)
	require.NoError(t, err)
	return s, dir
}

func TestSaveAndServe(t *testing.T) {
	s, dir := newStore(t, 1024)

	url, err := s.Save(context.Background(), "villa.GIF", bytes.NewReader(tinyGIF))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/property-"))
	assert.True(t, strings.HasSuffix(url, ".gif"))

	_, err = os.Stat(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tinyGIF, rec.Body.Bytes())

	require.NoError(t, s.Remove(context.Background(), url))
	require.NoError(t, s.Remove(context.Background(), url), "second remove is a no-op")
}

func TestSaveRejectsExtension(t *testing.T) {
	s, _ := newStore(t, 1024)
	_, err := s.Save(context.Background(), "notes.pdf", bytes.NewReader(tinyGIF))
	assert.True(t, domain.IsKind(err, domain.KindBadRequest))
}

func TestSaveRejectsNonImageContent(t *testing.T) {
	s, _ := newStore(t, 1024)
	_, err := s.Save(context.Background(), "fake.png", strings.NewReader("#!/bin/sh\necho hi\n"))
	assert.True(t, domain.IsKind(err, domain.KindBadRequest))
}

func TestSaveRejectsOversize(t *testing.T) {
	s, dir := newStore(t, 10)
	_, err := s.Save(context.Background(), "big.gif", bytes.NewReader(tinyGIF))
	assert.True(t, domain.IsKind(err, domain.KindBadRequest))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file removed")
}

func TestRemoveIgnoresForeignURL(t *testing.T) {
	s, _ := newStore(t, 1024)
	assert.NoError(t, s.Remove(context.Background(), "https://cdn.example.com/a.png"))
}
