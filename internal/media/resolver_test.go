package media

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	fs := afero.NewMemMapFs()
	mtime := time.Unix(1700000000, 0)

	require.NoError(t, afero.WriteFile(fs, "uploads/shoe.png", []byte("png"), 0o644))
	require.NoError(t, fs.Chtimes("uploads/shoe.png", mtime, mtime))
	require.NoError(t, afero.WriteFile(fs, "uploads/default.png", []byte("png"), 0o644))
	require.NoError(t, fs.Chtimes("uploads/default.png", mtime, mtime))

	return NewResolverFs(fs, "https://shop.example.com/media/", "uploads/default.png")
}

func TestResolve(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name   string
		stored *string
		want   string
	}{
		{"existing file gets mtime version", strPtr("uploads/shoe.png"), "https://shop.example.com/media/uploads/shoe.png?v=1700000000"},
		{"leading slash tolerated", strPtr("/uploads/shoe.png"), "https://shop.example.com/media/uploads/shoe.png?v=1700000000"},
		{"absolute url untouched", strPtr("https://cdn.example.com/a.png"), "https://cdn.example.com/a.png"},
		{"missing file falls back", strPtr("uploads/gone.png"), "https://shop.example.com/media/uploads/default.png?v=1700000000"},
		{"nil falls back", nil, "https://shop.example.com/media/uploads/default.png?v=1700000000"},
		{"blank falls back", strPtr("  "), "https://shop.example.com/media/uploads/default.png?v=1700000000"},
		{"directory falls back", strPtr("uploads"), "https://shop.example.com/media/uploads/default.png?v=1700000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.stored))
		})
	}
}

func TestPlaceholder_MissingFileStillReturnsURL(t *testing.T) {
	r := NewResolverFs(afero.NewMemMapFs(), "http://localhost:8080/media", "uploads/default.png")
	assert.Equal(t, "http://localhost:8080/media/uploads/default.png", r.Resolve(nil))
}
