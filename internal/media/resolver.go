package media

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// Resolver turns stored relative image paths into public URLs. URLs carry the
// file's modification time as a cache-busting query parameter.
type Resolver struct {
	fs          afero.Fs
	baseURL     string
	placeholder string
}

// NewResolver serves files found under root. Paths that escape root resolve
// to the placeholder.
func NewResolver(root, baseURL, placeholder string) *Resolver {
	return NewResolverFs(afero.NewBasePathFs(afero.NewOsFs(), root), baseURL, placeholder)
}

func NewResolverFs(fs afero.Fs, baseURL, placeholder string) *Resolver {
	return &Resolver{
		fs:          fs,
		baseURL:     strings.TrimRight(baseURL, "/"),
		placeholder: strings.TrimLeft(placeholder, "/"),
	}
}

// Resolve returns the public URL for a stored image path. Absolute http(s)
// URLs pass through unchanged. Empty or missing files fall back to the
// placeholder image.
func (r *Resolver) Resolve(stored *string) string {
	if stored != nil {
		p := strings.TrimSpace(*stored)
		if isAbsoluteURL(p) {
			return p
		}
		if p != "" {
			if url, ok := r.versioned(p); ok {
				return url
			}
		}
	}
	return r.Placeholder()
}

// Placeholder is the URL of the default product image.
func (r *Resolver) Placeholder() string {
	if url, ok := r.versioned(r.placeholder); ok {
		return url
	}
	return r.baseURL + "/" + r.placeholder
}

func (r *Resolver) versioned(p string) (string, bool) {
	clean := strings.TrimLeft(path.Clean("/"+p), "/")
	if clean == "" {
		return "", false
	}
	info, err := r.fs.Stat(clean)
	if err != nil || info.IsDir() {
		return "", false
	}
	return fmt.Sprintf("%s/%s?v=%d", r.baseURL, clean, info.ModTime().Unix()), true
}

func isAbsoluteURL(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
