package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/text-extractor/constants"
)

// AllowedExt checks if a file extension is one we can extract (pdf/jpg/jpeg/png).
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// relSlash returns path relative to root with forward slashes, or path itself
// when it is not under root.
func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
