package constants

import (
	"path/filepath"
	"strings"
)

// Document classes routed to their own extraction pipeline.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the document classes the extractor knows about.
var FileTypes = []string{PDF, IMAGE}

// AllowedExtensions maps supported file extensions to their document class.
var AllowedExtensions = map[string]string{
	"pdf":  PDF,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the document class for an extension, or "" if unsupported.
func MapExtToFormat(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// FormatOf returns the document class of a path based on its extension.
func FormatOf(path string) string {
	return MapExtToFormat(filepath.Ext(path))
}

func IsPDF(path string) bool   { return FormatOf(path) == PDF }
func IsImage(path string) bool { return FormatOf(path) == IMAGE }
