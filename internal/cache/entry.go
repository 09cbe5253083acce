package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"path/filepath"
	"time"
)

// Entry is one persisted extraction result. A poison entry has empty Text and
// a non-empty Failure; it suppresses retrying a document known to fail.
type Entry struct {
	SourcePath string    `json:"source_path"`
	Text       string    `json:"text"`
	Languages  []string  `json:"languages"`
	Failure    string    `json:"failure,omitempty"`
	WrittenAt  time.Time `json:"written_at"`
}

// Poisoned reports whether the entry records a failed extraction.
func (e Entry) Poisoned() bool {
	return e.Failure != ""
}

// ComputeKey maps a source path to its cache key. Only the path takes part,
// so a renamed file misses and its old record is orphaned.
func ComputeKey(sourcePath string) string {
	p := path.Clean(filepath.ToSlash(sourcePath))
	sum := sha256.Sum256([]byte(p))
	return hex.EncodeToString(sum[:])
}
