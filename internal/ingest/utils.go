package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/doctext/constants"
)

// AllowedExt reports whether the extractor accepts files with this extension.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// extSet turns a user supplied list into a lookup set; empty means every accepted extension.
func extSet(include []string) map[string]struct{} {
	if len(include) == 0 {
		return constants.AllowedExtensions
	}
	out := make(map[string]struct{}, len(include))
	for _, e := range include {
		e = constants.NormalizeExt(strings.TrimSpace(e))
		if AllowedExt(e) {
			out[e] = struct{}{}
		}
	}
	return out
}

func matches(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.ExtOf(path)]
	return ok
}
