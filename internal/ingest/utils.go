package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/recipe-extractor/constants"
)

// AllowedExt reports whether ext is in the set, or in constants.AllowedExtensions when set is nil.
func AllowedExt(ext string, set map[string]struct{}) bool {
	ext = constants.NormalizeExt(ext)
	if set == nil {
		set = constants.AllowedExtensions
	}
	_, ok := set[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

func extSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return nil
	}
	m := map[string]struct{}{}
	for _, e := range exts {
		if e = constants.NormalizeExt(e); e != "" {
			m[e] = struct{}{}
		}
	}
	return m
}
