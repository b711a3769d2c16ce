package extract

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/recipe-extractor/constants"
)

// Strategy turns document bytes into text.
type Strategy func(ctx context.Context, data []byte, opts Options) (Output, error)

// Capability is one entry of the registry. Predicates receive a normalized content type
// (no parameters, lower case) and a normalized extension (no dot, lower case).
type Capability struct {
	Name             constants.Format
	MatchContentType func(contentType string) bool
	MatchExtension   func(ext string) bool
	Extract          Strategy
}

// Registry keeps capabilities in priority order.
type Registry struct {
	mu   sync.RWMutex
	caps []Capability
}

func NewRegistry(caps ...Capability) *Registry {
	return &Registry{caps: caps}
}

// Register appends a capability after the existing ones.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps = append(r.caps, c)
}

// Names lists capability names in priority order.
func (r *Registry) Names() []constants.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]constants.Format, 0, len(r.caps))
	for _, c := range r.caps {
		out = append(out, c.Name)
	}
	return out
}

// Select checks every content-type predicate first, then every extension predicate.
func (r *Registry) Select(contentType, filename string) (Capability, error) {
	ct := constants.NormalizeContentType(contentType)
	ext := constants.NormalizeExt(filepath.Ext(filename))

	r.mu.RLock()
	defer r.mu.RUnlock()
	if ct != "" && ct != "application/octet-stream" {
		for _, c := range r.caps {
			if c.MatchContentType != nil && c.MatchContentType(ct) {
				return c, nil
			}
		}
	}
	if ext != "" {
		for _, c := range r.caps {
			if c.MatchExtension != nil && c.MatchExtension(ext) {
				return c, nil
			}
		}
	}
	return Capability{}, &UnsupportedFormatError{ContentType: contentType, Filename: filename}
}

// ContentTypes matches exact types; an entry ending in "/*" matches the whole family.
func ContentTypes(types ...string) func(string) bool {
	return func(ct string) bool {
		for _, t := range types {
			if prefix, ok := strings.CutSuffix(t, "/*"); ok {
				if strings.HasPrefix(ct, prefix+"/") {
					return true
				}
				continue
			}
			if ct == t {
				return true
			}
		}
		return false
	}
}

func Extensions(exts ...string) func(string) bool {
	return func(ext string) bool {
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}
