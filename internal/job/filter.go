package job

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Filter selects jobs by name or script path.
type Filter struct {
	include []glob.Glob
	exclude []glob.Glob
	// IncludeDisabled keeps jobs whose Enabled flag is false.
	IncludeDisabled bool
}

// NewFilter compiles include and exclude patterns. Patterns use '/' as the
// separator, so "**/Sides/*" matches scripts in any Sides folder.
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range include {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		f.include = append(f.include, g)
	}
	for _, p := range exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		f.exclude = append(f.exclude, g)
	}
	return f, nil
}

// Match reports whether d passes the filter. With no include patterns every
// job is included; exclude patterns always win.
func (f *Filter) Match(d Descriptor) bool {
	if !f.IncludeDisabled && !d.IsEnabled() {
		return false
	}

	keys := []string{d.DisplayName(), filepath.ToSlash(d.ScriptPath)}

	for _, g := range f.exclude {
		if matchAny(g, keys) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if matchAny(g, keys) {
			return true
		}
	}
	return false
}

// Apply returns the matching jobs in their original order.
func (f *Filter) Apply(jobs []Descriptor) []Descriptor {
	out := make([]Descriptor, 0, len(jobs))
	for _, d := range jobs {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

func matchAny(g glob.Glob, keys []string) bool {
	for _, k := range keys {
		if g.Match(k) {
			return true
		}
	}
	return false
}
