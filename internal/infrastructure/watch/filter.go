package watch

import (
	"path/filepath"
	"sync"

	"github.com/gobwas/glob"
)

// SuffixFilter gates paths by exact, case-sensitive extension match.
// Exclude patterns are globs matched against the base name and win over the
// suffix, which keeps editor temp files and partial downloads out.
type SuffixFilter struct {
	mu       sync.RWMutex
	suffix   string
	patterns []string
	exclude  []glob.Glob
}

// NewSuffixFilter creates a filter for suffix (for example ".csv"). Patterns
// that do not compile are ignored; use CompileExclude to check them first.
func NewSuffixFilter(suffix string, exclude ...string) *SuffixFilter {
	f := &SuffixFilter{suffix: suffix}
	f.setExclude(exclude)
	return f
}

// CompileExclude compiles glob patterns such as "*.tmp" or "{.~*,~$*}".
func CompileExclude(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, filepath.Separator)
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Matches returns true if the path passes the filter.
func (f *SuffixFilter) Matches(path string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	base := filepath.Base(path)
	for _, g := range f.exclude {
		if g.Match(base) {
			return false
		}
	}
	return filepath.Ext(path) == f.suffix
}

// Suffix returns the current suffix.
func (f *SuffixFilter) Suffix() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.suffix
}

// SetSuffix replaces the suffix.
func (f *SuffixFilter) SetSuffix(suffix string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suffix = suffix
}

// Exclude returns a copy of the exclude patterns.
func (f *SuffixFilter) Exclude() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.patterns...)
}

// SetExclude replaces the exclude patterns.
func (f *SuffixFilter) SetExclude(patterns ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setExclude(patterns)
}

func (f *SuffixFilter) setExclude(patterns []string) {
	f.patterns = f.patterns[:0]
	f.exclude = f.exclude[:0]
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, filepath.Separator)
		if err != nil {
			continue
		}
		f.patterns = append(f.patterns, pattern)
		f.exclude = append(f.exclude, g)
	}
}
