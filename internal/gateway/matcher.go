package gateway

import (
	"fmt"
	"path"
	"strings"
)

// PathMatcher matches request paths against Ant-style globs. A "**"
// segment matches zero or more path segments; any other segment is
// matched with path.Match, so "*" never crosses a "/".
type PathMatcher struct {
	patterns [][]string
}

// NewPathMatcher compiles patterns. Malformed globs are rejected here
// instead of silently never matching.
func NewPathMatcher(patterns []string) (*PathMatcher, error) {
	m := &PathMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("pattern %q must start with /", p)
		}
		segs := splitPath(p)
		for _, s := range segs {
			if s == "**" {
				continue
			}
			if _, err := path.Match(s, ""); err != nil {
				return nil, fmt.Errorf("pattern %q: %w", p, err)
			}
		}
		m.patterns = append(m.patterns, segs)
	}
	return m, nil
}

// Match reports whether the cleaned form of p matches any pattern.
func (m *PathMatcher) Match(p string) bool {
	segs := splitPath(path.Clean("/" + p))
	for _, pat := range m.patterns {
		if matchSegments(pat, segs) {
			return true
		}
	}
	return false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			for i := 0; i <= len(segs); i++ {
				if matchSegments(rest, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], segs[0]); !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}
