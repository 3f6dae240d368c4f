package policy

import (
	"path"
	"strings"
)

// PackageList matches package names against exact names and glob patterns.
type PackageList struct {
	exact    map[string]struct{}
	patterns []string
}

// NewPackageList builds a list. Blank entries are dropped.
func NewPackageList(entries []string) *PackageList {
	l := &PackageList{exact: make(map[string]struct{})}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		switch {
		case e == "":
		case strings.ContainsAny(e, "*?["):
			l.patterns = append(l.patterns, e)
		default:
			l.exact[e] = struct{}{}
		}
	}
	return l
}

// Matches reports whether pkg is on the list.
func (l *PackageList) Matches(pkg string) bool {
	if _, ok := l.exact[pkg]; ok {
		return true
	}
	for _, p := range l.patterns {
		if ok, err := path.Match(p, pkg); err == nil && ok {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (l *PackageList) Len() int {
	return len(l.exact) + len(l.patterns)
}
