package depsolver

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/open-edge-platform/pkg-pipeline/internal/specfile"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
)

// Mode selects which requirement lists contribute to the dependency set.
type Mode int

const (
	// ModeBuildOnly collects only BuildRequires entries.
	ModeBuildOnly Mode = iota
	// ModeFull additionally collects runtime Requires, including those of
	// %package sections.
	ModeFull
)

// ParseMode maps the CLI mode flag onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "build-only", "build":
		return ModeBuildOnly, nil
	case "full":
		return ModeFull, nil
	}
	return 0, fmt.Errorf("unknown solver mode %q (expected build-only or full)", s)
}

var archSuffixes = []string{".x86_64", ".aarch64", ".i686", ".noarch", ".src"}

// NormalizeName case-folds a requirement name and strips architecture
// qualifiers like "()(64bit)" or a trailing ".x86_64".
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, "()(64bit)")
	for _, suffix := range archSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}

// DependencySet is a deduplicated set of requirements, unique by
// normalized package name.
type DependencySet struct {
	entries map[string]*bounds
}

// NewDependencySet returns an empty set.
func NewDependencySet() *DependencySet {
	return &DependencySet{entries: make(map[string]*bounds)}
}

// Add folds one requirement into the set. Requirements whose constraints
// agree are deduplicated silently; incompatible constraints for the same
// normalized name yield a ConflictError.
func (ds *DependencySet) Add(req specfile.Requirement) error {
	name := NormalizeName(req.Name)
	if name == "" {
		return fmt.Errorf("requirement with empty name")
	}

	c := Constraint{Op: req.Op, Version: req.Version}
	entry, ok := ds.entries[name]
	if !ok {
		entry = &bounds{}
		ds.entries[name] = entry
	}

	if !entry.merge(c) {
		existing := make([]string, 0, 2)
		for _, e := range entry.all() {
			existing = append(existing, e.String())
		}
		return &ConflictError{
			Name:     name,
			Existing: strings.Join(existing, ","),
			Incoming: c.String(),
		}
	}
	return nil
}

// Len returns the number of distinct package names in the set.
func (ds *DependencySet) Len() int { return len(ds.entries) }

// Render returns the normalized requirement strings sorted by name, one
// per entry, in the space-free form the package manager accepts
// ("make>=4.0", "gcc").
func (ds *DependencySet) Render() []string {
	names := make([]string, 0, len(ds.entries))
	for name := range ds.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, ds.entries[name].render(name))
	}
	return out
}

// WriteTo emits the rendered set newline-delimited, ready to pipe into a
// package manager batch install.
func (ds *DependencySet) WriteTo(w io.Writer) error {
	for _, line := range ds.Render() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Solve parses each metadata file independently and unions the requested
// requirement lists into a single DependencySet. The solver never invokes
// the installer; conflicts or parse failures yield an error and no output.
func Solve(paths []string, mode Mode) (*DependencySet, error) {
	log := logger.Logger()

	mds, err := specfile.ParseAll(paths)
	if err != nil {
		return nil, err
	}

	ds := NewDependencySet()
	for _, md := range mds {
		for _, req := range md.BuildRequires {
			if err := ds.Add(req); err != nil {
				return nil, fmt.Errorf("%s: %w", md.Path, err)
			}
		}
		if mode != ModeFull {
			continue
		}
		for _, req := range md.Requires {
			if err := ds.Add(req); err != nil {
				return nil, fmt.Errorf("%s: %w", md.Path, err)
			}
		}
		for _, sub := range md.Subpackages {
			for _, req := range sub.Requires {
				if err := ds.Add(req); err != nil {
					return nil, fmt.Errorf("%s (%%package %s): %w", md.Path, sub.Name, err)
				}
			}
		}
	}

	log.Debugf("solved %d metadata files into %d requirements", len(mds), ds.Len())
	return ds, nil
}
