package depsolver

import (
	"fmt"
	"strings"
)

// Constraint is a single version bound on a requirement: an operator plus
// an RPM version string. A zero Constraint means "any version".
type Constraint struct {
	Op      string // "", "=", "<", "<=", ">", ">="
	Version string
}

func (c Constraint) isAny() bool { return c.Op == "" }

func (c Constraint) String() string {
	if c.isAny() {
		return ""
	}
	return c.Op + c.Version
}

// Satisfies reports whether a concrete version meets the constraint.
func (c Constraint) Satisfies(version string) bool {
	if c.isAny() {
		return true
	}
	cmp := CompareVersions(version, c.Version)
	switch c.Op {
	case "=":
		return cmp == 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// Compatible reports whether two constraints can both hold for a single
// package, using interval intersection over the RPM version ordering.
func Compatible(a, b Constraint) bool {
	if a.isAny() || b.isAny() {
		return true
	}
	if a.Op == "=" {
		return b.Satisfies(a.Version)
	}
	if b.Op == "=" {
		return a.Satisfies(b.Version)
	}

	aLower := a.Op == ">" || a.Op == ">="
	bLower := b.Op == ">" || b.Op == ">="
	if aLower == bLower {
		// two bounds in the same direction always overlap
		return true
	}

	lower, upper := a, b
	if bLower {
		lower, upper = b, a
	}
	cmp := CompareVersions(lower.Version, upper.Version)
	if cmp < 0 {
		return true
	}
	if cmp > 0 {
		return false
	}
	// touching bounds intersect only when both ends are inclusive
	return lower.Op == ">=" && upper.Op == "<="
}

// bounds tracks the merged constraints seen so far for one package name.
// At most an exact pin, or a lower and an upper bound, survive merging.
type bounds struct {
	exact *Constraint
	lower *Constraint
	upper *Constraint
}

func (b *bounds) all() []Constraint {
	var cs []Constraint
	if b.exact != nil {
		cs = append(cs, *b.exact)
	}
	if b.lower != nil {
		cs = append(cs, *b.lower)
	}
	if b.upper != nil {
		cs = append(cs, *b.upper)
	}
	return cs
}

// merge folds a new constraint in, keeping the tightest equivalent set.
// It reports false when the constraint is incompatible with what is
// already recorded.
func (b *bounds) merge(c Constraint) bool {
	if c.isAny() {
		return true
	}
	for _, existing := range b.all() {
		if !Compatible(existing, c) {
			return false
		}
	}

	switch c.Op {
	case "=":
		// exact pin subsumes any satisfied bounds
		b.exact = &c
		b.lower, b.upper = nil, nil
	case ">", ">=":
		if b.exact != nil {
			return true
		}
		if b.lower == nil || tighterLower(c, *b.lower) {
			b.lower = &c
		}
	case "<", "<=":
		if b.exact != nil {
			return true
		}
		if b.upper == nil || tighterUpper(c, *b.upper) {
			b.upper = &c
		}
	default:
		return false
	}
	return true
}

func tighterLower(a, b Constraint) bool {
	cmp := CompareVersions(a.Version, b.Version)
	if cmp != 0 {
		return cmp > 0
	}
	return a.Op == ">" && b.Op == ">="
}

func tighterUpper(a, b Constraint) bool {
	cmp := CompareVersions(a.Version, b.Version)
	if cmp != 0 {
		return cmp < 0
	}
	return a.Op == "<" && b.Op == "<="
}

func (b *bounds) render(name string) string {
	cs := b.all()
	if len(cs) == 0 {
		return name
	}
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return name + strings.Join(parts, ",")
}

// ConflictError reports two incompatible version constraints declared for
// the same normalized package name.
type ConflictError struct {
	Name     string
	Existing string
	Incoming string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting constraints for %q: %s vs %s",
		e.Name, e.Existing, e.Incoming)
}
