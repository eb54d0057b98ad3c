package depsolver

import (
	"strconv"
	"strings"
)

// CompareVersions orders two RPM version strings, honoring the
// epoch:version-release form. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}

	epochA, restA := splitEpoch(a)
	epochB, restB := splitEpoch(b)
	if epochA != epochB {
		if epochA < epochB {
			return -1
		}
		return 1
	}

	verA, relA := splitRelease(restA)
	verB, relB := splitRelease(restB)

	if cmp := rpmVerCmp(verA, verB); cmp != 0 {
		return cmp
	}

	// A bare version matches any release of that same version, so a
	// constraint like ">= 4.0" accepts "4.0-12".
	if relA == "" || relB == "" {
		return 0
	}
	return rpmVerCmp(relA, relB)
}

func splitEpoch(ver string) (epoch int, rest string) {
	parts := strings.SplitN(ver, ":", 2)
	if len(parts) == 2 {
		if n, err := strconv.Atoi(parts[0]); err == nil {
			return n, parts[1]
		}
	}
	return 0, ver
}

func splitRelease(ver string) (version, release string) {
	if i := strings.LastIndex(ver, "-"); i >= 0 {
		return ver[:i], ver[i+1:]
	}
	return ver, ""
}

// rpmVerCmp compares two version fragments segment by segment the way
// rpm's own comparison does: alternating numeric and alphabetic runs,
// numeric segments beating alphabetic ones, tilde sorting before anything.
func rpmVerCmp(a, b string) int {
	for a != "" || b != "" {
		// tilde sorts lower than everything, including end of string
		tildeA := strings.HasPrefix(a, "~")
		tildeB := strings.HasPrefix(b, "~")
		if tildeA || tildeB {
			if tildeA && tildeB {
				a, b = a[1:], b[1:]
				continue
			}
			if tildeA {
				return -1
			}
			return 1
		}

		a = trimSeparators(a)
		b = trimSeparators(b)
		if a == "" || b == "" {
			break
		}

		segA, restA, numA := nextSegment(a)
		segB, restB, numB := nextSegment(b)

		if numA != numB {
			// numeric segments always win over alphabetic ones
			if numA {
				return 1
			}
			return -1
		}

		var cmp int
		if numA {
			trimmedA := strings.TrimLeft(segA, "0")
			trimmedB := strings.TrimLeft(segB, "0")
			switch {
			case len(trimmedA) != len(trimmedB):
				if len(trimmedA) < len(trimmedB) {
					cmp = -1
				} else {
					cmp = 1
				}
			default:
				cmp = strings.Compare(trimmedA, trimmedB)
			}
		} else {
			cmp = strings.Compare(segA, segB)
		}
		if cmp != 0 {
			return cmp
		}

		a, b = restA, restB
	}

	a = trimSeparators(a)
	b = trimSeparators(b)
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

func trimSeparators(s string) string {
	return strings.TrimLeft(s, ".-_+")
}

func nextSegment(s string) (seg, rest string, numeric bool) {
	if s == "" {
		return "", "", false
	}
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	isAlpha := func(c byte) bool {
		return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}

	if isDigit(s[0]) {
		i := 0
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		return s[:i], s[i:], true
	}
	if isAlpha(s[0]) {
		i := 0
		for i < len(s) && isAlpha(s[i]) {
			i++
		}
		return s[:i], s[i:], false
	}
	// unknown byte, skip it
	return nextSegment(s[1:])
}
