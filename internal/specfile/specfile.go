package specfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
)

// Requirement is one dependency expression as written in a spec file:
// a package or capability name plus an optional version constraint.
type Requirement struct {
	Name    string
	Op      string // "", "=", "<", "<=", ">", ">="
	Version string
}

// Subpackage is one %package section of a spec file.
type Subpackage struct {
	Name     string
	Requires []Requirement
}

// Metadata is the parsed, immutable description of one buildable unit.
type Metadata struct {
	Path          string
	Name          string
	Version       string
	BuildRequires []Requirement
	Requires      []Requirement
	Subpackages   []Subpackage
}

// ParseError reports malformed spec-file input, naming the file and line.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

var validOps = map[string]bool{
	"=": true, "==": true, "<": true, "<=": true, ">": true, ">=": true,
}

// Parse reads a spec file and extracts the package metadata.
// Body sections (%description, %build and friends) are skipped; only the
// preamble tags and %package sections contribute.
func Parse(path string) (*Metadata, error) {
	log := logger.Logger()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spec file %s: %w", path, err)
	}
	defer f.Close()

	md := &Metadata{Path: path}
	var current *Subpackage // nil means the main package preamble
	inPreamble := true

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "%") {
			switch {
			case strings.HasPrefix(line, "%package"):
				name := strings.TrimSpace(strings.TrimPrefix(line, "%package"))
				name = strings.TrimSpace(strings.TrimPrefix(name, "-n"))
				if name == "" {
					return nil, &ParseError{File: path, Line: lineNo, Msg: "%package section without a name"}
				}
				md.Subpackages = append(md.Subpackages, Subpackage{Name: name})
				current = &md.Subpackages[len(md.Subpackages)-1]
				inPreamble = true
			case strings.HasPrefix(line, "%if"), strings.HasPrefix(line, "%else"),
				strings.HasPrefix(line, "%endif"), strings.HasPrefix(line, "%global"),
				strings.HasPrefix(line, "%define"):
				// conditionals and macros do not carry requirements
			default:
				// any other section (%description, %build, ...) ends tag parsing
				// until the next %package
				inPreamble = false
				current = nil
			}
			continue
		}

		if !inPreamble {
			continue
		}

		tag, value, ok := splitTag(line)
		if !ok {
			continue
		}

		switch tag {
		case "name":
			if current == nil {
				md.Name = value
			}
		case "version":
			if current == nil {
				md.Version = value
			}
		case "buildrequires":
			reqs, err := parseRequirementList(path, lineNo, value)
			if err != nil {
				return nil, err
			}
			md.BuildRequires = append(md.BuildRequires, reqs...)
		case "requires":
			reqs, err := parseRequirementList(path, lineNo, value)
			if err != nil {
				return nil, err
			}
			if current != nil {
				current.Requires = append(current.Requires, reqs...)
			} else {
				md.Requires = append(md.Requires, reqs...)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading spec file %s: %w", path, err)
	}

	if md.Name == "" {
		return nil, &ParseError{File: path, Line: lineNo, Msg: "missing Name: tag"}
	}

	log.Debugf("parsed %s: %d build requirements, %d runtime requirements, %d subpackages",
		path, len(md.BuildRequires), len(md.Requires), len(md.Subpackages))

	return md, nil
}

// ParseAll parses each path independently and returns the metadata in order.
func ParseAll(paths []string) ([]*Metadata, error) {
	mds := make([]*Metadata, 0, len(paths))
	for _, p := range paths {
		md, err := Parse(p)
		if err != nil {
			return nil, err
		}
		mds = append(mds, md)
	}
	return mds, nil
}

func splitTag(line string) (tag, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	tag = strings.ToLower(strings.TrimSpace(line[:idx]))
	// tags with parenthesized qualifiers like Requires(post) count as the base tag
	if p := strings.Index(tag, "("); p != -1 {
		tag = tag[:p]
	}
	value = strings.TrimSpace(line[idx+1:])
	return tag, value, true
}

// parseRequirementList handles one tag value, which may carry several
// requirements separated by commas or plain whitespace:
//
//	BuildRequires: make >= 4.0, gcc
//	BuildRequires: autoconf automake libtool
func parseRequirementList(file string, line int, value string) ([]Requirement, error) {
	var reqs []Requirement
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			if strings.Contains(value, ",") {
				return nil, &ParseError{File: file, Line: line, Msg: "empty requirement in list"}
			}
			continue
		}
		parsed, err := parseRequirementTokens(file, line, strings.Fields(part))
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, parsed...)
	}
	if len(reqs) == 0 {
		return nil, &ParseError{File: file, Line: line, Msg: "requirement tag with no value"}
	}
	return reqs, nil
}

func parseRequirementTokens(file string, line int, tokens []string) ([]Requirement, error) {
	var reqs []Requirement
	for i := 0; i < len(tokens); i++ {
		name := tokens[i]
		if validOps[name] {
			return nil, &ParseError{File: file, Line: line,
				Msg: fmt.Sprintf("operator %q without a package name", name)}
		}

		// ">=4.0" following a bare name constrains that name
		if op, ver, found := splitLeadingOp(name); found {
			if len(reqs) == 0 || reqs[len(reqs)-1].Op != "" {
				return nil, &ParseError{File: file, Line: line,
					Msg: fmt.Sprintf("constraint %q has no package name to apply to", name)}
			}
			prev := &reqs[len(reqs)-1]
			prev.Op = op
			prev.Version = ver
			continue
		}

		req := Requirement{Name: name}

		// name may carry the operator glued on: "make>=4.0"
		if base, op, ver, found := splitGluedConstraint(name); found {
			req.Name = base
			req.Op = op
			req.Version = ver
			reqs = append(reqs, req)
			continue
		}

		if i+1 < len(tokens) && validOps[tokens[i+1]] {
			op := tokens[i+1]
			if i+2 >= len(tokens) {
				return nil, &ParseError{File: file, Line: line,
					Msg: fmt.Sprintf("constraint %q %s missing version", name, op)}
			}
			if op == "==" {
				op = "="
			}
			req.Op = op
			req.Version = tokens[i+2]
			if validOps[req.Version] {
				return nil, &ParseError{File: file, Line: line,
					Msg: fmt.Sprintf("constraint %q has operator %q in place of a version", name, req.Version)}
			}
			i += 2
		}

		reqs = append(reqs, req)
	}
	return reqs, nil
}

// splitGluedConstraint recognizes "name>=1.0" style requirements where the
// operator is not whitespace separated.
// splitLeadingOp recognizes ">=4.0" style tokens that constrain the
// preceding bare name.
func splitLeadingOp(token string) (op, ver string, found bool) {
	for _, candidate := range []string{">=", "<=", "==", ">", "<", "="} {
		if strings.HasPrefix(token, candidate) {
			ver = token[len(candidate):]
			if ver == "" {
				return "", "", false
			}
			op = candidate
			if op == "==" {
				op = "="
			}
			return op, ver, true
		}
	}
	return "", "", false
}

func splitGluedConstraint(token string) (base, op, ver string, found bool) {
	for _, candidate := range []string{">=", "<=", "==", ">", "<", "="} {
		if idx := strings.Index(token, candidate); idx > 0 {
			ver = token[idx+len(candidate):]
			if ver == "" {
				return "", "", "", false
			}
			op = candidate
			if op == "==" {
				op = "="
			}
			return token[:idx], op, ver, true
		}
	}
	return "", "", "", false
}
