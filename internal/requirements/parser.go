package requirements

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/frederic-klein/yapm/internal/dist"
	"github.com/frederic-klein/yapm/internal/names"
)

// Parser parses pip-style requirements files.
type Parser struct{}

// NewParser creates a new requirements parser.
func NewParser() *Parser {
	return &Parser{}
}

var (
	directRe  = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)(\[[^\]]*\])?\s*@\s*(\S+)$`)
	requireRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)(\[[^\]]*\])?\s*(.*)$`)
	includeRe = regexp.MustCompile(`^(?:-r|--requirement)\s+(\S+)`)
)

// ParseFile parses a requirements file, following `-r`/`--requirement`
// includes relative to the including file.
func (p *Parser) ParseFile(path string) ([]dist.Requirement, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening requirements file: %w", err)
	}
	defer file.Close()

	var reqs []dist.Requirement
	lineNo := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		if matches := includeRe.FindStringSubmatch(line); matches != nil {
			included, err := p.ParseFile(filepath.Join(filepath.Dir(path), matches[1]))
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, included...)
			continue
		}

		// Other pip options (--index-url, --hash, ...) are not interpreted
		// here; the CLI has its own flags for the ones yapm understands.
		if strings.HasPrefix(line, "-") {
			zap.L().Sugar().Debugf("%s:%d: skipping option line %q", path, lineNo, line)
			continue
		}

		req, err := ParseRequirement(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		reqs = append(reqs, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements file: %w", err)
	}

	return reqs, nil
}

// ParseRequirement parses a single requirement line: `name`, `name>=1.0`,
// `name[extra]==1.0` or a direct reference `name @ https://...`. An
// environment marker after `;` is stripped; extras are accepted and ignored.
func ParseRequirement(line string) (dist.Requirement, error) {
	if idx := strings.Index(line, ";"); idx != -1 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return dist.Requirement{}, fmt.Errorf("empty requirement")
	}

	if matches := directRe.FindStringSubmatch(line); matches != nil {
		name, err := names.ParseName(matches[1])
		if err != nil {
			return dist.Requirement{}, err
		}
		return dist.Requirement{Name: name, URL: matches[3]}, nil
	}

	matches := requireRe.FindStringSubmatch(line)
	if matches == nil {
		return dist.Requirement{}, fmt.Errorf("cannot parse requirement %q", line)
	}

	name, err := names.ParseName(matches[1])
	if err != nil {
		return dist.Requirement{}, err
	}

	constraint := strings.TrimSpace(matches[3])
	constraint = strings.TrimPrefix(constraint, "(")
	constraint = strings.TrimSuffix(constraint, ")")
	if constraint != "" && !strings.ContainsAny(constraint[:1], "<>=!~") {
		return dist.Requirement{}, fmt.Errorf("cannot parse version constraint %q", constraint)
	}

	return dist.Requirement{Name: name, Constraint: constraint}, nil
}

func stripComment(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		return ""
	}
	if idx := strings.Index(trimmed, " #"); idx != -1 {
		trimmed = strings.TrimSpace(trimmed[:idx])
	}
	return trimmed
}
