package pyproject

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/frederic-klein/yapm/internal/dist"
	"github.com/frederic-klein/yapm/internal/requirements"
)

type document struct {
	Project struct {
		Name         string              `toml:"name"`
		Dependencies []string            `toml:"dependencies"`
		Optional     map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// ParseFile reads the `[project] dependencies` of a pyproject.toml, plus the
// optional-dependencies groups named in extras.
func ParseFile(path string, extras ...string) ([]dist.Requirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pyproject file: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pyproject file: %w", err)
	}

	lines := doc.Project.Dependencies
	for _, extra := range extras {
		group, ok := doc.Project.Optional[extra]
		if !ok {
			return nil, fmt.Errorf("pyproject has no optional dependency group %q", extra)
		}
		lines = append(lines, group...)
	}

	reqs := make([]dist.Requirement, 0, len(lines))
	for _, line := range lines {
		req, err := requirements.ParseRequirement(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
