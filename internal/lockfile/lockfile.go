package lockfile

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/yapm/internal/dist"
)

// FormatVersion is the lock document version this package writes.
const FormatVersion = 1

// Lock is the top-level yapm.lock document.
type Lock struct {
	Version  int       `yaml:"version"`
	Packages []Package `yaml:"packages"`
}

// Package is one locked distribution. URL is the reconstructed source URL;
// registry packages carry the registry digests, direct packages embed their
// provenance record.
type Package struct {
	Name      string          `yaml:"name"`
	Version   string          `yaml:"version,omitempty"`
	URL       string          `yaml:"url"`
	Filename  string          `yaml:"filename,omitempty"`
	SHA256    string          `yaml:"sha256,omitempty"`
	MD5       string          `yaml:"md5,omitempty"`
	DirectURL *dist.DirectURL `yaml:"direct_url,omitempty"`
}

// Write emits the lock document with packages sorted by name, then version,
// so repeated runs produce identical files.
func Write(w io.Writer, lock *Lock) error {
	sorted := make([]Package, len(lock.Packages))
	copy(sorted, lock.Packages)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Version < sorted[j].Version
	})

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	return enc.Encode(&Lock{Version: lock.Version, Packages: sorted})
}

// WriteFile writes the lock document to path.
func WriteFile(path string, lock *Lock) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating lock file: %w", err)
	}
	defer f.Close()

	if err := Write(f, lock); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	return nil
}

// ReadFile loads a lock document.
func ReadFile(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}

	var lock Lock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parsing lock file: %w", err)
	}
	if lock.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported lock file version %d", lock.Version)
	}
	return &lock, nil
}
