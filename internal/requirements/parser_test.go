package requirements

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		line           string
		wantName       string
		wantConstraint string
		wantURL        string
		wantErr        bool
	}{
		{line: "requests", wantName: "requests"},
		{line: "requests==2.31.0", wantName: "requests", wantConstraint: "==2.31.0"},
		{line: "requests >= 2.0, < 3.0", wantName: "requests", wantConstraint: ">= 2.0, < 3.0"},
		{line: "requests (>=2.0)", wantName: "requests", wantConstraint: ">=2.0"},
		{line: "requests[security]==2.31.0", wantName: "requests", wantConstraint: "==2.31.0"},
		{line: "Django~=4.2", wantName: "django", wantConstraint: "~=4.2"},
		{line: "idna>=2.5 ; python_version < \"3.8\"", wantName: "idna", wantConstraint: ">=2.5"},
		{line: "pkg @ https://example.com/pkg-1.0.tar.gz", wantName: "pkg", wantURL: "https://example.com/pkg-1.0.tar.gz"},
		{line: "pkg @ git+https://example.com/r.git@v1.0#subdirectory=src", wantName: "pkg", wantURL: "git+https://example.com/r.git@v1.0#subdirectory=src"},
		{line: "", wantErr: true},
		{line: "-not-a-name", wantErr: true},
		{line: "requests 2.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			req, err := ParseRequirement(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRequirement(%q) should fail", tt.line)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequirement(%q) error = %v", tt.line, err)
			}
			if req.Name.String() != tt.wantName {
				t.Errorf("name = %q, want %q", req.Name, tt.wantName)
			}
			if req.Constraint != tt.wantConstraint {
				t.Errorf("constraint = %q, want %q", req.Constraint, tt.wantConstraint)
			}
			if req.URL != tt.wantURL {
				t.Errorf("url = %q, want %q", req.URL, tt.wantURL)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "requirements.txt", `# comment
requests==2.31.0

flask>=2.0  # inline comment
--index-url https://pypi.example.com/simple
pkg @ https://example.com/pkg-1.0.tar.gz
`)

	reqs, err := NewParser().ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if len(reqs) != 3 {
		t.Fatalf("got %d requirements, want 3", len(reqs))
	}
	if reqs[0].Name != "requests" || reqs[0].Constraint != "==2.31.0" {
		t.Errorf("first requirement = %+v", reqs[0])
	}
	if reqs[1].Name != "flask" || reqs[1].Constraint != ">=2.0" {
		t.Errorf("second requirement = %+v", reqs[1])
	}
	if reqs[2].URL != "https://example.com/pkg-1.0.tar.gz" {
		t.Errorf("third requirement = %+v", reqs[2])
	}
}

func TestParseFile_Includes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.txt", "requests==2.31.0\n")
	path := writeFile(t, dir, "requirements.txt", "-r base.txt\nflask\n")

	reqs, err := NewParser().ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if len(reqs) != 2 {
		t.Fatalf("got %d requirements, want 2", len(reqs))
	}
	if reqs[0].Name != "requests" {
		t.Errorf("included requirement first, got %+v", reqs[0])
	}
}

func TestParseFile_Missing(t *testing.T) {
	if _, err := NewParser().ParseFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("ParseFile() should fail for a missing file")
	}
}
