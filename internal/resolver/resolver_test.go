package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frederic-klein/yapm/internal/dist"
	"github.com/frederic-klein/yapm/internal/index"
	"github.com/frederic-klein/yapm/internal/names"
	"github.com/frederic-klein/yapm/internal/vcs"
)

const testCommit = "0123456789abcdef0123456789abcdef01234567"

func testIndex(t *testing.T) *index.Client {
	t.Helper()

	documents := map[string]string{
		"/pypi/app/json": `{
			"info": {"name": "app"},
			"releases": {
				"1.0.0": [
					{"filename": "app-1.0.0-py3-none-any.whl", "url": "https://files.example/app-1.0.0-py3-none-any.whl", "digests": {"sha256": "aaa"}},
					{"filename": "app-1.0.0.tar.gz", "url": "https://files.example/app-1.0.0.tar.gz", "digests": {"sha256": "bbb"}}
				]
			}
		}`,
		"/pypi/app/1.0.0/json": `{
			"info": {"name": "app", "requires_dist": ["lib>=1.0", "winlib>=1.0 ; sys_platform == 'win32'"]},
			"releases": {}
		}`,
		"/pypi/lib/json": `{
			"info": {"name": "lib"},
			"releases": {
				"1.2.0": [
					{"filename": "lib-1.2.0.tar.gz", "url": "https://files.example/lib-1.2.0.tar.gz", "digests": {"sha256": "ccc"}}
				]
			}
		}`,
		"/pypi/lib/1.2.0/json": `{"info": {"name": "lib", "requires_dist": ["app>=1.0"]}, "releases": {}}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := documents[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}))
	t.Cleanup(server.Close)

	return index.NewClient(server.URL, t.TempDir())
}

func req(t *testing.T, name, constraint, url string) dist.Requirement {
	t.Helper()
	parsed, err := names.ParseName(name)
	if err != nil {
		t.Fatal(err)
	}
	return dist.Requirement{Name: parsed, Constraint: constraint, URL: url}
}

func TestResolver_Registry(t *testing.T) {
	r := NewResolver(testIndex(t), vcs.NewClient(), names.Specifiers{}, names.Specifiers{})

	locked, err := r.Resolve(context.Background(), []dist.Requirement{req(t, "app", ">=1.0", "")})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// app plus its unconditional dependency lib; winlib is marker-gated and
	// skipped. The lib -> app cycle must terminate.
	if len(locked) != 2 {
		t.Fatalf("got %d locked dists, want 2", len(locked))
	}
	if locked[0].Dist.Name != "app" || locked[0].Dist.Version != "1.0.0" {
		t.Errorf("first = %s %s", locked[0].Dist.Name, locked[0].Dist.Version)
	}
	if !locked[0].Dist.File.IsWheel() {
		t.Error("wheel should be preferred by default")
	}
	if locked[1].Dist.Name != "lib" {
		t.Errorf("second = %s", locked[1].Dist.Name)
	}
	if locked[0].DirectURL != nil {
		t.Error("registry dist must not carry direct URL provenance")
	}
	if locked[0].Source.Kind() != dist.SourceRegistry {
		t.Error("registry dist should classify as SourceRegistry")
	}
}

func TestResolver_NoBinary(t *testing.T) {
	noBinary := names.Collapse(mustSpecifiers(t, ":all:"))
	r := NewResolver(testIndex(t), vcs.NewClient(), noBinary, names.Specifiers{})

	locked, err := r.Resolve(context.Background(), []dist.Requirement{req(t, "app", "", "")})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if locked[0].Dist.File.IsWheel() {
		t.Error("--no-binary :all: should select the sdist")
	}
}

func TestResolver_OnlyBinary_NoWheel(t *testing.T) {
	onlyBinary := names.Collapse(mustSpecifiers(t, "lib"))
	r := NewResolver(testIndex(t), vcs.NewClient(), names.Specifiers{}, onlyBinary)

	// lib publishes only an sdist.
	if _, err := r.Resolve(context.Background(), []dist.Requirement{req(t, "lib", "", "")}); err == nil {
		t.Error("Resolve() should fail when --only-binary matches a wheel-less release")
	}
}

func TestResolver_DirectArchive(t *testing.T) {
	r := NewResolver(testIndex(t), vcs.NewClient(), names.Specifiers{}, names.Specifiers{})

	locked, err := r.Resolve(context.Background(), []dist.Requirement{
		req(t, "pkg", "", "https://example.com/pkg-1.0.tar.gz#subdirectory=src"),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(locked) != 1 {
		t.Fatalf("got %d locked dists, want 1", len(locked))
	}
	record := locked[0].DirectURL
	if record == nil || record.Kind() != dist.DirectURLArchive {
		t.Fatalf("direct archive provenance missing: %+v", record)
	}
	if record.Subdirectory == nil || *record.Subdirectory != "src" {
		t.Errorf("subdirectory = %v", record.Subdirectory)
	}
}

func TestResolver_DirectGitPinnedCommit(t *testing.T) {
	r := NewResolver(testIndex(t), vcs.NewClient(), names.Specifiers{}, names.Specifiers{})

	// A full commit hash pins without touching the network.
	locked, err := r.Resolve(context.Background(), []dist.Requirement{
		req(t, "pkg", "", "git+https://example.com/r.git@"+testCommit),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	record := locked[0].DirectURL
	if record == nil || record.VCS == nil {
		t.Fatal("direct git provenance missing")
	}
	if record.VCS.CommitID != testCommit {
		t.Errorf("commit_id = %q, want %q", record.VCS.CommitID, testCommit)
	}
	if record.VCS.RequestedRevision != testCommit {
		t.Errorf("requested_revision = %q", record.VCS.RequestedRevision)
	}
}

func TestResolver_MalformedDirectURL(t *testing.T) {
	r := NewResolver(testIndex(t), vcs.NewClient(), names.Specifiers{}, names.Specifiers{})

	_, err := r.Resolve(context.Background(), []dist.Requirement{
		req(t, "pkg", "", "git+not a url"),
	})
	if err == nil {
		t.Error("Resolve() should surface the URL parse error")
	}
}

func mustSpecifiers(t *testing.T, tokens ...string) []names.Specifier {
	t.Helper()
	specs := make([]names.Specifier, 0, len(tokens))
	for _, token := range tokens {
		s, err := names.ParseSpecifier(token)
		if err != nil {
			t.Fatal(err)
		}
		specs = append(specs, s)
	}
	return specs
}
