package index

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/frederic-klein/yapm/internal/dist"
	"github.com/frederic-klein/yapm/internal/names"
)

const cacheTTL = 1 * time.Hour

// Client queries the PyPI JSON API, caching project documents on disk.
type Client struct {
	baseURL  string
	cacheDir string
	client   *http.Client
}

// NewClient creates a new index client for the given base URL, e.g.
// "https://pypi.org".
func NewClient(baseURL, cacheDir string) *Client {
	return &Client{
		baseURL:  baseURL,
		cacheDir: cacheDir,
		client:   &http.Client{},
	}
}

// Project is the per-package view of the index: every published version with
// its downloadable files.
type Project struct {
	Name     names.PackageName
	Releases map[string][]dist.File
}

type fileDocument struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Digests  struct {
		MD5    string `json:"md5"`
		SHA256 string `json:"sha256"`
	} `json:"digests"`
	Yanked bool `json:"yanked"`
}

type projectDocument struct {
	Info struct {
		Name         string   `json:"name"`
		Version      string   `json:"version"`
		RequiresDist []string `json:"requires_dist"`
	} `json:"info"`
	Releases map[string][]fileDocument `json:"releases"`
}

// Project fetches (or reads from cache) the index document for a package.
func (c *Client) Project(name names.PackageName) (*Project, error) {
	doc, err := c.fetch(fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(name.String())), name.String()+".json")
	if err != nil {
		return nil, err
	}

	project := &Project{
		Name:     name,
		Releases: make(map[string][]dist.File, len(doc.Releases)),
	}
	for version, files := range doc.Releases {
		converted := make([]dist.File, 0, len(files))
		for _, f := range files {
			converted = append(converted, dist.File{
				Filename: f.Filename,
				URL:      f.URL,
				SHA256:   f.Digests.SHA256,
				MD5:      f.Digests.MD5,
				Yanked:   f.Yanked,
			})
		}
		project.Releases[version] = converted
	}
	return project, nil
}

// Requires returns the declared dependencies of one specific release.
func (c *Client) Requires(name names.PackageName, version string) ([]string, error) {
	doc, err := c.fetch(
		fmt.Sprintf("%s/pypi/%s/%s/json", c.baseURL, url.PathEscape(name.String()), url.PathEscape(version)),
		fmt.Sprintf("%s-%s.json", name, version),
	)
	if err != nil {
		return nil, err
	}
	return doc.Info.RequiresDist, nil
}

// BestRelease picks the highest version satisfying the constraint. Yanked
// files are skipped unless the constraint pins an exact version.
func (c *Client) BestRelease(project *Project, constraint string) (string, []dist.File, error) {
	exact := exactPin(constraint)

	var bestVersion string
	var bestFiles []dist.File
	for version, files := range project.Releases {
		if !Satisfies(version, constraint) {
			continue
		}
		usable := files
		if !exact {
			usable = withoutYanked(files)
		}
		if len(usable) == 0 {
			continue
		}
		if bestVersion == "" || Compare(version, bestVersion) > 0 {
			bestVersion = version
			bestFiles = usable
		}
	}

	if bestVersion == "" {
		return "", nil, fmt.Errorf("no release of %s satisfies %q", project.Name, constraint)
	}
	return bestVersion, bestFiles, nil
}

func withoutYanked(files []dist.File) []dist.File {
	kept := make([]dist.File, 0, len(files))
	for _, f := range files {
		if !f.Yanked {
			kept = append(kept, f)
		}
	}
	return kept
}

func (c *Client) fetch(apiURL, cacheName string) (*projectDocument, error) {
	cachePath := filepath.Join(c.cacheDir, "index", cacheName)

	if data, ok := c.readCache(cachePath); ok {
		return parseDocument(data)
	}

	data, err := c.download(apiURL)
	if err != nil {
		return nil, err
	}
	c.writeCache(cachePath, data)

	return parseDocument(data)
}

func (c *Client) download(apiURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("package not found: %s", apiURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index API error: HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func parseDocument(data []byte) (*projectDocument, error) {
	var doc projectDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing index document: %w", err)
	}
	return &doc, nil
}

func (c *Client) readCache(path string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) >= cacheTTL {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Client) writeCache(path string, data []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		zap.L().Sugar().Warnf("creating index cache dir: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		zap.L().Sugar().Warnf("writing index cache: %v", err)
	}
}
