package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frederic-klein/yapm/internal/dist"
	"github.com/frederic-klein/yapm/internal/downloader"
	"github.com/frederic-klein/yapm/internal/index"
	"github.com/frederic-klein/yapm/internal/integrity"
	"github.com/frederic-klein/yapm/internal/lockfile"
	"github.com/frederic-klein/yapm/internal/names"
	"github.com/frederic-klein/yapm/internal/pyproject"
	"github.com/frederic-klein/yapm/internal/requirements"
	"github.com/frederic-klein/yapm/internal/resolver"
	"github.com/frederic-klein/yapm/internal/vcs"
)

var (
	requirementPaths []string
	pyprojectPath    string
	extras           []string
	indexURL         string
	lockPath         string
	workers          int
	destDir          string
	verbose          bool

	noBinary   specifierList
	onlyBinary specifierList
)

// specifierList accumulates repeated --no-binary / --only-binary flag values.
type specifierList struct {
	specs []names.Specifier
}

func (s *specifierList) String() string { return "" }

func (s *specifierList) Type() string { return "specifier" }

func (s *specifierList) Set(value string) error {
	spec, err := names.ParseSpecifier(value)
	if err != nil {
		return err
	}
	s.specs = append(s.specs, spec)
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "yapm",
		Short: "Yet Another Pip Manager - locks and fetches Python distributions",
		Long:  "YAPM resolves Python package dependencies from a PyPI-compatible index and from direct URLs, generating a lock file and downloading the pinned artifacts.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Resolve dependencies and write a lock file",
		RunE:  runLock,
	}
	lockCmd.Flags().StringArrayVarP(&requirementPaths, "requirement", "r", nil, "Requirements file (repeatable)")
	lockCmd.Flags().StringVar(&pyprojectPath, "pyproject", "", "pyproject.toml to read dependencies from")
	lockCmd.Flags().StringSliceVar(&extras, "extra", nil, "Optional dependency groups to include from pyproject.toml")
	lockCmd.Flags().StringVarP(&indexURL, "index-url", "i", "https://pypi.org", "Package index base URL")
	lockCmd.Flags().StringVarP(&lockPath, "output", "o", "./yapm.lock", "Output lock file path")
	lockCmd.Flags().Var(&noBinary, "no-binary", "Do not use wheels for :all:, :none:, or the named package (repeatable)")
	lockCmd.Flags().Var(&onlyBinary, "only-binary", "Use only wheels for :all:, :none:, or the named package (repeatable)")

	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download the artifacts pinned in a lock file",
		RunE:  runDownload,
	}
	downloadCmd.Flags().StringVarP(&lockPath, "lockfile", "l", "./yapm.lock", "Lock file path")
	downloadCmd.Flags().IntVarP(&workers, "workers", "w", 5, "Parallel download workers")
	downloadCmd.Flags().StringVarP(&destDir, "dest", "d", "./src", "Directory for VCS checkouts")

	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(downloadCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogger() {
	var logger *zap.Logger
	if verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	zap.ReplaceGlobals(logger)
}

func cacheDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".yapm", "cache"), nil
}

func runLock(cmd *cobra.Command, args []string) error {
	log := zap.L().Sugar()

	var reqs []dist.Requirement
	parser := requirements.NewParser()
	for _, path := range requirementPaths {
		log.Debugf("Parsing requirements: %s", path)
		parsed, err := parser.ParseFile(path)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		reqs = append(reqs, parsed...)
	}
	if pyprojectPath != "" {
		log.Debugf("Parsing pyproject: %s", pyprojectPath)
		parsed, err := pyproject.ParseFile(pyprojectPath, extras...)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", pyprojectPath, err)
		}
		reqs = append(reqs, parsed...)
	}
	if len(reqs) == 0 {
		return fmt.Errorf("no requirements given: use --requirement or --pyproject")
	}

	cache, err := cacheDir()
	if err != nil {
		return err
	}

	log.Debugf("Resolving %d requirements against %s", len(reqs), indexURL)
	res := resolver.NewResolver(
		index.NewClient(indexURL, cache),
		vcs.NewClient(),
		names.Collapse(noBinary.specs),
		names.Collapse(onlyBinary.specs),
	)
	locked, err := res.Resolve(cmd.Context(), reqs)
	if err != nil {
		return fmt.Errorf("resolving dependencies: %w", err)
	}

	lock := &lockfile.Lock{Version: lockfile.FormatVersion}
	for _, l := range locked {
		pkg := lockfile.Package{
			Name:      names.Normalize(l.Dist.Name.String()),
			Version:   l.Dist.Version,
			URL:       l.Source.URL().String(),
			DirectURL: l.DirectURL,
		}
		if l.Dist.File != nil {
			pkg.Filename = l.Dist.File.Filename
			pkg.SHA256 = l.Dist.File.SHA256
			pkg.MD5 = l.Dist.File.MD5
		}
		lock.Packages = append(lock.Packages, pkg)
	}

	if err := lockfile.WriteFile(lockPath, lock); err != nil {
		return err
	}
	fmt.Printf("Locked %d packages to %s\n", len(lock.Packages), lockPath)
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	log := zap.L().Sugar()

	lock, err := lockfile.ReadFile(lockPath)
	if err != nil {
		return err
	}

	cache, err := cacheDir()
	if err != nil {
		return err
	}
	dl := downloader.NewDownloader(workers, cache)

	var jobs []downloader.Job
	var archives []lockfile.Package
	var checkouts []lockfile.Package
	for _, pkg := range lock.Packages {
		switch {
		case pkg.DirectURL != nil && pkg.DirectURL.VCS != nil:
			checkouts = append(checkouts, pkg)
		case pkg.DirectURL != nil:
			archives = append(archives, pkg)
			jobs = append(jobs, downloader.Job{
				URL:      pkg.DirectURL.URL,
				DestPath: dl.CachePath(directFilename(pkg)),
				Source:   "direct",
			})
		default:
			jobs = append(jobs, downloader.Job{
				URL:      pkg.URL,
				DestPath: dl.CachePath(pkg.Filename),
				Source:   "registry",
			})
		}
	}

	failed := 0
	for _, result := range dl.Download(jobs) {
		if result.Error != nil {
			log.Errorf("Download failed: %s: %v", result.Job.URL, result.Error)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(jobs))
	}

	// Registry artifacts are checked against the index digests; direct
	// archives have none recorded, so hash them now and persist the
	// provenance record alongside the artifact.
	for _, pkg := range lock.Packages {
		if pkg.DirectURL != nil || pkg.Filename == "" {
			continue
		}
		file := dist.File{Filename: pkg.Filename, SHA256: pkg.SHA256, MD5: pkg.MD5}
		if err := integrity.Verify(dl.CachePath(pkg.Filename), file); err != nil {
			return fmt.Errorf("verifying %s: %w", pkg.Filename, err)
		}
	}
	for _, pkg := range archives {
		path := dl.CachePath(directFilename(pkg))
		if err := integrity.Attach(pkg.DirectURL, path); err != nil {
			return fmt.Errorf("hashing %s: %w", pkg.Name, err)
		}
		if err := writeProvenance(pkg, path+".direct_url.json"); err != nil {
			return err
		}
	}

	for _, pkg := range checkouts {
		dir := filepath.Join(destDir, pkg.Name)
		if err := fetchCheckout(cmd, pkg, dir); err != nil {
			return fmt.Errorf("fetching %s: %w", pkg.Name, err)
		}
		if err := writeProvenance(pkg, filepath.Join(dir, "direct_url.json")); err != nil {
			return err
		}
	}

	fmt.Printf("Downloaded %d artifacts, checked out %d repositories\n", len(jobs), len(checkouts))
	return nil
}

// directFilename names the cache entry for a direct archive after the last
// path segment of its URL.
func directFilename(pkg lockfile.Package) string {
	if pkg.Filename != "" {
		return pkg.Filename
	}
	u, err := url.Parse(pkg.DirectURL.URL)
	if err != nil {
		return pkg.Name
	}
	if base := filepath.Base(u.Path); base != "." && base != "/" {
		return base
	}
	return pkg.Name
}

func fetchCheckout(cmd *cobra.Command, pkg lockfile.Package, dir string) error {
	repoURL, err := url.Parse(pkg.DirectURL.URL)
	if err != nil {
		return err
	}
	loc, err := vcs.NewLocator(repoURL)
	if err != nil {
		return err
	}
	if commit := pkg.DirectURL.VCS.CommitID; commit != "" {
		loc = loc.WithPrecise(commit)
	}
	return vcs.NewClient().Fetch(cmd.Context(), loc, dir)
}

func writeProvenance(pkg lockfile.Package, path string) error {
	data, err := json.MarshalIndent(pkg.DirectURL, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding provenance for %s: %w", pkg.Name, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing provenance for %s: %w", pkg.Name, err)
	}
	return nil
}
