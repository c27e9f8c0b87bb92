package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/frederic-klein/yapm/internal/dist"
	"github.com/frederic-klein/yapm/internal/index"
	"github.com/frederic-klein/yapm/internal/names"
	"github.com/frederic-klein/yapm/internal/requirements"
	"github.com/frederic-klein/yapm/internal/vcs"
)

// Locked is one fully resolved distribution ready for the lock file.
type Locked struct {
	Dist   *dist.Dist
	Source dist.Source

	// DirectURL is the provenance record for direct URL dists; nil for
	// registry dists, which have none by definition.
	DirectURL *dist.DirectURL
}

// Resolver resolves requirements recursively against the index, pinning
// direct Git references to precise revisions along the way.
type Resolver struct {
	index      *index.Client
	vcs        *vcs.Client
	noBinary   names.Specifiers
	onlyBinary names.Specifiers
	resolved   map[names.PackageName]*Locked
	resolving  map[names.PackageName]bool
	order      []names.PackageName
	logger     *zap.SugaredLogger
}

// NewResolver creates a new dependency resolver. noBinary and onlyBinary are
// the collapsed states of the corresponding CLI flags.
func NewResolver(idx *index.Client, vcsClient *vcs.Client, noBinary, onlyBinary names.Specifiers) *Resolver {
	return &Resolver{
		index:      idx,
		vcs:        vcsClient,
		noBinary:   noBinary,
		onlyBinary: onlyBinary,
		resolved:   make(map[names.PackageName]*Locked),
		resolving:  make(map[names.PackageName]bool),
		logger:     zap.L().Sugar(),
	}
}

// Resolve resolves all given requirements and their dependencies, in
// first-seen order.
func (r *Resolver) Resolve(ctx context.Context, reqs []dist.Requirement) ([]*Locked, error) {
	for _, req := range reqs {
		if err := r.resolveOne(ctx, req); err != nil {
			return nil, err
		}
	}

	locked := make([]*Locked, 0, len(r.order))
	for _, name := range r.order {
		locked = append(locked, r.resolved[name])
	}
	return locked, nil
}

func (r *Resolver) resolveOne(ctx context.Context, req dist.Requirement) error {
	key := names.PackageName(names.Normalize(req.Name.String()))

	// First resolution of a name wins; there is no conflict resolution here.
	if d, ok := r.resolved[key]; ok {
		if req.Constraint != "" && !index.Satisfies(d.Dist.Version, req.Constraint) {
			r.logger.Warnf("%s %s already resolved, ignoring conflicting constraint %q",
				req.Name, d.Dist.Version, req.Constraint)
		}
		return nil
	}

	if r.resolving[key] {
		r.logger.Debugf("skipping circular dependency: %s", req.Name)
		return nil
	}
	r.resolving[key] = true
	defer func() { delete(r.resolving, key) }()

	if req.URL != "" {
		return r.resolveDirect(ctx, req)
	}
	return r.resolveRegistry(ctx, req)
}

func (r *Resolver) resolveDirect(ctx context.Context, req dist.Requirement) error {
	r.logger.Infof("resolving %s from %s", req.Name, req.URL)

	d := dist.NewDirectDist(req.Name, req.URL)
	source, err := dist.ClassifySource(d)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", req.Name, err)
	}

	if source.Kind() == dist.SourceGit {
		locator, err := r.vcs.Resolve(ctx, source.Git())
		if err != nil {
			return fmt.Errorf("resolving %s: %w", req.Name, err)
		}
		source = source.WithLocator(locator)
	}

	record, err := source.DirectURL()
	if err != nil {
		return fmt.Errorf("resolving %s: %w", req.Name, err)
	}

	r.record(req.Name, &Locked{Dist: d, Source: source, DirectURL: record})
	return nil
}

func (r *Resolver) resolveRegistry(ctx context.Context, req dist.Requirement) error {
	r.logger.Infof("resolving %s %s", req.Name, req.Constraint)

	project, err := r.index.Project(req.Name)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", req.Name, err)
	}

	version, files, err := r.index.BestRelease(project, req.Constraint)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", req.Name, err)
	}

	file, err := r.pickFile(req.Name, files)
	if err != nil {
		return fmt.Errorf("resolving %s %s: %w", req.Name, version, err)
	}

	d := dist.NewRegistryDist(req.Name, version, file)
	source, err := dist.ClassifySource(d)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", req.Name, err)
	}

	// Record before recursing so cycles terminate.
	r.record(req.Name, &Locked{Dist: d, Source: source})

	deps, err := r.index.Requires(req.Name, version)
	if err != nil {
		return fmt.Errorf("dependencies of %s %s: %w", req.Name, version, err)
	}
	for _, line := range deps {
		// Marker-gated dependencies (extras, platform conditions) are not
		// evaluated; an unconditional dependency has no ";".
		if strings.Contains(line, ";") {
			r.logger.Debugf("skipping conditional dependency %q of %s", line, req.Name)
			continue
		}
		dep, err := requirements.ParseRequirement(line)
		if err != nil {
			return fmt.Errorf("dependencies of %s %s: %w", req.Name, version, err)
		}
		if err := r.resolveOne(ctx, dep); err != nil {
			return err
		}
	}

	return nil
}

func (r *Resolver) record(name names.PackageName, locked *Locked) {
	key := names.PackageName(names.Normalize(name.String()))
	r.resolved[key] = locked
	r.order = append(r.order, key)
}

// pickFile chooses between a release's wheel and sdist artifacts, honoring
// the collapsed --no-binary/--only-binary states.
func (r *Resolver) pickFile(name names.PackageName, files []dist.File) (dist.File, error) {
	noBinary := r.noBinary.Matches(name)
	onlyBinary := r.onlyBinary.Matches(name)
	if noBinary && onlyBinary {
		return dist.File{}, fmt.Errorf("%s matches both --no-binary and --only-binary", name)
	}

	var wheel, sdist *dist.File
	for i := range files {
		f := &files[i]
		if f.IsWheel() {
			if wheel == nil {
				wheel = f
			}
		} else if sdist == nil {
			sdist = f
		}
	}

	switch {
	case onlyBinary:
		if wheel == nil {
			return dist.File{}, fmt.Errorf("no wheel available but --only-binary is set")
		}
		return *wheel, nil
	case noBinary:
		if sdist == nil {
			return dist.File{}, fmt.Errorf("no source distribution available but --no-binary is set")
		}
		return *sdist, nil
	case wheel != nil:
		return *wheel, nil
	case sdist != nil:
		return *sdist, nil
	default:
		return dist.File{}, fmt.Errorf("release has no files")
	}
}
