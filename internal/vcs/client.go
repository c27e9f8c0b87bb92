package vcs

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"
)

// Client resolves references and fetches checkouts using go-git.
type Client struct{}

// NewClient creates a new VCS client.
func NewClient() *Client {
	return &Client{}
}

// Resolve pins the locator's requested reference to a commit id by listing
// the remote's references. A locator that is already precise is returned
// unchanged; a reference that is itself a full commit hash is pinned without
// touching the network. An empty reference resolves to the remote HEAD.
func (c *Client) Resolve(ctx context.Context, loc *Locator) (*Locator, error) {
	if loc.Precise() != "" {
		return loc, nil
	}
	if commitHashRe.MatchString(loc.Reference()) {
		return loc.WithPrecise(loc.Reference()), nil
	}

	logger := zap.L().Sugar()
	logger.Debugf("listing refs for %s", loc.URL().Redacted())

	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{loc.URL().String()},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{PeelingOption: git.AppendPeeled})
	if err != nil {
		return nil, fmt.Errorf("listing refs for %s: %w", loc.URL().Redacted(), err)
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}

	return pinReference(loc, byName)
}

// pinReference picks the commit id for the locator's reference from a remote
// ref listing. An annotated tag's own hash is the tag object; the peeled
// `^{}` entry, when advertised, carries the commit it points at and takes
// precedence.
func pinReference(loc *Locator, byName map[plumbing.ReferenceName]*plumbing.Reference) (*Locator, error) {
	if loc.Reference() == "" {
		return resolveHead(loc, byName)
	}

	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(loc.Reference()),
		plumbing.NewTagReferenceName(loc.Reference()),
	}
	for _, name := range candidates {
		ref, ok := byName[name]
		if !ok {
			continue
		}
		if peeled, ok := byName[plumbing.ReferenceName(name.String() + "^{}")]; ok {
			return loc.WithPrecise(peeled.Hash().String()), nil
		}
		return loc.WithPrecise(ref.Hash().String()), nil
	}

	return nil, fmt.Errorf("reference %q not found in %s", loc.Reference(), loc.URL().Redacted())
}

func resolveHead(loc *Locator, byName map[plumbing.ReferenceName]*plumbing.Reference) (*Locator, error) {
	head, ok := byName[plumbing.HEAD]
	if !ok {
		return nil, fmt.Errorf("remote %s has no HEAD", loc.URL().Redacted())
	}
	if head.Type() == plumbing.SymbolicReference {
		target, ok := byName[head.Target()]
		if !ok {
			return nil, fmt.Errorf("remote %s HEAD points at unknown ref %s", loc.URL().Redacted(), head.Target())
		}
		return loc.WithPrecise(target.Hash().String()), nil
	}
	return loc.WithPrecise(head.Hash().String()), nil
}

// Fetch clones the repository into dir and checks out the locator's revision:
// the precise commit if resolved, otherwise the requested reference, otherwise
// the remote default branch.
func (c *Client) Fetch(ctx context.Context, loc *Locator, dir string) error {
	logger := zap.L().Sugar()
	logger.Debugf("cloning %s into %s", loc.URL().Redacted(), dir)

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL: loc.URL().String(),
	})
	if err != nil {
		return fmt.Errorf("cloning %s: %w", loc.URL().Redacted(), err)
	}

	revision := loc.Precise()
	if revision == "" {
		revision = loc.Reference()
	}
	if revision == "" {
		return nil
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return fmt.Errorf("resolving revision %q: %w", revision, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return fmt.Errorf("checking out %s: %w", hash, err)
	}

	return nil
}
