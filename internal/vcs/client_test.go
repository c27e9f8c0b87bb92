package vcs

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	commitHash    = "1111111111111111111111111111111111111111"
	tagObjectHash = "2222222222222222222222222222222222222222"
	peeledHash    = "3333333333333333333333333333333333333333"
)

func refMap(refs ...*plumbing.Reference) map[plumbing.ReferenceName]*plumbing.Reference {
	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}
	return byName
}

func TestPinReference_Branch(t *testing.T) {
	loc := locator(t, "https://example.com/project.git@main")
	byName := refMap(
		plumbing.NewHashReference("refs/heads/main", plumbing.NewHash(commitHash)),
	)

	pinned, err := pinReference(loc, byName)
	require.NoError(t, err)
	assert.Equal(t, commitHash, pinned.Precise())
}

func TestPinReference_LightweightTag(t *testing.T) {
	loc := locator(t, "https://example.com/project.git@v1.0")
	byName := refMap(
		plumbing.NewHashReference("refs/tags/v1.0", plumbing.NewHash(commitHash)),
	)

	pinned, err := pinReference(loc, byName)
	require.NoError(t, err)
	assert.Equal(t, commitHash, pinned.Precise())
}

func TestPinReference_AnnotatedTagPrefersPeeled(t *testing.T) {
	loc := locator(t, "https://example.com/project.git@v1.0")
	byName := refMap(
		plumbing.NewHashReference("refs/tags/v1.0", plumbing.NewHash(tagObjectHash)),
		plumbing.NewHashReference("refs/tags/v1.0^{}", plumbing.NewHash(peeledHash)),
	)

	pinned, err := pinReference(loc, byName)
	require.NoError(t, err)
	// The peeled entry is the commit; the tag's own hash is the tag object.
	assert.Equal(t, peeledHash, pinned.Precise())
}

func TestPinReference_Head(t *testing.T) {
	loc := locator(t, "https://example.com/project.git")
	byName := refMap(
		plumbing.NewSymbolicReference(plumbing.HEAD, "refs/heads/main"),
		plumbing.NewHashReference("refs/heads/main", plumbing.NewHash(commitHash)),
	)

	pinned, err := pinReference(loc, byName)
	require.NoError(t, err)
	assert.Equal(t, commitHash, pinned.Precise())
}

func TestPinReference_NotFound(t *testing.T) {
	loc := locator(t, "https://example.com/project.git@gone")
	_, err := pinReference(loc, refMap())
	assert.Error(t, err)
}
