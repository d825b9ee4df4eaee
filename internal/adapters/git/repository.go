// Package git describes the version-control state of the build root using go-git.
package git

import (
	"errors"
	"slices"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/zerr"
)

const defaultRemote = "origin"

// Repository implements ports.Repository.
type Repository struct{}

// NewRepository creates a Repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Describe opens the repository containing root and reports its HEAD state.
// A repository without commits yields an info with only Dirty set.
func (r *Repository) Describe(root string) (domain.RepositoryInfo, error) {
	var info domain.RepositoryInfo

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return info, zerr.With(zerr.Wrap(errors.Join(domain.ErrRepositoryOpenFailed, err), "failed to open git repository"), "root", root)
	}

	dirty, err := isDirty(repo)
	if err != nil {
		return info, err
	}
	info.Dirty = dirty

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return info, nil
	}
	if err != nil {
		return info, zerr.Wrap(err, "failed to resolve HEAD")
	}

	info.Commit = head.Hash().String()
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	tags, err := tagsAt(repo, head.Hash())
	if err != nil {
		return info, err
	}
	info.Tags = tags

	remote, err := repo.Remote(defaultRemote)
	switch {
	case errors.Is(err, git.ErrRemoteNotFound):
	case err != nil:
		return info, zerr.With(zerr.Wrap(err, "failed to read remote"), "remote", defaultRemote)
	case len(remote.Config().URLs) > 0:
		info.Remote = remote.Config().URLs[0]
	}

	return info, nil
}

func isDirty(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return false, nil
	}
	if err != nil {
		return false, zerr.Wrap(err, "failed to open worktree")
	}

	status, err := wt.Status()
	if err != nil {
		return false, zerr.Wrap(err, "failed to read worktree status")
	}
	return !status.IsClean(), nil
}

// tagsAt returns the sorted short names of lightweight and annotated tags
// that point at commit.
func tagsAt(repo *git.Repository, commit plumbing.Hash) ([]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to list tags")
	}
	defer iter.Close()

	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if tag, err := repo.TagObject(target); err == nil {
			target = tag.Target
		}
		if target == commit {
			tags = append(tags, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to iterate tags")
	}

	slices.Sort(tags)
	return tags, nil
}
