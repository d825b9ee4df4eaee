package fs

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ArtifactInspector = (*Inspector)(nil)

// Inspector implements ports.ArtifactInspector with filepath.Glob. A pattern
// that names a directory stands for every file below it.
type Inspector struct {
	walker *Walker
	hasher *Hasher
}

// NewInspector creates a new Inspector.
func NewInspector(walker *Walker, hasher *Hasher) *Inspector {
	return &Inspector{walker: walker, hasher: hasher}
}

// Inspect resolves produced patterns relative to root. Target references
// (target:<name>) are not file patterns and are ignored.
func (i *Inspector) Inspect(root string, patterns []string) (domain.ArtifactSet, error) {
	var set domain.ArtifactSet
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, domain.TargetArtifactPrefix) {
			continue
		}

		path := pattern
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, filepath.FromSlash(pattern))
		}

		matches, err := filepath.Glob(path)
		if err != nil {
			return domain.ArtifactSet{}, zerr.With(zerr.Wrap(err, "failed to glob path"), "pattern", pattern)
		}

		files := i.expand(matches)
		if len(files) == 0 {
			set.Missing = append(set.Missing, pattern)
			continue
		}

		for _, file := range files {
			if seen[file] {
				continue
			}
			seen[file] = true

			digest, size, err := i.hasher.FileDigest(file)
			if err != nil {
				return domain.ArtifactSet{}, err
			}
			set.Files = append(set.Files, domain.ArtifactFile{
				Path:   relative(root, file),
				Digest: digest,
				Size:   size,
			})
		}
	}

	slices.SortFunc(set.Files, func(a, b domain.ArtifactFile) int {
		return strings.Compare(a.Path, b.Path)
	})
	return set, nil
}

// expand replaces directories by the files below them.
func (i *Inspector) expand(matches []string) []string {
	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			files = append(files, m)
			continue
		}
		for f := range i.walker.WalkFiles(m) {
			files = append(files, f)
		}
	}
	return files
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
