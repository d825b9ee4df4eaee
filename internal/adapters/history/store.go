// Package history stores run reports as JSON files under the build root.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/zerr"
)

const reportExt = ".json"

// Store implements ports.RunHistory. Each report lives in
// <root>/.rig/history/<run-id>.json and a "latest" file names the newest run.
type Store struct {
	mu sync.RWMutex
}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

func dir(root string) string {
	return filepath.Join(root, domain.DefaultHistoryPath())
}

// Put stores the report and marks it as the latest run. A report without a
// run ID is assigned a time-ordered one.
func (s *Store) Put(root string, report *domain.Report) error {
	if report.RunID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return zerr.Wrap(err, "failed to generate run id")
		}
		report.RunID = id.String()
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return zerr.Wrap(errors.Join(domain.ErrStoreMarshalFailed, err), "failed to marshal run report")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := dir(root)
	if err := os.MkdirAll(d, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(errors.Join(domain.ErrStoreCreateFailed, err), "failed to create run history directory"), "path", d)
	}

	path := filepath.Join(d, report.RunID+reportExt)
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(errors.Join(domain.ErrStoreWriteFailed, err), "failed to write run report"), "path", path)
	}

	latest := filepath.Join(d, domain.LatestRunFile)
	if err := os.WriteFile(latest, []byte(report.RunID+"\n"), domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(errors.Join(domain.ErrStoreWriteFailed, err), "failed to update latest run"), "path", latest)
	}
	return nil
}

// Get returns the report with the given run ID.
func (s *Store) Get(root, runID string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return readReport(filepath.Join(dir(root), runID+reportExt), runID)
}

// Latest returns the most recently stored report.
func (s *Store) Latest(root string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	//nolint:gosec // Path is derived from the build root.
	data, err := os.ReadFile(filepath.Join(dir(root), domain.LatestRunFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNoHistory
	}
	if err != nil {
		return nil, zerr.Wrap(errors.Join(domain.ErrStoreReadFailed, err), "failed to read latest run")
	}

	runID := string(bytes.TrimSpace(data))
	return readReport(filepath.Join(dir(root), runID+reportExt), runID)
}

// List returns up to limit reports, newest first. A limit <= 0 returns all.
func (s *Store) List(root string, limit int) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(dir(root))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.Wrap(errors.Join(domain.ErrStoreReadFailed, err), "failed to list run history")
	}

	reports := make([]*domain.Report, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, reportExt) {
			continue
		}
		report, err := readReport(filepath.Join(dir(root), name), strings.TrimSuffix(name, reportExt))
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	slices.SortFunc(reports, func(a, b *domain.Report) int {
		if c := b.Started.Compare(a.Started); c != 0 {
			return c
		}
		return strings.Compare(b.RunID, a.RunID)
	})

	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func readReport(path, runID string) (*domain.Report, error) {
	//nolint:gosec // Path is derived from the build root.
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, zerr.With(zerr.Wrap(domain.ErrRunNotFound, "no report for run "+runID), "run_id", runID)
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(errors.Join(domain.ErrStoreReadFailed, err), "failed to read run report"), "path", path)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, zerr.With(zerr.Wrap(errors.Join(domain.ErrStoreUnmarshalFailed, err), "failed to unmarshal run report"), "path", path)
	}
	return &report, nil
}
