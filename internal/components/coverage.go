package components

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/zerr"
)

func reportCoverageTarget(s Settings) *domain.Target {
	return &domain.Target{
		Name:           domain.NewInternedString(ReportCoverage),
		Description:    "Create code coverage reports",
		TryTriggeredBy: []domain.InternedString{domain.NewInternedString(Test)},
		Consumes:       []string{domain.TargetArtifactPrefix + Test},
		Produces:       []string{s.CoverageReportArchive()},
		Action: func(ctx context.Context, bc *domain.BuildContext) error {
			if !s.CreateCoverageHTMLReport {
				return nil
			}

			reportDir := abs(bc, s.CoverageReportDir())
			err := bc.Run(ctx,
				"reportgenerator",
				"-reports:"+filepath.Join(abs(bc, s.TestResultsDir()), "*.xml"),
				"-reporttypes:HtmlInline",
				"-targetdir:"+reportDir,
			)
			if err != nil {
				return err
			}
			return zipDirectory(reportDir, abs(bc, s.CoverageReportArchive()))
		},
	}
}

// zipDirectory writes every regular file below dir into a new archive at dst,
// named relative to dir.
func zipDirectory(dir, dst string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create archive directory"), "path", dst)
	}

	f, err := os.Create(dst) //nolint:gosec // destination is derived from settings
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create archive"), "path", dst)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = zerr.Wrap(cerr, "failed to close archive")
		}
	}()

	w := zip.NewWriter(f)
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		return addFile(w, p, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		_ = w.Close()
		return zerr.With(zerr.Wrap(walkErr, "failed to archive directory"), "path", dir)
	}
	return w.Close()
}

func addFile(w *zip.Writer, src, name string) error {
	in, err := os.Open(src) //nolint:gosec // walked from the report directory
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := w.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	return err
}
