package components

import (
	"context"
	"encoding/xml"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/zerr"
)

func testTarget(s Settings) *domain.Target {
	return &domain.Target{
		Name:        domain.NewInternedString(Test),
		Description: "Run the unit tests of the solution",
		DependsOn:   domain.DependsOn(Compile),
		Produces: []string{
			path.Join(s.TestResultsDir(), "*.trx"),
			path.Join(s.TestResultsDir(), "*.xml"),
		},
		Action: func(ctx context.Context, bc *domain.BuildContext) error {
			projects := s.TestProjects
			if len(projects) == 0 {
				projects = []string{s.Solution}
			}

			resultsDir := abs(bc, s.TestResultsDir())
			coverage := bc.Scheduled(ReportCoverage)
			noBuild := bc.Succeeded(Compile)

			err := runAll(ctx, projects, s.TestDegreeOfParallelism, func(ctx context.Context, project string) error {
				return bc.Run(ctx, testArgs(s, project, resultsDir, noBuild, coverage)...)
			})

			summary, sumErr := summarizeTestResults(resultsDir)
			if sumErr == nil {
				for _, e := range summary {
					bc.AddSummary(e.Key, e.Value)
				}
			}
			return err
		},
	}
}

func testArgs(s Settings, project, resultsDir string, noBuild, coverage bool) []string {
	name := projectName(project)

	args := withProject([]string{"dotnet", "test"}, project)
	args = append(args, "--configuration", s.Configuration, "--results-directory", resultsDir)
	if noBuild {
		args = append(args, "--no-build")
	}
	args = append(args, "--logger", "trx;LogFileName="+name+".trx")
	if coverage {
		args = append(args,
			"-p:CollectCoverage=true",
			"-p:CoverletOutputFormat=cobertura",
			"-p:ExcludeByFile=*.Generated.cs",
			"-p:CoverletOutput="+filepath.Join(resultsDir, name+".xml"),
		)
	}
	return args
}

func projectName(project string) string {
	if project == "" {
		return "tests"
	}
	base := filepath.Base(project)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type testRun struct {
	Results []struct {
		Outcome string `xml:"outcome,attr"`
	} `xml:"Results>UnitTestResult"`
}

// summarizeTestResults counts test outcomes across every .trx file in dir.
// Failed and skipped counts are only reported when non-zero.
func summarizeTestResults(dir string) ([]domain.SummaryEntry, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.trx"))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to list test results")
	}

	var passed, failed, skipped int
	for _, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec // path comes from the results directory
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to read test results"), "path", file)
		}
		var run testRun
		if err := xml.Unmarshal(data, &run); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to parse test results"), "path", file)
		}
		for _, r := range run.Results {
			switch r.Outcome {
			case "Passed":
				passed++
			case "Failed":
				failed++
			case "NotExecuted":
				skipped++
			}
		}
	}

	var summary []domain.SummaryEntry
	if failed > 0 {
		summary = append(summary, domain.SummaryEntry{Key: "Failed", Value: strconv.Itoa(failed)})
	}
	summary = append(summary, domain.SummaryEntry{Key: "Passed", Value: strconv.Itoa(passed)})
	if skipped > 0 {
		summary = append(summary, domain.SummaryEntry{Key: "Skipped", Value: strconv.Itoa(skipped)})
	}
	return summary, nil
}
