// Package components provides the stock .NET build targets that a build
// definition can enable by name.
package components

import (
	"path"
	"path/filepath"

	"go.trai.ch/rig/internal/core/domain"
)

// Names of the targets contributed by the library.
const (
	Restore        = "restore"
	Clean          = "clean"
	Compile        = "compile"
	Test           = "test"
	ReportCoverage = "report-coverage"
	Pack           = "pack"
	Push           = "push"
	Format         = "format"
	VerifyFormat   = "verify-format"
)

// ParamVersion is the build parameter carrying the version stamped into
// assemblies and packages.
const ParamVersion = "version"

// Defaults applied by Settings.WithDefaults.
const (
	DefaultConfiguration              = "Release"
	DefaultArtifacts                  = "artifacts"
	DefaultTestDegreeOfParallelism    = 1
	DefaultPublishDegreeOfParallelism = 10
	DefaultPushSource                 = "https://api.nuget.org/v3/index.json"
	DefaultPushAPIKeyEnv              = "NUGET_API_KEY"
)

// PublishConfig names a project to publish for one target framework.
type PublishConfig struct {
	Project   string `yaml:"project"`
	Framework string `yaml:"framework"`
}

// Settings configure every component. Paths are relative to the build root
// and use forward slashes.
type Settings struct {
	Solution      string `yaml:"solution"`
	Configuration string `yaml:"configuration"`
	Artifacts     string `yaml:"artifacts"`

	CleanArtifactsDirectory *bool `yaml:"cleanArtifactsDirectory"`
	IgnoreFailedSources     bool  `yaml:"ignoreFailedSources"`

	TestProjects            []string `yaml:"testProjects"`
	TestDegreeOfParallelism int      `yaml:"testDegreeOfParallelism"`

	Publish                    []PublishConfig `yaml:"publish"`
	PublishDegreeOfParallelism int             `yaml:"publishDegreeOfParallelism"`

	CreateCoverageHTMLReport bool `yaml:"createCoverageHtmlReport"`

	PushSource    string `yaml:"pushSource"`
	PushAPIKeyEnv string `yaml:"pushApiKeyEnv"`

	FormatExclude             []string `yaml:"formatExclude"`
	VerifyFormatBeforeCompile bool     `yaml:"verifyFormatBeforeCompile"`
}

// WithDefaults returns a copy of s with unset fields filled in.
func (s Settings) WithDefaults() Settings {
	if s.Configuration == "" {
		s.Configuration = DefaultConfiguration
	}
	if s.Artifacts == "" {
		s.Artifacts = DefaultArtifacts
	}
	if s.CleanArtifactsDirectory == nil {
		clean := true
		s.CleanArtifactsDirectory = &clean
	}
	if s.TestDegreeOfParallelism < 1 {
		s.TestDegreeOfParallelism = DefaultTestDegreeOfParallelism
	}
	if s.PublishDegreeOfParallelism < 1 {
		s.PublishDegreeOfParallelism = DefaultPublishDegreeOfParallelism
	}
	if s.PushSource == "" {
		s.PushSource = DefaultPushSource
	}
	if s.PushAPIKeyEnv == "" {
		s.PushAPIKeyEnv = DefaultPushAPIKeyEnv
	}
	return s
}

// CleansArtifacts reports whether clean also empties the artifacts directory.
func (s Settings) CleansArtifacts() bool {
	return s.CleanArtifactsDirectory == nil || *s.CleanArtifactsDirectory
}

// PackagesDir is where pack writes NuGet packages.
func (s Settings) PackagesDir() string {
	return path.Join(s.Artifacts, "packages")
}

// TestResultsDir is where test writes result and coverage files.
func (s Settings) TestResultsDir() string {
	return path.Join(s.Artifacts, "test-results")
}

// ReportsDir is the root of generated reports.
func (s Settings) ReportsDir() string {
	return path.Join(s.Artifacts, "reports")
}

// CoverageReportDir is where the HTML coverage report is generated.
func (s Settings) CoverageReportDir() string {
	return path.Join(s.ReportsDir(), "coverage-report")
}

// CoverageReportArchive is the zipped coverage report.
func (s Settings) CoverageReportArchive() string {
	return s.CoverageReportDir() + ".zip"
}

func abs(bc *domain.BuildContext, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(bc.Root(), filepath.FromSlash(rel))
}
