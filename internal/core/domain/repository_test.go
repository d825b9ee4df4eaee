package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/rig/internal/core/domain"
)

func TestRepositoryInfo_Parameters(t *testing.T) {
	info := domain.RepositoryInfo{
		Commit: "abc123",
		Branch: "main",
		Tags:   []string{"v1.0.0", "stable"},
		Remote: "https://example.com/app.git",
		Dirty:  true,
	}

	assert.Equal(t, map[string]string{
		domain.ParamGitCommit: "abc123",
		domain.ParamGitBranch: "main",
		domain.ParamGitTags:   "v1.0.0,stable",
		domain.ParamGitRemote: "https://example.com/app.git",
		domain.ParamGitDirty:  "true",
	}, info.Parameters())
}

func TestRepositoryInfo_ParametersOmitEmpty(t *testing.T) {
	params := domain.RepositoryInfo{}.Parameters()
	assert.Equal(t, map[string]string{domain.ParamGitDirty: "false"}, params)
}
