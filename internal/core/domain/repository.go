package domain

import "strings"

// Parameter keys populated from the enclosing git repository.
const (
	ParamGitCommit = "git.commit"
	ParamGitBranch = "git.branch"
	ParamGitTags   = "git.tags"
	ParamGitRemote = "git.remote"
	ParamGitDirty  = "git.dirty"
)

// RepositoryInfo describes the version-control state of the build root.
type RepositoryInfo struct {
	Commit string
	Branch string
	Tags   []string
	Remote string
	Dirty  bool
}

// Parameters flattens the info into build parameters. Empty fields are omitted.
func (r RepositoryInfo) Parameters() map[string]string {
	params := make(map[string]string, 5)
	if r.Commit != "" {
		params[ParamGitCommit] = r.Commit
	}
	if r.Branch != "" {
		params[ParamGitBranch] = r.Branch
	}
	if len(r.Tags) > 0 {
		params[ParamGitTags] = strings.Join(r.Tags, ",")
	}
	if r.Remote != "" {
		params[ParamGitRemote] = r.Remote
	}
	if r.Dirty {
		params[ParamGitDirty] = "true"
	} else {
		params[ParamGitDirty] = "false"
	}
	return params
}
