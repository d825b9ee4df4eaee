package domain

import "path/filepath"

const (
	// RigDirName is the name of the internal workspace directory.
	RigDirName = ".rig"

	// HistoryDirName is the name of the run history directory.
	HistoryDirName = "history"

	// RigFileName is the name of the build definition file.
	RigFileName = "rig.yaml"

	// EnvFileName is the name of the optional parameter file next to rig.yaml.
	EnvFileName = ".env"

	// LatestRunFile is the name of the pointer file naming the most recent run.
	LatestRunFile = "latest"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultRigPath returns the default root directory for rig metadata.
func DefaultRigPath() string {
	return RigDirName
}

// DefaultHistoryPath returns the default path for stored run reports.
// It joins .rig and history.
func DefaultHistoryPath() string {
	return filepath.Join(RigDirName, HistoryDirName)
}
