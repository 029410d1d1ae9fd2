// Package version holds build version information.
// The Git* variables are set at build time via ldflags:
//
//	go build -ldflags "-X storyteller/version.GitRelease=v0.1.0"
package version

import "runtime"

var (
	// GitRelease is the release tag or branch the binary was built from.
	GitRelease = "dev"
	// GitCommit is the commit hash the binary was built from.
	GitCommit = "unknown"
	// GitCommitDate is the date of that commit.
	GitCommitDate = "unknown"
)

// GoInfo is the Go toolchain version used to build the binary.
var GoInfo = runtime.Version()
