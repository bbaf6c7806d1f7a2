// Package service holds build information shared by the binaries.
package service

// Set by build LDFLAGS
var (
	Version        = "dev"
	CommitHash     = "n/a"
	BuildTimestamp = "n/a"
)
