package main

import (
	"go.uber.org/automaxprocs/maxprocs"

	"glacier-backup/cmd"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

func init() {
	// match GOMAXPROCS to the container CPU quota before the default
	// concurrency is derived from it
	_, _ = maxprocs.Set()
}

func main() {
	cmd.SetVersionInfo(Version, BuildTime, GitCommit, GoVersion)
	cmd.Execute()
}
