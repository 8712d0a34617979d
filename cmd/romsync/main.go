// Package main provides the entry point for the romsync CLI tool.
package main

import "github.com/romsync/romsync/cmd/romsync/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
