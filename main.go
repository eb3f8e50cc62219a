package main

import "catalog-linker/cmd"

// Set via -ldflags at release build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cmd.SetVersionInfo(version, commit)
	cmd.Execute()
}
