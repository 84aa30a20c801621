// Package main is the entrypoint of the engagement engine.
package main

import "github.com/aimd54/engagement-engine/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
