// Command present replays and validates presentation scripts.
package main

import "github.com/go-drift/present/cmd/present/cmd"

// version is set at build time.
var version = "0.1.0-dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
