// Command artefact runs WASM and Lua guests against the artefact host
// capabilities: a SQLite store, a tiered inference registry and a
// conversation orchestrator.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := buildRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
