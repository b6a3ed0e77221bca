// Package main provides the subjectindex CLI.
//
// Usage:
//
//	subjectindex [flags] <command> [args]
//
// Commands:
//
//	suggest   - suggest subjects for text read from stdin or files
//	train     - train a project's backend on a corpus
//	learn     - update a project's backend incrementally
//	projects  - list configured projects
//	backends  - list backend variants and their availability
//
// Configuration is read from --config and SUBJECTINDEX_* environment
// variables; projects are defined in the file named by the projects key.
package main

import (
	"fmt"
	"os"

	"github.com/hrygo/subjectindex/cmd/subjectindex/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
