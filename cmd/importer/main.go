// Command importer runs bulk imports from the command line against the
// PostgreSQL store, or against an empty in-memory store to check a file
// without touching a database.
package main

import (
	"fmt"
	"os"

	_ "github.com/JonMunkholm/uniimport/internal/core/profiles" // Register import profiles
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
