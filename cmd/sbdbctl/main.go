// Command sbdbctl is a small operator CLI around the sbdb package: taking
// and holding path locks from the shell for manual testing, running
// declared-set transactions, sweeping orphaned sidecars, and reporting on
// the state of a root directory.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
