// Command schoolctl manages students, instructors and courses from the
// command line. Storage, backup sink and logging are configured through
// SCHOOLCORE_* environment variables.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
