// Command pivotab cross-tabulates CSV and Parquet tables.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/pivotab/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
