// Command btreestore is a CLI front end for the B-tree engine, built the
// way deploymenttheory-go-apfs/cmd/config.go wires cobra: a root command
// holding persistent flags, with leaf commands registered through
// AddCommand and a package-level Execute entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	storePath     string
	configPath    string
	order         uint32
	cacheCapacity int
	writeMode     string
	pageSize      int
)

var rootCmd = &cobra.Command{
	Use:   "btreestore",
	Short: "Embeddable ordered key-value store over a single file",
	Long: `btreestore is a command-line front end for an embeddable, persistent,
ordered B-tree key-value store. Keys are int64 and values are strings in this
CLI demo; the underlying engine is generic over both.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "store.db", "path to the store file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file (spec.md §6 keys)")
	rootCmd.PersistentFlags().Uint32Var(&order, "order", 128, "branching factor for a new store")
	rootCmd.PersistentFlags().IntVar(&cacheCapacity, "cache-capacity", 1000, "buffer pool capacity in nodes")
	rootCmd.PersistentFlags().StringVar(&writeMode, "write-mode", "write-through", `"write-through" or "write-back"`)
	rootCmd.PersistentFlags().IntVar(&pageSize, "page-size", 4096, "node page size in bytes")

	rootCmd.AddCommand(
		createCmd,
		insertCmd,
		getCmd,
		deleteCmd,
		rangeCmd,
		entriesCmd,
		statsCmd,
		verifyCmd,
		bulkLoadCmd,
		inspectCmd,
		demoCmd,
	)
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
