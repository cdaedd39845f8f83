package main

import (
	"github.com/spf13/cobra"
)

var rootDir string

var rootCmd = &cobra.Command{
	Use:   "sbdbctl",
	Short: "Inspect and exercise an sbdb root directory",
	Long: `sbdbctl is an operator tool for sbdb, the embedded copy-on-write
locking layer over a directory tree. It holds locks from the shell,
runs declared-set transactions, sweeps orphaned sidecar files, and
reports on a root directory's state - useful for manual testing and
for diagnosing stuck locks in production.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "sbdb root directory")
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(statusCmd)
}
