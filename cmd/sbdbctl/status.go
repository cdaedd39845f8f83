package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wilgaboury/sbdb"
)

var statusCmd = &cobra.Command{
	Use:   "status <path>",
	Short: "Report whether a path is currently locked, without blocking",
	Long: `Probes path's hierarchical lock plan using the non-blocking Try*
operations and reports whether it is currently write-locked (exclusive
held somewhere in the plan), read-locked (only shared holders), or free -
useful for diagnosing a stuck lock in production without waiting on it.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	relpath := args[0]

	client, err := sbdb.Open(rootDir)
	if err != nil {
		return fmt.Errorf("opening root %s: %w", rootDir, err)
	}

	// Try the exclusive plan first: it only succeeds when the path itself
	// has no holder at all and no ancestor is held exclusively (ancestors
	// are only probed shared), so success here means the path is free.
	ok, wguard, err := client.TryWriteFile(relpath)
	if err != nil {
		return fmt.Errorf("probing %s: %w", relpath, err)
	}
	if ok {
		wguard.Release()
		fmt.Println(successStyle.Render("free"), relpath)
		return nil
	}

	// The exclusive probe failed, so something holds a lock. Try shared:
	// if that succeeds, no exclusive holder exists anywhere in the plan,
	// so the contention is read-only.
	ok, rguard, err := client.TryReadFile(relpath)
	if err != nil {
		return fmt.Errorf("probing %s: %w", relpath, err)
	}
	if ok {
		rguard.Release()
		fmt.Println(dimStyle.Render("read-locked"), relpath)
		return nil
	}

	fmt.Println(errorStyle.Render("write-locked"), relpath)
	return nil
}
