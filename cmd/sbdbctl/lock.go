package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/wilgaboury/sbdb"
)

var lockCmd = &cobra.Command{
	Use:   "lock <shared|exclusive> <path> -- <command...>",
	Short: "Acquire a hierarchical lock plan, run a subprocess, then release",
	Long: `Acquires the shared (read) or exclusive (write) lock plan for path
under --root, runs the given command with that lock held, and releases
it once the command exits - useful for exercising lock contention from
a shell, or for wrapping an external tool that must not run concurrently
with other sbdb sessions touching the same path.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runLock,
}

func runLock(cmd *cobra.Command, args []string) error {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return fmt.Errorf("usage: sbdbctl lock <shared|exclusive> <path> -- <command...>")
	}
	if dash != 2 {
		return fmt.Errorf("expected exactly 2 args (mode, path) before --, got %d", dash)
	}
	command := args[dash:]
	if len(command) == 0 {
		return fmt.Errorf("no command given after --")
	}

	mode, relpath := args[0], args[1]
	if mode != "shared" && mode != "exclusive" {
		return fmt.Errorf("mode must be \"shared\" or \"exclusive\", got %q", mode)
	}

	client, err := sbdb.Open(rootDir)
	if err != nil {
		return fmt.Errorf("opening root %s: %w", rootDir, err)
	}

	var release func()
	switch mode {
	case "shared":
		guard, err := client.ReadFile(relpath)
		if err != nil {
			return fmt.Errorf("acquiring shared lock: %w", err)
		}
		release = guard.Release
		fmt.Println(successStyle.Render("locked (shared)"), guard.Path)
	case "exclusive":
		guard, err := client.WriteFile(relpath)
		if err != nil {
			return fmt.Errorf("acquiring exclusive lock: %w", err)
		}
		release = guard.Release
		fmt.Println(successStyle.Render("locked (exclusive)"), guard.Path)
	}
	defer release()

	sub := exec.Command(command[0], command[1:]...)
	sub.Stdin = os.Stdin
	sub.Stdout = os.Stdout
	sub.Stderr = os.Stderr
	if err := sub.Run(); err != nil {
		return fmt.Errorf("running %s: %w", command[0], err)
	}
	return nil
}
