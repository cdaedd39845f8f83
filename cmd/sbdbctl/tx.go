package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/wilgaboury/sbdb"
)

var (
	txReads  []string
	txWrites []string
)

var txCmd = &cobra.Command{
	Use:   "tx --read path --write path -- <command...>",
	Short: "Plan, acquire a declared-set transaction, run a subprocess, then release",
	Long: `Builds and acquires a transaction from the declared --read and --write
paths (repeatable flags), prints the resulting canonical lock plan
(after ancestor expansion, nested-write pruning and dominated-read
suppression), runs the given command with every lock held, and releases
the whole transaction once the command exits.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTx,
}

func init() {
	txCmd.Flags().StringArrayVar(&txReads, "read", nil, "path to read-lock (repeatable)")
	txCmd.Flags().StringArrayVar(&txWrites, "write", nil, "path to write-lock (repeatable)")
}

func runTx(cmd *cobra.Command, args []string) error {
	if len(txReads) == 0 && len(txWrites) == 0 {
		return fmt.Errorf("at least one --read or --write is required")
	}

	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return fmt.Errorf("usage: sbdbctl tx --read path --write path -- <command...>")
	}
	command := args[dash:]
	if len(command) == 0 {
		return fmt.Errorf("no command given after --")
	}

	client, err := sbdb.Open(rootDir)
	if err != nil {
		return fmt.Errorf("opening root %s: %w", rootDir, err)
	}

	builder := client.Tx()
	for _, r := range txReads {
		builder = builder.Read(r)
	}
	for _, w := range txWrites {
		builder = builder.Write(w)
	}

	tx, err := builder.Begin()
	if err != nil {
		return fmt.Errorf("acquiring transaction: %w", err)
	}
	defer tx.Release()

	fmt.Println(titleStyle.Render("acquired plan"))
	for _, e := range tx.Entries() {
		fmt.Printf("  %-9s %s\n", e.Kind, e.Rel)
	}

	sub := exec.Command(command[0], command[1:]...)
	sub.Stdin = os.Stdin
	sub.Stdout = os.Stdout
	sub.Stderr = os.Stderr
	if err := sub.Run(); err != nil {
		return fmt.Errorf("running %s: %w", command[0], err)
	}
	return nil
}
