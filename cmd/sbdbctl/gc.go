package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wilgaboury/sbdb"
)

var (
	gcWatch    bool
	gcInterval time.Duration
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Sweep orphaned lock, queue, staging and backup sidecars",
	Long: `Walks the root tree once, taking a non-blocking exclusive probe lock
on each sidecar's target before reaping it so a live session is never
disturbed, and reports what was visited and removed.

With --watch, repeats the sweep on --interval in a live view instead
of exiting after one pass.`,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcWatch, "watch", false, "repeat the sweep on an interval instead of exiting after one pass")
	gcCmd.Flags().DurationVar(&gcInterval, "interval", 5*time.Second, "sweep interval in --watch mode")
}

func runGC(cmd *cobra.Command, args []string) error {
	client, err := sbdb.Open(rootDir)
	if err != nil {
		return fmt.Errorf("opening root %s: %w", rootDir, err)
	}

	if !gcWatch {
		printGCResult(client.GC())
		return nil
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		// Not an interactive terminal - fall back to plain repeated output
		// rather than driving a Bubble Tea program against a pipe.
		for {
			printGCResult(client.GC())
			time.Sleep(gcInterval)
		}
	}

	p := tea.NewProgram(newGCModel(client, gcInterval))
	_, err = p.Run()
	return err
}

func printGCResult(res *sbdb.GCResult) {
	fmt.Printf("%s visited %d, removed %d\n", titleStyle.Render("sweep"), res.Visited, len(res.Removed))
	for _, r := range res.Removed {
		fmt.Println(dimStyle.Render("  - " + r))
	}
}

type gcTickMsg time.Time

type gcModel struct {
	client   *sbdb.Client
	interval time.Duration
	spinner  spinner.Model
	last     *sbdb.GCResult
	sweeps   int
}

func newGCModel(client *sbdb.Client, interval time.Duration) gcModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return gcModel{client: client, interval: interval, spinner: s}
}

func (m gcModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.sweep())
}

func (m gcModel) sweep() tea.Cmd {
	return func() tea.Msg {
		return gcTickMsg(time.Now())
	}
}

func (m gcModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case gcTickMsg:
		m.last = m.client.GC()
		m.sweeps++
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return gcTickMsg(t) })
	}
	return m, nil
}

func (m gcModel) View() string {
	header := fmt.Sprintf("%s %s  (sweeps: %d)", m.spinner.View(), titleStyle.Render("sbdb gc --watch"), m.sweeps)
	if m.last == nil {
		return header + "\n\nsweeping...\n"
	}
	body := fmt.Sprintf("\nvisited %d, removed %d\n", m.last.Visited, len(m.last.Removed))
	for _, r := range m.last.Removed {
		body += dimStyle.Render("  - "+r) + "\n"
	}
	return header + body + "\n" + dimStyle.Render("press q to quit")
}
