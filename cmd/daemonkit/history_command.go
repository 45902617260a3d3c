package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"daemonkit/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lifecycle events from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("journal is disabled (set journal.enabled = true)")
			}
			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			events, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No lifecycle events recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(historyColumns, historyRows(events)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

var historyColumns = []tableColumn{
	{Header: "Time"},
	{Header: "Event"},
	{Header: "PID", Align: alignRight},
	{Header: "Run"},
	{Header: "Detail"},
}

func historyRows(events []journal.Event) [][]string {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		at := ""
		if !ev.At.IsZero() {
			at = ev.At.Local().Format(time.DateTime)
		}
		pid := ""
		if ev.PID > 0 {
			pid = strconv.Itoa(ev.PID)
		}
		rows = append(rows, []string{at, string(ev.Kind), pid, shortRunID(ev.RunID), ev.Detail})
	}
	return rows
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
