package main

import (
	"fmt"
	"io"

	"github.com/Locolm/ai-mail-reader/internal/db"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const historySubjectWidth = 40

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the conversations recently marked as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			path := historyPath(cfg)
			if !fileExists(path) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aucun historique.")
				return nil
			}

			store, err := db.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := db.NewReadLogStore(store).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func printHistory(w io.Writer, entries []db.ReadLogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Aucun historique.")
		return
	}
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "échec: " + e.Error
		}
		subject := runewidth.Truncate(e.Subject, historySubjectWidth, "…")
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			e.MarkedAt.Local().Format("2006-01-02 15:04"),
			runewidth.FillRight(subject, historySubjectWidth),
			e.Sender,
			status)
	}
}
