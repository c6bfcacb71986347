package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/udisondev/blockregen/internal/config"
	"github.com/udisondev/blockregen/internal/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the regeneration event journal",
}

var journalRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent journal events",
	RunE:  runJournalRecent,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the journal as zstd-compressed JSON lines",
	RunE:  runJournalExport,
}

var (
	journalConfigPath string
	journalDriver     string
	journalPath       string
	journalDSN        string
	journalLimit      int
	journalOutput     string
)

func init() {
	journalCmd.AddCommand(journalRecentCmd, journalExportCmd)

	journalCmd.PersistentFlags().StringVar(&journalConfigPath, "config", "config/blockregen.yaml", "Daemon config to read journal settings from")
	journalCmd.PersistentFlags().StringVar(&journalDriver, "driver", "", "Override journal driver (sqlite, postgres)")
	journalCmd.PersistentFlags().StringVar(&journalPath, "path", "", "Override sqlite journal path")
	journalCmd.PersistentFlags().StringVar(&journalDSN, "dsn", "", "Override postgres DSN")

	journalRecentCmd.Flags().IntVar(&journalLimit, "limit", 20, "Number of events to show")

	journalExportCmd.Flags().StringVarP(&journalOutput, "output", "o", "", "Output file (required)")
	journalExportCmd.MarkFlagRequired("output")
}

func openJournal(ctx context.Context) (journal.Store, error) {
	cfg, err := config.LoadServer(journalConfigPath)
	if err != nil {
		return nil, err
	}

	jc := cfg.Journal
	if journalDriver != "" {
		jc.Driver = journalDriver
	}
	if journalPath != "" {
		jc.Path = journalPath
	}
	if journalDSN != "" {
		pg, err := journal.OpenPostgres(ctx, journalDSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	if jc.Driver == "" || jc.Driver == "none" {
		return nil, fmt.Errorf("journal is disabled in %s; pass --driver", journalConfigPath)
	}
	return journal.Open(ctx, jc)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runJournalRecent(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	store, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.Recent(ctx, journalLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		fmt.Fprintf(out, "%d %-16s %s block=%s definition=%s\n",
			e.AtMillis, e.Kind, e.Position(), e.BlockID, e.DefinitionID)
	}
	return nil
}

func runJournalExport(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	store, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Create(journalOutput)
	if err != nil {
		return fmt.Errorf("creating %s: %w", journalOutput, err)
	}

	n, err := journal.Export(ctx, store, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("exporting journal: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %d events to %s\n", n, journalOutput)
	return nil
}
