package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/source"
	"github.com/cwarden/timegrid/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Copy events from ICS files into the database",
	Long: `Parse each ICS file and store its events in the SQLite database so
they can be edited. Events already in the database are replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	logger, closer, err := openLogger(true)
	if err != nil {
		return err
	}
	defer closer.Close()
	ctx := logging.ContextWithLogger(cmd.Context(), logger)

	st, err := store.OpenSQLite(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var errs []error
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events, err := source.ParseICS(f, filepath.Base(path), logger)
		f.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}

		stored := 0
		for _, ev := range events {
			if err := st.Put(ctx, ev); err != nil {
				logger.Warn("skipping event", "path", path, "id", ev.ID, "error", err)
				continue
			}
			stored++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d of %d events\n", path, stored, len(events))
	}
	return errors.Join(errs...)
}
