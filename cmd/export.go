package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/parser"
	"github.com/cwarden/timegrid/internal/source"
	"github.com/cwarden/timegrid/internal/store"
)

var (
	exportFrom   string
	exportTo     string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the database events as an ICS calendar",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "30 days ago", "First day to export")
	exportCmd.Flags().StringVar(&exportTo, "to", "in 12 months", "Last day to export")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger, closer, err := openLogger(true)
	if err != nil {
		return err
	}
	defer closer.Close()
	ctx := logging.ContextWithLogger(cmd.Context(), logger)

	p := parser.New()
	from, err := p.ParseDate(exportFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := p.ParseDate(exportTo)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	st, err := store.OpenSQLite(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.Events(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return source.WriteICS(w, events)
}
