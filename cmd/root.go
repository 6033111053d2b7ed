package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cwarden/timegrid/internal/config"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/parser"
	"github.com/cwarden/timegrid/internal/source"
	"github.com/cwarden/timegrid/internal/store"
	"github.com/cwarden/timegrid/internal/ui"
)

var (
	cfgFile  string
	icsFiles []string
	dbPath   string
	logFile  string
	logLevel string
	viewName string
	dateArg  string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "timegrid",
	Short: "A terminal time-grid calendar",
	Long: `timegrid shows events from ICS files and a local database on a
day, week or month grid. Drag with the mouse to create, move and resize
events.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: search the usual locations)")
	rootCmd.PersistentFlags().StringSliceVarP(&icsFiles, "file", "f", []string{}, "ICS or remind file(s) to show (can be specified multiple times)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database for edited events")
	rootCmd.PersistentFlags().StringVar(&logFile, "log", "", "Append logs to this file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.Flags().StringVar(&viewName, "view", "", "Startup view: day, 3day, week, workweek or month")
	rootCmd.Flags().StringVarP(&dateArg, "date", "d", "", `Startup date, e.g. "next monday" or 2024-03-15`)
}

func initConfig() {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the file.
	if len(icsFiles) > 0 {
		cfg.Sources = icsFiles
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
}

// openLogger builds the logger for a command. Without a log file the TUI
// discards logs and the other commands write warnings to stderr.
func openLogger(stderr bool) (*slog.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.LogFile == "" && stderr {
		return logging.New(os.Stderr, max(level, slog.LevelWarn), "text"), io.NopCloser(nil), nil
	}
	return logging.Open(cfg.LogFile, level)
}

// openSources returns the store and the source the views read: the store
// first, so edited copies win over their file originals, then every
// configured ICS or remind file.
func openSources(ctx context.Context, logger *slog.Logger) (store.Store, *source.Composite, error) {
	st, err := store.OpenSQLite(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	src := source.NewComposite(st)
	src.Logger = logger
	for _, path := range cfg.Sources {
		src.Add(source.ForPath(path, logger))
	}
	return st, src, nil
}

func startupDate() (time.Time, error) {
	if dateArg == "" {
		return time.Now(), nil
	}
	return parser.New().ParseDate(dateArg)
}

func runTUI(cmd *cobra.Command, args []string) error {
	logger, closer, err := openLogger(false)
	if err != nil {
		return err
	}
	defer closer.Close()
	ctx := logging.ContextWithLogger(cmd.Context(), logger)

	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	view := settings.StartupView
	if viewName != "" {
		if view, err = dates.ParseViewMode(viewName); err != nil {
			return err
		}
	}
	date, err := startupDate()
	if err != nil {
		return err
	}

	st, src, err := openSources(ctx, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	model := ui.New(ui.Options{
		Config:   cfg,
		Settings: config.NewStore(settings),
		Source:   src,
		Store:    st,
		Logger:   logger,
		View:     view,
		Date:     date,
	})

	watcher, err := source.NewWatcher(model.HandleChange, logger)
	if err != nil {
		return fmt.Errorf("start file watcher: %w", err)
	}
	defer watcher.Close()
	watched := cfg.Sources
	if cfg.Path != "" {
		watched = append(watched[:len(watched):len(watched)], cfg.Path)
	}
	for _, path := range watched {
		if err := watcher.Add(path); err != nil {
			logger.Warn("not watching file", "path", path, "error", err)
		}
	}

	if err := model.Start(); err != nil {
		return err
	}
	defer model.Stop()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
