package main

import (
	"fmt"
	"os"
	"path/filepath"

	"patientdesk/internal/config"
	"patientdesk/internal/logging"
	"patientdesk/internal/patient"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	dataPath   string
	watchFlag  bool
	dark       bool

	// Resolved settings
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd runs the table editor
var rootCmd = &cobra.Command{
	Use:   "patients",
	Short: "patients - terminal editor for patient records",
	Long: `patients shows a table of patient records and lets you edit them.

Run without arguments to open the table editor: cell edits are staged and
written together on save, rows can be deleted and the table refreshed.
Use "patients form" for the detail form view.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEditor,
}

// formCmd runs the detail form view
var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Edit the selected patient in a form next to the table",
	Long: `Opens the "My View" window: the patient table on the right and a form
bound to the selected row on the left. Edits made in the form or directly in
the table are applied on SAVE and discarded on ROLLBACK.`,
	Args: cobra.NoArgs,
	RunE: runForm,
}

// listCmd prints the table once
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the patient table and exit",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	// Assigned here to avoid an initialization cycle through loadSettings.
	rootCmd.PersistentPreRunE = setupSession

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Config file, relative to the workspace")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "YAML patient dataset (default: built-in sample)")
	rootCmd.PersistentFlags().BoolVar(&watchFlag, "watch", false, "Refresh the table when the dataset file changes")
	rootCmd.PersistentFlags().BoolVar(&dark, "dark", false, "Use the dark theme")

	rootCmd.AddCommand(formCmd)
	rootCmd.AddCommand(listCmd)
}

// setupSession resolves settings and initializes logging before any command.
func setupSession(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = loadSettings()
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	if err := logging.Initialize(resolveWorkspace(), cfg.Logging.Options(sessionID)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("command %q, data %q", cmd.Name(), cfg.Data.Path)
	logging.Audit().SessionStart(cmd.Name())

	// Interactive commands own the terminal
	if cmd != listCmd {
		logger = zap.NewNop()
		return nil
	}

	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = logger.With(zap.String("session", sessionID))
	return nil
}

func main() {
	err := rootCmd.Execute()
	finishSession(err)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// finishSession ends the audit session and closes the log files. It runs
// after Execute because cobra skips post-run hooks when a command fails.
func finishSession(err error) {
	if err != nil {
		logging.BootError("command failed: %v", err)
	}
	if logger != nil {
		_ = logger.Sync()
	}
	logging.Audit().SessionEnd(err)
	logging.CloseAll()
}

func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// loadSettings reads the config file and lets explicitly set flags win.
func loadSettings() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(resolveWorkspace(), path)
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("data") {
		c.Data.Path = dataPath
	}
	if flags.Changed("watch") {
		c.Data.Watch = watchFlag
	}
	if dark {
		c.Theme = "dark"
	}
	if verbose {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// newProvider picks the dataset file when one is configured.
func newProvider(c *config.Config) patient.Provider {
	if c.Data.Path != "" {
		return patient.FileProvider{Path: c.Data.Path}
	}
	return patient.SampleProvider{}
}
