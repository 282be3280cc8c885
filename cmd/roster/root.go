package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/meszmate/buddylist/internal/app"
	"github.com/meszmate/buddylist/internal/config"
	"github.com/meszmate/buddylist/internal/logging"
	"github.com/meszmate/buddylist/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	rosterFile  string
	sortPolicy  string
	showOffline bool
	debugMode   bool

	buildVersion, buildCommit, buildDate string
)

// SetVersionInfo sets version information from ldflags
func SetVersionInfo(v, c, d string) {
	buildVersion, buildCommit, buildDate = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Terminal buddy list",
	Long: `roster shows a buddy list grouped into groups and contacts, sorted by
name, availability or conversation activity. Contacts that look like the
same person are offered for merging.`,
	RunE:          runTUI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/buddylist/config.toml)")
	flags.StringVarP(&rosterFile, "roster", "r", "", "Roster file to load instead of the configured one")
	flags.StringVarP(&sortPolicy, "sort", "s", "", "Sort policy: none, alphabetical, status, log_size")
	flags.BoolVar(&showOffline, "show-offline", false, "Show offline buddies")
	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(versionTemplate())
	return rootCmd.Execute()
}

func versionTemplate() string {
	if buildCommit != "none" && buildCommit != "" {
		return fmt.Sprintf("roster %s\n  commit: %s\n  built:  %s\n", buildVersion, buildCommit, buildDate)
	}
	return fmt.Sprintf("roster %s\n", buildVersion)
}

// loadConfig loads the configuration and applies command line overrides.
// It returns the config file path so the caller can watch it.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, "", err
	}

	path := configFile
	if path == "" {
		if err := paths.EnsureDirectories(); err != nil {
			return nil, "", err
		}
		path = paths.ConfigFile()
	}

	cfg, err := config.LoadFile(path, paths.DataDir)
	if err != nil {
		return nil, "", fmt.Errorf("error loading config: %w", err)
	}

	flags := cmd.Flags()
	if rosterFile != "" {
		cfg.BuddyList.RosterFile = rosterFile
	}
	if sortPolicy != "" {
		cfg.BuddyList.Sort = sortPolicy
	}
	if flags.Changed("show-offline") {
		cfg.BuddyList.ShowOfflineBuddies = showOffline
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, path, nil
}

func initLogging(cfg *config.Config) error {
	return logging.Init(logging.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
	})
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	if err := a.WatchConfig(path); err != nil {
		logging.Warn("config reload disabled: %v", err)
	}

	p := tea.NewProgram(ui.NewModel(a), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}
