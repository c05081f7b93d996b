package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/slmtnm/s4browse/internal/config"
	"github.com/slmtnm/s4browse/internal/models"
	"github.com/slmtnm/s4browse/internal/session"
	"github.com/slmtnm/s4browse/internal/store"
	"github.com/slmtnm/s4browse/internal/tui"
)

var (
	rootCmd = &cobra.Command{
		Use:   "s4browse [remote[/bucket[/prefix]]]",
		Short: "s4browse - terminal browser for S3-compatible storage",
		Long: "s4browse browses buckets on every configured remote, searches a whole bucket,\n" +
			"downloads objects and prefixes, and previews text and media.\n\n" +
			"Remotes are read from s4browse.ini, the MinIO client config and .s3cfg.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runBrowse,
	}
	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Add a remote interactively",
		Args:  cobra.NoArgs,
		RunE:  runSetup,
	}
	remotesCmd = &cobra.Command{
		Use:   "remotes",
		Short: "List configured remotes",
		Args:  cobra.NoArgs,
		RunE:  runRemotes,
	}

	configFile  string
	concurrency int
	logFile     string
	logLevel    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to s4browse.ini")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Parallel downloads for prefixes (default from config, 4)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file (default $TMPDIR/s4browse.log)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.AddCommand(setupCmd, remotesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPaths() config.Paths {
	paths := config.DefaultPaths()
	if configFile != "" {
		paths.Ini = []string{configFile}
	}
	return paths
}

// loadConfig loads every config source and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPaths())
	if err != nil && !errors.Is(err, config.ErrNoRemotes) {
		return nil, err
	}
	if concurrency > 0 {
		cfg.Settings.Concurrency = concurrency
	}
	if logFile != "" {
		cfg.Settings.LogFile = logFile
	}
	if logLevel != "" {
		cfg.Settings.LogLevel = logLevel
	}
	return cfg, err
}

// setupLogging sends logs to a file; the terminal belongs to the UI.
func setupLogging(s config.Settings) (*os.File, error) {
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	f, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logrus.SetOutput(f)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	return f, nil
}

// parseLocation turns "remote/bucket/prefix" into a location.
func parseLocation(arg string) models.Location {
	arg = strings.TrimPrefix(arg, "/")
	if arg == "" {
		return models.RemoteList{}
	}
	remote, rest, _ := strings.Cut(arg, "/")
	if rest == "" {
		return models.BucketList{Remote: remote}
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return models.ObjectList{Remote: remote, Bucket: bucket, Prefix: prefix}
}

// checkLocation verifies the remote exists and, when a bucket is named,
// that it is reachable.
func checkLocation(cfg *config.Config, loc models.Location) error {
	var alias, bucket string
	switch l := loc.(type) {
	case models.RemoteList:
		return nil
	case models.BucketList:
		alias = l.Remote
	case models.ObjectList:
		alias, bucket = l.Remote, l.Bucket
	default:
		panic(fmt.Sprintf("unknown location %T", loc))
	}

	remote, ok := cfg.Remote(alias)
	if !ok {
		return fmt.Errorf("unknown remote %q, configured: %s", alias, strings.Join(cfg.Aliases(), ", "))
	}
	if bucket == "" {
		return nil
	}
	st, err := store.New(remote)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := st.HeadBucket(ctx, bucket); err != nil {
		return fmt.Errorf("error accessing bucket '%s': %w", bucket, err)
	}
	return nil
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if errors.Is(err, config.ErrNoRemotes) {
		fmt.Println("No remotes configured. Run 's4browse setup' to add one.")
		return err
	}
	if err != nil {
		return err
	}

	f, err := setupLogging(cfg.Settings)
	if err != nil {
		return err
	}
	defer f.Close()

	loc := models.Location(models.RemoteList{})
	if len(args) == 1 {
		loc = parseLocation(args[0])
	}
	if err := checkLocation(cfg, loc); err != nil {
		fmt.Println("\nPlease check:")
		fmt.Println("  - Remote and bucket names are correct")
		fmt.Println("  - Your credentials have access to this bucket")
		fmt.Println("  - Your endpoint configuration is correct")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"remotes":  len(cfg.Remotes),
		"location": models.Display(loc),
	}).Info("s4browse: starting")

	s := session.New(session.Options{Config: cfg})
	defer s.Close()
	s.Open(loc)

	program := tea.NewProgram(tui.New(s, cfg.Settings.Tick), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func runRemotes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if errors.Is(err, config.ErrNoRemotes) {
		fmt.Println("No remotes configured. Run 's4browse setup' to add one.")
		return nil
	}
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, alias := range cfg.Aliases() {
		r, _ := cfg.Remote(alias)
		fmt.Fprintf(out, "%-12s %-6s %-40s %s\n", alias, r.Backend, r.URL, filepath.Base(r.Source))
	}
	return nil
}
