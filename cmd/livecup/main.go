package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brewbean/livecup/internal/config"
	"github.com/brewbean/livecup/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "livecup",
		Short:         "Live coffee order relay, viewer and ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = version.String()
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	rootCmd.AddCommand(
		newServeCommand(),
		newWatchCommand(),
		newPublishCommand(),
		newOrdersCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

// loadConfig reads the environment and applies command-line overrides for
// the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	overrides := map[string]*string{
		"hub":      &cfg.HubURL,
		"listen":   &cfg.ListenAddr,
		"room":     &cfg.Room,
		"identity": &cfg.Identity,
		"topic":    &cfg.DataTopic,
		"db":       &cfg.LedgerDB,
	}
	for name, target := range overrides {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		*target = flag.Value.String()
	}
	cfg.LedgerDB = config.ExpandHome(cfg.LedgerDB)
	return cfg, nil
}

// setupLogging tees the standard logger to console and a per-command log
// file. Commands that print data pass stderr so stdout stays parseable.
func setupLogging(cfg config.Config, name string, console io.Writer) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logPath := filepath.Join(cfg.LogDir, name+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(console, logFile))
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	log.Printf("=== livecup %s starting (PID: %d) ===", name, os.Getpid())
	log.Printf("Log file: %s", logPath)
	return nil
}

// OutputFormatter handles output in JSON or human-readable format.
type OutputFormatter struct {
	jsonMode bool
	w        io.Writer
}

func newOutputFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &OutputFormatter{jsonMode: jsonMode, w: cmd.OutOrStdout()}
}

// Stream writes data as one compact JSON line, for commands that emit a
// sequence of documents.
func (f *OutputFormatter) Stream(data any) error {
	line, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(f.w, string(line))
	return err
}

// Print writes data as indented JSON in JSON mode and as text otherwise.
func (f *OutputFormatter) Print(data any) error {
	if s, ok := data.(string); ok && !f.jsonMode {
		_, err := fmt.Fprintln(f.w, s)
		return err
	}
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(f.w, string(jsonBytes))
	return err
}
