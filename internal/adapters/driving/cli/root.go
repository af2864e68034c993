// Package cli provides the credirag command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/creditrust/credirag/internal/core/ports/driving"
	"github.com/creditrust/credirag/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

var (
	verbose   bool
	configDir string
	envFile   string
)

// Config is what the application graph is built from.
type Config struct {
	// ConfigDir holds config.toml and prompt overrides. Empty uses ~/.credirag.
	ConfigDir string
}

// App is the wired application. Components are built on first use so that
// commands which only touch settings never contact a provider.
type App interface {
	// Settings returns the settings service.
	Settings() driving.SettingsService

	// IndexPath returns the configured index location.
	IndexPath() string

	// IndexBuilder returns the offline index builder.
	IndexBuilder(ctx context.Context) (driving.IndexBuilder, error)

	// IndexManager returns the index manager without opening an index.
	IndexManager(ctx context.Context) (driving.IndexManager, error)

	// Retriever opens the configured index if needed and returns the retriever.
	Retriever(ctx context.Context) (driving.Retriever, error)

	// Generator returns the answer generator.
	Generator(ctx context.Context) (driving.AnswerGenerator, error)

	// Conversation starts a chat session over the opened index.
	Conversation(ctx context.Context) (driving.ConversationDriver, error)

	// Close releases providers and the active index.
	Close() error
}

// AppFactory builds the App for a parsed command line.
type AppFactory func(Config) (App, error)

var (
	appFactory AppFactory
	currentApp App
)

// SetAppFactory installs the factory used by every command.
func SetAppFactory(f AppFactory) {
	appFactory = f
	currentApp = nil
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "credirag",
	Short: "Ask questions about customer complaints",
	Long: `credirag indexes consumer complaint narratives into a vector index and
answers questions about them with a language model, citing the complaints
each answer is grounded on.

Build an index once, then search it, ask single questions, or chat:
  credirag index build --corpus complaints.csv
  credirag ask "Why are customers unhappy with credit card fees?"
  credirag chat`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/.credirag)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
}

func persistentPreRun(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if envFile == "" {
		return nil
	}
	// Variables already set in the environment win over the file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return nil
}

// app returns the App for this invocation, building it on first use.
func app() (App, error) {
	if currentApp != nil {
		return currentApp, nil
	}
	if appFactory == nil {
		return nil, errors.New("application not configured")
	}
	a, err := appFactory(Config{ConfigDir: configDir})
	if err != nil {
		return nil, err
	}
	currentApp = a
	return a, nil
}

// Execute runs the root command and closes the App afterwards.
func Execute(ctx context.Context) error {
	defer closeApp()
	return rootCmd.ExecuteContext(ctx)
}

func closeApp() {
	if currentApp == nil {
		return
	}
	if err := currentApp.Close(); err != nil {
		logger.Warn("closing: %v", err)
	}
	currentApp = nil
}
