package cmd

import (
	"fmt"
	"os"

	"pyenvctl/internal/config"
	"pyenvctl/internal/tui/controller"
	"pyenvctl/pkg/logging"

	"github.com/spf13/cobra"
)

// tuiDebugMode enables verbose logging in the activity log.
var tuiDebugMode bool

// rootCmd represents the base command when called without any subcommands.
// Running pyenvctl with no arguments launches the interactive TUI.
var rootCmd = &cobra.Command{
	Use:   "pyenvctl",
	Short: "Browse and manage Python environments from the terminal",
	Long: `pyenvctl discovers the Python environments on this machine (virtualenvs,
pyenv versions, conda environments and system interpreters) and lets you
inspect and manage them interactively: browse installed packages, create
and delete environments, and install or remove packages without leaving
the terminal.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. a failed initial scan)
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if tuiDebugMode {
		level = logging.LevelDebug
	}
	logChannel := logging.InitForTUI(level)
	defer logging.CloseTUIChannel()

	p, err := controller.NewProgram(cfg, tuiDebugMode, logChannel)
	if err != nil {
		return fmt.Errorf("initializing UI: %w", err)
	}
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	if app, ok := final.(controller.AppModel); ok {
		// A failed startup scan quits the program cleanly but must still
		// exit non-zero.
		if err := app.Err(); err != nil {
			return err
		}
	}
	return nil
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "pyenvctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&tuiDebugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
