package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"pyenvctl/internal/config"
	"pyenvctl/internal/mcpserver"
	"pyenvctl/pkg/logging"

	"github.com/spf13/cobra"
)

// newListCmd builds the non-interactive listing command, useful for
// scripting and for a quick look without entering the TUI.
func newListCmd() *cobra.Command {
	var showPackages bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered Python environments and exit",
		Long: `Scans the system for Python environments and prints them as a table.
With --packages each environment's installed packages are listed as well,
which probes every environment and can take a while.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logging.InitForCLI(logging.ParseLevel(cfg.Logging.Level), os.Stderr)

			svc := mcpserver.NewService(cfg, nil)
			envs, err := svc.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("scanning environments: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tVERSION\tPATH")
			for _, env := range envs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					env.DisplayName(), env.Kind, env.PythonVersion, env.Path)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if !showPackages {
				return nil
			}
			for _, env := range envs {
				pkgs, err := svc.ListPackages(cmd.Context(), env.Path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", env.DisplayName(), err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", env.DisplayName())
				for _, p := range pkgs {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", p.Name, p.Version)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPackages, "packages", false, "Also list installed packages per environment")
	return cmd
}
