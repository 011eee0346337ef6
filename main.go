//go:build !gui

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/domain"
	"github.com/metcalfc/bookpilot/internal/tui"
)

var (
	opts options
	svc  *services
)

var rootCmd = &cobra.Command{
	Use:   "bookpilot",
	Short: "BookPilot - study guides and chat for your books",
	Long: `BookPilot turns uploaded books into study guides with chapter
summaries, a synthesis and a quiz, and lets you chat about them.

Run without arguments for the interactive terminal UI.`,
	Example: `  bookpilot                              Open the terminal UI
  bookpilot login you@example.com -p secret
  bookpilot upload ~/books/deep-work.epub
  bookpilot books`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		s, err := setup(opts)
		if err != nil {
			return err
		}
		svc = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if svc != nil {
			svc.Close()
		}
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/bookpilot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "API base URL (or set BOOKPILOT_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout (0: none)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd, loginCmd, registerCmd, logoutCmd, whoamiCmd,
		booksCmd, uploadCmd, processCmd, deleteCmd, exportCmd, quizCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := tui.NewApp(ctx, tui.Deps{
		Session: svc.session,
		Auth:    svc.client.Auth,
		Books:   svc.client.Books,
		Guides:  svc.client.Guides,
		Chat:    svc.client.Chat,
		Logger:  svc.logger.Named("tui"),
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	// Listeners can fire on the event loop itself, so never block it
	svc.session.OnChange(func(*domain.User) {
		go p.Send(tui.SessionChangedMsg{})
	})

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		svc.logger.Error("terminal ui", zap.Error(err))
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
