// Package cli wires the staffwizard commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/goliatone/go-onboarding/internal/config"
	"github.com/goliatone/go-onboarding/pkg/notify"
	"github.com/goliatone/go-onboarding/pkg/prompt"
	"github.com/goliatone/go-onboarding/pkg/records"
	"github.com/goliatone/go-onboarding/pkg/registry"
)

// ErrNotInteractive is returned by session commands without a terminal.
var ErrNotInteractive = errors.New("staffwizard: an interactive terminal is required")

// App carries the process dependencies shared by every command. Zero fields
// fall back to the real terminal.
type App struct {
	Out         io.Writer
	Err         io.Writer
	Driver      prompt.Driver
	API         records.API
	Interactive func() bool
	ReadFile    func(string) ([]byte, error)
}

func (a *App) withDefaults() *App {
	out := *a
	if out.Out == nil {
		out.Out = os.Stdout
	}
	if out.Err == nil {
		out.Err = os.Stderr
	}
	if out.Interactive == nil {
		out.Interactive = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	}
	if out.ReadFile == nil {
		out.ReadFile = os.ReadFile
	}
	return &out
}

// Execute runs the root command against the process terminal.
func Execute() error {
	return NewRootCmd(&App{}).Execute()
}

// NewRootCmd builds the command tree for app.
func NewRootCmd(app *App) *cobra.Command {
	if app == nil {
		app = &App{}
	}
	app = app.withDefaults()

	root := &cobra.Command{
		Use:           "staffwizard",
		Short:         "Onboard drivers, conductors and staff",
		Long:          "staffwizard walks through the role-specific onboarding steps and saves the staff record.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.PersistentFlags().StringP("config", "c", "staffwizard.json", "path to the JSON config file")
	root.PersistentFlags().String("schemas", "", "directory with additional role schemas")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().Bool("no-color", false, "disable colored notifications")

	root.AddCommand(
		newRolesCmd(app),
		newCheckCmd(app),
		newNewCmd(app),
		newEditCmd(app),
	)
	return root
}

// invocation is the per-invocation state resolved from flags and config.
type invocation struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notify.Sink
	registry *registry.Registry
}

func (a *App) load(cmd *cobra.Command) (*invocation, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dir, _ := cmd.Flags().GetString("schemas"); dir != "" {
		cfg.SchemaDir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		cfg.Color = false
	}

	logger := slog.New(slog.NewTextHandler(a.Err, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	reg, err := registry.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load bundled schemas: %w", err)
	}
	if cfg.SchemaDir != "" {
		if err := reg.LoadFS(os.DirFS(cfg.SchemaDir)); err != nil {
			return nil, fmt.Errorf("failed to load schemas from %s: %w", cfg.SchemaDir, err)
		}
	}

	return &invocation{
		cfg:      cfg,
		logger:   logger,
		notifier: notify.Multi(notify.NewTerminal(a.Out, !cfg.Color), notify.Logger(logger)),
		registry: reg,
	}, nil
}
