package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-onboarding/internal/runner"
	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/records"
	"github.com/goliatone/go-onboarding/pkg/submission"
	"github.com/goliatone/go-onboarding/pkg/wizard"
)

func newNewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new [role]",
		Short: "Onboard a new staff member",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.load(cmd)
			if err != nil {
				return err
			}
			api := app.API
			if api == nil {
				api = records.NewMemory()
			}
			ctrl, err := app.controller(cmd, env, api)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := ctrl.SelectRole(args[0]); err != nil {
					return err
				}
			}
			return app.run(cmd, env, ctrl)
		},
	}
	cmd.Flags().Bool("dry-run", false, "print the payload instead of saving it")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an existing staff record",
		Long: `Load a staff record and walk through its steps in edit mode.

The record is read from the configured API. Without one, --from seeds an
in-memory store with a JSON record as returned by the staff service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.load(cmd)
			if err != nil {
				return err
			}
			api := app.API
			if api == nil {
				from, _ := cmd.Flags().GetString("from")
				if from == "" {
					return errors.New("edit needs --from when no record service is configured")
				}
				record, err := app.readRecord(from, args[0])
				if err != nil {
					return err
				}
				api = records.NewMemory(records.WithRecord(record))
			}
			ctrl, err := app.controller(cmd, env, api)
			if err != nil {
				return err
			}
			if err := ctrl.OpenEdit(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.run(cmd, env, ctrl)
		},
	}
	cmd.Flags().String("from", "", "JSON file holding the record to edit")
	cmd.Flags().Bool("dry-run", false, "print the payload instead of saving it")
	return cmd
}

func (a *App) controller(cmd *cobra.Command, env *invocation, api records.API) (*wizard.Controller, error) {
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		api = &dryRunAPI{API: api, out: cmd.OutOrStdout()}
	}
	return wizard.New(env.registry, api,
		wizard.WithLogger(env.logger),
		wizard.WithNotifier(env.notifier),
		wizard.WithCatalog(wizard.StaticCatalog(env.cfg.EnabledRoles)),
		wizard.WithCache(records.NewListCache()),
		wizard.WithEntity(env.cfg.Entity),
		wizard.WithSubmission(submission.Options{DefaultSchool: env.cfg.DefaultSchool}),
	)
}

func (a *App) run(cmd *cobra.Command, env *invocation, ctrl *wizard.Controller) error {
	if a.Driver == nil && !a.Interactive() {
		return ErrNotInteractive
	}
	r, err := runner.New(ctrl,
		runner.WithDriver(a.Driver),
		runner.WithOutput(cmd.ErrOrStderr()),
		runner.WithFileReader(a.ReadFile),
		runner.WithSpinner(a.Driver == nil),
		runner.WithLogger(env.logger),
	)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.Run(ctx); err != nil {
		if errors.Is(err, runner.ErrCancelled) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled, nothing was saved.")
			return nil
		}
		return err
	}
	return nil
}

func (a *App) readRecord(path, id string) (records.Record, error) {
	data, err := a.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	var record records.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", path, err)
	}
	if record == nil {
		return nil, fmt.Errorf("record %s is empty", path)
	}
	// numeric ids decode as float64
	if stored := strings.TrimSpace(model.Stringify(record["id"])); stored != "" {
		record["id"] = stored
	} else {
		record["id"] = id
	}
	return record, nil
}

// dryRunAPI prints payloads instead of writing them. Reads go to the
// wrapped API.
type dryRunAPI struct {
	records.API
	out io.Writer
}

func (d *dryRunAPI) Create(ctx context.Context, fields map[string]string, files map[string]model.File) (string, error) {
	return "dry-run", d.print(ctx, "create", fields, files)
}

func (d *dryRunAPI) Update(ctx context.Context, id string, fields map[string]string, files map[string]model.File) (string, error) {
	return id, d.print(ctx, "update "+id, fields, files)
}

func (d *dryRunAPI) print(ctx context.Context, action string, fields map[string]string, files map[string]model.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := submission.Payload{Fields: fields, Files: files}.JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(d.out, "%s:\n%s\n", action, doc)
	return err
}
