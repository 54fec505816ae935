// Package runner drives a wizard session from a terminal prompt driver.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/prompt"
	"github.com/goliatone/go-onboarding/pkg/wizard"
)

// ErrCancelled is returned when the user abandons the session.
var ErrCancelled = errors.New("runner: cancelled")

const (
	actionContinue = "Continue"
	actionSubmit   = "Submit"
	actionBack     = "Back"
	actionCancel   = "Cancel"
)

// Runner walks the user through the steps of a controller.
type Runner struct {
	ctrl     *wizard.Controller
	driver   prompt.Driver
	out      io.Writer
	readFile func(string) ([]byte, error)
	spinner  bool
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithDriver overrides the prompt driver.
func WithDriver(driver prompt.Driver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutput sets where the submit spinner is drawn.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithFileReader replaces os.ReadFile for attachment paths.
func WithFileReader(fn func(string) ([]byte, error)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.readFile = fn
		}
	}
}

// WithSpinner toggles the submit spinner.
func WithSpinner(enabled bool) Option {
	return func(r *Runner) {
		r.spinner = enabled
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a runner for ctrl. The survey driver is used by default.
func New(ctrl *wizard.Controller, options ...Option) (*Runner, error) {
	if ctrl == nil {
		return nil, errors.New("runner: controller is required")
	}
	r := &Runner{
		ctrl:     ctrl,
		out:      os.Stderr,
		readFile: os.ReadFile,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = prompt.NewSurvey(os.Stdout)
	}
	return r, nil
}

// Run loops until the record is saved or the user cancels.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("runner: context is required")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch r.ctrl.Phase() {
		case wizard.PhaseRoleUnselected:
			err = r.selectRole(ctx)
		case wizard.PhaseAtStep:
			err = r.step(ctx)
		case wizard.PhaseFailed:
			err = r.ctrl.Acknowledge()
		case wizard.PhaseDone:
			snap := r.ctrl.Snapshot()
			return r.driver.Info(ctx, fmt.Sprintf("Saved %s record %s", snap.Role, snap.RecordID))
		default:
			err = fmt.Errorf("runner: unexpected phase %s", r.ctrl.Phase())
		}
		if err != nil {
			if errors.Is(err, prompt.ErrAborted) {
				r.ctrl.Close()
				return ErrCancelled
			}
			return err
		}
	}
}

func (r *Runner) selectRole(ctx context.Context) error {
	roles := r.ctrl.OfferedRoles()
	if len(roles) == 0 {
		return errors.New("runner: no roles enabled")
	}
	idx, err := r.driver.Select(ctx, prompt.SelectConfig{Message: "Role", Options: roles, DefaultIndex: -1})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(roles) {
		return r.driver.Info(ctx, "Invalid role selection")
	}
	if err := r.ctrl.SelectRole(roles[idx]); err != nil {
		if errors.Is(err, wizard.ErrRoleUnavailable) {
			return r.driver.Info(ctx, "! "+err.Error())
		}
		return err
	}
	return nil
}

func (r *Runner) step(ctx context.Context) error {
	step, ok := r.ctrl.CurrentStep()
	if !ok {
		return errors.New("runner: no current step")
	}
	schema := r.ctrl.Schema()
	if err := r.driver.Info(ctx, fmt.Sprintf("Step %d of %d: %s", r.ctrl.Step()+1, len(schema.Steps), step.Title)); err != nil {
		return err
	}

	if step.Review {
		if err := r.summary(ctx, schema); err != nil {
			return err
		}
		if err := r.annotations(ctx); err != nil {
			return err
		}
		return r.act(ctx, actionSubmit)
	}

	for _, field := range step.Fields {
		if err := r.field(ctx, field); err != nil {
			return err
		}
	}
	return r.act(ctx, actionContinue)
}

func (r *Runner) act(ctx context.Context, forward string) error {
	actions := []string{forward, actionBack, actionCancel}
	idx, err := r.driver.Select(ctx, prompt.SelectConfig{Message: "Next action", Options: actions})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(actions) {
		return r.driver.Info(ctx, "Invalid action")
	}

	switch actions[idx] {
	case actionContinue:
		return r.gate(r.ctrl.Next())
	case actionSubmit:
		return r.submit(ctx)
	case actionBack:
		return r.back(ctx)
	default:
		r.ctrl.Close()
		return ErrCancelled
	}
}

func (r *Runner) gate(err error) error {
	var gerr *wizard.GateError
	if errors.As(err, &gerr) {
		r.logger.Debug("runner gate refused", "step", gerr.StepID, "key", gerr.Key)
		return nil
	}
	return err
}

func (r *Runner) submit(ctx context.Context) error {
	stop := r.spin("Saving")
	err := r.ctrl.Submit(ctx)
	stop()
	if err == nil || r.ctrl.Phase() == wizard.PhaseFailed {
		return nil
	}
	err = r.gate(err)
	if err != nil && !errors.Is(err, wizard.ErrSessionClosed) && r.ctrl.Phase() == wizard.PhaseAtStep {
		r.logger.Warn("runner submit refused", "error", err)
		return r.driver.Info(ctx, "! Could not submit, review the details and try again")
	}
	return err
}

func (r *Runner) back(ctx context.Context) error {
	err := r.ctrl.Back(false)
	switch {
	case errors.Is(err, wizard.ErrConfirmRequired):
		discard, cerr := r.driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Discard entered details and choose another role?"})
		if cerr != nil || !discard {
			return cerr
		}
		return r.ctrl.Back(true)
	case errors.Is(err, wizard.ErrRoleLocked):
		return r.driver.Info(ctx, "The role of an existing record cannot be changed")
	default:
		return err
	}
}

func (r *Runner) field(ctx context.Context, field model.FieldDefinition) error {
	snap := r.ctrl.Snapshot()
	for _, msg := range snap.Errors[field.Key] {
		if err := r.driver.Info(ctx, fmt.Sprintf("! %s: %s", field.DisplayLabel(), msg)); err != nil {
			return err
		}
	}

	label := field.DisplayLabel()
	switch field.Kind {
	case model.KindBoolean:
		v, err := r.driver.Confirm(ctx, prompt.ConfirmConfig{Message: label, Default: snap.Bool(field.Key), Help: field.Help})
		if err != nil {
			return err
		}
		return r.ctrl.SetValue(field.Key, v)
	case model.KindEnum:
		return r.enum(ctx, field, snap)
	case model.KindFile:
		return r.file(ctx, field, snap)
	case model.KindPassword, model.KindPasswordConfirm:
		v, err := r.driver.Password(ctx, prompt.InputConfig{Message: label, Help: field.Help})
		if err != nil {
			return err
		}
		return r.ctrl.SetValue(field.Key, v)
	default:
		v, err := r.driver.Input(ctx, prompt.InputConfig{Message: label, Default: snap.String(field.Key), Help: field.Help})
		if err != nil {
			return err
		}
		return r.ctrl.SetValue(field.Key, strings.TrimSpace(v))
	}
}

func (r *Runner) enum(ctx context.Context, field model.FieldDefinition, snap *model.WizardState) error {
	cfg := prompt.SelectConfig{Message: field.DisplayLabel(), Options: field.Options, DefaultIndex: -1, Help: field.Help}
	if field.Multiple {
		current, _ := snap.Value(field.Key)
		selected, _ := current.([]string)
		cfg.Defaults = prompt.IndicesOf(field.Options, selected)
		indices, err := r.driver.MultiSelect(ctx, cfg)
		if err != nil {
			return err
		}
		return r.ctrl.SetValue(field.Key, prompt.ValuesAt(field.Options, indices))
	}
	cfg.DefaultIndex = prompt.IndexOf(field.Options, snap.String(field.Key))
	idx, err := r.driver.Select(ctx, cfg)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(field.Options) {
		return r.ctrl.SetValue(field.Key, "")
	}
	return r.ctrl.SetValue(field.Key, field.Options[idx])
}

func (r *Runner) file(ctx context.Context, field model.FieldDefinition, snap *model.WizardState) error {
	help := "Path to the file; blank keeps the current one, - removes a new selection"
	message := field.DisplayLabel()
	if current, ok := snap.File(field.Key); ok {
		message += " [" + current.Name + "]"
	} else if ref, ok := snap.Attachment(field.Key); ok {
		message += " [on file: " + filepath.Base(ref) + "]"
	}
	path, err := r.driver.Input(ctx, prompt.InputConfig{Message: message, Help: help})
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	switch path {
	case "":
		return nil
	case "-":
		return r.ctrl.ClearFile(field.Key)
	}
	data, err := r.readFile(path)
	if err != nil {
		return r.driver.Info(ctx, fmt.Sprintf("! %s: cannot read %s", field.DisplayLabel(), path))
	}
	return r.ctrl.SetFile(field.Key, model.File{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	})
}

func (r *Runner) summary(ctx context.Context, schema model.RoleSchema) error {
	snap := r.ctrl.Snapshot()
	for _, field := range schema.Fields() {
		if field.Kind == model.KindPasswordConfirm {
			continue
		}
		var value string
		switch field.Kind {
		case model.KindPassword:
			if !snap.IsEmpty(field.Key) {
				value = "********"
			}
		case model.KindFile:
			if f, ok := snap.File(field.Key); ok {
				value = f.Name
			} else if _, ok := snap.Attachment(field.Key); ok {
				value = "(on file)"
			}
		default:
			value = strings.TrimSpace(snap.String(field.Key))
		}
		if value == "" {
			continue
		}
		if err := r.driver.Info(ctx, fmt.Sprintf("  %s: %s", field.DisplayLabel(), value)); err != nil {
			return err
		}
	}
	return nil
}

// annotations lists every outstanding field error, in key order.
func (r *Runner) annotations(ctx context.Context) error {
	snap := r.ctrl.Snapshot()
	keys := make([]string, 0, len(snap.Errors))
	for key := range snap.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, msg := range snap.Errors[key] {
			if err := r.driver.Info(ctx, fmt.Sprintf("! %s: %s", r.ctrl.Label(key), msg)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) spin(msg string) func() {
	if !r.spinner {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(r.out))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}
