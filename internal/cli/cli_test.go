package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-onboarding/pkg/prompt"
)

type scriptedDriver struct {
	inputs    []string
	passwords []string
	selects   []int
	infos     []string
}

func (s *scriptedDriver) Input(context.Context, prompt.InputConfig) (string, error) {
	if len(s.inputs) == 0 {
		return "", prompt.ErrAborted
	}
	v := s.inputs[0]
	s.inputs = s.inputs[1:]
	return v, nil
}

func (s *scriptedDriver) Password(context.Context, prompt.InputConfig) (string, error) {
	if len(s.passwords) == 0 {
		return "", prompt.ErrAborted
	}
	v := s.passwords[0]
	s.passwords = s.passwords[1:]
	return v, nil
}

func (s *scriptedDriver) Confirm(context.Context, prompt.ConfirmConfig) (bool, error) {
	return false, prompt.ErrAborted
}

func (s *scriptedDriver) Select(context.Context, prompt.SelectConfig) (int, error) {
	if len(s.selects) == 0 {
		return -1, prompt.ErrAborted
	}
	v := s.selects[0]
	s.selects = s.selects[1:]
	return v, nil
}

func (s *scriptedDriver) MultiSelect(context.Context, prompt.SelectConfig) ([]int, error) {
	return nil, prompt.ErrAborted
}

func (s *scriptedDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

func execute(t *testing.T, app *App, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app.Out, app.Err = &out, &errOut
	cmd := NewRootCmd(app)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.json"), "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRolesCmd(t *testing.T) {
	t.Setenv("STAFFWIZARD_ENABLED_ROLES", "driver,staff,cleaner")

	out, _, err := execute(t, &App{}, "roles")
	require.NoError(t, err)

	assert.Regexp(t, `driver\s+Driver\s+5 steps`, out)
	assert.Regexp(t, `staff\s+Staff\s+3 steps`, out)
	assert.Regexp(t, `cleaner\s+Staff \(generic\)\s+3 steps`, out)
	assert.NotContains(t, out, "conductor")
}

func TestCheckCmd(t *testing.T) {
	out, _, err := execute(t, &App{}, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "ok   driver (5 steps")
	assert.Contains(t, out, "ok   conductor")

	broken := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(broken, "cleaner.yaml"), []byte("role: cleaner\nsteps: []\n"), 0o644))

	_, errOut, err := execute(t, &App{}, "check", broken)
	require.Error(t, err)
	assert.Contains(t, errOut, "FAIL "+broken)
}

func TestNewCmd_RequiresTerminal(t *testing.T) {
	_, _, err := execute(t, &App{Interactive: func() bool { return false }}, "new")
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestNewCmd_DryRunPrintsMaskedPayload(t *testing.T) {
	driver := &scriptedDriver{
		inputs:    []string{"SCH-3", "Asha", "", "9876543210", "", "", "asha"},
		passwords: []string{"s3cret-pass", "s3cret-pass"},
		selects:   []int{1, 0, 0, 0},
	}

	out, _, err := execute(t, &App{Driver: driver}, "new", "staff", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "create:")
	assert.Contains(t, out, `"first_name": "Asha"`)
	assert.Contains(t, out, `"school_id": "SCH-3"`)
	assert.Contains(t, out, `"password": "********"`)
	assert.NotContains(t, out, "s3cret-pass")
	assert.Contains(t, out, "Staff created")
	assert.Contains(t, driver.infos, "Saved staff record dry-run")
}

func TestNewCmd_CancelSavesNothing(t *testing.T) {
	driver := &scriptedDriver{}
	out, _, err := execute(t, &App{Driver: driver}, "new")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled, nothing was saved.")
}

func TestEditCmd(t *testing.T) {
	_, _, err := execute(t, &App{Driver: &scriptedDriver{}}, "edit", "rec-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from")

	path := filepath.Join(t.TempDir(), "record.json")
	record := `{
		"id": "rec-9",
		"role": "staff",
		"school_id": "SCH-3",
		"profile": {"first_name": "Asha", "phone": "9876543210", "gender": "female"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(record), 0o644))

	driver := &scriptedDriver{
		inputs:    []string{"SCH-3", "Asha", "Rao", "9876543210", "", "", "asha"},
		passwords: []string{"", ""},
		selects:   []int{1, 0, 0, 0},
	}
	out, _, err := execute(t, &App{Driver: driver}, "edit", "rec-9", "--from", path, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "update rec-9:")
	assert.Contains(t, out, `"last_name": "Rao"`)
	assert.NotContains(t, out, `"password"`)
	assert.Contains(t, out, "Staff updated")
}

func TestEditCmd_NumericRecordID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	record := `{"id": 42, "role": "staff", "school_id": "SCH-3", "first_name": "Ravi", "phone": "9876543210"}`
	require.NoError(t, os.WriteFile(path, []byte(record), 0o644))

	driver := &scriptedDriver{
		inputs:    []string{"SCH-3", "Ravi", "Kumar", "9876543210", "", "", "ravi"},
		passwords: []string{"", ""},
		selects:   []int{0, 0, 0, 0},
	}
	out, _, err := execute(t, &App{Driver: driver}, "edit", "42", "--from", path, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "update 42:")
	assert.Contains(t, out, `"last_name": "Kumar"`)
}
