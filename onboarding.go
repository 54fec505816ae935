// Package onboarding exposes the staff onboarding wizard core from the
// top-level module. Callers that only need the bundled roles can construct a
// controller here without importing the individual packages.
package onboarding

import (
	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/records"
	"github.com/goliatone/go-onboarding/pkg/registry"
	"github.com/goliatone/go-onboarding/pkg/wizard"
)

// RoleSchema aliases the ordered step table for a role.
type RoleSchema = model.RoleSchema

// Record aliases the record shape returned by the staff service.
type Record = records.Record

// API is the remote record service the controller talks to.
type API = records.API

// Controller aliases the wizard controller.
type Controller = wizard.Controller

// Option configures a Controller.
type Option = wizard.Option

// NewRegistry returns a registry preloaded with the bundled driver, conductor
// and staff schemas.
func NewRegistry(options ...registry.Option) (*registry.Registry, error) {
	return registry.NewDefault(options...)
}

// NewController builds a controller over the bundled schemas.
func NewController(api API, options ...Option) (*Controller, error) {
	reg, err := registry.NewDefault()
	if err != nil {
		return nil, err
	}
	return wizard.New(reg, api, options...)
}

// NewMemoryAPI returns an in-memory record service, mainly for demos and
// tests.
func NewMemoryAPI(options ...records.MemoryOption) *records.Memory {
	return records.NewMemory(options...)
}
