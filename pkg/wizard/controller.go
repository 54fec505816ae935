// Package wizard drives a staged onboarding session. The Controller is the
// only writer of wizard state; the other packages read it or compute over
// copies of it.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/goliatone/go-onboarding/pkg/errmap"
	"github.com/goliatone/go-onboarding/pkg/hydrate"
	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/notify"
	"github.com/goliatone/go-onboarding/pkg/records"
	"github.com/goliatone/go-onboarding/pkg/submission"
	"github.com/goliatone/go-onboarding/pkg/validation"
)

// Phase is the controller state.
type Phase int

const (
	PhaseRoleUnselected Phase = iota
	PhaseAtStep
	PhaseSubmitting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseRoleUnselected:
		return "role-unselected"
	case PhaseAtStep:
		return "at-step"
	case PhaseSubmitting:
		return "submitting"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Schemas resolves role schemas. *registry.Registry satisfies it.
type Schemas interface {
	Resolve(role string) (model.RoleSchema, error)
	Roles() []string
}

// Controller is a single wizard session. All methods are safe for
// concurrent use; one transition runs at a time.
type Controller struct {
	schemas    Schemas
	api        records.API
	engine     *validation.Engine
	notifier   notify.Sink
	catalog    RoleCatalog
	cache      CacheInvalidator
	entity     string
	submitOpts submission.Options
	logger     *slog.Logger

	mu       sync.Mutex
	phase    Phase
	schema   model.RoleSchema
	state    *model.WizardState
	failure  errmap.Mapping
	closed   bool
	fetching bool
}

// New constructs a controller in the role-unselected phase.
func New(schemas Schemas, api records.API, options ...Option) (*Controller, error) {
	if schemas == nil {
		return nil, errors.New("wizard: schemas are required")
	}
	if api == nil {
		return nil, errors.New("wizard: record api is required")
	}
	c := &Controller{
		schemas:  schemas,
		api:      api,
		engine:   validation.New(),
		notifier: notify.Discard,
		entity:   DefaultEntity,
		logger:   slog.New(slog.DiscardHandler),
		state:    model.NewState(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// SelectRole starts a new record for role.
func (c *Controller) SelectRole(role string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	if c.phase != PhaseRoleUnselected {
		return fmt.Errorf("%w: select role in phase %s", ErrInvalidPhase, c.phase)
	}
	role = strings.TrimSpace(role)
	if role == "" || !c.enabled(role) {
		return fmt.Errorf("%w: %q", ErrRoleUnavailable, role)
	}
	schema, err := c.schemas.Resolve(role)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoleUnavailable, err)
	}

	state := model.NewState()
	state.Role = role
	for key, value := range schema.Defaults() {
		state.Values[key] = value
	}
	c.schema = schema
	c.state = state
	c.failure = errmap.Mapping{}
	c.moveTo(PhaseAtStep, 0)
	return nil
}

// OpenEdit fetches record id and seeds the session in edit mode. The first
// step is only exposed once the record is fully hydrated. When the session
// is closed while the fetch is in flight the result is discarded.
func (c *Controller) OpenEdit(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.ready(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.phase != PhaseRoleUnselected {
		c.mu.Unlock()
		return fmt.Errorf("%w: open edit in phase %s", ErrInvalidPhase, c.phase)
	}
	c.fetching = true
	c.mu.Unlock()

	record, err := c.api.Get(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false
	if c.closed {
		c.logger.Debug("wizard discarded fetched record", "record", id)
		return ErrSessionClosed
	}
	if err != nil {
		c.logger.Warn("wizard record fetch failed", "record", id, "error", err)
		return fmt.Errorf("wizard: fetch record %q: %w", id, err)
	}

	role, _ := hydrate.Flatten(record)["role"].(string)
	role = strings.TrimSpace(role)
	if role == "" {
		return fmt.Errorf("%w: record %q has no role", ErrRoleUnavailable, id)
	}
	schema, err := c.schemas.Resolve(role)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoleUnavailable, err)
	}

	res := hydrate.Hydrate(schema, record)
	state := model.NewState()
	state.Role = role
	state.EditMode = true
	state.RecordID = res.RecordID
	if state.RecordID == "" {
		state.RecordID = id
	}
	for key, value := range schema.Defaults() {
		state.Values[key] = value
	}
	for key, value := range res.Values {
		state.Values[key] = value
	}
	for key, ref := range res.Attachments {
		state.Attachments[key] = ref
	}
	c.schema = schema
	c.state = state
	c.failure = errmap.Mapping{}
	c.moveTo(PhaseAtStep, 0)
	return nil
}

// Back moves one step back. At the first step it returns to role selection
// only when discard is true, clearing the collected values.
func (c *Controller) Back(discard bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	if c.phase == PhaseSubmitting {
		return ErrBusy
	}
	if c.phase != PhaseAtStep {
		return fmt.Errorf("%w: back in phase %s", ErrInvalidPhase, c.phase)
	}
	if c.state.Step > 0 {
		c.moveTo(PhaseAtStep, c.state.Step-1)
		return nil
	}
	if c.state.EditMode {
		return ErrRoleLocked
	}
	if !discard {
		return ErrConfirmRequired
	}
	c.schema = model.RoleSchema{}
	c.state = model.NewState()
	c.moveTo(PhaseRoleUnselected, 0)
	return nil
}

// Next validates the current step and advances by exactly one step.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	if c.phase == PhaseSubmitting {
		return ErrBusy
	}
	if c.phase != PhaseAtStep {
		return fmt.Errorf("%w: next in phase %s", ErrInvalidPhase, c.phase)
	}
	idx := c.state.Step
	if idx >= len(c.schema.Steps)-1 {
		return fmt.Errorf("%w: already at the last step", ErrInvalidPhase)
	}

	step := c.schema.Steps[idx]
	res := c.engine.ValidateStep(step, c.state)
	c.clearStepErrors(step)
	if !res.OK {
		return c.refuse(idx, res)
	}
	c.moveTo(PhaseAtStep, idx+1)
	return nil
}

// Submit re-runs every gate and sends the record. Concurrent calls while a
// submission is pending return ErrSubmitInFlight without reaching the API.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.ready(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	last := len(c.schema.Steps) - 1
	if c.phase != PhaseAtStep || c.state.Step != last {
		c.mu.Unlock()
		return fmt.Errorf("%w: submit in phase %s", ErrInvalidPhase, c.phase)
	}

	for _, step := range c.schema.Steps {
		c.clearStepErrors(step)
	}
	if idx, res := c.engine.ValidateAll(c.schema, c.state); !res.OK {
		err := c.refuse(idx, res)
		c.mu.Unlock()
		return err
	}

	payload, err := submission.Assemble(c.schema, c.state, c.submitOpts)
	if errors.Is(err, submission.ErrNoSchool) {
		err = c.refuseSchool(last)
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("wizard payload assembly failed", "error", err)
		c.notifier.Notify(notify.KindError, errmap.FallbackMessage)
		return fmt.Errorf("wizard: assemble payload: %w", err)
	}

	edit, recordID := c.state.EditMode, c.state.RecordID
	c.moveTo(PhaseSubmitting, last)
	c.mu.Unlock()

	var id string
	if edit {
		id, err = c.api.Update(ctx, recordID, payload.Fields, payload.Files)
	} else {
		id, err = c.api.Create(ctx, payload.Fields, payload.Files)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		if id != "" {
			c.state.RecordID = id
		}
		c.failure = errmap.Mapping{}
		c.moveTo(PhaseDone, last)
		if c.cache != nil {
			c.cache.Invalidate(c.entity)
		}
		c.notifier.Notify(notify.KindSuccess, c.successMessage(edit))
		return nil
	}

	var verr *records.ValidationError
	if errors.As(err, &verr) {
		c.failure = errmap.Map(verr.Payload, c.known)
	} else {
		c.failure = errmap.Mapping{Global: []string{errmap.FallbackMessage}}
	}
	for key, messages := range c.failure.PerField {
		c.state.Errors[key] = append([]string(nil), messages...)
	}
	c.moveTo(PhaseFailed, last)
	c.logger.Warn("wizard submit failed", "role", c.state.Role, "error", err)
	for _, msg := range c.failure.Messages(c.label) {
		c.notifier.Notify(notify.KindError, msg)
	}
	return fmt.Errorf("wizard: submit: %w", err)
}

// Acknowledge leaves the failed phase and reopens the earliest step that
// owns a field named in the server errors, or the last step otherwise.
// Field errors stay as annotations.
func (c *Controller) Acknowledge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	if c.phase != PhaseFailed {
		return fmt.Errorf("%w: acknowledge in phase %s", ErrInvalidPhase, c.phase)
	}
	target := len(c.schema.Steps) - 1
	for key := range c.failure.PerField {
		if idx, ok := c.schema.StepOf(key); ok && idx < target {
			target = idx
		}
	}
	c.moveTo(PhaseAtStep, target)
	return nil
}

// SetValue records value for key on the current session.
func (c *Controller) SetValue(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.editable(key); err != nil {
		return err
	}
	c.state.Values[key] = value
	c.touch(key)
	return nil
}

// SetFile attaches a newly selected file to key.
func (c *Controller) SetFile(key string, file model.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	field, err := c.editable(key)
	if err != nil {
		return err
	}
	if field.Kind != model.KindFile {
		return fmt.Errorf("%w: %q", ErrNotFileField, key)
	}
	c.state.Values[key] = file
	c.touch(key)
	return nil
}

// ClearFile drops the newly selected file for key. Existing attachments are
// kept.
func (c *Controller) ClearFile(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	field, err := c.editable(key)
	if err != nil {
		return err
	}
	if field.Kind != model.KindFile {
		return fmt.Errorf("%w: %q", ErrNotFileField, key)
	}
	delete(c.state.Values, key)
	c.touch(key)
	return nil
}

// Close abandons the session. A pending submission still resolves and
// invalidates the list cache on success.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.logger.Debug("wizard closed", "phase", c.phase.String())
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Step returns the current step index.
func (c *Controller) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Step
}

// CurrentStep returns the definition of the current step.
func (c *Controller) CurrentStep() (model.StepDefinition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseRoleUnselected || c.state.Step >= len(c.schema.Steps) {
		return model.StepDefinition{}, false
	}
	return c.schema.Steps[c.state.Step], true
}

// Schema returns the active role schema.
func (c *Controller) Schema() model.RoleSchema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema
}

// Snapshot returns a deep copy of the wizard state.
func (c *Controller) Snapshot() *model.WizardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Failure returns the mapped server errors of the last failed submission.
func (c *Controller) Failure() errmap.Mapping {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// OfferedRoles lists the roles the user may pick.
func (c *Controller) OfferedRoles() []string {
	if lister, ok := c.catalog.(interface{ Roles() []string }); ok {
		return lister.Roles()
	}
	var out []string
	for _, role := range c.schemas.Roles() {
		if c.catalog == nil || c.catalog.Enabled(role) {
			out = append(out, role)
		}
	}
	return out
}

// Label returns the display label for key in the active schema.
func (c *Controller) Label(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label(key)
}

func (c *Controller) ready() error {
	if c.closed {
		return ErrSessionClosed
	}
	if c.fetching {
		return ErrBusy
	}
	return nil
}

func (c *Controller) enabled(role string) bool {
	if c.catalog != nil {
		return c.catalog.Enabled(role)
	}
	for _, candidate := range c.schemas.Roles() {
		if candidate == role {
			return true
		}
	}
	return false
}

func (c *Controller) editable(key string) (model.FieldDefinition, error) {
	if err := c.ready(); err != nil {
		return model.FieldDefinition{}, err
	}
	if c.phase == PhaseSubmitting {
		return model.FieldDefinition{}, ErrBusy
	}
	if c.phase != PhaseAtStep {
		return model.FieldDefinition{}, fmt.Errorf("%w: edit in phase %s", ErrInvalidPhase, c.phase)
	}
	field, ok := c.schema.Field(key)
	if !ok {
		return model.FieldDefinition{}, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return field, nil
}

func (c *Controller) touch(key string) {
	c.state.Touched[key] = struct{}{}
	delete(c.state.Errors, key)
	for _, step := range c.schema.Steps {
		for _, item := range step.Verification {
			if item.FlagKey == key || item.FileKey == key {
				delete(c.state.Errors, item.FlagKey)
				delete(c.state.Errors, item.FileKey)
			}
		}
	}
}

func (c *Controller) clearStepErrors(step model.StepDefinition) {
	for _, field := range step.Fields {
		delete(c.state.Errors, field.Key)
	}
}

func (c *Controller) refuse(idx int, res validation.StepResult) error {
	fields := res.Errors()
	for key, messages := range fields {
		c.state.Errors[key] = messages
	}
	key, message := res.First()
	gerr := &GateError{
		StepIndex: idx,
		StepID:    res.StepID,
		Key:       key,
		Message:   message,
		Fields:    fields,
	}
	if len(res.Fields) == 0 && len(res.Items) > 0 {
		gerr.Item = res.Items[0].Item.ID
		gerr.Cause = res.Items[0].Cause
	}
	c.logger.Warn("wizard gate refused", "step", res.StepID, "key", key, "message", message)
	c.notifier.Notify(notify.KindError, c.label(key)+": "+message)
	return gerr
}

// refuseSchool annotates the school field when neither the state nor the
// configured default names one. The gate points at the step owning it.
func (c *Controller) refuseSchool(last int) error {
	key := strings.TrimSpace(c.submitOpts.SchoolKey)
	if key == "" {
		key = submission.DefaultSchoolKey
	}
	idx, ok := c.schema.StepOf(key)
	if !ok {
		idx = last
	}
	res := validation.StepResult{
		StepID: c.schema.Steps[idx].ID,
		Fields: []validation.FieldResult{{Key: key, Messages: []string{c.engine.RequiredMessage()}}},
	}
	return c.refuse(idx, res)
}

func (c *Controller) known(key string) bool {
	_, ok := c.schema.Field(key)
	return ok
}

func (c *Controller) label(key string) string {
	if field, ok := c.schema.Field(key); ok {
		return field.DisplayLabel()
	}
	return errmap.Humanize(key)
}

func (c *Controller) successMessage(edit bool) string {
	name := strings.TrimSpace(c.schema.Label)
	if name == "" {
		name = errmap.Humanize(c.state.Role)
	}
	if edit {
		return name + " updated"
	}
	return name + " created"
}

func (c *Controller) moveTo(phase Phase, step int) {
	from, fromStep := c.phase, c.state.Step
	c.phase = phase
	c.state.Step = step
	c.logger.Debug("wizard transition",
		"role", c.state.Role,
		"from", from.String(),
		"from_step", fromStep,
		"to", phase.String(),
		"to_step", step,
	)
}
