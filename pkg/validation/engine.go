// Package validation evaluates field definitions against wizard state. The
// engine is referentially transparent: results depend only on the field,
// the value, the state it reads and the injected clock.
package validation

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-onboarding/pkg/condition"
	"github.com/goliatone/go-onboarding/pkg/condition/expr"
	"github.com/goliatone/go-onboarding/pkg/model"
)

// Engine validates fields and steps.
type Engine struct {
	validate  *validator.Validate
	trans     ut.Translator
	evaluator condition.Evaluator
	now       func() time.Time

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock fixes the reference time used for `today` date bounds.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEvaluator swaps the conditional-requirement evaluator.
func WithEvaluator(evaluator condition.Evaluator) Option {
	return func(e *Engine) {
		if evaluator != nil {
			e.evaluator = evaluator
		}
	}
}

// New constructs an engine with English messages.
func New(options ...Option) *Engine {
	validate, trans := newValidator()
	e := &Engine{
		validate:  validate,
		trans:     trans,
		evaluator: expr.New(),
		now:       time.Now,
		patterns:  make(map[string]*regexp.Regexp),
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// ValidateField checks value against field. State supplies the other
// fields referenced by conditional requirements and cross-field rules.
func (e *Engine) ValidateField(field model.FieldDefinition, value any, state *model.WizardState) FieldResult {
	if state == nil {
		state = model.NewState()
	}
	result := FieldResult{Key: field.Key, OK: true}

	required, err := e.required(field, state)
	if err != nil {
		return result.fail(e.msg("rule"))
	}

	switch field.Kind {
	case model.KindBoolean:
		if required && !truthy(value) {
			return result.fail(e.msg("checked"))
		}
		return result
	case model.KindFile:
		if required && !hasFile(field.Key, value, state) {
			return result.fail(e.msg("file"))
		}
		return result
	}

	if model.IsEmptyValue(value) {
		if required {
			return result.fail(e.msg("required"))
		}
		if msg, ok := e.checkEquals(field, value, state); !ok {
			return result.fail(msg)
		}
		return result
	}

	switch field.Kind {
	case model.KindNumber:
		return e.checkNumber(field, value, result)
	case model.KindDate:
		return e.checkDate(field, value, result)
	case model.KindEnum:
		return e.checkEnum(field, value, result)
	}

	text := model.Stringify(value)
	if field.Kind != model.KindPassword && field.Kind != model.KindPasswordConfirm {
		text = strings.TrimSpace(text)
	}
	switch field.Kind {
	case model.KindEmail:
		if msg, ok := e.checkTag(text, "email", ""); !ok {
			return result.fail(msg)
		}
	case model.KindPhone:
		if msg, ok := e.checkTag(text, phoneTag, ""); !ok {
			return result.fail(msg)
		}
	}

	for _, rule := range field.Rules {
		var (
			msg string
			ok  = true
		)
		switch rule.Kind {
		case model.RuleEmail:
			msg, ok = e.checkTag(text, "email", rule.Message)
		case model.RulePhone:
			msg, ok = e.checkTag(text, phoneTag, rule.Message)
		case model.RuleMinLength:
			msg, ok = e.checkTag(text, "min="+rule.Value, rule.Message)
		case model.RuleMaxLength:
			msg, ok = e.checkTag(text, "max="+rule.Value, rule.Message)
		case model.RulePattern:
			if re := e.pattern(rule.Value); re != nil && !re.MatchString(text) {
				msg, ok = e.custom(rule.Message, "pattern"), false
			}
		case model.RuleEquals:
			msg, ok = e.checkEquals(field, value, state)
		}
		if !ok {
			return result.fail(msg)
		}
	}
	return result
}

// ValidateStep validates every field of step and the verification items it
// carries. Failures are reported in declaration order.
func (e *Engine) ValidateStep(step model.StepDefinition, state *model.WizardState) StepResult {
	if state == nil {
		state = model.NewState()
	}
	result := StepResult{StepID: step.ID, OK: true}
	for _, field := range step.Fields {
		value, _ := state.Value(field.Key)
		fr := e.ValidateField(field, value, state)
		if !fr.OK {
			result.OK = false
			result.Fields = append(result.Fields, fr)
		}
	}
	if failures := checkItems(step, state); len(failures) > 0 {
		result.OK = false
		result.Items = failures
	}
	return result
}

// ValidateAll validates the steps of schema in order and returns the first
// failing step result with its index. When every step passes the result is
// OK and the index is the last step.
func (e *Engine) ValidateAll(schema model.RoleSchema, state *model.WizardState) (int, StepResult) {
	last := len(schema.Steps) - 1
	for idx, step := range schema.Steps {
		res := e.ValidateStep(step, state)
		if !res.OK {
			return idx, res
		}
	}
	if last < 0 {
		return 0, StepResult{OK: true}
	}
	return last, StepResult{StepID: schema.Steps[last].ID, OK: true}
}

func (e *Engine) required(field model.FieldDefinition, state *model.WizardState) (bool, error) {
	rule := strings.TrimSpace(field.RequiredIf)
	if rule == "" {
		return field.Required, nil
	}
	return e.evaluator.Eval(rule, condition.Context{
		Values:   state.Values,
		Role:     state.Role,
		EditMode: state.EditMode,
	})
}

func (e *Engine) checkTag(value any, tag, override string) (string, bool) {
	err := e.validate.Var(value, tag)
	if err == nil {
		return "", true
	}
	if override != "" {
		return override, false
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Translate(e.trans), false
	}
	return e.msg("pattern"), false
}

// checkEquals implements the cross-field rule. Both empty means "leave
// unchanged". In edit mode one side filled is a mismatch; otherwise the
// requirement check owns the empty side.
func (e *Engine) checkEquals(field model.FieldDefinition, value any, state *model.WizardState) (string, bool) {
	for _, rule := range field.Rules {
		if rule.Kind != model.RuleEquals {
			continue
		}
		other, _ := state.Value(rule.Value)
		selfEmpty := model.IsEmptyValue(value)
		otherEmpty := model.IsEmptyValue(other)
		switch {
		case selfEmpty && otherEmpty:
			continue
		case selfEmpty || otherEmpty:
			if !state.EditMode {
				continue
			}
		case model.Stringify(value) == model.Stringify(other):
			continue
		}
		return e.custom(rule.Message, "eqfield", rule.Value), false
	}
	return "", true
}

func (e *Engine) checkNumber(field model.FieldDefinition, value any, result FieldResult) FieldResult {
	n, ok := toNumber(value)
	if !ok {
		return result.fail(e.msg("number"))
	}
	for _, rule := range field.Rules {
		switch rule.Kind {
		case model.RuleMin:
			if msg, ok := e.checkTag(n, "gte="+rule.Value, rule.Message); !ok {
				return result.fail(msg)
			}
		case model.RuleMax:
			if msg, ok := e.checkTag(n, "lte="+rule.Value, rule.Message); !ok {
				return result.fail(msg)
			}
		}
	}
	return result
}

func (e *Engine) checkDate(field model.FieldDefinition, value any, result FieldResult) FieldResult {
	date, ok := ParseDate(value)
	if !ok {
		return result.fail(e.msg("date"))
	}
	for _, rule := range field.Rules {
		if rule.Kind != model.RuleBefore && rule.Kind != model.RuleAfter {
			continue
		}
		bound, ok := e.dateBound(rule.Value)
		if !ok {
			continue
		}
		if rule.Kind == model.RuleBefore && !date.Before(bound) {
			return result.fail(e.custom(rule.Message, "before", rule.Value))
		}
		if rule.Kind == model.RuleAfter && !date.After(bound) {
			return result.fail(e.custom(rule.Message, "after", rule.Value))
		}
	}
	return result
}

func (e *Engine) checkEnum(field model.FieldDefinition, value any, result FieldResult) FieldResult {
	allowed := make(map[string]struct{}, len(field.Options))
	for _, opt := range field.Options {
		allowed[opt] = struct{}{}
	}
	var selected []string
	switch typed := value.(type) {
	case []string:
		selected = typed
	case []any:
		for _, item := range typed {
			selected = append(selected, model.Stringify(item))
		}
	default:
		if field.Multiple {
			selected = SplitList(model.Stringify(value))
		} else {
			selected = []string{strings.TrimSpace(model.Stringify(value))}
		}
	}
	if !field.Multiple && len(selected) > 1 {
		return result.fail(e.msg("oneof", strings.Join(field.Options, ", ")))
	}
	for _, item := range selected {
		if _, ok := allowed[strings.TrimSpace(item)]; !ok {
			return result.fail(e.msg("oneof", strings.Join(field.Options, ", ")))
		}
	}
	return result
}

func (e *Engine) dateBound(raw string) (time.Time, bool) {
	if strings.EqualFold(strings.TrimSpace(raw), "today") {
		now := e.now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return ParseDate(raw)
}

func (e *Engine) pattern(raw string) *regexp.Regexp {
	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.patterns[raw]; ok {
		return re
	}
	re, err := regexp.Compile(raw)
	if err != nil {
		re = nil
	}
	e.patterns[raw] = re
	return re
}

func (e *Engine) custom(override, tag string, params ...string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return e.msg(tag, params...)
}

// RequiredMessage is the annotation used for a missing required value.
func (e *Engine) RequiredMessage() string {
	return e.msg("required")
}

func (e *Engine) msg(tag string, params ...string) string {
	if len(params) == 0 {
		params = []string{""}
	}
	text, err := e.trans.T(tag, params...)
	if err != nil {
		return tag
	}
	return text
}

// ParseDate reads a calendar date from YYYY-MM-DD strings, RFC 3339
// timestamps or time values. The result is midnight UTC of that date.
func ParseDate(value any) (time.Time, bool) {
	switch typed := value.(type) {
	case time.Time:
		if typed.IsZero() {
			return time.Time{}, false
		}
		return time.Date(typed.Year(), typed.Month(), typed.Day(), 0, 0, 0, 0, time.UTC), true
	case string:
		raw := strings.TrimSpace(typed)
		if t, err := time.Parse(time.DateOnly, raw); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// SplitList splits a comma-delimited list, trimming items and dropping
// empties.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func toNumber(value any) (float64, bool) {
	var n float64
	switch typed := value.(type) {
	case int:
		n = float64(typed)
	case int64:
		n = float64(typed)
	case float32:
		n = float64(typed)
	case float64:
		n = typed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	default:
		return false
	}
}

func hasFile(key string, value any, state *model.WizardState) bool {
	switch typed := value.(type) {
	case model.File:
		if !typed.Empty() {
			return true
		}
	case *model.File:
		if typed != nil && !typed.Empty() {
			return true
		}
	}
	_, ok := state.Attachment(key)
	return ok
}
