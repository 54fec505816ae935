package wizard

import (
	"log/slog"
	"strings"

	"github.com/goliatone/go-onboarding/pkg/notify"
	"github.com/goliatone/go-onboarding/pkg/submission"
	"github.com/goliatone/go-onboarding/pkg/validation"
)

// DefaultEntity is the list invalidated after a successful submission.
const DefaultEntity = "staff"

// RoleCatalog decides which roles may be selected.
type RoleCatalog interface {
	Enabled(role string) bool
}

// StaticCatalog enables a fixed list of roles, offered in order.
type StaticCatalog []string

// Enabled reports whether role is listed.
func (c StaticCatalog) Enabled(role string) bool {
	role = strings.TrimSpace(role)
	for _, candidate := range c {
		if strings.TrimSpace(candidate) == role {
			return true
		}
	}
	return false
}

// Roles returns the listed roles.
func (c StaticCatalog) Roles() []string {
	return append([]string(nil), c...)
}

// CacheInvalidator refreshes cached entity lists.
type CacheInvalidator interface {
	Invalidate(entity string)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(sink notify.Sink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.notifier = sink
		}
	}
}

// WithCatalog restricts selectable roles. Without a catalog every
// registered role is enabled.
func WithCatalog(catalog RoleCatalog) Option {
	return func(c *Controller) {
		c.catalog = catalog
	}
}

// WithCache sets the list cache invalidated after a successful submission.
func WithCache(cache CacheInvalidator) Option {
	return func(c *Controller) {
		c.cache = cache
	}
}

// WithEntity names the cached entity list.
func WithEntity(entity string) Option {
	return func(c *Controller) {
		if trimmed := strings.TrimSpace(entity); trimmed != "" {
			c.entity = trimmed
		}
	}
}

// WithEngine replaces the validation engine.
func WithEngine(engine *validation.Engine) Option {
	return func(c *Controller) {
		if engine != nil {
			c.engine = engine
		}
	}
}

// WithSubmission configures payload assembly.
func WithSubmission(opts submission.Options) Option {
	return func(c *Controller) {
		c.submitOpts = opts
	}
}
