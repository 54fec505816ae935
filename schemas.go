package onboarding

import (
	"io/fs"

	"github.com/goliatone/go-onboarding/pkg/registry"
)

// EmbeddedSchemas exposes the bundled role schemas so callers can copy or
// extend them without importing the registry package directly.
func EmbeddedSchemas() fs.FS {
	return registry.EmbeddedFS()
}
