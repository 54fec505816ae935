package registry

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-onboarding/pkg/model"
)

//go:embed schemas/*.yaml
var embeddedSchemas embed.FS

// EmbeddedFS returns the bundled role schemas.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedSchemas, "schemas")
	if err != nil {
		// The embed directive guarantees the subpath exists.
		panic(err)
	}
	return sub
}

// LoadFS walks fsys and registers every JSON or YAML role schema it finds.
// Files are visited in lexical order so registration order is stable.
func (r *Registry) LoadFS(fsys fs.FS) error {
	if fsys == nil {
		return nil
	}

	var paths []string
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("registry: walk: %w", err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("registry: read %s: %w", path, err)
		}
		schema, err := parseSchema(data, path)
		if err != nil {
			return err
		}
		if err := r.Register(schema); err != nil {
			return fmt.Errorf("registry: %s: %w", path, err)
		}
	}
	return nil
}

func parseSchema(data []byte, source string) (model.RoleSchema, error) {
	var schema model.RoleSchema
	if len(strings.TrimSpace(string(data))) == 0 {
		return schema, fmt.Errorf("registry: file %s is empty", source)
	}
	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(data, &schema); err != nil {
			return schema, fmt.Errorf("registry: parse %s: %w", source, err)
		}
		return schema, nil
	}
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return schema, fmt.Errorf("registry: parse %s: %w", source, err)
	}
	return schema, nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
