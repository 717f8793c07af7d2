package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultName is the name of the bundled definition.
const DefaultName = "estate-intake"

// Catalog holds definitions by name.
type Catalog struct {
	definitions map[string]*Definition
}

// LoadFS walks fsys and parses every JSON/YAML definition. A nil fsys
// yields an empty catalog.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	catalog := &Catalog{definitions: make(map[string]*Definition)}
	if fsys == nil {
		return catalog, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		def, err := Parse(data, path)
		if err != nil {
			return err
		}
		if _, exists := catalog.definitions[def.Name]; exists {
			return fmt.Errorf("config: duplicate definition %q (file %s)", def.Name, path)
		}
		catalog.definitions[def.Name] = def
		return nil
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// Load reads a single definition file from disk.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Default returns the bundled estate intake definition.
func Default() (*Definition, error) {
	catalog, err := LoadFS(EmbeddedFS())
	if err != nil {
		return nil, err
	}
	def, ok := catalog.Definition(DefaultName)
	if !ok {
		return nil, fmt.Errorf("config: bundled definition %q missing", DefaultName)
	}
	return def, nil
}

// Parse decodes JSON or YAML and validates the result. source names the
// input in errors.
func Parse(data []byte, source string) (*Definition, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: file %s is empty", ErrInvalid, source)
	}
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		def = Definition{}
		if yerr := yaml.Unmarshal(data, &def); yerr != nil {
			return nil, fmt.Errorf("%w: parse %s: invalid JSON or YAML: %v", ErrInvalid, source, yerr)
		}
	}
	def.Source = source
	if def.Evaluator == "" {
		def.Evaluator = EvaluatorExpr
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Definition returns the named definition.
func (c *Catalog) Definition(name string) (*Definition, bool) {
	if c == nil {
		return nil, false
	}
	def, ok := c.definitions[name]
	return def, ok
}

// Names lists the definitions in lexical order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.definitions))
	for name := range c.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
