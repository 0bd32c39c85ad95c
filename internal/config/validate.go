package config

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	opserrors "github.com/systmms/devops/internal/errors"
)

//go:embed schema.json
var schemaJSON string

// Validate checks the loaded file against the config schema. It returns nil
// when no file was loaded. Resolution never depends on Validate: unknown
// keys and wrongly typed values are ignored by the accessors.
func (c *Config) Validate() error {
	if !c.exists || c.raw == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(c.raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return opserrors.NewConfigErrorf("schema validation error for %s: %v", c.path, err).WithCause(err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		e := opserrors.NewConfigError(fmt.Sprintf("config file %s is invalid:\n  - %s", c.path, strings.Join(problems, "\n  - ")))
		e.Details = map[string]any{"path": c.path, "problems": len(problems)}
		return e
	}
	return nil
}
