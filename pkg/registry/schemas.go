package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateConfig checks a node's raw configuration against the JSON schema
// declared by its capability factory. Returns the list of violations, empty
// when the configuration conforms or the factory declares no schema.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) ([]string, error) {
	factory, err := r.Resolve(nodeType)
	if err != nil {
		return nil, err
	}

	schema := factory.Schema()
	if schema == nil {
		return nil, nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation for node type '%s': %w", nodeType, err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("node type '%s' config: %s", nodeType, desc.String()))
	}

	return violations, nil
}
