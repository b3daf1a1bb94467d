package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Schema names registered by the schemas package.
const (
	SchemaCredentials = "credentials-v1"
	SchemaSettings    = "azcli-mcp-v1"
)

var (
	schemasMu sync.RWMutex
	schemas   = map[string][]byte{}
)

// SetSchema registers JSON Schema bytes under name. The schemas package
// calls it from init; tests may call it directly.
func SetSchema(name string, data []byte) {
	schemasMu.Lock()
	defer schemasMu.Unlock()
	schemas[name] = data
}

// GetSchema returns the schema registered under name.
func GetSchema(name string) []byte {
	schemasMu.RLock()
	defer schemasMu.RUnlock()
	return schemas[name]
}

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ValidationResult holds the outcome of a validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// SchemaError reports a value that failed schema validation.
type SchemaError struct {
	Key    string
	Result *ValidationResult
}

func (e *SchemaError) Error() string {
	msgs := make([]string, 0, len(e.Result.Errors))
	for _, ve := range e.Result.Errors {
		msgs = append(msgs, ve.Field+": "+ve.Description)
	}
	return fmt.Sprintf("invalid %s: %s", e.Key, strings.Join(msgs, "; "))
}

// ValidateCredentials checks a credential blob against the credentials schema.
// The blob itself is never echoed in the result.
func ValidateCredentials(blob string) (*ValidationResult, error) {
	if !json.Valid([]byte(blob)) {
		return &ValidationResult{Errors: []ValidationError{{
			Field:       "(root)",
			Description: "credentials must be a JSON object",
		}}}, nil
	}
	return validate(SchemaCredentials, []byte(blob))
}

// ValidateYAML validates a config file's raw YAML against the settings schema.
func ValidateYAML(data []byte) (*ValidationResult, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	jsonBytes, err := json.Marshal(convertYAMLToJSON(raw))
	if err != nil {
		return nil, fmt.Errorf("converting YAML to JSON: %w", err)
	}
	return validate(SchemaSettings, jsonBytes)
}

func validate(name string, document []byte) (*ValidationResult, error) {
	schema := GetSchema(name)
	if len(schema) == 0 {
		return nil, fmt.Errorf("JSON schema %s not loaded; import the schemas package", name)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("running schema validation: %w", err)
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		vr.Errors = append(vr.Errors, ValidationError{
			Field:       e.Field(),
			Description: e.Description(),
		})
	}
	return vr, nil
}

// convertYAMLToJSON turns yaml-decoded values into something encoding/json
// accepts, stringifying non-string map keys.
func convertYAMLToJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(val))
		for k, v2 := range val {
			result[k] = convertYAMLToJSON(v2)
		}
		return result
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(val))
		for k, v2 := range val {
			result[fmt.Sprintf("%v", k)] = convertYAMLToJSON(v2)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, v2 := range val {
			result[i] = convertYAMLToJSON(v2)
		}
		return result
	default:
		return v
	}
}
