// internal/api/schema.go
package api

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "github.com/yout0703/web-collector/internal/common/errors"
)

// classifyRequestSchema validates classify payloads before decoding.
// Either a bare url (extract-then-classify) or a full feature vector.
const classifyRequestSchema = `{
	"type": "object",
	"properties": {
		"url": {"type": "string", "minLength": 1},
		"features": {
			"type": "object",
			"properties": {
				"url": {"type": "string", "minLength": 1},
				"domStructure": {"$ref": "#/definitions/domNode"},
				"cssClasses": {"type": "array", "items": {"type": "string"}},
				"jsLibraries": {"type": "array", "items": {"type": "string"}},
				"responsiveFeatures": {
					"type": "object",
					"properties": {
						"viewportMeta": {"type": "string"},
						"mediaQueries": {"type": "array", "items": {"type": "string"}}
					}
				},
				"colorScheme": {"type": "array", "items": {"type": "string"}},
				"fonts": {"type": "array", "items": {"type": "string"}},
				"performanceMetrics": {
					"type": "object",
					"additionalProperties": {"type": "number"}
				}
			},
			"required": ["url"]
		}
	},
	"anyOf": [
		{"required": ["url"]},
		{"required": ["features"]}
	],
	"definitions": {
		"domNode": {
			"type": ["object", "null"],
			"properties": {
				"tag": {"type": "string"},
				"children": {
					"type": "array",
					"items": {"$ref": "#/definitions/domNode"}
				}
			},
			"required": ["tag"]
		}
	}
}`

var classifySchema = gojsonschema.NewStringLoader(classifyRequestSchema)

// validateClassifyPayload checks the raw body against the schema and
// turns violations into a single validation error.
func validateClassifyPayload(body []byte) error {
	result, err := gojsonschema.Validate(classifySchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperrors.NewValidationFailedError(err.Error())
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return apperrors.NewValidationFailedError(strings.Join(details, "; "))
}
