// Package jsonschema has utility functions for creating JSON Schemas from
// structs, and for validating a JSON document against a schema.
//
// A config type can be validated without a checked-in schema file:
//
//	schema, err := jsonschema.SchemaFor(&config.InstanceConfig{})
//	...
//	violations, err := jsonschema.Validate(ctx, document, schema)
//
// GenerateSchema writes the same schema to disk for use by editors.
package jsonschema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
	"go.skia.org/alertgroups/go/skerr"
)

// ErrSchemaViolation is returned from Validate if the document doesn't conform
// to the schema.
var ErrSchemaViolation = errors.New("schema violation")

// Validate returns nil if the document represents a JSON body that conforms to
// the schema. If err is not nil then the slice of strings will contain a list
// of schema violations.
func Validate(ctx context.Context, document, schema []byte) ([]string, error) {
	schemaLoader := gojsonschema.NewBytesLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(document)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, skerr.Wrapf(err, "failed while validating")
	}
	if len(result.Errors()) > 0 {
		formattedResults := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			formattedResults[i] = fmt.Sprintf("%d: %s", i, e.String())
		}
		return formattedResults, ErrSchemaViolation
	}
	return nil, nil
}

// SchemaFor returns the JSON Schema reflected from the type of v.
func SchemaFor(v interface{}) ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	b, err := json.MarshalIndent(r.Reflect(v), "", "  ")
	if err != nil {
		return nil, skerr.Wrapf(err, "encoding schema for %T", v)
	}
	return b, nil
}

// GenerateSchema writes the JSON Schema for 'v' into 'filename'.
func GenerateSchema(filename string, v interface{}) error {
	b, err := SchemaFor(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return skerr.Wrapf(err, "writing schema to %q", filename)
	}
	return nil
}
