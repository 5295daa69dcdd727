package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mvandenburgh/dandidav/pkg/config"
)

var durationType = reflect.TypeOf(time.Duration(0))

func main() {
	reflector := jsonschema.Reflector{
		// Field names as read by the config loader
		FieldNameTag:               "mapstructure",
		RequiredFromJSONSchemaTags: true, // every key has a default
		AllowAdditionalProperties:  false,
		DoNotReference:             true, // Inline all definitions for simplicity
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == durationType {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: "Go duration, e.g. 30s or 1m30s",
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(&config.Config{})

	schema.Title = "dandidav Configuration"
	schema.Description = "Configuration schema for the dandidav WebDAV gateway"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling schema: %v\n", err)
		os.Exit(1)
	}

	outputFile := "config.schema.json"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("JSON schema written to %s\n", outputFile)
}
