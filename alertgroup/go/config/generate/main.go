// Writes the JSON Schema of the instance config next to the checked in
// configs, for editors that validate JSON.
package main

import (
	"go.skia.org/alertgroups/alertgroup/go/config"
	"go.skia.org/alertgroups/go/jsonschema"
	"go.skia.org/alertgroups/go/sklog"
)

//go:generate bazelisk run //:go -- run .

func main() {
	if err := jsonschema.GenerateSchema("../../../configs/schema.json", &config.InstanceConfig{}); err != nil {
		sklog.Fatal(err)
	}
}
