package config

import (
	"embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	canonicalSchema = mustCompileSchema("schemas/definition.schema.json")
	aliasSchema     = mustCompileSchema("schemas/alias.schema.json")
)

func mustCompileSchema(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		panic("config: reading embedded schema " + name + ": " + err.Error())
	}
	return jsonschema.MustCompileString(name, string(data))
}
