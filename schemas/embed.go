// Package schemas embeds the JSON Schema files and registers them with the
// config package on import. CLI entry points should import this package with
// a blank identifier: import _ "github.com/kjourdan1/azcli-mcp/schemas"
package schemas

import (
	"embed"

	"github.com/kjourdan1/azcli-mcp/internal/config"
)

//go:embed *.schema.json
var fs embed.FS

var files = map[string]string{
	config.SchemaCredentials: "credentials-v1.schema.json",
	config.SchemaSettings:    "azcli-mcp-v1.schema.json",
}

func init() {
	for name, file := range files {
		data, err := fs.ReadFile(file)
		if err != nil {
			panic("schemas: failed to read embedded " + file + ": " + err.Error())
		}
		config.SetSchema(name, data)
	}
}
