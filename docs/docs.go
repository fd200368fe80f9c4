// Package docs holds a hand-written Swagger spec stub for the engraver
// API: it registers the API info with an empty "paths" object, so no
// endpoints are listed. Running `swag init -g cmd/engraver/main.go -o docs`
// replaces it with a spec generated from the handler doc comments; this
// file is committed so the binary builds without a codegen step.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Engraver Service API Support",
            "email": "support@engraverservice.com"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8090",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Engraver Service API",
	Description:      "UV-laser vector engraving service for LED module batches: Micro-ID encoding, SVG array assembly, and batch/row lifecycle management.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
