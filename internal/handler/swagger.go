package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dafibh/fintrack/fintrack-backend/docs"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/swaggo/swag"
)

const (
	swaggerRefPrefix = "#/definitions/"
	openAPIRefPrefix = "#/components/schemas/"
)

// OpenAPI3Spec is the subset of an OpenAPI 3.0 document served at /openapi.json
type OpenAPI3Spec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       map[string]interface{} `json:"info"`
	Servers    []Server               `json:"servers"`
	Paths      map[string]interface{} `json:"paths"`
	Components map[string]interface{} `json:"components,omitempty"`
}

// Server represents an OpenAPI 3.0 server
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// rewriteRefs points every $ref at components/schemas
func rewriteRefs(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if ref, ok := value.(string); ok && key == "$ref" {
				out[key] = strings.Replace(ref, swaggerRefPrefix, openAPIRefPrefix, 1)
				continue
			}
			out[key] = rewriteRefs(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = rewriteRefs(item)
		}
		return out
	}
	return data
}

// parameterSchema collects the Swagger 2.0 type keywords of a non-body parameter
func parameterSchema(param map[string]interface{}) map[string]interface{} {
	schema := make(map[string]interface{})
	for _, key := range []string{"type", "format", "enum", "default", "minimum", "maximum", "items"} {
		if value, ok := param[key]; ok {
			schema[key] = rewriteRefs(value)
		}
	}
	if schema["type"] == "file" {
		schema["type"] = "string"
		schema["format"] = "binary"
	}
	return schema
}

// convertParameter turns a query, path or header parameter into its OpenAPI 3.0 form
func convertParameter(param map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, key := range []string{"name", "in", "description", "required"} {
		if value, ok := param[key]; ok {
			out[key] = value
		}
	}
	if schema := parameterSchema(param); len(schema) > 0 {
		out["schema"] = schema
	}
	return out
}

// convertOperation moves body and formData parameters into requestBody and
// wraps response schemas in a JSON media type
func convertOperation(op map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(op))
	for key, value := range op {
		switch key {
		case "parameters", "responses", "consumes", "produces":
		default:
			out[key] = rewriteRefs(value)
		}
	}

	var params []interface{}
	formProps := make(map[string]interface{})
	var formRequired []interface{}

	rawParams, _ := op["parameters"].([]interface{})
	for _, raw := range rawParams {
		param, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		switch param["in"] {
		case "body":
			out["requestBody"] = map[string]interface{}{
				"required": param["required"] == true,
				"content": map[string]interface{}{
					echo.MIMEApplicationJSON: map[string]interface{}{"schema": rewriteRefs(param["schema"])},
				},
			}
		case "formData":
			name, _ := param["name"].(string)
			prop := parameterSchema(param)
			if desc, ok := param["description"]; ok {
				prop["description"] = desc
			}
			formProps[name] = prop
			if param["required"] == true {
				formRequired = append(formRequired, name)
			}
		default:
			params = append(params, convertParameter(param))
		}
	}

	if len(params) > 0 {
		out["parameters"] = params
	}
	if len(formProps) > 0 {
		schema := map[string]interface{}{"type": "object", "properties": formProps}
		if len(formRequired) > 0 {
			schema["required"] = formRequired
		}
		out["requestBody"] = map[string]interface{}{
			"required": len(formRequired) > 0,
			"content": map[string]interface{}{
				echo.MIMEMultipartForm: map[string]interface{}{"schema": schema},
			},
		}
	}

	if responses, ok := op["responses"].(map[string]interface{}); ok {
		converted := make(map[string]interface{}, len(responses))
		for status, raw := range responses {
			resp, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			r := map[string]interface{}{"description": resp["description"]}
			if schema, ok := resp["schema"]; ok {
				r["content"] = map[string]interface{}{
					echo.MIMEApplicationJSON: map[string]interface{}{"schema": rewriteRefs(schema)},
				}
			}
			converted[status] = r
		}
		out["responses"] = converted
	}

	return out
}

func convertPaths(paths map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(paths))
	for path, raw := range paths {
		methods, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		converted := make(map[string]interface{}, len(methods))
		for method, op := range methods {
			if operation, ok := op.(map[string]interface{}); ok {
				converted[method] = convertOperation(operation)
			}
		}
		out[path] = converted
	}
	return out
}

// ServeOpenAPI3Spec serves the generated swagger document converted to OpenAPI 3.0
func ServeOpenAPI3Spec(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read swagger doc")
		return NewInternalError(c, "Failed to read API documentation")
	}

	var swagger2 map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
		log.Error().Err(err).Msg("Failed to parse swagger doc")
		return NewInternalError(c, "Failed to read API documentation")
	}

	info, _ := swagger2["info"].(map[string]interface{})
	paths, _ := swagger2["paths"].(map[string]interface{})

	components := make(map[string]interface{})
	if secDefs, ok := swagger2["securityDefinitions"].(map[string]interface{}); ok {
		components["securitySchemes"] = secDefs
	}
	if definitions, ok := swagger2["definitions"].(map[string]interface{}); ok {
		components["schemas"] = rewriteRefs(definitions)
	}

	return c.JSON(http.StatusOK, OpenAPI3Spec{
		OpenAPI: "3.0.3",
		Info:    info,
		Servers: []Server{
			{URL: c.Scheme() + "://" + c.Request().Host + "/api/v1", Description: "Current host"},
			{URL: "http://localhost:8080/api/v1", Description: "Local Development"},
		},
		Paths:      convertPaths(paths),
		Components: components,
	})
}
