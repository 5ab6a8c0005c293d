package genaiutils

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

// ConvertTools converts from a list of normalized tool definitions to a list
// of genai tools.
func ConvertTools(tools []llms.Tool) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	genaiTools := make([]*genai.Tool, 0, len(tools))
	for i, tool := range tools {
		if tool.Type != "function" {
			return nil, errors.Errorf("tool [%d]: unsupported type %q, want 'function'", i, tool.Type)
		}

		genaiFuncDecl := &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
		}

		if tool.Function.Parameters != nil {
			schema, err := ConvertJSONSchemaDefinition(tool.Function.Parameters)
			if err != nil {
				return nil, errors.Wrapf(err, "tool [%d]", i)
			}
			genaiFuncDecl.Parameters = schema
		}

		genaiTools = append(genaiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{genaiFuncDecl},
		})
	}

	return genaiTools, nil
}

// ConvertJSONSchemaDefinition converts a jsonschema.Schema to a genai.Schema.
func ConvertJSONSchemaDefinition(jschema *jsonschema.Schema) (*genai.Schema, error) {
	if jschema == nil {
		return nil, nil
	}

	schema := &genai.Schema{
		Type:        ConvertJSONSchemaType(jschema.Type),
		Description: jschema.Description,
		Required:    jschema.Required,
	}

	if len(jschema.Enum) > 0 {
		for _, v := range jschema.Enum {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}

	if jschema.Properties != nil {
		schema.Properties = make(map[string]*genai.Schema)
		for pair := jschema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			propSchema, err := ConvertJSONSchemaDefinition(pair.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "property [%s]", pair.Key)
			}
			schema.Properties[pair.Key] = propSchema
		}
	}

	if jschema.Items != nil {
		itemsSchema, err := ConvertJSONSchemaDefinition(jschema.Items)
		if err != nil {
			return nil, errors.Wrap(err, "items")
		}
		schema.Items = itemsSchema
	}

	return schema, nil
}

// ConvertJSONSchemaType converts a JSON schema type name to a genai.Type.
func ConvertJSONSchemaType(dt string) genai.Type {
	switch dt {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

func Float32Ptr(f float32) *float32 {
	if f == 0 {
		return nil
	}
	return &f
}

func Int32Ptr(i int32) *int32 {
	if i == 0 {
		return nil
	}
	return &i
}

func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
