package genaiutils

import (
	"testing"

	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"google.golang.org/genai"
)

func TestConvertJSONSchemaDefinition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		definition *jsonschema.Schema
		validate   func(t *testing.T, result *genai.Schema)
	}{
		{
			name:       "nil schema",
			definition: nil,
			validate: func(t *testing.T, result *genai.Schema) {
				assert.Nil(t, result)
			},
		},
		{
			name: "simple object with properties",
			definition: &jsonschema.Schema{
				Type:        "object",
				Description: "Standard lookup request",
				Properties: orderedmap.New[string, *jsonschema.Schema](
					orderedmap.WithInitialData(
						orderedmap.Pair[string, *jsonschema.Schema]{
							Key: "standard_id",
							Value: &jsonschema.Schema{
								Type:        "string",
								Description: "Standard identifier",
							},
						},
						orderedmap.Pair[string, *jsonschema.Schema]{
							Key: "limit",
							Value: &jsonschema.Schema{
								Type: "integer",
							},
						},
					),
				),
				Required: []string{"standard_id"},
			},
			validate: func(t *testing.T, result *genai.Schema) {
				assert.Equal(t, genai.TypeObject, result.Type)
				assert.Equal(t, "Standard lookup request", result.Description)
				assert.Equal(t, []string{"standard_id"}, result.Required)

				require.Len(t, result.Properties, 2)
				assert.Equal(t, genai.TypeString, result.Properties["standard_id"].Type)
				assert.Equal(t, "Standard identifier", result.Properties["standard_id"].Description)
				assert.Equal(t, genai.TypeInteger, result.Properties["limit"].Type)
			},
		},
		{
			name: "array with items",
			definition: &jsonschema.Schema{
				Type: "array",
				Items: &jsonschema.Schema{
					Type:        "number",
					Description: "Array item",
				},
			},
			validate: func(t *testing.T, result *genai.Schema) {
				assert.Equal(t, genai.TypeArray, result.Type)
				require.NotNil(t, result.Items)
				assert.Equal(t, genai.TypeNumber, result.Items.Type)
				assert.Equal(t, "Array item", result.Items.Description)
			},
		},
		{
			name: "string with enum",
			definition: &jsonschema.Schema{
				Type: "string",
				Enum: []any{"error", "warning", "suggestion"},
			},
			validate: func(t *testing.T, result *genai.Schema) {
				assert.Equal(t, genai.TypeString, result.Type)
				assert.Equal(t, []string{"error", "warning", "suggestion"}, result.Enum)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := ConvertJSONSchemaDefinition(tt.definition)
			require.NoError(t, err)
			tt.validate(t, result)
		})
	}
}

func TestConvertTools(t *testing.T) {
	t.Parallel()

	res, err := ConvertTools(nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = ConvertTools([]llms.Tool{
		{Type: "retrieval"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")

	tools, err := ConvertTools([]llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "get_org_standard",
				Description: "Fetch the full text of an organizational standard",
				Parameters: &jsonschema.Schema{
					Type: "object",
					Properties: orderedmap.New[string, *jsonschema.Schema](
						orderedmap.WithInitialData(
							orderedmap.Pair[string, *jsonschema.Schema]{
								Key:   "standard_id",
								Value: &jsonschema.Schema{Type: "string"},
							},
						),
					),
					Required: []string{"standard_id"},
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	require.Len(t, tools[0].FunctionDeclarations, 1)
	decl := tools[0].FunctionDeclarations[0]
	assert.Equal(t, "get_org_standard", decl.Name)
	require.NotNil(t, decl.Parameters)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
}

func TestPtrHelpers(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Float32Ptr(0))
	require.NotNil(t, Float32Ptr(0.5))
	assert.InDelta(t, 0.5, *Float32Ptr(0.5), 0.0001)

	assert.Nil(t, Int32Ptr(0))
	require.NotNil(t, Int32Ptr(7))
	assert.Equal(t, int32(7), *Int32Ptr(7))

	assert.Nil(t, StringPtr(""))
	require.NotNil(t, StringPtr("x"))
}
