package standardstools_test

import (
	"context"
	"testing"

	"github.com/effective-security/protoreview/standards"
	"github.com/effective-security/protoreview/tools"
	"github.com/effective-security/protoreview/tools/standardstools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadRepo(t *testing.T) *standards.Repository {
	t.Helper()
	t.Setenv(standards.StandardsDirEnvVarName, "")
	repo, err := standards.Load("")
	require.NoError(t, err)
	return repo
}

func Test_All(t *testing.T) {
	repo := loadRepo(t)

	list, err := standardstools.All(repo)
	require.NoError(t, err)
	require.Len(t, list, 4)

	names := make([]string, 0, len(list))
	for _, tool := range list {
		names = append(names, tool.Name())
		assert.NotEmpty(t, tool.Description())
		require.NotNil(t, tool.Parameters())
		assert.Equal(t, "object", tool.Parameters().Type)
	}
	assert.Equal(t, []string{
		"list_universal_standards",
		"get_universal_standard",
		"list_org_standards",
		"get_org_standard",
	}, names)
}

func Test_ListTools(t *testing.T) {
	repo := loadRepo(t)
	ctx := context.Background()

	listUni, err := standardstools.NewListUniversal(repo)
	require.NoError(t, err)
	out, err := listUni.Call(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, out, "# Available Universal Standards")
	assert.Contains(t, out, "- **AIP-142**: Time and duration")

	listOrg, err := standardstools.NewListOrg(repo)
	require.NoError(t, err)
	out, err = listOrg.Call(ctx, "{}")
	require.NoError(t, err)
	assert.Contains(t, out, "# Organizational Standards")
	assert.Contains(t, out, "- **ORG-001**: Event envelope requirements")
}

func Test_GetUniversal_Call(t *testing.T) {
	repo := loadRepo(t)
	ctx := context.Background()

	tool, err := standardstools.NewGetUniversal(repo)
	require.NoError(t, err)

	out, err := tool.Call(ctx, `{"standard_id": "AIP-142"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "# AIP-142: Time and duration")
	assert.Contains(t, out, "## Semantic Rules")

	// model may wrap arguments in backticks
	out, err = tool.Call(ctx, "```json\n{\"standard_id\": \"142\"}\n```")
	require.NoError(t, err)
	assert.Contains(t, out, "# AIP-142")

	_, err = tool.Call(ctx, `{"standard_id": "AIP-999"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, standards.ErrNotFound)

	_, err = tool.Call(ctx, `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty standard_id")

	_, err = tool.Call(ctx, `{not json`)
	require.Error(t, err)
	assert.ErrorIs(t, err, tools.ErrFailedUnmarshalInput)
}

func Test_GetOrg_Call(t *testing.T) {
	repo := loadRepo(t)
	ctx := context.Background()

	tool, err := standardstools.NewGetOrg(repo)
	require.NoError(t, err)

	out, err := tool.Call(ctx, `{"standard_id": "org-001"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "# ORG-001: Event envelope requirements")
	assert.Contains(t, out, "**Applies to:**")

	_, err = tool.Call(ctx, `{"standard_id": "ORG-404"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, standards.ErrNotFound)
}
