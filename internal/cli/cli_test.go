package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/effective-security/protoreview/agent"
	"github.com/effective-security/protoreview/internal/cli"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/standards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderProto = `syntax = "proto3";

package company.orders.events.v1;

message OrderCreatedEvent {
  string order_id = 1;
  string created_at = 2;
}
`

type fakeModel struct {
	name    string
	content string
	err     error
}

func (m *fakeModel) GetName() string                    { return m.name }
func (m *fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderAnthropic }

func (m *fakeModel) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: m.content, StopReason: "stop"},
		},
	}, nil
}

type fakeFactory struct {
	model llms.Model
}

func (f *fakeFactory) DefaultModel() (llms.Model, error)         { return f.model, nil }
func (f *fakeFactory) ModelByType(string) (llms.Model, error)    { return f.model, nil }
func (f *fakeFactory) ModelByName(...string) (llms.Model, error) { return f.model, nil }
func (f *fakeFactory) Providers() []string                       { return []string{"anthropic"} }

func newCLI(t *testing.T, model llms.Model) (*cli.CLI, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv(standards.StandardsDirEnvVarName, "")

	var out, errOut bytes.Buffer
	c := cli.New(strings.NewReader(""), &out, &errOut)
	c.Factory = &fakeFactory{model: model}
	return c, &out, &errOut
}

func writeProto(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order.proto")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func structuredContent(severity string) string {
	review := agent.Review{
		Issues: []agent.Issue{
			{
				Severity:       agent.Severity(severity),
				Location:       "OrderCreatedEvent.created_at",
				Issue:          "Timestamp field uses string",
				Recommendation: "Use google.protobuf.Timestamp",
				Reference:      "AIP-142",
			},
		},
		Summary: "One issue found.",
	}
	data, _ := json.Marshal(review)
	return string(data)
}

func Test_Usage(t *testing.T) {
	c, out, errOut := newCLI(t, &fakeModel{})

	assert.Equal(t, 2, c.Run(nil))
	assert.Contains(t, errOut.String(), "Usage: protoreview")

	errOut.Reset()
	assert.Equal(t, 0, c.Run([]string{"help"}))
	assert.Contains(t, out.String(), "Usage: protoreview")

	assert.Equal(t, 2, c.Run([]string{"frobnicate"}))
	assert.Contains(t, errOut.String(), "unknown command: frobnicate")
}

func Test_Review_Text(t *testing.T) {
	model := &fakeModel{name: "claude", content: structuredContent("warning")}
	c, out, _ := newCLI(t, model)
	path := writeProto(t, orderProto)

	code := c.Run([]string{"review", path})
	assert.Equal(t, 0, code)

	text := out.String()
	assert.Contains(t, text, "Found 1 issue(s): 0 error(s), 1 warning(s), 0 suggestion(s)")
	assert.Contains(t, text, "[WARNING] OrderCreatedEvent.created_at")
	assert.Contains(t, text, "Recommendation: Use google.protobuf.Timestamp")
	assert.Contains(t, text, "Reference: AIP-142")
	assert.Contains(t, text, "Summary: One issue found.")
}

func Test_Review_ErrorExitCode(t *testing.T) {
	model := &fakeModel{name: "claude", content: structuredContent("error")}
	c, out, _ := newCLI(t, model)
	path := writeProto(t, orderProto)

	code := c.Run([]string{"review", path})
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "[ERROR] OrderCreatedEvent.created_at")
}

func Test_Review_JSON(t *testing.T) {
	model := &fakeModel{name: "claude", content: structuredContent("suggestion")}
	c, out, _ := newCLI(t, model)
	path := writeProto(t, orderProto)

	code := c.Run([]string{"review", "--format", "json", path})
	assert.Equal(t, 0, code)

	var review agent.Review
	require.NoError(t, json.Unmarshal(out.Bytes(), &review))
	require.Len(t, review.Issues, 1)
	assert.Equal(t, agent.SeveritySuggestion, review.Issues[0].Severity)
}

func Test_Review_Stdin(t *testing.T) {
	model := &fakeModel{name: "claude", content: structuredContent("warning")}
	c, out, _ := newCLI(t, model)
	c.In = strings.NewReader(orderProto)

	code := c.Run([]string{"review", "-"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "[WARNING]")
}

func Test_Review_Raw(t *testing.T) {
	model := &fakeModel{name: "claude", content: "The proto looks reasonable overall."}
	c, out, _ := newCLI(t, model)
	path := writeProto(t, orderProto)

	code := c.Run([]string{"review", "--raw", path})
	assert.Equal(t, 0, code)
	assert.Equal(t, "The proto looks reasonable overall.\n", out.String())
}

func Test_Review_MissingFile(t *testing.T) {
	c, _, errOut := newCLI(t, &fakeModel{})

	code := c.Run([]string{"review", "/nonexistent/file.proto"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "failed to read /nonexistent/file.proto")
}

func Test_Review_BadFlags(t *testing.T) {
	c, _, _ := newCLI(t, &fakeModel{})
	path := writeProto(t, orderProto)

	assert.Equal(t, 2, c.Run([]string{"review", "--format", "xml", path}))
	assert.Equal(t, 2, c.Run([]string{"review", "--focus", "grpc", path}))
	assert.Equal(t, 2, c.Run([]string{"review"}))
}

func Test_Review_Verbose(t *testing.T) {
	model := &fakeModel{name: "claude", content: structuredContent("warning")}
	c, _, errOut := newCLI(t, model)
	path := writeProto(t, orderProto)

	code := c.Run([]string{"review", "--verbose", path})
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut.String(), "review started")
}

func Test_ListAndLookup(t *testing.T) {
	c, out, _ := newCLI(t, &fakeModel{})

	assert.Equal(t, 0, c.Run([]string{"list-aips"}))
	assert.Contains(t, out.String(), "AIP-142")

	out.Reset()
	assert.Equal(t, 0, c.Run([]string{"lookup-aip", "142"}))
	assert.Contains(t, out.String(), "# AIP-142: Time and duration")

	out.Reset()
	assert.Equal(t, 0, c.Run([]string{"list-org-standards"}))
	assert.Contains(t, out.String(), "ORG-001")

	out.Reset()
	assert.Equal(t, 0, c.Run([]string{"lookup-org-standard", "org-001"}))
	assert.Contains(t, out.String(), "# ORG-001: Event envelope requirements")

	assert.Equal(t, 1, c.Run([]string{"lookup-aip", "999"}))
	assert.Equal(t, 1, c.Run([]string{"lookup-org-standard", "ORG-999"}))
}
