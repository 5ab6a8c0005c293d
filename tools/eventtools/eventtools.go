// Package eventtools provides heuristic analysis tools for event message
// schemas: standard field guidance and a structural field check.
package eventtools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llmutils"
	"github.com/effective-security/protoreview/pkg/schema"
	"github.com/effective-security/protoreview/tools"
	"github.com/invopop/jsonschema"
)

// Tool names as declared to the model.
const (
	FieldGuidanceToolName = "get_event_field_guidance"
	AnalyzeToolName       = "analyze_event_semantics"
)

const fieldGuidance = `# Standard Event Message Fields

## Required Fields

### event_id (string)
- Unique identifier for this event instance
- Should be UUID or similar globally unique ID
- Immutable, assigned at creation time
- Used for idempotency and deduplication
- Different from entity IDs (e.g., order_id)

### event_time (google.protobuf.Timestamp)
- When the event occurred (business time)
- Should be REQUIRED or have OUTPUT_ONLY behavior
- Use event_time or occurred_at, not just "timestamp"
- Distinct from published_at (when sent to message bus)

### event_type (string)
- Fully qualified type name
- Example: "com.example.orders.v1.OrderCreated"
- Enables routing and polymorphic handling
- Consider including in all events for clarity

## Recommended Fields

### correlation_id (string)
- Links related events across a transaction/saga
- Propagated from initial request through all derived events
- Essential for debugging distributed systems

### causation_id (string)
- ID of the event that directly caused this event
- Enables event chain reconstruction
- Different from correlation_id (which spans entire saga)

### trace_id / span_id (string)
- OpenTelemetry/distributed tracing identifiers
- Enables end-to-end request tracing
- Format: W3C Trace Context or similar

### source (string)
- Service or system that produced the event
- Examples: "order-service", "payment-gateway"
- Helps identify event origin in multi-service systems

### schema_version (int32)
- Version of the event schema
- Helps consumers handle schema evolution
- Increment for breaking changes

## Example Event Message

` + "```protobuf" + `
message OrderCreatedEvent {
  // Identity
  string event_id = 1;
  string event_type = 2;  // "com.example.orders.v1.OrderCreated"

  // Timing
  google.protobuf.Timestamp event_time = 3;
  google.protobuf.Timestamp published_at = 4;

  // Correlation
  string correlation_id = 5;
  string causation_id = 6;
  string trace_id = 7;
  string span_id = 8;

  // Metadata
  string source = 9;
  int32 schema_version = 10;

  // Payload
  Order order = 11;
}
` + "```" + `

## Common Anti-Patterns

- Missing event_id (can't deduplicate)
- Using entity ID as event ID (confuses identity)
- String timestamps instead of google.protobuf.Timestamp
- No correlation/causation tracking
- Enum without UNSPECIFIED = 0
`

// GuidanceRequest is the input of the guidance tool. It takes no arguments.
type GuidanceRequest struct{}

// AnalyzeRequest is the input of the analysis tool.
type AnalyzeRequest struct {
	MessageName string `json:"message_name" yaml:"message_name" jsonschema:"title=message_name,description=The name of the event message to analyze."`
	FieldList   string `json:"field_list" yaml:"field_list" jsonschema:"title=field_list,description=Comma-separated list of field names in the message."`
}

// Document is rendered markdown returned to the model.
type Document struct {
	Content string `json:"content" yaml:"content"`
}

// All returns both event analysis tools.
func All() ([]tools.ITool, error) {
	guidance, err := NewFieldGuidance()
	if err != nil {
		return nil, err
	}
	analyze, err := NewAnalyze()
	if err != nil {
		return nil, err
	}
	return []tools.ITool{guidance, analyze}, nil
}

// FieldGuidanceTool returns the standard event field reference.
type FieldGuidanceTool struct {
	params *jsonschema.Schema
}

var _ tools.Tool[GuidanceRequest, Document] = (*FieldGuidanceTool)(nil)

// NewFieldGuidance returns the get_event_field_guidance tool.
func NewFieldGuidance() (*FieldGuidanceTool, error) {
	sc, err := schema.New(reflect.TypeOf(GuidanceRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	return &FieldGuidanceTool{params: sc.Parameters}, nil
}

// Name returns the name of the tool.
func (t *FieldGuidanceTool) Name() string { return FieldGuidanceToolName }

// Description returns the description of the tool.
func (t *FieldGuidanceTool) Description() string {
	return "Get guidance on standard event message fields such as event_id, event_time, and correlation_id, with an example message and common anti-patterns."
}

// Parameters returns the input schema.
func (t *FieldGuidanceTool) Parameters() *jsonschema.Schema { return t.params }

// Run returns the guidance document.
func (t *FieldGuidanceTool) Run(_ context.Context, _ *GuidanceRequest) (*Document, error) {
	return &Document{Content: fieldGuidance}, nil
}

// Call implements tools.ITool.
func (t *FieldGuidanceTool) Call(ctx context.Context, _ string) (string, error) {
	out, err := t.Run(ctx, &GuidanceRequest{})
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// AnalyzeTool performs a heuristic structural check of an event message.
type AnalyzeTool struct {
	params *jsonschema.Schema
}

var _ tools.Tool[AnalyzeRequest, Document] = (*AnalyzeTool)(nil)

// NewAnalyze returns the analyze_event_semantics tool.
func NewAnalyze() (*AnalyzeTool, error) {
	sc, err := schema.New(reflect.TypeOf(AnalyzeRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	return &AnalyzeTool{params: sc.Parameters}, nil
}

// Name returns the name of the tool.
func (t *AnalyzeTool) Name() string { return AnalyzeToolName }

// Description returns the description of the tool.
func (t *AnalyzeTool) Description() string {
	return "Analyze an event message for semantic correctness given its name and a comma-separated list of field names. Reports good patterns, issues, and suggestions."
}

// Parameters returns the input schema.
func (t *AnalyzeTool) Parameters() *jsonschema.Schema { return t.params }

func anyEquals(fields []string, candidates ...string) bool {
	for _, f := range fields {
		for _, c := range candidates {
			if f == c {
				return true
			}
		}
	}
	return false
}

func anyContains(fields []string, substrings ...string) bool {
	for _, f := range fields {
		for _, s := range substrings {
			if strings.Contains(f, s) {
				return true
			}
		}
	}
	return false
}

// Run checks the field list against the standard event envelope.
func (t *AnalyzeTool) Run(_ context.Context, req *AnalyzeRequest) (*Document, error) {
	if req.MessageName == "" {
		return nil, errors.New("invalid request: empty message_name")
	}

	var fields []string
	for _, f := range strings.Split(req.FieldList, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			fields = append(fields, f)
		}
	}

	var good, issues, suggestions []string

	if anyEquals(fields, "event_id", "eventid", "id", "message_id") {
		good = append(good, "Has event identifier field")
	} else {
		issues = append(issues, "Missing event_id - events need unique identifiers for idempotency")
	}

	if anyContains(fields, "time", "timestamp", "_at") {
		good = append(good, "Has timestamp field")
	} else {
		issues = append(issues, "Missing event timestamp (event_time, occurred_at, etc.)")
	}

	if !anyEquals(fields, "correlation_id", "correlationid", "trace_id", "request_id") {
		suggestions = append(suggestions, "Consider adding correlation_id for distributed tracing")
	}

	if !anyEquals(fields, "source", "origin", "producer", "service") {
		suggestions = append(suggestions, "Consider adding source field to identify event origin")
	}

	name := req.MessageName
	if !strings.HasSuffix(name, "Event") &&
		!strings.HasSuffix(name, "Notification") &&
		!strings.HasSuffix(name, "Message") &&
		!strings.HasSuffix(name, "Command") {
		suggestions = append(suggestions, fmt.Sprintf("Consider naming convention: %sEvent or similar", name))
	}

	if !anyContains(fields, "version") {
		suggestions = append(suggestions, "Consider schema_version for future evolution")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis of %s\n\n", name)
	fmt.Fprintf(&b, "Fields analyzed: %s\n\n", strings.Join(fields, ", "))

	writeSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n", title)
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}
	writeSection("Good Patterns", good)
	writeSection("Issues", issues)
	writeSection("Suggestions", suggestions)

	if len(issues) == 0 && len(suggestions) == 0 {
		b.WriteString("No significant issues detected. Event structure looks good.\n")
	}

	return &Document{Content: b.String()}, nil
}

// Call implements tools.ITool.
func (t *AnalyzeTool) Call(ctx context.Context, input string) (string, error) {
	var req AnalyzeRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessage(tools.ErrFailedUnmarshalInput, err.Error())
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}
