// Package standardstools exposes the standards knowledge base to the model
// as callable tools.
package standardstools

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llmutils"
	"github.com/effective-security/protoreview/pkg/schema"
	"github.com/effective-security/protoreview/standards"
	"github.com/effective-security/protoreview/tools"
	"github.com/invopop/jsonschema"
)

// Tool names as declared to the model.
const (
	ListUniversalToolName = "list_universal_standards"
	GetUniversalToolName  = "get_universal_standard"
	ListOrgToolName       = "list_org_standards"
	GetOrgToolName        = "get_org_standard"
)

// ListRequest is the input of the listing tools. They take no arguments.
type ListRequest struct{}

// GetStandardRequest is the input of the lookup tools.
type GetStandardRequest struct {
	StandardID string `json:"standard_id" yaml:"standard_id" jsonschema:"title=standard_id,description=The standard identifier to retrieve, for example AIP-142 or ORG-001."`
}

// Document is rendered markdown returned to the model.
type Document struct {
	Content string `json:"content" yaml:"content"`
}

// All returns the four standards tools bound to repo.
func All(repo *standards.Repository) ([]tools.ITool, error) {
	listUni, err := NewListUniversal(repo)
	if err != nil {
		return nil, err
	}
	getUni, err := NewGetUniversal(repo)
	if err != nil {
		return nil, err
	}
	listOrg, err := NewListOrg(repo)
	if err != nil {
		return nil, err
	}
	getOrg, err := NewGetOrg(repo)
	if err != nil {
		return nil, err
	}
	return []tools.ITool{listUni, getUni, listOrg, getOrg}, nil
}

// ListUniversalTool lists the available universal standards.
type ListUniversalTool struct {
	repo   *standards.Repository
	params *jsonschema.Schema
}

var _ tools.Tool[ListRequest, Document] = (*ListUniversalTool)(nil)

// NewListUniversal returns the list_universal_standards tool.
func NewListUniversal(repo *standards.Repository) (*ListUniversalTool, error) {
	sc, err := schema.New(reflect.TypeOf(ListRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	return &ListUniversalTool{repo: repo, params: sc.Parameters}, nil
}

// Name returns the name of the tool.
func (t *ListUniversalTool) Name() string { return ListUniversalToolName }

// Description returns the description of the tool.
func (t *ListUniversalTool) Description() string {
	return "List all available universal (AIP) standards with their IDs and titles. Call this first to discover which standards can be retrieved."
}

// Parameters returns the input schema.
func (t *ListUniversalTool) Parameters() *jsonschema.Schema { return t.params }

// Run renders the universal standards index.
func (t *ListUniversalTool) Run(_ context.Context, _ *ListRequest) (*Document, error) {
	return &Document{Content: t.repo.UniversalIndex()}, nil
}

// Call implements tools.ITool.
func (t *ListUniversalTool) Call(ctx context.Context, _ string) (string, error) {
	out, err := t.Run(ctx, &ListRequest{})
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// GetUniversalTool retrieves a single universal standard by ID.
type GetUniversalTool struct {
	repo   *standards.Repository
	params *jsonschema.Schema
}

var _ tools.Tool[GetStandardRequest, Document] = (*GetUniversalTool)(nil)

// NewGetUniversal returns the get_universal_standard tool.
func NewGetUniversal(repo *standards.Repository) (*GetUniversalTool, error) {
	sc, err := schema.New(reflect.TypeOf(GetStandardRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	return &GetUniversalTool{repo: repo, params: sc.Parameters}, nil
}

// Name returns the name of the tool.
func (t *GetUniversalTool) Name() string { return GetUniversalToolName }

// Description returns the description of the tool.
func (t *GetUniversalTool) Description() string {
	return "Get the full semantic rules of a universal standard by ID, for example AIP-142. Returns descriptions, check guidance, and good and bad examples."
}

// Parameters returns the input schema.
func (t *GetUniversalTool) Parameters() *jsonschema.Schema { return t.params }

// Run looks up the standard and renders it as markdown.
func (t *GetUniversalTool) Run(_ context.Context, req *GetStandardRequest) (*Document, error) {
	if req.StandardID == "" {
		return nil, errors.New("invalid request: empty standard_id")
	}
	s, err := t.repo.GetUniversal(req.StandardID)
	if err != nil {
		return nil, err
	}
	return &Document{Content: s.Markdown()}, nil
}

// Call implements tools.ITool.
func (t *GetUniversalTool) Call(ctx context.Context, input string) (string, error) {
	var req GetStandardRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessage(tools.ErrFailedUnmarshalInput, err.Error())
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// ListOrgTool lists the available organizational standards.
type ListOrgTool struct {
	repo   *standards.Repository
	params *jsonschema.Schema
}

var _ tools.Tool[ListRequest, Document] = (*ListOrgTool)(nil)

// NewListOrg returns the list_org_standards tool.
func NewListOrg(repo *standards.Repository) (*ListOrgTool, error) {
	sc, err := schema.New(reflect.TypeOf(ListRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	return &ListOrgTool{repo: repo, params: sc.Parameters}, nil
}

// Name returns the name of the tool.
func (t *ListOrgTool) Name() string { return ListOrgToolName }

// Description returns the description of the tool.
func (t *ListOrgTool) Description() string {
	return "List all organization-specific standards with their IDs, titles, and what they apply to. These extend the universal AIP standards."
}

// Parameters returns the input schema.
func (t *ListOrgTool) Parameters() *jsonschema.Schema { return t.params }

// Run renders the organizational standards index.
func (t *ListOrgTool) Run(_ context.Context, _ *ListRequest) (*Document, error) {
	return &Document{Content: t.repo.OrgIndex()}, nil
}

// Call implements tools.ITool.
func (t *ListOrgTool) Call(ctx context.Context, _ string) (string, error) {
	out, err := t.Run(ctx, &ListRequest{})
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// GetOrgTool retrieves a single organizational standard by ID.
type GetOrgTool struct {
	repo   *standards.Repository
	params *jsonschema.Schema
}

var _ tools.Tool[GetStandardRequest, Document] = (*GetOrgTool)(nil)

// NewGetOrg returns the get_org_standard tool.
func NewGetOrg(repo *standards.Repository) (*GetOrgTool, error) {
	sc, err := schema.New(reflect.TypeOf(GetStandardRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	return &GetOrgTool{repo: repo, params: sc.Parameters}, nil
}

// Name returns the name of the tool.
func (t *GetOrgTool) Name() string { return GetOrgToolName }

// Description returns the description of the tool.
func (t *GetOrgTool) Description() string {
	return "Get the full semantic rules of an organization-specific standard by ID, for example ORG-001."
}

// Parameters returns the input schema.
func (t *GetOrgTool) Parameters() *jsonschema.Schema { return t.params }

// Run looks up the standard and renders it as markdown.
func (t *GetOrgTool) Run(_ context.Context, req *GetStandardRequest) (*Document, error) {
	if req.StandardID == "" {
		return nil, errors.New("invalid request: empty standard_id")
	}
	s, err := t.repo.GetOrg(req.StandardID)
	if err != nil {
		return nil, err
	}
	return &Document{Content: s.Markdown()}, nil
}

// Call implements tools.ITool.
func (t *GetOrgTool) Call(ctx context.Context, input string) (string, error) {
	var req GetStandardRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessage(tools.ErrFailedUnmarshalInput, err.Error())
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}
