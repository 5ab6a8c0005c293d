package prompts

import (
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llms"
)

// MessageFormatter renders one or more chat messages from template values.
type MessageFormatter interface {
	FormatMessages(values map[string]any) ([]llms.Message, error)
	// GetInputVariables returns the variable names the formatter requires.
	GetInputVariables() []string
}

// MessagePromptTemplate renders a single message of a fixed role from a Go
// text template.
type MessagePromptTemplate struct {
	role           llms.Role
	template       string
	inputVariables []string
}

var _ MessageFormatter = (*MessagePromptTemplate)(nil)

// NewSystemMessagePromptTemplate creates a template rendering a system message.
func NewSystemMessagePromptTemplate(tpl string, inputVariables []string) *MessagePromptTemplate {
	return &MessagePromptTemplate{role: llms.RoleSystem, template: tpl, inputVariables: inputVariables}
}

// NewHumanMessagePromptTemplate creates a template rendering a human message.
func NewHumanMessagePromptTemplate(tpl string, inputVariables []string) *MessagePromptTemplate {
	return &MessagePromptTemplate{role: llms.RoleHuman, template: tpl, inputVariables: inputVariables}
}

// NewAIMessagePromptTemplate creates a template rendering an AI message.
func NewAIMessagePromptTemplate(tpl string, inputVariables []string) *MessagePromptTemplate {
	return &MessagePromptTemplate{role: llms.RoleAI, template: tpl, inputVariables: inputVariables}
}

// GetInputVariables returns the variable names the template requires.
func (p *MessagePromptTemplate) GetInputVariables() []string {
	return p.inputVariables
}

// FormatMessages renders the message. All declared input variables must be
// present in values.
func (p *MessagePromptTemplate) FormatMessages(values map[string]any) ([]llms.Message, error) {
	for _, name := range p.inputVariables {
		if _, ok := values[name]; !ok {
			return nil, errors.Errorf("missing input variable: %s", name)
		}
	}

	tpl, err := template.New("prompt").Option("missingkey=zero").Parse(p.template)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to parse prompt template")
	}
	var buf strings.Builder
	if err := tpl.Execute(&buf, values); err != nil {
		return nil, errors.WithMessage(err, "failed to render prompt template")
	}
	return []llms.Message{llms.MessageFromTextParts(p.role, buf.String())}, nil
}

// ChatPromptTemplate renders a list of message formatters into a prompt value.
type ChatPromptTemplate struct {
	formatters []MessageFormatter
}

// NewChatPromptTemplate creates a chat prompt template from message formatters.
func NewChatPromptTemplate(formatters []MessageFormatter) *ChatPromptTemplate {
	return &ChatPromptTemplate{formatters: formatters}
}

// GetInputVariables returns the union of the formatters' input variables.
func (p *ChatPromptTemplate) GetInputVariables() []string {
	seen := make(map[string]bool)
	var res []string
	for _, f := range p.formatters {
		for _, name := range f.GetInputVariables() {
			if !seen[name] {
				seen[name] = true
				res = append(res, name)
			}
		}
	}
	return res
}

// FormatMessages renders all formatters in order.
func (p *ChatPromptTemplate) FormatMessages(values map[string]any) ([]llms.Message, error) {
	var res []llms.Message
	for _, f := range p.formatters {
		msgs, err := f.FormatMessages(values)
		if err != nil {
			return nil, err
		}
		res = append(res, msgs...)
	}
	return res, nil
}

// FormatPrompt renders the template into a prompt value.
func (p *ChatPromptTemplate) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	msgs, err := p.FormatMessages(values)
	if err != nil {
		return nil, err
	}
	return ChatPromptValue(msgs), nil
}
