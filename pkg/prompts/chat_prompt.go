// Package prompts provides templated chat prompts rendered into the
// normalized message model.
package prompts

import (
	"strings"

	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/llmutils"
)

var _ llms.PromptValue = ChatPromptValue{}

// ChatPromptValue is a prompt value that is a list of chat messages.
type ChatPromptValue []llms.Message

// String returns the chat message slice as a buffer string.
func (v ChatPromptValue) String() string {
	var buf strings.Builder
	llmutils.PrintMessages(&buf, v)
	return buf.String()
}

// Messages returns the ChatMessage slice.
func (v ChatPromptValue) Messages() []llms.Message {
	return v
}
