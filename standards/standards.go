// Package standards is the read-only knowledge base the review agent
// queries: universal AIP standards and organization-specific ORG standards,
// loaded from YAML and rendered as markdown for the model.
package standards

import (
	"fmt"
	"strings"
)

// Rule is a single semantic rule that can be checked.
type Rule struct {
	ID            string   `json:"id" yaml:"id"`
	Description   string   `json:"description" yaml:"description"`
	CheckGuidance string   `json:"check_guidance" yaml:"check_guidance"`
	Violations    []string `json:"violations,omitempty" yaml:"violations,omitempty"`
	GoodExample   string   `json:"good_example,omitempty" yaml:"good_example,omitempty"`
	BadExample    string   `json:"bad_example,omitempty" yaml:"bad_example,omitempty"`
}

// Standard is a complete standard with its semantic rules. Universal
// standards carry AIP-XXX identifiers, organizational ones ORG-XXX.
type Standard struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Summary     string   `json:"summary" yaml:"summary"`
	AppliesTo   string   `json:"applies_to,omitempty" yaml:"applies_to,omitempty"`
	RelatedAIPs []string `json:"related_aips,omitempty" yaml:"related_aips,omitempty"`
	Rules       []Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Markdown renders the full standard for the model.
func (s *Standard) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", s.ID, s.Title)
	b.WriteString(strings.TrimSpace(s.Summary))
	b.WriteString("\n\n")

	if s.AppliesTo != "" {
		fmt.Fprintf(&b, "**Applies to:** %s\n\n", s.AppliesTo)
	}
	if len(s.RelatedAIPs) > 0 {
		fmt.Fprintf(&b, "**Related AIPs:** %s\n", strings.Join(s.RelatedAIPs, ", "))
		b.WriteString("(Use get_universal_standard for detailed AIP guidance)\n\n")
	}

	b.WriteString("## Semantic Rules\n\n")
	for _, rule := range s.Rules {
		fmt.Fprintf(&b, "### %s\n", rule.ID)
		fmt.Fprintf(&b, "**Description:** %s\n", rule.Description)
		fmt.Fprintf(&b, "**What to check:** %s\n", rule.CheckGuidance)

		if len(rule.Violations) > 0 {
			b.WriteString("**Common violations:**\n")
			for _, v := range rule.Violations {
				fmt.Fprintf(&b, "  - %s\n", v)
			}
		}
		if rule.GoodExample != "" {
			fmt.Fprintf(&b, "**Good example:**\n```protobuf\n%s\n```\n", strings.TrimSpace(rule.GoodExample))
		}
		if rule.BadExample != "" {
			fmt.Fprintf(&b, "**Bad example:**\n```protobuf\n%s\n```\n", strings.TrimSpace(rule.BadExample))
		}
		b.WriteString("\n")
	}

	return b.String()
}
