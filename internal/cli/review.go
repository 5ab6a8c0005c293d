package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/agent"
	"github.com/effective-security/protoreview/callbacks"
	"github.com/effective-security/protoreview/prompts"
)

func (c *CLI) runReview(args []string) int {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	fs.SetOutput(c.Err)
	provider := fs.String("provider", "", "model provider: gemini, openai, or anthropic (auto-detected if empty)")
	model := fs.String("model", "", "specific model name (provider default if empty)")
	focus := fs.String("focus", string(prompts.FocusEvent), "review focus: 'event' or 'rest'")
	format := fs.String("format", "text", "output format: 'text' or 'json'")
	raw := fs.Bool("raw", false, "output the raw model response instead of structured format")
	verbose := fs.Bool("verbose", false, "print tool and model activity to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.Err, "usage: review <file|->")
		return 2
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintln(c.Err, "Error: format must be 'text' or 'json'")
		return 2
	}
	reviewFocus := prompts.Focus(*focus)
	if !reviewFocus.Valid() {
		fmt.Fprintln(c.Err, "Error: focus must be 'event' or 'rest'")
		return 2
	}

	protoContent, err := c.readProto(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %s\n", err)
		return 1
	}

	f, err := c.factory()
	if err != nil {
		fmt.Fprintf(c.Err, "Configuration error: %s\n", err)
		return 1
	}
	llm, err := c.selectModel(f, *provider, *model)
	if err != nil {
		fmt.Fprintf(c.Err, "Configuration error: %s\n", err)
		return 1
	}
	registry, err := newRegistry()
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %s\n", err)
		return 1
	}

	opts := []agent.Option{
		agent.WithFocus(reviewFocus),
		agent.WithStructured(!*raw),
	}
	if *verbose {
		opts = append(opts, agent.WithCallback(callbacks.NewPrinter(c.Err, callbacks.ModeVerbose)))
	}

	result, err := agent.New(llm, registry, opts...).Run(context.Background(), protoContent)
	if err != nil {
		fmt.Fprintf(c.Err, "Error during review: %s\n", err)
		return 1
	}
	if result.Incomplete {
		fmt.Fprintln(c.Err, "Warning: maximum iterations reached, result may be partial")
	}

	if *raw {
		fmt.Fprintln(c.Out, result.Content)
		return 0
	}
	return c.printStructured(result, *format)
}

func (c *CLI) readProto(pathOrStdin string) (string, error) {
	if pathOrStdin == "-" {
		data, err := io.ReadAll(c.In)
		if err != nil {
			return "", errors.WithMessage(err, "failed to read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(pathOrStdin)
	if err != nil {
		return "", errors.WithMessagef(err, "failed to read %s", pathOrStdin)
	}
	return string(data), nil
}

func (c *CLI) printStructured(result *agent.ReviewResult, format string) int {
	review := result.Review
	if review == nil {
		review = &agent.Review{}
	}

	if format == "json" {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(review)
	} else {
		fmt.Fprint(c.Out, formatReview(review))
	}

	if review.CountBySeverity()[agent.SeverityError] > 0 {
		return 1
	}
	return 0
}

// formatReview renders a structured review as text, issues grouped by
// severity with errors first.
func formatReview(review *agent.Review) string {
	var sb strings.Builder

	if len(review.Issues) == 0 {
		sb.WriteString("No semantic issues found.\n")
	} else {
		counts := review.CountBySeverity()
		fmt.Fprintf(&sb, "Found %d issue(s): %d error(s), %d warning(s), %d suggestion(s)\n\n",
			len(review.Issues),
			counts[agent.SeverityError],
			counts[agent.SeverityWarning],
			counts[agent.SeveritySuggestion],
		)
		for _, severity := range []agent.Severity{agent.SeverityError, agent.SeverityWarning, agent.SeveritySuggestion} {
			for _, issue := range review.Issues {
				if issue.Severity != severity {
					continue
				}
				fmt.Fprintf(&sb, "[%s] %s\n", strings.ToUpper(string(severity)), issue.Location)
				fmt.Fprintf(&sb, "  Issue: %s\n", issue.Issue)
				fmt.Fprintf(&sb, "  Recommendation: %s\n", issue.Recommendation)
				if issue.Reference != "" {
					fmt.Fprintf(&sb, "  Reference: %s\n", issue.Reference)
				}
				sb.WriteString("\n")
			}
		}
	}

	if review.Summary != "" {
		fmt.Fprintf(&sb, "Summary: %s\n", review.Summary)
	}
	return sb.String()
}
