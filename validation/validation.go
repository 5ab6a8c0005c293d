// Package validation checks review input before it is sent to the model:
// size and emptiness limits, plus a lightweight proto syntax sanity check
// catching malformed input that would waste a review run.
package validation

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/protoreview", "validation")

// DefaultMaxInputSize bounds review input, overridable with MAX_INPUT_SIZE.
const DefaultMaxInputSize = 100 * 1024

// MaxInputSizeEnvVarName overrides the default input size limit.
const MaxInputSizeEnvVarName = "MAX_INPUT_SIZE"

// ErrInvalidInput is returned when review input fails validation.
var ErrInvalidInput = errors.New("invalid input")

// MaxInputSize returns the configured input size limit in bytes.
func MaxInputSize() int {
	if v := os.Getenv(MaxInputSizeEnvVarName); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		logger.KV(xlog.WARNING, "reason", "invalid_max_input_size", "value", v)
	}
	return DefaultMaxInputSize
}

// Result of a syntax check. Warnings do not block the review.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ErrorMessage joins the errors into a single message.
func (r *Result) ErrorMessage() string {
	return strings.Join(r.Errors, "\n")
}

// ValidateInput checks content against the emptiness and size limits.
// maxSize of 0 uses the configured limit.
func ValidateInput(content string, maxSize int) error {
	if strings.TrimSpace(content) == "" {
		return errors.WithMessage(ErrInvalidInput, "proto content cannot be empty")
	}
	if maxSize <= 0 {
		maxSize = MaxInputSize()
	}
	if len(content) > maxSize {
		return errors.WithMessagef(ErrInvalidInput,
			"proto content size (%d bytes) exceeds maximum allowed size (%d bytes)",
			len(content), maxSize)
	}
	return nil
}

var (
	scopeRe = regexp.MustCompile(`^\s*(message|enum|oneof|service)\s+(\w+)`)
	fieldRe = regexp.MustCompile(`=\s*(\d+)\s*;`)
)

type scope struct {
	kind   string
	name   string
	fields map[string]string
}

// CheckSyntax runs the lightweight structural checks: syntax declaration,
// brace balance, presence of definitions, common keyword typos, and
// duplicate field numbers within a message.
func CheckSyntax(content, filename string) *Result {
	res := &Result{}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		res.Errors = append(res.Errors, "Proto content is empty")
		return res
	}

	if !strings.Contains(trimmed, `syntax = "proto3"`) && !strings.Contains(trimmed, `syntax = "proto2"`) {
		res.Warnings = append(res.Warnings,
			`Missing syntax declaration. Assuming proto2 (consider adding 'syntax = "proto3";')`)
	}

	var stack []*scope
	depth := 0
	for i, line := range strings.Split(content, "\n") {
		// strip line comments
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}

		if m := scopeRe.FindStringSubmatch(line); m != nil && strings.Contains(line, "{") {
			stack = append(stack, &scope{kind: m[1], name: m[2], fields: make(map[string]string)})
		}

		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.kind == "message" {
				if m := fieldRe.FindStringSubmatch(line); m != nil && !strings.Contains(line, "reserved") {
					num := m[1]
					if prev, ok := top.fields[num]; ok {
						res.Errors = append(res.Errors, fmt.Sprintf(
							"%s:%d: duplicate field number %s in message %s (also used at line %s)",
							filename, i+1, num, top.name, prev))
					} else {
						top.fields[num] = strconv.Itoa(i + 1)
					}
				}
			}
		}

		for _, c := range line {
			switch c {
			case '{':
				depth++
			case '}':
				depth--
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}
		if depth < 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%s:%d: Unexpected closing brace", filename, i+1))
			res.Valid = false
			return res
		}
	}
	if depth > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"%s: Unclosed brace (missing %d closing brace(s))", filename, depth))
	}

	if !strings.Contains(content, "message ") &&
		!strings.Contains(content, "enum ") &&
		!strings.Contains(content, "service ") {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%s: No message, enum, or service definitions found", filename))
	}

	if strings.Contains(content, "messge ") || strings.Contains(content, "mesage ") {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: Possible typo - 'message' misspelled", filename))
	}
	if strings.Contains(content, "servce ") || strings.Contains(content, "servcie ") {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: Possible typo - 'service' misspelled", filename))
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// Validate runs the full input validation: limits first, then the syntax
// check. Warnings are logged, errors fail the input.
func Validate(content string, maxSize int) error {
	if err := ValidateInput(content, maxSize); err != nil {
		return err
	}

	res := CheckSyntax(content, "input.proto")
	for _, w := range res.Warnings {
		logger.KV(xlog.WARNING, "reason", "proto_validation", "warning", w)
	}
	if !res.Valid {
		return errors.WithMessagef(ErrInvalidInput, "proto syntax error: %s", res.ErrorMessage())
	}
	return nil
}
