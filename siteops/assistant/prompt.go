package assistant

import (
	"fmt"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
)

const defaultDomain = "a construction and concrete production business. You help site managers, " +
	"plant operators and office staff with projects, materials inventory, deliveries, " +
	"concrete quality tests and worker timesheets"

// PromptBuilder assembles the system preamble sent ahead of every chat history.
type PromptBuilder struct {
	domain string
	now    func() time.Time
}

// NewPromptBuilder creates a builder. now defaults to time.Now.
func NewPromptBuilder(now func() time.Time) *PromptBuilder {
	if now == nil {
		now = time.Now
	}
	return &PromptBuilder{domain: defaultDomain, now: now}
}

// WithDomain replaces the domain description.
func (b *PromptBuilder) WithDomain(domain string) *PromptBuilder {
	b.domain = domain
	return b
}

// SystemPrompt describes the assistant's context and the tool catalogue.
func (b *PromptBuilder) SystemPrompt(tools []ports.ToolDescriptor) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are the operations assistant for %s.\n", b.domain)
	fmt.Fprintf(&sb, "Today's date is %s.\n\n", b.now().Format("2006-01-02 (Monday)"))

	if len(tools) > 0 {
		sb.WriteString("The following tools can read or change live business data. ")
		sb.WriteString("They are run by the user on your suggestion, never by you directly:\n")
		for _, t := range tools {
			class := "read-only"
			if t.Kind == ports.Mutating {
				class = "modifies data"
			}
			fmt.Fprintf(&sb, "- %s [%s]: %s", t.Name, class, oneLine(t.Description))
			if len(t.Parameters.Required) > 0 {
				fmt.Fprintf(&sb, " (requires: %s)", strings.Join(t.Parameters.Required, ", "))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\nTo suggest a tool, include a JSON object of the form ")
		sb.WriteString(`{"toolName": "<name>", "parameters": {...}}` + " in your reply.\n\n")
	}

	sb.WriteString("Guidelines:\n")
	sb.WriteString("- Before suggesting any tool that modifies data, restate the change and ask the user to confirm it.\n")
	sb.WriteString("- Prefer read-only tools to check current values before proposing a change.\n")
	sb.WriteString("- Hours worked are end time minus start time. Overtime is any time beyond 8 hours in a day.\n")
	sb.WriteString("- Use YYYY-MM-DD for dates and 24-hour HH:MM for times.\n")
	sb.WriteString("- Stock adjustments are relative (+/-) unless the user gives an absolute count.\n")
	sb.WriteString("- If you do not know a value, say so rather than guessing.\n")

	return normalize(sb.String())
}

// normalize trims and unifies newlines so identical prompts compare equal.
func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
