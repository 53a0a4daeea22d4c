package crew

import (
	"fmt"
	"sort"
	"strings"
)

const forceAnswerPrompt = "You have used the maximum number of tool calls allowed. " +
	"Do not call any more tools. Give your best complete final answer now using the information you already have."

// Interpolate replaces {key} placeholders with inputs. Unknown placeholders
// are left untouched.
func Interpolate(text string, inputs map[string]string) string {
	if text == "" || len(inputs) == 0 {
		return text
	}
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", inputs[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func systemPrompt(cfg AgentConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", strings.TrimSpace(cfg.Role))
	if backstory := strings.TrimSpace(cfg.Backstory); backstory != "" {
		b.WriteString(" ")
		b.WriteString(backstory)
	}
	if goal := strings.TrimSpace(cfg.Goal); goal != "" {
		fmt.Fprintf(&b, "\nYour personal goal is: %s", goal)
	}
	return b.String()
}

func taskPrompt(description, expectedOutput, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current Task: %s", strings.TrimSpace(description))
	if expected := strings.TrimSpace(expectedOutput); expected != "" {
		fmt.Fprintf(&b, "\n\nThis is the expected criteria for your final answer: %s", expected)
		b.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.")
	}
	if context != "" {
		fmt.Fprintf(&b, "\n\nThis is the context you're working with:\n%s", context)
	}
	b.WriteString("\n\nBegin! This is VERY important to you, use the tools available and give your best Final Answer.")
	return b.String()
}

func contextBlock(outputs []TaskOutput) string {
	parts := make([]string, 0, len(outputs))
	for _, out := range outputs {
		if strings.TrimSpace(out.Raw) == "" {
			continue
		}
		parts = append(parts, out.Raw)
	}
	return strings.Join(parts, "\n\n----------\n\n")
}
