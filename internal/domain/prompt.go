package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParsePrompts splits a multi-line blob into trimmed, non-blank prompts in
// their original order.
func ParsePrompts(blob string) []string {
	lines := strings.Split(strings.ReplaceAll(blob, "\r\n", "\n"), "\n")
	prompts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(norm.NFC.String(line))
		if line == "" {
			continue
		}
		prompts = append(prompts, line)
	}
	return prompts
}

// JoinPrompts renders prompts back into the one-per-line input format.
func JoinPrompts(prompts []string) string {
	return strings.Join(prompts, "\n")
}
