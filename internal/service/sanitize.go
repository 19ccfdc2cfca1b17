package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const maxCleanPasses = 4

// cleanMarkup drops markup the policy rejects and keeps text unescaped, so
// "Tom & Jerry" is stored as typed. It stops at a value the policy leaves
// unchanged; inputs that never settle fall back to the escaped form.
func cleanMarkup(policy *bluemonday.Policy, raw string) string {
	text := raw
	for i := 0; i < maxCleanPasses; i++ {
		cleaned := html.UnescapeString(policy.Sanitize(text))
		if cleaned == text {
			return strings.TrimSpace(text)
		}
		text = cleaned
	}
	return strings.TrimSpace(policy.Sanitize(raw))
}
