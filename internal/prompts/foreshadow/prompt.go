package foreshadow

import (
	"bytes"
	_ "embed"
	"text/template"

	"storyteller/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// SystemPrompt returns the system prompt for foreshadowing detection.
func SystemPrompt() string {
	return systemPrompt
}

// UserPromptData contains the data for rendering the user prompt.
type UserPromptData struct {
	Text string // chapter-labeled input text
}

// UserPrompt renders the user prompt template with the given data.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// UserPromptWithOverride renders a user prompt, using an override template if provided.
func UserPromptWithOverride(data UserPromptData, override string) string {
	if override == "" {
		return UserPrompt(data)
	}
	tmpl, err := template.New("override").Parse(override)
	if err != nil {
		return UserPrompt(data)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return UserPrompt(data)
	}
	return buf.String()
}

// Prompt keys
const (
	SystemPromptKey = "analysis.foreshadow.system"
	UserPromptKey   = "analysis.foreshadow.user"
)

// RegisterPrompts registers the foreshadowing prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Foreshadowing system prompt - hint/payoff links between chapters",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Foreshadowing user prompt template",
	})
}
