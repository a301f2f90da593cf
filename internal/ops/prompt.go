package ops

import (
	"fmt"
	"strings"
)

const editSystemPrompt = `You are an expert front-end engineer maintaining framework-free web components.
You edit a single custom element written as an ES module.`

const editTemplate = `Modify the custom element <%s> according to the request below.

Rules:
- Preserve the public API: tag name, observed attributes, dispatched events and public methods, unless the request changes them.
- Use modern JavaScript syntax (ES2022 classes, const/let, template literals).
- Keep the class extending HTMLElement and keep the customElements.define call.
- Output only the complete updated source in a single javascript code block.

Request:
%s

Current source:
%s`

const contextTemplate = `

API context (use these endpoints where relevant):
%s`

const summaryPrompt = `Summarize the changes you just made in 2-3 sentences for a changelog. Plain text, no code.`

// buildEditPrompt renders the fixed edit template, with the filtered API
// context appended when present.
func buildEditPrompt(name, instruction, code, apiContext string) string {
	prompt := fmt.Sprintf(editTemplate, name, strings.TrimSpace(instruction), code)
	if apiContext != "" {
		prompt += fmt.Sprintf(contextTemplate, strings.TrimSpace(apiContext))
	}
	return prompt
}
