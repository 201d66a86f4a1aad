package prompt

import (
	"strings"

	"github.com/Conceptual-Machines/midi-insight-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetContinuationSystemPrompt loads the system prompt of the continuation composer
func (l *Loader) GetContinuationSystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.ContinuationSystemPromptTxt)), nil
}

// GetContinuationTemplate loads the raw continuation prompt template
func (l *Loader) GetContinuationTemplate() (string, error) {
	return strings.TrimSpace(string(embedded.ContinuationPromptTmpl)), nil
}
