package prompt

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// ContinuationContext holds the values rendered into the continuation prompt.
// RightHand and LeftHand are JSON arrays in the event hand-off format.
type ContinuationContext struct {
	Key           string
	BPM           string
	TimeSignature string
	LastOffset    string
	RightHand     string
	LeftHand      string
	MinBars       int
	MaxBars       int
}

// Builder builds prompts for the continuation composer
type Builder struct {
	loader *Loader

	once sync.Once
	tmpl *template.Template
	err  error
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() *Builder {
	return &Builder{loader: NewPromptLoader()}
}

// SystemPrompt returns the continuation system prompt
func (b *Builder) SystemPrompt() (string, error) {
	return b.loader.GetContinuationSystemPrompt()
}

// BuildContinuationPrompt renders the user prompt for one continuation request
func (b *Builder) BuildContinuationPrompt(ctx ContinuationContext) (string, error) {
	tmpl, err := b.template()
	if err != nil {
		return "", err
	}
	if ctx.RightHand == "" {
		ctx.RightHand = "[]"
	}
	if ctx.LeftHand == "" {
		ctx.LeftHand = "[]"
	}
	if ctx.MaxBars < ctx.MinBars {
		ctx.MaxBars = ctx.MinBars
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("failed to render continuation prompt: %w", err)
	}
	return sb.String(), nil
}

func (b *Builder) template() (*template.Template, error) {
	b.once.Do(func() {
		var text string
		text, b.err = b.loader.GetContinuationTemplate()
		if b.err != nil {
			return
		}
		b.tmpl, b.err = template.New("continuation").Parse(text)
		if b.err != nil {
			b.err = fmt.Errorf("failed to parse continuation template: %w", b.err)
		}
	})
	return b.tmpl, b.err
}
