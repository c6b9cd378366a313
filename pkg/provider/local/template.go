package local

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/papercomputeco/murasame/pkg/conversation"
)

// Mode selects how a conversation is rendered into an engine prompt.
type Mode string

const (
	// ModeChat appends an open assistant turn with an empty reasoning block
	// and stops generation at the end-of-turn token.
	ModeChat Mode = "chat"

	// ModeCompletion renders the closed turns only and lets the engine
	// continue the raw text until its own end of sequence.
	ModeCompletion Mode = "completion"
)

// EndOfTurn is the ChatML end-of-turn token.
const EndOfTurn = "<|im_end|>"

// ParseMode validates a configured mode name; empty means ModeChat.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeChat:
		return ModeChat, nil
	case ModeCompletion:
		return ModeCompletion, nil
	default:
		return "", fmt.Errorf("unknown engine mode %q", s)
	}
}

// qwenTemplate is Qwen3 ChatML with reasoning disabled. Every message is
// wrapped as <|im_start|>{role}\n{content}<|im_end|>\n.
const qwenTemplate = `{{- range .Messages -}}
<|im_start|>{{ .Role }}
{{ .Content | trim }}<|im_end|>
{{ end -}}
{{- if .AddGenerationPrompt -}}
<|im_start|>assistant
<think>

</think>

{{ end -}}`

var funcMap = template.FuncMap{
	"trim": strings.TrimSpace,
}

type templateMessage struct {
	Role    string
	Content string
}

type templateData struct {
	Messages            []templateMessage
	AddGenerationPrompt bool
}

// Template renders canonical text conversations into the engine's chat
// format.
type Template struct {
	tmpl *template.Template
}

// NewTemplate parses the built-in Qwen chat template.
func NewTemplate() (*Template, error) {
	tmpl, err := template.New("qwen").Funcs(funcMap).Parse(qwenTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse chat template: %w", err)
	}
	return &Template{tmpl: tmpl}, nil
}

// Render formats history for mode. Image parts are not representable and
// must be rejected before rendering.
func (t *Template) Render(history conversation.History, mode Mode) (string, error) {
	data := templateData{
		Messages:            make([]templateMessage, 0, len(history)),
		AddGenerationPrompt: mode != ModeCompletion,
	}
	for _, turn := range history {
		data.Messages = append(data.Messages, templateMessage{
			Role:    string(turn.Role),
			Content: turn.Content.Text(),
		})
	}

	var b strings.Builder
	if err := t.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render chat template: %w", err)
	}
	return b.String(), nil
}

// StopSequences returns the stop strings the engine should honour for mode.
func StopSequences(mode Mode) []string {
	if mode == ModeCompletion {
		return nil
	}
	return []string{EndOfTurn}
}
