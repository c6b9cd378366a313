// Package conversation holds the canonical conversation model shared by every
// provider adapter: roles, turns, text or multimodal content, and the
// append-only history the caller owns between requests.
package conversation

import (
	"fmt"
	"strings"
)

// Role attributes a turn to a participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole validates a wire role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant, RoleSystem:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidHistory, s)
	}
}

// PartKind tags a multimodal part.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// Part is one element of multimodal content. Text is set for text parts,
// URL (an http(s) URL or a data URI) for image parts.
type Part struct {
	Kind PartKind
	Text string
	URL  string
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// ImagePart returns an image part referencing url.
func ImagePart(url string) Part {
	return Part{Kind: PartImage, URL: url}
}

// Content is either plain text or an ordered list of parts. The zero value is
// empty plain text. Content never exposes its backing slice, so a Turn stays
// immutable after it has been appended to a History.
type Content struct {
	text  string
	parts []Part
	multi bool
}

// Text returns plain-text content.
func Text(text string) Content {
	return Content{text: text}
}

// Multimodal returns multimodal content holding a copy of parts.
func Multimodal(parts ...Part) Content {
	cp := make([]Part, len(parts))
	copy(cp, parts)
	return Content{parts: cp, multi: true}
}

// IsMultimodal reports whether the content is a part list.
func (c Content) IsMultimodal() bool {
	return c.multi
}

// Text returns the plain text, or the text parts joined by newlines for
// multimodal content. Image parts are not represented.
func (c Content) Text() string {
	if !c.multi {
		return c.text
	}
	texts := make([]string, 0, len(c.parts))
	for _, p := range c.parts {
		if p.Kind == PartText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Parts returns a copy of the parts. Plain text is reported as a single text part.
func (c Content) Parts() []Part {
	if !c.multi {
		return []Part{TextPart(c.text)}
	}
	cp := make([]Part, len(c.parts))
	copy(cp, c.parts)
	return cp
}

// Images returns the image URLs in part order.
func (c Content) Images() []string {
	var urls []string
	for _, p := range c.parts {
		if p.Kind == PartImage {
			urls = append(urls, p.URL)
		}
	}
	return urls
}

// HasImages reports whether at least one image part is present.
func (c Content) HasImages() bool {
	for _, p := range c.parts {
		if p.Kind == PartImage {
			return true
		}
	}
	return false
}

// WithImage returns new multimodal content with an image part appended. Plain
// text becomes [text, image].
func (c Content) WithImage(url string) Content {
	if !c.multi {
		return Multimodal(TextPart(c.text), ImagePart(url))
	}
	parts := make([]Part, 0, len(c.parts)+1)
	parts = append(parts, c.parts...)
	parts = append(parts, ImagePart(url))
	return Content{parts: parts, multi: true}
}

// Turn is one message in a conversation.
type Turn struct {
	Role    Role
	Content Content
}

// UserTurn returns a plain-text user turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Content: Text(text)}
}

// AssistantTurn returns a plain-text assistant turn.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Content: Text(text)}
}

// SystemTurn returns a plain-text system turn.
func SystemTurn(text string) Turn {
	return Turn{Role: RoleSystem, Content: Text(text)}
}
