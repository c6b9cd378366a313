package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wirePart is the OpenAI-style content part used on the HTTP boundary.
type wirePart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	URL      string          `json:"url,omitempty"`
	ImageURL json.RawMessage `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type wireTurn struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Images  []string        `json:"images,omitempty"`
}

// MarshalJSON encodes plain text as a string and multimodal content as a list
// of {"type":"text"} / {"type":"image_url"} parts.
func (c Content) MarshalJSON() ([]byte, error) {
	if !c.multi {
		return json.Marshal(c.text)
	}
	out := make([]map[string]any, 0, len(c.parts))
	for _, p := range c.parts {
		switch p.Kind {
		case PartText:
			out = append(out, map[string]any{"type": "text", "text": p.Text})
		case PartImage:
			out = append(out, map[string]any{"type": "image_url", "image_url": wireImageURL{URL: p.URL}})
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts a string, null, or a list of parts. Image parts may be
// {"type":"image_url","image_url":{"url":..}}, {"type":"image_url","image_url":".."}
// or {"type":"image","url":..}.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Text("")
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHistory, err)
		}
		*c = Text(s)
		return nil
	case '[':
		var raw []wirePart
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHistory, err)
		}
		parts := make([]Part, 0, len(raw))
		for _, wp := range raw {
			p, err := wp.decode()
			if err != nil {
				return err
			}
			parts = append(parts, p)
		}
		*c = Content{parts: parts, multi: true}
		return nil
	default:
		return fmt.Errorf("%w: content must be a string or a list of parts", ErrInvalidHistory)
	}
}

func (wp wirePart) decode() (Part, error) {
	switch wp.Type {
	case "text":
		return TextPart(wp.Text), nil
	case "image":
		if wp.URL == "" {
			return Part{}, fmt.Errorf("%w: image part without url", ErrInvalidHistory)
		}
		return ImagePart(wp.URL), nil
	case "image_url":
		url, err := decodeImageURL(wp.ImageURL)
		if err != nil {
			return Part{}, err
		}
		return ImagePart(url), nil
	default:
		return Part{}, fmt.Errorf("%w: unknown content part type %q", ErrInvalidHistory, wp.Type)
	}
}

func decodeImageURL(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, nil
		}
	} else if len(raw) > 0 {
		var obj wireImageURL
		if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
			return obj.URL, nil
		}
	}
	return "", fmt.Errorf("%w: image_url part without url", ErrInvalidHistory)
}

// MarshalJSON encodes a turn as {"role", "content"}.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role    Role    `json:"role"`
		Content Content `json:"content"`
	}{t.Role, t.Content})
}

// UnmarshalJSON decodes a turn. An Ollama-style sibling "images" array is folded
// into the content as image parts after the existing content.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var wt wireTurn
	if err := json.Unmarshal(data, &wt); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHistory, err)
	}
	role, err := ParseRole(wt.Role)
	if err != nil {
		return err
	}
	var content Content
	if err := content.UnmarshalJSON(wt.Content); err != nil {
		return err
	}
	for _, url := range wt.Images {
		if url != "" {
			content = content.WithImage(url)
		}
	}
	*t = Turn{Role: role, Content: content}
	return nil
}
