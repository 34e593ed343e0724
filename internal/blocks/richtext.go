package blocks

import "strings"

// MaxTextLength is the longest content Notion accepts in one rich text
// object.
const MaxTextLength = 2000

const ellipsis = "..."

// Notion colours used by the renderer.
const (
	ColorDefault = "default"
	ColorBlue    = "blue"
	ColorGray    = "gray"
)

// RichText is a Notion rich text object of type "text".
type RichText struct {
	Type        string       `json:"type"`
	Text        Text         `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Text is the payload of a text rich text object.
type Text struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a hyperlink attached to text.
type Link struct {
	URL string `json:"url"`
}

// Annotations style a rich text object.
type Annotations struct {
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Code          bool   `json:"code,omitempty"`
	Color         string `json:"color,omitempty"`
}

// SafeText truncates text to at most MaxTextLength runes, ending truncated
// text with "...".
func SafeText(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxTextLength {
		return text
	}
	return string(runes[:MaxTextLength-len(ellipsis)]) + ellipsis
}

// Plain returns an unstyled rich text object.
func Plain(content string) RichText {
	return RichText{Type: "text", Text: Text{Content: SafeText(content)}}
}

// Bold returns a bold rich text object.
func Bold(content string) RichText {
	rt := Plain(content)
	rt.Annotations = &Annotations{Bold: true}
	return rt
}

// Linked returns a rich text object linking to url, optionally coloured.
func Linked(content, url, color string) RichText {
	rt := Plain(content)
	rt.Text.Link = &Link{URL: url}
	if color != "" && color != ColorDefault {
		rt.Annotations = &Annotations{Color: color}
	}
	return rt
}

// ParseBoldSegments splits text on **bold** markers. An unmatched marker is
// kept as literal text.
func ParseBoldSegments(text string) []RichText {
	var out []RichText
	rest := text
	for {
		start := strings.Index(rest, "**")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+2:], "**")
		if end < 0 {
			break
		}
		end += start + 2

		if start > 0 {
			out = append(out, Plain(rest[:start]))
		}
		if inner := rest[start+2 : end]; inner != "" {
			out = append(out, Bold(inner))
		}
		rest = rest[end+2:]
	}
	if rest != "" || len(out) == 0 {
		out = append(out, Plain(rest))
	}
	return out
}

// PlainText concatenates the content of rich text objects.
func PlainText(rts []RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.Text.Content)
	}
	return b.String()
}
