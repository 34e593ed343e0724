package blocks

import (
	"encoding/json"

	"github.com/powerflow-sync/powerflow/internal/model"
)

// Type is a Notion block type.
type Type string

const (
	TypeParagraph Type = "paragraph"
	TypeHeading1  Type = "heading_1"
	TypeHeading2  Type = "heading_2"
	TypeHeading3  Type = "heading_3"
	TypeBulleted  Type = "bulleted_list_item"
	TypeNumbered  Type = "numbered_list_item"
	TypeToDo      Type = "to_do"
	TypeToggle    Type = "toggle"
	TypeDivider   Type = "divider"
	TypeQuote     Type = "quote"
	TypeCallout   Type = "callout"
)

// Block is one Notion block. It marshals to the Notion wire shape, where
// the type-specific payload sits under a key named after the type.
type Block struct {
	Type     Type
	RichText []RichText
	Color    string
	Checked  bool
	Icon     *model.Icon
	Children []Block
}

// MarshalJSON implements json.Marshaler.
func (b Block) MarshalJSON() ([]byte, error) {
	content := map[string]any{}
	if b.Type != TypeDivider {
		rt := b.RichText
		if rt == nil {
			rt = []RichText{}
		}
		content["rich_text"] = rt
	}
	if b.Type == TypeToDo {
		content["checked"] = b.Checked
	}
	if b.Color != "" {
		content["color"] = b.Color
	}
	if b.Icon != nil {
		content["icon"] = EmojiIcon(*b.Icon)
	}
	if len(b.Children) > 0 {
		content["children"] = b.Children
	}
	return json.Marshal(map[string]any{
		"object":       "block",
		"type":         b.Type,
		string(b.Type): content,
	})
}

// Text returns the concatenated plain text of the block.
func (b Block) Text() string {
	return PlainText(b.RichText)
}

// IconPayload is the Notion emoji icon object.
type IconPayload struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// EmojiIcon converts an icon to its Notion payload.
func EmojiIcon(icon model.Icon) IconPayload {
	return IconPayload{Type: "emoji", Emoji: icon.Emoji}
}

// Heading returns a heading block. Levels outside 1-3 are clamped.
func Heading(level int, text string) Block {
	t := TypeHeading3
	switch {
	case level <= 1:
		t = TypeHeading1
	case level == 2:
		t = TypeHeading2
	}
	return Block{Type: t, RichText: ParseBoldSegments(text)}
}

// Paragraph returns a paragraph with **bold** spans applied.
func Paragraph(text string) Block {
	return Block{Type: TypeParagraph, RichText: ParseBoldSegments(text)}
}

// RichParagraph returns a paragraph from prepared rich text.
func RichParagraph(rts ...RichText) Block {
	return Block{Type: TypeParagraph, RichText: rts}
}

// Bulleted returns a bulleted list item with **bold** spans applied.
func Bulleted(text string) Block {
	return Block{Type: TypeBulleted, RichText: ParseBoldSegments(text)}
}

// LabeledBullet returns a bulleted item whose label is bold.
func LabeledBullet(label, value string) Block {
	return Block{Type: TypeBulleted, RichText: []RichText{Bold(label), Plain(value)}}
}

// Numbered returns a numbered list item.
func Numbered(text string) Block {
	return Block{Type: TypeNumbered, RichText: ParseBoldSegments(text)}
}

// ToDo returns a checklist item.
func ToDo(text string, checked bool) Block {
	return Block{Type: TypeToDo, RichText: []RichText{Plain(text)}, Checked: checked}
}

// Toggle returns a collapsed toggle holding children.
func Toggle(text string, children ...Block) Block {
	return Block{Type: TypeToggle, RichText: ParseBoldSegments(text), Children: children}
}

// Quote returns a quote block.
func Quote(text string) Block {
	return Block{Type: TypeQuote, RichText: ParseBoldSegments(text)}
}

// Callout returns a callout block with an emoji icon.
func Callout(text string, icon model.Icon) Block {
	return Block{Type: TypeCallout, RichText: ParseBoldSegments(text), Icon: &icon}
}

// Divider returns a horizontal divider.
func Divider() Block {
	return Block{Type: TypeDivider}
}
