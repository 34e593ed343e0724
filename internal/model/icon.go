package model

import "strings"

// Icon is the emoji shown next to a page title.
type Icon struct {
	Emoji string
}

// DefaultIcon is used when no tag has a table entry.
var DefaultIcon = Icon{Emoji: "🎙️"}

var tagIcons = map[string]string{
	"work":      "💼",
	"meeting":   "📅",
	"idea":      "💡",
	"reminder":  "⏰",
	"personal":  "👤",
	"task":      "✅",
	"note":      "📝",
	"question":  "❓",
	"important": "⭐",
	"urgent":    "🔥",
}

// SelectIcon returns the icon of the first tag, in the recording's own tag
// order, that has a table entry. Matching is case-insensitive on the
// trimmed tag.
func SelectIcon(tags []string) Icon {
	for _, tag := range tags {
		if emoji, ok := tagIcons[strings.ToLower(strings.TrimSpace(tag))]; ok {
			return Icon{Emoji: emoji}
		}
	}
	return DefaultIcon
}
