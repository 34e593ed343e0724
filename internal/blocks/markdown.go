package blocks

import (
	"regexp"
	"strings"
)

var numberedItem = regexp.MustCompile(`^\d+[.)]\s+`)

// ParseMarkdown converts the subset of markdown found in Pocket summaries
// into blocks. It never fails: anything it does not recognise becomes a
// paragraph.
func ParseMarkdown(md string) []Block {
	var out []Block
	for _, line := range strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "### "):
			out = append(out, Heading(3, strings.TrimSpace(trimmed[4:])))
		case strings.HasPrefix(trimmed, "## "):
			out = append(out, Heading(2, strings.TrimSpace(trimmed[3:])))
		case strings.HasPrefix(trimmed, "# "):
			out = append(out, Heading(1, strings.TrimSpace(trimmed[2:])))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			out = append(out, Bulleted(strings.TrimSpace(trimmed[2:])))
		case numberedItem.MatchString(trimmed):
			out = append(out, Numbered(numberedItem.ReplaceAllString(trimmed, "")))
		case strings.HasPrefix(trimmed, "> "):
			out = append(out, Quote(strings.TrimSpace(trimmed[2:])))
		case trimmed == "---" || trimmed == "***":
			out = append(out, Divider())
		default:
			out = append(out, Paragraph(trimmed))
		}
	}
	return out
}
