package blocks

import (
	"fmt"
	"strings"

	"github.com/powerflow-sync/powerflow/internal/model"
)

// MaxChildren is the largest children array Notion accepts per request.
const MaxChildren = 100

const capturedLayout = "Jan 02, 2006 at 03:04 PM"

// Section titles of the rendered page body.
const (
	ActionItemsTitle   = "Action Items"
	MindMapTitle       = "🧠 Mind Map"
	SourceDetailsTitle = "📎 Source Details"
	TranscriptTitle    = "📝 Full Transcript"
	OpenInPocketLabel  = "Open in Pocket AI →"
)

// RenderBody builds the page body for a recording: the summary, a
// checklist of action items, the mind map, and a collapsed source details
// section with the full transcript.
func RenderBody(rec *model.Recording) []Block {
	var out []Block

	if strings.TrimSpace(rec.Summary) != "" {
		out = append(out, ParseMarkdown(rec.Summary)...)
	}

	if len(rec.ActionItems) > 0 {
		out = append(out, Heading(3, ActionItemsTitle))
		for _, item := range rec.ActionItems {
			out = append(out, ToDo(item.ChecklistText(), false))
		}
	}

	if len(rec.MindMap) > 0 {
		if nodes := renderMindMap(rec.MindMap); len(nodes) > 0 {
			out = append(out, Toggle(MindMapTitle, nodes...))
		}
	}

	out = append(out, Divider(), sourceDetails(rec))
	return out
}

// FormatDuration renders seconds as m:ss or h:mm:ss. Non-positive values
// render as "Unknown".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "Unknown"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func sourceDetails(rec *model.Recording) Block {
	children := []Block{
		LabeledBullet("Duration: ", FormatDuration(rec.Duration)),
		LabeledBullet("Captured: ", rec.CreatedAt.UTC().Format(capturedLayout)+" UTC"),
	}
	if rec.SourceURL != "" {
		children = append(children, RichParagraph(Linked(OpenInPocketLabel, rec.SourceURL, ColorBlue)))
	}
	if strings.TrimSpace(rec.Transcript) != "" {
		children = append(children, Toggle(TranscriptTitle, transcriptBlocks(rec.Transcript)...))
	}
	return Toggle(SourceDetailsTitle, children...)
}

func transcriptBlocks(transcript string) []Block {
	chunks := SplitText(strings.TrimSpace(transcript), MaxTextLength)
	if len(chunks) > MaxChildren {
		chunks = chunks[:MaxChildren]
		chunks[MaxChildren-1] = SafeText(chunks[MaxChildren-1] + " " + ellipsis)
	}

	out := make([]Block, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, RichParagraph(Plain(chunk)))
	}
	return out
}

// SplitText cuts text into pieces of at most limit runes, preferring to
// break on whitespace.
func SplitText(text string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	runes := []rune(text)
	var out []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i] == ' ' || runes[i] == '\n' {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			out = append(out, piece)
		}
		runes = runes[cut:]
		for len(runes) > 0 && (runes[0] == ' ' || runes[0] == '\n') {
			runes = runes[1:]
		}
	}
	if piece := strings.TrimSpace(string(runes)); piece != "" {
		out = append(out, piece)
	}
	return out
}

// renderMindMap flattens the node hierarchy depth-first. Roots are bold;
// descendants are indented with "↳" markers.
func renderMindMap(nodes []model.MindMapNode) []Block {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	children := make(map[string][]model.MindMapNode)
	var roots []model.MindMapNode
	for _, n := range nodes {
		if n.ParentID == "" || n.ParentID == n.ID || !known[n.ParentID] {
			roots = append(roots, n)
			continue
		}
		children[n.ParentID] = append(children[n.ParentID], n)
	}

	var out []Block
	visited := make(map[string]bool, len(nodes))
	var walk func(n model.MindMapNode, depth int)
	walk = func(n model.MindMapNode, depth int) {
		if len(out) >= MaxChildren || (n.ID != "" && visited[n.ID]) {
			return
		}
		visited[n.ID] = true

		title := strings.TrimSpace(n.Title)
		if depth == 0 {
			out = append(out, Block{Type: TypeBulleted, RichText: []RichText{Bold(title)}})
		} else {
			prefix := strings.Repeat("    ", depth-1) + "↳ "
			out = append(out, Block{Type: TypeBulleted, RichText: []RichText{Plain(prefix + title)}})
		}
		for _, child := range children[n.ID] {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
	return out
}
