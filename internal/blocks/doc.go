// Package blocks renders recordings into Notion page content: the block
// tree of the page body and the page properties.
//
// All rendering is pure. Every rich text segment is capped at
// MaxTextLength runes because Notion rejects longer text objects.
package blocks
