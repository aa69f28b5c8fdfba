// Package richtext decodes the two embedded document formats the cache
// reader extracts plain text from: ProseMirror JSON trees (comment bodies)
// and an encoded Yjs CRDT document (issue content).
package richtext

import "strings"

// FlattenProseMirror flattens a structured-tree document (used for comment
// bodies and issue description data) into plain text. text nodes emit their
// text; suggestion_userMentions emits "@{attrs.label}" when label is
// non-empty; hardBreak emits a newline; containers concatenate child output
// in document order.
func FlattenProseMirror(node any) string {
	var b strings.Builder
	flatten(node, &b)
	return b.String()
}

func flatten(node any, b *strings.Builder) {
	switch n := node.(type) {
	case map[string]any:
		flattenNode(n, b)
	case []any:
		for _, child := range n {
			flatten(child, b)
		}
	}
}

func flattenNode(n map[string]any, b *strings.Builder) {
	nodeType, _ := n["type"].(string)

	switch nodeType {
	case "text":
		if text, ok := n["text"].(string); ok {
			b.WriteString(text)
		}
		return
	case "suggestion_userMentions":
		attrs, _ := n["attrs"].(map[string]any)
		if attrs != nil {
			if label, ok := attrs["label"].(string); ok && label != "" {
				b.WriteString("@")
				b.WriteString(label)
			}
		}
		return
	case "hardBreak":
		b.WriteString("\n")
		return
	}

	if content, ok := n["content"]; ok {
		flatten(content, b)
	}
}
