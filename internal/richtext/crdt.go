package richtext

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// skipExact is the denylist of ProseMirror/Y.js structural marker words that
// show up verbatim inside an encoded CRDT document and must never leak into
// extracted text. Tuned by observation, not derivable from first principles;
// do not "improve" it silently.
var skipExact = map[string]bool{
	"prosemirror": true, "paragraph": true, "heading": true, "bulletList": true,
	"bullet_list": true, "orderedList": true, "ordered_list": true, "listItem": true,
	"list_item": true, "blockquote": true, "codeBlock": true, "code_block": true,
	"horizontalRule": true, "horizontal_rule": true, "hardBreak": true, "hard_break": true,
	"image": true, "text": true, "doc": true, "table": true, "tableRow": true,
	"table_row": true, "tableCell": true, "table_cell": true, "tableHeader": true,
	"table_header": true, "attrs": true, "marks": true, "content": true, "type": true,
	"level": true, "link": true, "null": true, "strong": true, "em": true,
	"code": true, "colspan": true, "rowspan": true, "colwidth": true, "label": true,
	"href": true, "title": true, "order": true, "todo_item": true, "done": true,
	"language": true,
}

var skipPrefixes = []string{
	"suggestion_usermentions",
	"issuemention",
	"prosemirror",
}

var yjsIDPattern = regexp.MustCompile(`^w[$)(A-Z]`)
var uuidPattern = regexp.MustCompile(`^[a-f0-9-]{36}$`)
var printableRunPattern = regexp.MustCompile(`[\x{AC00}-\x{D7AF}\x20-\x7E]+`)

// ExtractCRDTText best-effort-extracts readable plain text from a
// base64-encoded CRDT-style document (used for issue content). It is a
// heuristic, not a parser: decode, scan for runs of printable ASCII plus the
// Hangul Unicode block, and drop anything that looks like structure rather
// than prose. Extraction failures return the empty string, never an error.
func ExtractCRDTText(encoded string) string {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ""
	}

	runs := printableRunPattern.FindAllString(string(raw), -1)
	var kept []string
	for _, r := range runs {
		r = strings.TrimSpace(r)
		if shouldSkipRun(r) {
			continue
		}
		kept = append(kept, r)
	}

	text := strings.Join(kept, " ")
	text = strings.Join(strings.Fields(text), " ")
	text = strings.Trim(text, " ()")
	return text
}

func shouldSkipRun(r string) bool {
	if r == "" {
		return true
	}
	if skipExact[r] {
		return true
	}
	lower := strings.ToLower(r)
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	if yjsIDPattern.MatchString(r) {
		return true
	}
	if strings.HasPrefix(r, "{") || strings.Contains(r, `{"`) {
		return true
	}
	if strings.HasPrefix(lower, "link") && strings.Contains(r, "{") {
		return true
	}
	if uuidPattern.MatchString(r) {
		return true
	}
	if len([]rune(r)) <= 2 && !hasHangul(r) {
		return true
	}
	if specialCharRatio(r) > 0.3 {
		return true
	}
	return false
}

func hasHangul(s string) bool {
	for _, r := range s {
		if r >= 0xAC00 && r <= 0xD7AF {
			return true
		}
	}
	return false
}

// specialChars is the exact set of characters counted as "special" for the
// structural-noise heuristic. Not "all punctuation" — ordinary prose
// punctuation (periods, commas, quotes, apostrophes) must not count here.
const specialChars = "()[]{}$#@*&^%"

func specialCharRatio(s string) float64 {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}
	special := 0
	for _, r := range runes {
		if strings.ContainsRune(specialChars, r) {
			special++
		}
	}
	return float64(special) / float64(len(runes))
}
