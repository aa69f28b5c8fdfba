package richtext

import (
	"encoding/base64"
	"strings"
	"testing"
)

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestExtractCRDTTextKeepsProse(t *testing.T) {
	t.Parallel()
	got := ExtractCRDTText(encode("some readable sentence about the bug"))
	if got != "some readable sentence about the bug" {
		t.Errorf("ExtractCRDTText() = %q, want the prose run unchanged", got)
	}
}

func TestExtractCRDTTextDropsStructuralMarkers(t *testing.T) {
	t.Parallel()
	// Control bytes stand in for the binary framing that separates structural
	// marker words from prose runs in a real encoded document.
	raw := "\x00paragraph\x00attrs\x00actual prose here\x00"
	got := ExtractCRDTText(encode(raw))
	if strings.Contains(got, "paragraph") || strings.Contains(got, "attrs") {
		t.Errorf("ExtractCRDTText() = %q, want structural markers dropped", got)
	}
	if !strings.Contains(got, "actual prose here") {
		t.Errorf("ExtractCRDTText() = %q, want the prose run kept", got)
	}
}

func TestExtractCRDTTextDropsUUIDs(t *testing.T) {
	t.Parallel()
	raw := "\x00123e4567-e89b-12d3-a456-426614174000\x00real words follow\x00"
	got := ExtractCRDTText(encode(raw))
	if strings.Contains(got, "123e4567") {
		t.Errorf("ExtractCRDTText() = %q, want the UUID run dropped", got)
	}
	if !strings.Contains(got, "real words follow") {
		t.Errorf("ExtractCRDTText() = %q, want the prose run kept", got)
	}
}

func TestExtractCRDTTextDropsJSONLookingRuns(t *testing.T) {
	t.Parallel()
	raw := "\x00{\"type\":\"doc\"}\x00readable sentence follows\x00"
	got := ExtractCRDTText(encode(raw))
	if strings.Contains(got, `{"type"`) {
		t.Errorf("ExtractCRDTText() = %q, want the JSON-shaped run dropped", got)
	}
	if !strings.Contains(got, "readable sentence follows") {
		t.Errorf("ExtractCRDTText() = %q, want the prose run kept", got)
	}
}

func TestExtractCRDTTextInvalidBase64ReturnsEmpty(t *testing.T) {
	t.Parallel()
	if got := ExtractCRDTText("not valid base64!!!"); got != "" {
		t.Errorf("ExtractCRDTText() = %q, want empty string on decode failure", got)
	}
}

func TestExtractCRDTTextKeepsHangul(t *testing.T) {
	t.Parallel()
	got := ExtractCRDTText(encode("안녕"))
	if got != "안녕" {
		t.Errorf("ExtractCRDTText() = %q, want the short Hangul run kept", got)
	}
}

func TestSpecialCharRatioOnlyCountsTunedCharacterSet(t *testing.T) {
	t.Parallel()
	// Ordinary prose punctuation (periods, commas, quotes, apostrophes) must
	// never count as "special" — only the tuned structural-noise set
	// ()[]{}$#@*&^% does.
	if ratio := specialCharRatio("Don't worry, it's fine."); ratio != 0 {
		t.Errorf("specialCharRatio(%q) = %v, want 0 for ordinary prose punctuation", "Don't worry, it's fine.", ratio)
	}
	if ratio := specialCharRatio("(a)[b]{c}$d#e@f*g&h^i%j"); ratio == 0 {
		t.Errorf("specialCharRatio() = %v, want > 0 for the tuned special-character set", ratio)
	}
}

func TestExtractCRDTTextKeepsPunctuatedProse(t *testing.T) {
	t.Parallel()
	// A broader "any non-alphanumeric" special-char definition would push a
	// short, heavily apostrophe'd/quoted clause like this over the drop
	// threshold; only the tuned character set may do that.
	raw := "\x00\"Wait,\" she said, \"isn't it done yet?\"\x00"
	got := ExtractCRDTText(encode(raw))
	if !strings.Contains(got, "she said") {
		t.Errorf("ExtractCRDTText() = %q, want ordinary punctuated prose kept", got)
	}
}

func TestExtractCRDTTextDropsShortNonHangulRuns(t *testing.T) {
	t.Parallel()
	// Control bytes split the payload into separate printable runs; "ab" is
	// isolated as its own 2-character run and should be dropped, while the
	// longer run survives.
	raw := "\x00ab\x00meaningful sentence continues\x00"
	got := ExtractCRDTText(encode(raw))
	if got != "meaningful sentence continues" {
		t.Errorf("ExtractCRDTText() = %q, want the 2-char run dropped and the rest kept", got)
	}
}
