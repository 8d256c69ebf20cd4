package render

import (
	"strings"
	"testing"
)

func TestVisibleTextSkipsScriptAndStyle(t *testing.T) {
	in := `<div><style>.x{color:red}</style><script>alert(1)</script><span>Maria Lopez</span></div>`
	out := VisibleText(in)
	if out != "Maria Lopez" {
		t.Fatalf("expected visible text only, got: %q", out)
	}
}

func TestVisibleTextBlockBreaks(t *testing.T) {
	in := `<div><div>Maria</div><div>hola, estas ahi?</div><div>12:30</div></div>`
	out := VisibleText(in)
	lines := strings.Split(out, "\n")
	if len(lines) < 3 {
		t.Fatalf("expected one line per block, got: %q", out)
	}
	if strings.TrimSpace(lines[0]) != "Maria" {
		t.Fatalf("expected first block first, got: %q", lines[0])
	}
}

func TestFirstLine(t *testing.T) {
	in := `<div><div>  </div><div>Carlos  Ruiz</div><div>preview text</div></div>`
	if got := FirstLine(in); got != "Carlos Ruiz" {
		t.Fatalf("expected first non-empty normalized line, got: %q", got)
	}
}

func TestFirstLineEmptyFragment(t *testing.T) {
	if got := FirstLine("<div><span></span></div>"); got != "" {
		t.Fatalf("expected empty string, got: %q", got)
	}
}

func TestPreviewCollapsesAndTruncates(t *testing.T) {
	in := "hola\ncomo   estas\ttodo bien por aqui, escribeme cuando puedas"
	out := Preview(in, 20)
	if strings.ContainsAny(out, "\n\t") {
		t.Fatalf("preview should be a single line, got: %q", out)
	}
	if !strings.HasSuffix(out, "...") {
		t.Fatalf("long preview should be truncated with ellipsis, got: %q", out)
	}
}

func TestPreviewZeroWidthPassthrough(t *testing.T) {
	if got := Preview("short message", 0); got != "short message" {
		t.Fatalf("width 0 should not truncate, got: %q", got)
	}
}

func TestSanitizeGlyphs(t *testing.T) {
	in := "a​b – c ‘quoted’ d…"
	out := sanitizeGlyphs(in)
	if out != "ab - c 'quoted' d..." {
		t.Fatalf("unexpected sanitization result: %q", out)
	}
}
