package formatter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ceponatia/warden/internal/workdoc"
)

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, map[string]int{"runs": 3}); err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"runs": 3`) {
		t.Errorf("output = %q, want indented json", buf.String())
	}
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeYAML(&buf, map[string]string{"status": "ok"}); err != nil {
		t.Fatalf("EncodeYAML: %v", err)
	}
	if !strings.Contains(buf.String(), "status: ok") {
		t.Errorf("output = %q, want yaml", buf.String())
	}
}

func TestColorSeverityPlainWhenDisabled(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	if got := ColorSeverity(workdoc.SeverityS0); got != "S0" {
		t.Errorf("ColorSeverity(S0) = %q, want S0", got)
	}
	if got := ColorStatus(workdoc.StatusResolved); got != "resolved" {
		t.Errorf("ColorStatus(resolved) = %q", got)
	}
	if got := ColorEligible(false); got != "not eligible" {
		t.Errorf("ColorEligible(false) = %q", got)
	}
}
