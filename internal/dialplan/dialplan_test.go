package dialplan

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestRender_DialsExactTarget(t *testing.T) {
	b := Builder{CallerID: "+15550000000", Fallback: "unavailable"}
	out, err := b.Render("+442071234567")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := string(out)
	if !strings.HasPrefix(got, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("document should start with XML declaration: %q", got)
	}
	want := `<Response><Dial callerId="+15550000000" timeout="20">+442071234567</Dial></Response>`
	if !strings.HasSuffix(got, want) {
		t.Errorf("document = %q, want suffix %q", got, want)
	}
}

func TestRender_Fallback(t *testing.T) {
	b := Builder{CallerID: "+15550000000", Fallback: "Sorry, the subscriber is unavailable."}
	for _, target := range []string{"", "   "} {
		out, err := b.Render(target)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		want := `<Response><Say voice="alice">Sorry, the subscriber is unavailable.</Say></Response>`
		if !strings.HasSuffix(string(out), want) {
			t.Errorf("Render(%q) = %q, want suffix %q", target, out, want)
		}
		if strings.Contains(string(out), "<Dial") {
			t.Errorf("fallback should not dial: %q", out)
		}
	}
}

func TestRender_EscapesValues(t *testing.T) {
	b := Builder{CallerID: `"><x`, Timeout: 45}
	out, err := b.Render(`</Dial><Hangup/>`)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(out), "<Hangup/>") {
		t.Errorf("target was not escaped: %q", out)
	}

	var doc Response
	if err := xml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("rendered document does not parse: %v", err)
	}
	if doc.Dial == nil || doc.Dial.Number != `</Dial><Hangup/>` {
		t.Errorf("Dial = %+v, want original target", doc.Dial)
	}
	if doc.Dial.CallerID != `"><x` {
		t.Errorf("callerId = %q", doc.Dial.CallerID)
	}
	if doc.Dial.Timeout != 45 {
		t.Errorf("timeout = %d, want 45", doc.Dial.Timeout)
	}
}
