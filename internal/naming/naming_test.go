package naming

import "testing"

func TestTicketChannelName(t *testing.T) {
	cases := []struct {
		display string
		want    string
	}{
		{"Alice", "ticket-alice"},
		{"Bob The Builder", "ticket-bobthebuilder"},
		{"héllo wörld", "ticket-hllowrld"},
		{"under_score-dash", "ticket-under_score-dash"},
		{"🔥🔥🔥", "ticket-"},
		{"averyveryverylongdisplayname", "ticket-averyveryverylongdis"},
	}
	for _, c := range cases {
		if got := TicketChannelName(c.display); got != c.want {
			t.Errorf("TicketChannelName(%q) = %q, want %q", c.display, got, c.want)
		}
	}
}

func TestSanitize_Cap(t *testing.T) {
	got := Sanitize("abcdefghijklmnopqrstuvwxyz")
	if len(got) != 20 {
		t.Errorf("expected 20 runes, got %d (%q)", len(got), got)
	}
}

func TestLegacyTicketChannelName(t *testing.T) {
	if got := LegacyTicketChannelName("123456789012345678"); got != "ticket-123456789012345678" {
		t.Errorf("unexpected legacy name %q", got)
	}
}

func TestStripMention(t *testing.T) {
	cases := map[string]string{
		"<@123456789012345678>":  "123456789012345678",
		"<@!123456789012345678>": "123456789012345678",
		"<@&987654321098765432>": "987654321098765432",
		"123456789012345678":     "123456789012345678",
		" <@42> ":                "42",
	}
	for in, want := range cases {
		if got := StripMention(in); got != want {
			t.Errorf("StripMention(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, ok := ParseID("<@123456789012345678>"); !ok || id != "123456789012345678" {
		t.Errorf("ParseID mention: got %q, %v", id, ok)
	}
	if _, ok := ParseID("not-a-number"); ok {
		t.Error("expected failure for non-numeric input")
	}
	if _, ok := ParseID(""); ok {
		t.Error("expected failure for empty input")
	}
}
