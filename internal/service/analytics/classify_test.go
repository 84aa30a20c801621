package analytics

import "testing"

func TestClassifyEvent(t *testing.T) {
	tests := []struct {
		name       string
		category   string
		action     string
		want       EventKind
		conversion bool
	}{
		{"conversion category", "conversion", "form_submit", EventConversion, true},
		{"demo action", "cta", "book_demo", EventDemo, true},
		{"signup action", "cta", "newsletter_signup", EventSignup, true},
		{"category wins over action", "conversion", "book_demo", EventConversion, true},
		{"case sensitive", "Conversion", "Book_Demo", EventCustom, false},
		{"custom", "engagement", "scroll_depth", EventCustom, false},
		{"empty", "", "", EventCustom, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyEvent(tt.category, tt.action)
			if got.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.want)
			}
			if got.IsConversion() != tt.conversion {
				t.Errorf("IsConversion() = %v, want %v", got.IsConversion(), tt.conversion)
			}
		})
	}
}

func TestClassifyEvent_CustomPayload(t *testing.T) {
	got := ClassifyEvent("engagement", "video_play")
	if got.Payload != "video_play" {
		t.Errorf("Payload = %q, want video_play", got.Payload)
	}
	if got.Kind.String() != "custom" {
		t.Errorf("String() = %q, want custom", got.Kind.String())
	}
}

func TestClassifyReferrer(t *testing.T) {
	tests := []struct {
		referrer string
		want     string
	}{
		{"", SourceDirect},
		{"https://www.google.com/search?q=automation", SourceGoogle},
		{"https://m.facebook.com/", SourceSocial},
		{"https://twitter.com/someone", SourceSocial},
		{"https://www.linkedin.com/in/someone", SourceSocial},
		{"https://duckduckgo.com/", SourceReferral},
	}

	for _, tt := range tests {
		if got := ClassifyReferrer(tt.referrer); got != tt.want {
			t.Errorf("ClassifyReferrer(%q) = %q, want %q", tt.referrer, got, tt.want)
		}
	}
}

func TestCapitalizeDevice(t *testing.T) {
	tests := map[string]string{
		"":        "Unknown",
		"mobile":  "Mobile",
		"Desktop": "Desktop",
		"tablet":  "Tablet",
		"émulé":   "Émulé",
	}

	for in, want := range tests {
		if got := CapitalizeDevice(in); got != want {
			t.Errorf("CapitalizeDevice(%q) = %q, want %q", in, got, want)
		}
	}
}
