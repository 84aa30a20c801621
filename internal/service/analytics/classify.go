package analytics

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// EventKind is the tagged classification of a free-form analytics event.
type EventKind int

// EventKind values. EventCustom carries the raw action as payload.
const (
	EventCustom EventKind = iota
	EventConversion
	EventDemo
	EventSignup
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventConversion:
		return "conversion"
	case EventDemo:
		return "demo"
	case EventSignup:
		return "signup"
	default:
		return "custom"
	}
}

// EventClass is the result of ClassifyEvent.
type EventClass struct {
	Kind    EventKind
	Payload string
}

// IsConversion reports whether the event counts toward the conversion rate.
func (c EventClass) IsConversion() bool {
	return c.Kind != EventCustom
}

// ClassifyEvent maps a category/action pair to a known kind. Matching is case-sensitive:
// category "conversion" first, then an action containing "demo", then "signup".
// Anything else is custom with the action as payload.
func ClassifyEvent(category, action string) EventClass {
	switch {
	case category == "conversion":
		return EventClass{Kind: EventConversion}
	case strings.Contains(action, "demo"):
		return EventClass{Kind: EventDemo}
	case strings.Contains(action, "signup"):
		return EventClass{Kind: EventSignup}
	default:
		return EventClass{Kind: EventCustom, Payload: action}
	}
}

// Traffic source labels.
const (
	SourceDirect   = "Direct"
	SourceGoogle   = "Google"
	SourceSocial   = "Social Media"
	SourceReferral = "Referral"
)

var socialHosts = []string{"facebook", "twitter", "linkedin"}

// ClassifyReferrer buckets a referrer URL into one traffic source.
func ClassifyReferrer(referrer string) string {
	if referrer == "" {
		return SourceDirect
	}
	if strings.Contains(referrer, "google") {
		return SourceGoogle
	}
	for _, host := range socialHosts {
		if strings.Contains(referrer, host) {
			return SourceSocial
		}
	}
	return SourceReferral
}

// CapitalizeDevice upper-cases the first letter of a device type for display.
// An empty device type becomes "Unknown".
func CapitalizeDevice(device string) string {
	if device == "" {
		return "Unknown"
	}
	r, size := utf8.DecodeRuneInString(device)
	return string(unicode.ToUpper(r)) + device[size:]
}
