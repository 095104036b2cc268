package sandbox

import (
	"regexp"
	"strings"
)

// markerPattern matches {{prerender}} and {{prerender: <spec>}}.
var markerPattern = regexp.MustCompile(`\{\{prerender(?::([^}]*))?\}\}`)

// anchorTag is the temporary element substituted for the marker before
// DOM parsing. It is located in the parsed tree, recorded as the
// injection anchor, and removed.
const anchorTag = "prerender-anchor"

// defaultDocument is the sandbox document when no template is given.
const defaultDocument = "<!DOCTYPE html><html><head></head><body></body></html>"

// Template keeps both views of the render template: the literal text,
// authoritative for marker substitution, and (through the Environment)
// the parsed DOM, authoritative for anchor-based insertion.
type Template struct {
	// Raw is the original markup text.
	Raw string
	// Marker is the full marker token as matched, empty if absent.
	Marker string
	// EntrySpec is the entry override captured from the marker, empty
	// if none was given.
	EntrySpec string
}

// ParseTemplate scans markup for a placeholder marker. Only the first
// marker is honored; at most one injection anchor exists per render.
func ParseTemplate(markup string) Template {
	t := Template{Raw: markup}

	m := markerPattern.FindStringSubmatch(markup)
	if m == nil {
		return t
	}
	t.Marker = m[0]
	t.EntrySpec = lastToken(m[1])
	return t
}

// lastToken trims the captured spec; when several tokens are
// concatenated the last non-empty one wins.
func lastToken(spec string) string {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// HasMarker reports whether a placeholder marker was found.
func (t Template) HasMarker() bool { return t.Marker != "" }

// Substitute replaces the marker token in the literal template text.
// This path bypasses DOM serialization entirely.
func (t Template) Substitute(value string) string {
	if t.Marker == "" {
		return t.Raw
	}
	return strings.Replace(t.Raw, t.Marker, value, 1)
}

// withAnchor returns the markup with the marker replaced by the
// temporary anchor element, ready for DOM parsing.
func (t Template) withAnchor() string {
	if t.Marker == "" {
		return t.Raw
	}
	return strings.Replace(t.Raw, t.Marker, "<"+anchorTag+"></"+anchorTag+">", 1)
}
