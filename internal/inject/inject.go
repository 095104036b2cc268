// Package inject merges the resolved value into the render output: an
// HTML-fragment insertion at the template's injection anchor, a
// literal marker substitution in the original template text, or a
// whole-document serialization of the sandbox DOM.
//
// Path choice is a three-way decision over the inputs, not a temporal
// state machine. An explicitly supplied template wins when a resolved
// value exists, because the template-derived sandbox document already
// reflects direct DOM mutation performed during execution and
// inserting there keeps both forms of output consistent. Literal-text
// substitution is authoritative only on the placeholder path, where no
// explicit template was given.
package inject

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/bytedance/sonic"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/prerender/internal/resolve"
	"github.com/GriffinCanCode/prerender/internal/sandbox"
)

// doctypePattern detects a leading doctype declaration anywhere a line
// starts, case-insensitively.
var doctypePattern = regexp.MustCompile(`(?im)^<!doctype `)

// Input carries everything the merge decision consumes.
type Input struct {
	// Template is the explicitly supplied template, nil when none was
	// given.
	Template *sandbox.Template
	// Source is the marker-bearing source template backing the inject
	// flag, nil for script sources.
	Source *sandbox.Template
	// Document is the sandbox DOM after execution.
	Document *html.Node
	// Anchor is the recorded injection anchor, nil if no marker was
	// located in the parsed template.
	Anchor *sandbox.Anchor
	// Value is the resolver output.
	Value resolve.Result
	// Inject is set only when the original source was non-script
	// markup and a placeholder marker was found.
	Inject bool
}

// Merge picks and runs one of the three output paths.
func Merge(in Input) (string, error) {
	switch {
	case in.Value.Defined && in.Template != nil:
		// Explicit-value path: fragment insertion into the parsed
		// template, then serialization. Takes precedence over the
		// inject flag.
		if err := insertFragment(in.Document, in.Anchor, in.Value.Text); err != nil {
			return "", err
		}
		return serialize(in.Document)

	case in.Inject:
		// Marker-substitution path: textual replacement in the
		// original template, bypassing DOM serialization entirely.
		text := ""
		if in.Value.Defined {
			text = in.Value.Text
		}
		return in.Source.Substitute(text), nil

	default:
		// Whole-document path.
		return serialize(in.Document)
	}
}

// insertFragment parses markup as an HTML fragment and inserts its
// nodes at the anchor (before the recorded next sibling), or at the
// document body's end when no anchor was recorded.
func insertFragment(doc *html.Node, anchor *sandbox.Anchor, markup string) error {
	parent := htmlquery.FindOne(doc, "//body")
	var before *html.Node
	if anchor != nil {
		parent = anchor.Parent
		before = anchor.NextSibling
	}
	if parent == nil {
		return fmt.Errorf("template document has no body to inject into")
	}

	context := parent
	if context.Type != html.ElementNode {
		context = htmlquery.FindOne(doc, "//body")
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return fmt.Errorf("failed to parse resolved value as HTML fragment: %w", err)
	}
	for _, n := range nodes {
		parent.InsertBefore(n, before)
	}
	return nil
}

// serialize renders the document and guarantees a leading doctype.
func serialize(doc *html.Node) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", fmt.Errorf("failed to serialize document: %w", err)
	}
	return EnsureDoctype(sb.String()), nil
}

// EnsureDoctype prefixes a doctype declaration unless one is already
// present, so serializing a document that began with one never
// duplicates it.
func EnsureDoctype(markup string) string {
	if doctypePattern.MatchString(markup) {
		return markup
	}
	return "<!DOCTYPE html>" + markup
}

// WrapStringModule wraps output as a module exporting the string as a
// JSON-encoded literal, for string-output mode.
func WrapStringModule(output string) (string, error) {
	encoded, err := sonic.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("failed to encode string module: %w", err)
	}
	return "module.exports = " + string(encoded) + ";", nil
}
