package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name      string
		markup    string
		marker    string
		entrySpec string
	}{
		{
			name:   "no marker",
			markup: "<html><body></body></html>",
		},
		{
			name:   "plain marker",
			markup: "<div>{{prerender}}</div>",
			marker: "{{prerender}}",
		},
		{
			name:      "marker with entry spec",
			markup:    "<div>{{prerender: ./src/entry.js}}</div>",
			marker:    "{{prerender: ./src/entry.js}}",
			entrySpec: "./src/entry.js",
		},
		{
			name:      "spec without space",
			markup:    "<div>{{prerender:app.js}}</div>",
			marker:    "{{prerender:app.js}}",
			entrySpec: "app.js",
		},
		{
			name:      "last token of a multi-token spec wins",
			markup:    "<div>{{prerender: old.js new.js}}</div>",
			marker:    "{{prerender: old.js new.js}}",
			entrySpec: "new.js",
		},
		{
			name:   "only the first marker is honored",
			markup: "<div>{{prerender}}</div><div>{{prerender: other.js}}</div>",
			marker: "{{prerender}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := ParseTemplate(tt.markup)
			assert.Equal(t, tt.markup, tmpl.Raw)
			assert.Equal(t, tt.marker, tmpl.Marker)
			assert.Equal(t, tt.entrySpec, tmpl.EntrySpec)
			assert.Equal(t, tt.marker != "", tmpl.HasMarker())
		})
	}
}

func TestTemplateSubstitute(t *testing.T) {
	tmpl := ParseTemplate("<div>{{prerender}}</div>")
	assert.Equal(t, "<div><p>Hi</p></div>", tmpl.Substitute("<p>Hi</p>"))
	assert.Equal(t, "<div></div>", tmpl.Substitute(""))
}

func TestTemplateSubstituteNoMarker(t *testing.T) {
	tmpl := ParseTemplate("<div>static</div>")
	assert.Equal(t, "<div>static</div>", tmpl.Substitute("ignored"))
}

func TestTemplateSubstituteFirstOccurrenceOnly(t *testing.T) {
	tmpl := ParseTemplate("<a>{{prerender}}</a><b>{{prerender}}</b>")
	assert.Equal(t, "<a>X</a><b>{{prerender}}</b>", tmpl.Substitute("X"))
}

func TestTemplateWithAnchor(t *testing.T) {
	tmpl := ParseTemplate("<body>{{prerender: e.js}}</body>")
	assert.Equal(t, "<body><prerender-anchor></prerender-anchor></body>", tmpl.withAnchor())

	plain := ParseTemplate("<body></body>")
	assert.Equal(t, "<body></body>", plain.withAnchor())
}
