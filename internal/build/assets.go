package build

import (
	"sort"
	"strings"
)

// AssetSet maps asset filenames to compiled source text. One filename
// is the designated main bundle. Downstream components only read it.
type AssetSet struct {
	files map[string]string
	main  string
}

// NewAssetSet builds an AssetSet from output filenames to source text.
// The main bundle is preferName when present, otherwise the first .js
// output in sorted order.
func NewAssetSet(files map[string]string, preferName string) *AssetSet {
	set := &AssetSet{files: files}

	if _, ok := files[preferName]; ok {
		set.main = preferName
		return set
	}

	names := make([]string, 0, len(files))
	for name := range files {
		if strings.HasSuffix(name, ".js") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) > 0 {
		set.main = names[0]
	}
	return set
}

// Source returns the source text for an asset filename.
func (a *AssetSet) Source(name string) (string, bool) {
	src, ok := a.files[name]
	return src, ok
}

// Main returns the filename of the main bundle.
func (a *AssetSet) Main() string { return a.main }

// MainSource returns the main bundle's source text.
func (a *AssetSet) MainSource() string { return a.files[a.main] }

// Names returns all asset filenames in sorted order.
func (a *AssetSet) Names() []string {
	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of assets.
func (a *AssetSet) Len() int { return len(a.files) }
