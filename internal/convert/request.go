package convert

import (
	"maps"
	"path"
	"slices"
	"strings"
)

// Request is one conversion job. FileFrom and FileTo are virtual file names
// whose extensions select the formats, e.g. "doc.docx" and "Editor.bin".
type Request struct {
	Data     []byte
	FileFrom string
	FileTo   string
	// FormatTo overrides the destination encoding when the extension alone
	// is ambiguous. Zero means unset.
	FormatTo int
	Media    map[string][]byte
	Fonts    map[string][]byte
	Themes   map[string][]byte
}

// Result holds the converter output. Output is nil when the converter did not
// produce the destination file.
type Result struct {
	Output []byte
	Media  map[string][]byte
}

func (r Request) clone() Request {
	r.Data = cloneBytes(r.Data)
	r.Media = cloneAssets(r.Media)
	r.Fonts = cloneAssets(r.Fonts)
	r.Themes = cloneAssets(r.Themes)
	return r
}

// passthrough reports whether source and destination share a format, in
// which case the converter is skipped and the input is returned as is.
func (r Request) passthrough() bool {
	from := strings.ToLower(path.Ext(r.FileFrom))
	to := strings.ToLower(path.Ext(r.FileTo))
	return from != "" && from == to && r.FormatTo == 0
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneAssets(in map[string][]byte) map[string][]byte {
	if in == nil {
		return nil
	}
	out := make(map[string][]byte, len(in))
	for name, data := range in {
		out[name] = cloneBytes(data)
	}
	return out
}

// MediaNames returns the sorted media names in the result.
func (r Result) MediaNames() []string {
	return slices.Sorted(maps.Keys(r.Media))
}
