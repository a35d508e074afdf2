package convert

import (
	"strings"
	"testing"
)

func TestEncodeParamsFormatOverride(t *testing.T) {
	ws := Workspace{Dir: "/host/x2t-1", Root: wasmRoot, FileFrom: "from.bin", FileTo: "doc.pdf"}

	withFormat, err := encodeParams(ws, 513)
	if err != nil {
		t.Fatalf("encodeParams: %v", err)
	}
	for _, want := range []string{
		"<m_sFileFrom>/working/from.bin</m_sFileFrom>",
		"<m_sFileTo>/working/doc.pdf</m_sFileTo>",
		"<m_sThemeDir>/working/themes</m_sThemeDir>",
		"<m_sFontDir>/working/fonts/</m_sFontDir>",
		"<m_nFormatTo>513</m_nFormatTo>",
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`,
	} {
		if !strings.Contains(string(withFormat), want) {
			t.Errorf("params missing %q:\n%s", want, withFormat)
		}
	}

	without, err := encodeParams(ws, 0)
	if err != nil {
		t.Fatalf("encodeParams: %v", err)
	}
	if strings.Contains(string(without), "m_nFormatTo") {
		t.Fatalf("unexpected format override:\n%s", without)
	}
}

func TestEncodeParamsEscapesNames(t *testing.T) {
	ws := Workspace{Dir: "/tmp/a&b", FileFrom: "doc<1>.docx", FileTo: "Editor.bin"}
	out, err := encodeParams(ws, 0)
	if err != nil {
		t.Fatalf("encodeParams: %v", err)
	}
	if strings.Contains(string(out), "doc<1>") || !strings.Contains(string(out), "a&amp;b") {
		t.Fatalf("names not escaped:\n%s", out)
	}
}

func TestAssetName(t *testing.T) {
	tests := map[string]string{
		"image1.png":       "image1.png",
		"media/image1.png": "image1.png",
		"../../etc/passwd": "passwd",
		`..\evil.png`:      "evil.png",
		"..":               "",
		"":                 "",
		"/":                "",
	}
	for in, want := range tests {
		if got := assetName(in); got != want {
			t.Errorf("assetName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPassthroughDetection(t *testing.T) {
	tests := []struct {
		req  Request
		want bool
	}{
		{Request{FileFrom: "doc.pdf", FileTo: "doc.pdf"}, true},
		{Request{FileFrom: "from.pdf", FileTo: "doc.PDF"}, true},
		{Request{FileFrom: "from.bin", FileTo: "doc.pdf"}, false},
		{Request{FileFrom: "from.pdf", FileTo: "doc.pdf", FormatTo: 513}, false},
		{Request{FileFrom: "doc", FileTo: "doc"}, false},
	}
	for _, tt := range tests {
		if got := tt.req.passthrough(); got != tt.want {
			t.Errorf("passthrough(%s -> %s, %d) = %v, want %v", tt.req.FileFrom, tt.req.FileTo, tt.req.FormatTo, got, tt.want)
		}
	}
}
