package session

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"docshell/internal/blobstore"
	"docshell/internal/convert"
	"docshell/internal/doctype"
)

func TestTemplatesAreOfficeDocuments(t *testing.T) {
	tests := []struct {
		family doctype.Type
		ext    string
		part   string
	}{
		{family: doctype.Word, ext: "docx", part: "word/document.xml"},
		{family: doctype.Cell, ext: "xlsx", part: "xl/worksheets/sheet1.xml"},
		{family: doctype.Slide, ext: "pptx", part: "ppt/slides/slide1.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			data, ext, err := Template(tt.family)
			if err != nil {
				t.Fatalf("Template: %v", err)
			}
			if ext != tt.ext {
				t.Fatalf("ext = %q, want %q", ext, tt.ext)
			}
			zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatalf("template is not a zip package: %v", err)
			}
			found := map[string]bool{}
			for _, f := range zr.File {
				found[f.Name] = true
			}
			for _, name := range []string{"[Content_Types].xml", "_rels/.rels", tt.part} {
				if !found[name] {
					t.Fatalf("template missing %s", name)
				}
			}
		})
	}

	pdf, ext, err := Template(doctype.PDF)
	if err != nil || ext != "pdf" || !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("pdf template = %q %q %v", pdf[:min(len(pdf), 8)], ext, err)
	}
}

func TestOpenNewEncodesTemplateOnce(t *testing.T) {
	conv := &fakeConverter{}
	blobs := blobstore.New("")
	ctrl := New(conv, blobs)
	t.Cleanup(ctrl.Close)

	for range 2 {
		if _, err := ctrl.OpenNew("xlsx"); err != nil {
			t.Fatalf("OpenNew: %v", err)
		}
	}
	reqs := conv.requests()
	if len(reqs) != 1 {
		t.Fatalf("converter calls = %d, want 1", len(reqs))
	}
	src, _, _ := Template(doctype.Cell)
	if reqs[0].FileFrom != "doc.xlsx" || reqs[0].FileTo != "Editor.bin" || !bytes.Equal(reqs[0].Data, src) {
		t.Fatalf("unexpected template conversion %s -> %s (%d bytes)", reqs[0].FileFrom, reqs[0].FileTo, len(reqs[0].Data))
	}
	assets := ctrl.Assets()
	if len(assets) != 1 {
		t.Fatalf("assets = %v, want exactly Editor.bin", assets)
	}
	if got, err := blobs.Resolve(assets["Editor.bin"]); err != nil || string(got) != "converted:Editor.bin" {
		t.Fatalf("Editor.bin = %q (%v)", got, err)
	}

	if _, err := ctrl.OpenNew("pdf"); err != nil {
		t.Fatalf("OpenNew(pdf): %v", err)
	}
	if len(conv.requests()) != 1 {
		t.Fatal("pdf template must not be converted")
	}
	pdf, _, _ := Template(doctype.PDF)
	if got, _ := ctrl.Asset("Editor.bin"); !bytes.Equal(got, pdf) {
		t.Fatalf("Editor.bin = %q, want the pdf template", got)
	}
}

func TestOpenNewRetriesFailedTemplate(t *testing.T) {
	conv := &fakeConverter{}
	conv.setFn(func(convert.Request) (convert.Result, error) {
		return convert.Result{}, errors.New("engine down")
	})
	ctrl := New(conv, blobstore.New(""))
	t.Cleanup(ctrl.Close)

	if _, err := ctrl.OpenNew("docx"); !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("OpenNew error = %v, want ErrConversionFailed", err)
	}
	if ctrl.Key() != "" || len(ctrl.Assets()) != 0 {
		t.Fatal("failed blank document must leave the session untouched")
	}

	conv.setFn(nil)
	if _, err := ctrl.OpenNew("docx"); err != nil {
		t.Fatalf("OpenNew after recovery: %v", err)
	}
	if len(conv.requests()) != 2 {
		t.Fatalf("converter calls = %d, want a retry", len(conv.requests()))
	}
}

func TestPrepareTemplatesCoversEveryFamily(t *testing.T) {
	conv := &fakeConverter{}
	ctrl := New(conv, blobstore.New(""))
	t.Cleanup(ctrl.Close)

	if err := ctrl.PrepareTemplates(t.Context()); err != nil {
		t.Fatalf("PrepareTemplates: %v", err)
	}
	got := map[string]bool{}
	for _, req := range conv.requests() {
		got[req.FileFrom] = true
	}
	if len(got) != 3 || !got["doc.docx"] || !got["doc.xlsx"] || !got["doc.pptx"] {
		t.Fatalf("converted %v, want the three office templates", got)
	}
	for _, ft := range []string{"docx", "xlsx", "pptx", "pdf"} {
		if _, err := ctrl.OpenNew(ft); err != nil {
			t.Fatalf("OpenNew(%s): %v", ft, err)
		}
	}
	if len(conv.requests()) != 3 {
		t.Fatalf("converter calls = %d after prepare, want 3", len(conv.requests()))
	}
}
