package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAssetDir(t *testing.T) {
	if assets, err := LoadAssetDir(" "); err != nil || assets != nil {
		t.Fatalf("empty dir = %v, %v", assets, err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Arial.ttf"), []byte("font"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	assets, err := LoadAssetDir(dir)
	if err != nil {
		t.Fatalf("LoadAssetDir: %v", err)
	}
	if len(assets) != 1 || string(assets["Arial.ttf"]) != "font" {
		t.Fatalf("assets = %v", assets)
	}

	if _, err := LoadAssetDir(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestSharedAssetsAreStaged(t *testing.T) {
	backend := &fakeBackend{}
	seen := map[string]string{}
	backend.setRun(func(ws Workspace) error {
		for _, rel := range []string{"fonts/Arial.ttf", "themes/office.js"} {
			data, err := os.ReadFile(filepath.Join(ws.Dir, rel))
			if err == nil {
				seen[rel] = string(data)
			}
		}
		return writeOutput(ws, "ok")
	})
	engine := NewEngine(backend,
		WithTempDir(t.TempDir()),
		WithSharedAssets(
			map[string][]byte{"Arial.ttf": []byte("font")},
			map[string][]byte{"office.js": []byte("theme")},
		),
	)

	if _, err := engine.Convert(context.Background(), Request{Data: []byte("x"), FileFrom: "doc.docx", FileTo: "Editor.bin"}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if seen["fonts/Arial.ttf"] != "font" || seen["themes/office.js"] != "theme" {
		t.Fatalf("staged assets = %v", seen)
	}

	clear(seen)
	if _, err := engine.Convert(context.Background(), Request{
		Data:     []byte("x"),
		FileFrom: "doc.docx",
		FileTo:   "Editor.bin",
		Fonts:    map[string][]byte{"Other.ttf": []byte("o")},
	}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if _, ok := seen["fonts/Arial.ttf"]; ok {
		t.Fatal("request fonts should replace the shared set")
	}
	if seen["themes/office.js"] != "theme" {
		t.Fatalf("shared themes missing: %v", seen)
	}
}
