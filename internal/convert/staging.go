package convert

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	mediaDir   = "media"
	fontsDir   = "fonts"
	themesDir  = "themes"
	paramsFile = "params.xml"
)

// Workspace is the private directory a single conversion runs in. Dir is the
// host path; Root is the same directory as the converter sees it.
type Workspace struct {
	Dir      string
	Root     string
	FileFrom string
	FileTo   string
}

// Path returns the converter-visible path of a workspace entry.
func (w Workspace) Path(name string) string {
	if w.Root == "" || w.Root == w.Dir {
		return filepath.Join(w.Dir, name)
	}
	return path.Join(w.Root, name)
}

// ParamsPath is the converter-visible location of params.xml.
func (w Workspace) ParamsPath() string {
	return w.Path(paramsFile)
}

func (w Workspace) hostPath(name string) string {
	return filepath.Join(w.Dir, filepath.FromSlash(name))
}

type taskParams struct {
	XMLName    xml.Name `xml:"TaskQueueDataConvert"`
	XSI        string   `xml:"xmlns:xsi,attr"`
	XSD        string   `xml:"xmlns:xsd,attr"`
	FileFrom   string   `xml:"m_sFileFrom"`
	ThemeDir   string   `xml:"m_sThemeDir"`
	FileTo     string   `xml:"m_sFileTo"`
	FormatTo   int      `xml:"m_nFormatTo,omitempty"`
	IsNoBase64 bool     `xml:"m_bIsNoBase64"`
	FontDir    string   `xml:"m_sFontDir"`
}

// stage creates a workspace under parent holding the input document, the
// auxiliary asset folders and params.xml. root maps the host directory to the
// converter's view of it.
func stage(parent string, root func(string) string, req Request) (Workspace, error) {
	dir, err := os.MkdirTemp(parent, "x2t-")
	if err != nil {
		return Workspace{}, fmt.Errorf("create workspace: %w", err)
	}
	ws := Workspace{
		Dir:      dir,
		Root:     root(dir),
		FileFrom: stagedName(req.FileFrom, "doc.bin"),
		FileTo:   stagedName(req.FileTo, "Editor.bin"),
	}
	if ws.FileFrom == ws.FileTo {
		ws.FileFrom = "from." + strings.TrimPrefix(path.Ext(ws.FileFrom), ".")
	}

	fail := func(err error) (Workspace, error) {
		ws.cleanup()
		return Workspace{}, err
	}
	if err := os.WriteFile(ws.hostPath(ws.FileFrom), req.Data, 0o600); err != nil {
		return fail(fmt.Errorf("write input: %w", err))
	}
	for sub, assets := range map[string]map[string][]byte{
		mediaDir:  req.Media,
		fontsDir:  req.Fonts,
		themesDir: req.Themes,
	} {
		if err := writeAssets(ws.hostPath(sub), assets); err != nil {
			return fail(fmt.Errorf("write %s: %w", sub, err))
		}
	}

	params, err := encodeParams(ws, req.FormatTo)
	if err != nil {
		return fail(err)
	}
	if err := os.WriteFile(ws.hostPath(paramsFile), params, 0o600); err != nil {
		return fail(fmt.Errorf("write params: %w", err))
	}
	return ws, nil
}

func encodeParams(ws Workspace, formatTo int) ([]byte, error) {
	params := taskParams{
		XSI:      "http://www.w3.org/2001/XMLSchema-instance",
		XSD:      "http://www.w3.org/2001/XMLSchema",
		FileFrom: ws.Path(ws.FileFrom),
		ThemeDir: ws.Path(themesDir),
		FileTo:   ws.Path(ws.FileTo),
		FormatTo: formatTo,
		FontDir:  ws.Path(fontsDir) + "/",
	}
	body, err := xml.MarshalIndent(params, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func writeAssets(dir string, assets map[string][]byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	for name, data := range assets {
		base := assetName(name)
		if base == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, base), data, 0o600); err != nil {
			return err
		}
	}
	return nil
}

// collect reads the destination file and the media folder after a run.
func (w Workspace) collect() (Result, error) {
	res := Result{Media: map[string][]byte{}}
	out, err := os.ReadFile(w.hostPath(w.FileTo))
	switch {
	case err == nil:
		res.Output = out
	case errors.Is(err, os.ErrNotExist):
	default:
		return Result{}, fmt.Errorf("read output: %w", err)
	}

	entries, err := os.ReadDir(w.hostPath(mediaDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return res, fmt.Errorf("read media: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(w.hostPath(mediaDir), entry.Name()))
		if err != nil {
			return res, fmt.Errorf("read media %s: %w", entry.Name(), err)
		}
		res.Media[entry.Name()] = data
	}
	return res, nil
}

func (w Workspace) cleanup() {
	if w.Dir != "" {
		_ = os.RemoveAll(w.Dir)
	}
}

func stagedName(name, fallback string) string {
	if base := assetName(name); base != "" {
		return base
	}
	return fallback
}

// assetName reduces a caller supplied name to a single safe path element.
func assetName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." || base == "" {
		return ""
	}
	return base
}
