package doctype

import (
	"path"
	"strings"
)

// Type is a document family name as understood by the editor.
type Type string

const (
	Word  Type = "word"
	Cell  Type = "cell"
	Slide Type = "slide"
	Draw  Type = "draw"
	PDF   Type = "pdf"
)

// AppType is the numeric application code for a family.
type AppType int

const (
	AppWord  AppType = 1
	AppCell  AppType = 2
	AppSlide AppType = 3
	AppDraw  AppType = 4
	AppPDF   AppType = 5
)

var extensions = map[string]Type{
	// word processing
	"docx": Word, "doc": Word, "odt": Word, "rtf": Word, "txt": Word,
	"html": Word, "mht": Word, "epub": Word, "fb2": Word, "mobi": Word,
	"docm": Word, "dotx": Word, "dotm": Word, "oform": Word, "docxf": Word,

	// presentation
	"pptx": Slide, "ppt": Slide, "odp": Slide, "ppsx": Slide, "pptm": Slide,
	"ppsm": Slide, "potx": Slide, "potm": Slide, "otp": Slide, "odg": Slide,

	// spreadsheet
	"xlsx": Cell, "xls": Cell, "ods": Cell, "csv": Cell, "xlsm": Cell,
	"xltx": Cell, "xltm": Cell, "xlsb": Cell, "ots": Cell,

	// diagrams
	"vsdx": Draw, "vssx": Draw, "vstx": Draw, "vsdm": Draw, "vssm": Draw,
	"vstm": Draw,

	"pdf": PDF,
}

// Ext returns the lowercased extension of name without the leading dot. A
// name without a dot is treated as a bare extension, so Ext("xlsx") is
// "xlsx".
func Ext(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.ToLower(name)
}

// FileExt returns the lowercased extension of a file name, or "" when the
// name has none.
func FileExt(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	ext := path.Ext(path.Base(name))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Of returns the family for an extension or filename. Unknown values map to
// Word.
func Of(extOrName string) Type {
	if t, ok := extensions[Ext(extOrName)]; ok {
		return t
	}
	return Word
}

// Known reports whether the extension belongs to a supported family.
func Known(extOrName string) bool {
	_, ok := extensions[Ext(extOrName)]
	return ok
}

// AppType returns the numeric application code for the family.
func (t Type) AppType() AppType {
	switch t {
	case Cell:
		return AppCell
	case Slide:
		return AppSlide
	case Draw:
		return AppDraw
	case PDF:
		return AppPDF
	default:
		return AppWord
	}
}

// DefaultExt is the extension a blank document of the family is created with.
func (t Type) DefaultExt() string {
	switch t {
	case Cell:
		return "xlsx"
	case Slide:
		return "pptx"
	case Draw:
		return "vsdx"
	case PDF:
		return "pdf"
	default:
		return "docx"
	}
}

// Title returns the display title for a file: the explicit override when set,
// otherwise the base name of the path.
func Title(override, name string) string {
	if t := strings.TrimSpace(override); t != "" {
		return t
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}
