package session

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"sync"

	"docshell/internal/convert"
	"docshell/internal/doctype"
	"docshell/internal/logging"
	"docshell/internal/protocol"
)

//go:embed templates/*
var templateFS embed.FS

var templateFiles = map[doctype.Type]string{
	doctype.Word:  "templates/blank.docx",
	doctype.Cell:  "templates/blank.xlsx",
	doctype.Slide: "templates/blank.pptx",
	doctype.PDF:   "templates/empty.pdf",
}

// Template returns the blank source document for a family and its
// extension. Office families are OOXML and must be converted before the
// editor can load them; PDF is served as is.
func Template(t doctype.Type) ([]byte, string, error) {
	name, ok := templateFiles[t]
	if !ok {
		return nil, "", Wrap(ErrNoTemplate, "session", "template", fmt.Sprintf("family %q", t), nil)
	}
	data, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, "", Wrap(ErrNoTemplate, "session", "template", name, err)
	}
	return data, path.Ext(name)[1:], nil
}

// templateCache holds each family's blank document in the editor's binary
// form. Entries are filled at most once per family; concurrent callers for
// a cold family wait on the same conversion.
type templateCache struct {
	mu      sync.Mutex
	entries map[doctype.Type]*templateEntry
}

type templateEntry struct {
	once sync.Once
	data []byte
	err  error
}

func (tc *templateCache) entry(t doctype.Type) *templateEntry {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.entries == nil {
		tc.entries = make(map[doctype.Type]*templateEntry)
	}
	e, ok := tc.entries[t]
	if !ok {
		e = &templateEntry{}
		tc.entries[t] = e
	}
	return e
}

// forget drops a failed entry so the next caller retries.
func (tc *templateCache) forget(t doctype.Type, e *templateEntry) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.entries[t] == e {
		delete(tc.entries, t)
	}
}

// blank returns the encoded blank document for a family, converting the
// embedded source on first use.
func (c *Controller) blank(ctx context.Context, t doctype.Type) ([]byte, error) {
	e := c.templates.entry(t)
	e.once.Do(func() {
		e.data, e.err = c.encodeTemplate(ctx, t)
	})
	if e.err != nil {
		c.templates.forget(t, e)
		return nil, e.err
	}
	return e.data, nil
}

func (c *Controller) encodeTemplate(ctx context.Context, t doctype.Type) ([]byte, error) {
	src, ext, err := Template(t)
	if err != nil {
		return nil, err
	}
	if t == doctype.PDF {
		return src, nil
	}
	res, err := c.conv.Convert(ctx, convert.Request{
		Data:     src,
		FileFrom: "doc." + ext,
		FileTo:   protocol.PrimaryAsset,
	})
	if err != nil {
		return nil, Wrap(ErrConversionFailed, "session", "template", "blank "+ext, err)
	}
	if res.Output == nil {
		return nil, Wrap(ErrConversionFailed, "session", "template", "blank "+ext+" produced no output", nil)
	}
	c.logger.Debug("blank template encoded",
		logging.String("document_type", string(t)),
		logging.Int("size_bytes", len(res.Output)),
	)
	return res.Output, nil
}

// PrepareTemplates encodes every family's blank document so later OpenNew
// calls publish without waiting on the converter. Failures are returned
// joined; families that succeeded stay cached.
func (c *Controller) PrepareTemplates(ctx context.Context) error {
	var errs []error
	for _, t := range []doctype.Type{doctype.Word, doctype.Cell, doctype.Slide, doctype.PDF} {
		if _, err := c.blank(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
