package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"docshell/internal/convert"
	"docshell/internal/doctype"
	"docshell/internal/intercept"
	"docshell/internal/logging"
	"docshell/internal/protocol"
)

// downloadCommand is the JSON carried in the downloadas "cmd" query
// parameter.
type downloadCommand struct {
	Title        string             `json:"title"`
	OutputFormat *int               `json:"outputformat"`
	Format       string             `json:"format"`
	SaveType     *protocol.SaveType `json:"savetype"`
}

type saveResponse struct {
	Status string `json:"status"`
	Type   string `json:"type"`
	Data   string `json:"data"`
}

// HandleRequest serves the editor's download-as and upload endpoints for
// the current document and declines everything else. Both endpoints are
// POST only.
func (c *Controller) HandleRequest(ctx context.Context, req *intercept.Request) (*intercept.Response, error) {
	key := c.Key()
	if key == "" || req.Method != http.MethodPost {
		return nil, nil
	}
	p := req.Path()
	switch {
	case strings.HasSuffix(p, "/downloadas/"+key):
		return c.downloadAs(ctx, req)
	case strings.HasSuffix(p, "/upload/"+key):
		return c.upload(req)
	default:
		return nil, nil
	}
}

func (c *Controller) downloadAs(ctx context.Context, req *intercept.Request) (*intercept.Response, error) {
	var cmd downloadCommand
	if raw := req.Query("cmd"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
			return nil, Wrap(ErrValidation, "session", "download as", "decode cmd", err)
		}
	}
	if cmd.SaveType == nil {
		return nil, Wrap(ErrValidation, "session", "download as", "missing savetype", nil)
	}

	var (
		id   string
		data []byte
	)
	switch st := *cmd.SaveType; st {
	case protocol.SavePartStart:
		id = c.uploads.start(req.Body)
	case protocol.SavePart:
		c.uploads.add(req.Body)
		id, _ = c.uploads.current()
	case protocol.SaveComplete:
		c.uploads.add(req.Body)
		id, data = c.uploads.finish()
	case protocol.SaveCompleteAll:
		c.uploads.start(req.Body)
		id, data = c.uploads.finish()
	default:
		return nil, Wrap(ErrValidation, "session", "download as", fmt.Sprintf("unknown savetype %d", st), nil)
	}

	if cmd.SaveType.Terminal() {
		c.export(ctx, cmd, data)
	}
	return intercept.JSON(http.StatusOK, saveResponse{Status: "ok", Type: "save", Data: id})
}

// export converts the reassembled editor binary and hands the result to the
// downloader. Failures are logged only; the editor always gets its ack.
func (c *Controller) export(ctx context.Context, cmd downloadCommand, data []byte) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		title = c.Title()
	}
	ext := doctype.FileExt(title)
	if ext == "" {
		ext = c.FileType()
	}
	fileFrom := "from.bin"
	if cmd.Format == "pdf" {
		fileFrom = "from.pdf"
	}
	formatTo := 0
	switch {
	case cmd.OutputFormat != nil:
		formatTo = *cmd.OutputFormat
	case ext == "pdf":
		formatTo = protocol.FormatPDF
	}

	logger := c.logger.With(
		logging.String("title", title),
		logging.String("file_from", fileFrom),
		logging.String("file_to", "doc."+ext),
	)
	res, err := c.conv.Convert(ctx, convert.Request{
		Data:     data,
		FileFrom: fileFrom,
		FileTo:   "doc." + ext,
		FormatTo: formatTo,
		Media:    c.assets.media(),
	})
	if err != nil {
		logging.WarnWithContext(logger, "export failed", "session.export_failed", logging.Error(err))
		return
	}
	out := res.Output
	if out == nil && cmd.Format == "pdf" {
		out = data
	}
	if out == nil {
		logging.WarnWithContext(logger, "export produced no output", "session.export_failed",
			logging.Error(ErrConversionFailed),
		)
		return
	}

	if c.downloader == nil {
		logger.Warn("no downloader configured, export discarded")
		return
	}
	saved, err := c.downloader.Download(ctx, title, out)
	if err != nil {
		logging.WarnWithContext(logger, "export delivery failed", "session.download_failed", logging.Error(err))
		return
	}
	logger.Info("document exported",
		logging.String("path", saved),
		logging.Int("size_bytes", len(out)),
	)

	time.AfterFunc(c.saveNotifyDelay, func() {
		c.send(protocol.DocumentOpen{Data: protocol.DocumentStatus{
			Type:     "save",
			Status:   "ok",
			Data:     "data:,",
			FileType: ext,
		}})
	})
}

// upload stores an image pasted or inserted in the editor as a media asset.
// Uploads within the same millisecond get a numeric suffix.
func (c *Controller) upload(req *intercept.Request) (*intercept.Response, error) {
	stem := protocol.MediaPrefix + strconv.FormatInt(c.now().UnixMilli(), 10)
	name, url := c.assets.add(stem, ".png", req.Body, "image/png")
	c.logger.Debug("media uploaded",
		logging.String("asset", name),
		logging.Int("size_bytes", len(req.Body)),
	)
	return intercept.JSON(http.StatusOK, map[string]string{name: url})
}
