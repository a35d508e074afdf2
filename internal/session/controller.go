package session

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docshell/internal/blobstore"
	"docshell/internal/convert"
	"docshell/internal/doctype"
	"docshell/internal/logging"
	"docshell/internal/protocol"
	"docshell/internal/socket"
)

// State is the controller's document lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

const (
	defaultFileType        = "docx"
	defaultURLTitle        = "Document"
	newDocumentTitle       = "New Document"
	defaultSaveNotifyDelay = 100 * time.Millisecond
	keyLength              = 7
	keyAlphabet            = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Document is the editor configuration for the open document.
type Document struct {
	FileType string `json:"fileType"`
	Key      string `json:"key"`
	Title    string `json:"title"`
	URL      string `json:"url"`
}

// OpenOptions override what is inferred from the source.
type OpenOptions struct {
	FileType string
	FileName string
}

// Opened identifies a newly opened document.
type Opened struct {
	ID           string       `json:"id"`
	DocumentType doctype.Type `json:"documentType"`
}

type loadTask struct {
	gen  uint64
	done chan struct{}
	err  error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUser overrides the local editor identity.
func WithUser(id, name string) Option {
	return func(c *Controller) {
		if id = strings.TrimSpace(id); id != "" {
			c.user.ID = id
		}
		if name = strings.TrimSpace(name); name != "" {
			c.user.Name = name
		}
	}
}

// WithBuild sets the build metadata reported to the editor.
func WithBuild(version string, number int) Option {
	return func(c *Controller) {
		if version = strings.TrimSpace(version); version != "" {
			c.buildVersion = version
		}
		if number > 0 {
			c.buildNumber = number
		}
	}
}

// WithDownloader sets where exported documents go.
func WithDownloader(d Downloader) Option {
	return func(c *Controller) {
		c.downloader = d
	}
}

// WithFetcher sets the fetcher used by OpenURL.
func WithFetcher(f Fetcher) Option {
	return func(c *Controller) {
		if f != nil {
			c.fetcher = f
		}
	}
}

// WithSaveNotifyDelay sets the pause between a completed export and the save
// confirmation pushed to the editor.
func WithSaveNotifyDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.saveNotifyDelay = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns the open document and answers the editor.
type Controller struct {
	conv   convert.Converter
	logger *slog.Logger

	user            protocol.User
	sessionID       string
	buildVersion    string
	buildNumber     int
	downloader      Downloader
	fetcher         Fetcher
	saveNotifyDelay time.Duration
	now             func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	assets    *assetMap
	uploads   accumulator
	templates templateCache

	mu           sync.Mutex
	state        State
	gen          uint64
	key          string
	title        string
	fileType     string
	load         *loadTask
	sock         *socket.Socket
	unbind       func()
	participants []protocol.Participant
	syncIndex    int
}

// New returns a controller converting through conv and publishing assets in
// blobs.
func New(conv convert.Converter, blobs *blobstore.Store, opts ...Option) *Controller {
	if blobs == nil {
		blobs = blobstore.New("")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		conv:            conv,
		logger:          logging.NewNop(),
		user:            protocol.User{ID: "uid", Name: "Me"},
		sessionID:       uuid.NewString(),
		buildVersion:    protocol.DefaultBuildVersion,
		buildNumber:     protocol.DefaultBuildNumber,
		fetcher:         HTTPFetcher{},
		saveNotifyDelay: defaultSaveNotifyDelay,
		now:             time.Now,
		ctx:             ctx,
		cancel:          cancel,
		assets:          newAssetMap(blobs),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "session")
	return c
}

// Open reads src and starts converting it in the background. The returned
// id is usable immediately; Wait reports when the assets are published.
func (c *Controller) Open(ctx context.Context, src Source, opts OpenOptions) (Opened, error) {
	if src == nil {
		return Opened{}, Wrap(ErrSource, "session", "open", "nil source", nil)
	}
	data, err := src.Bytes(ctx)
	if err != nil {
		return Opened{}, err
	}
	title := doctype.Title(opts.FileName, src.Name())
	fileType := resolveFileType(opts.FileType, title)

	opened, task := c.begin(title, fileType)
	c.logger.Info("document opened",
		logging.String("document_key", opened.ID),
		logging.String("title", title),
		logging.String("file_type", fileType),
		logging.Int("size_bytes", len(data)),
	)
	go c.runLoad(task, fileType, func(context.Context) ([]byte, error) { return data, nil })
	return opened, nil
}

// OpenURL opens a remote document. The fetch happens inside the background
// load, so fetch failures surface as a failed load rather than an error here.
func (c *Controller) OpenURL(_ context.Context, rawURL string, opts OpenOptions) (Opened, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Opened{}, Wrap(ErrValidation, "session", "open url", "url is required", nil)
	}
	title := strings.TrimSpace(opts.FileName)
	if title == "" {
		title = titleFromURL(rawURL)
	}
	fileType := resolveFileType(opts.FileType, title)

	opened, task := c.begin(title, fileType)
	c.logger.Info("document opened from url",
		logging.String("document_key", opened.ID),
		logging.String("url", rawURL),
		logging.String("file_type", fileType),
	)
	fetcher := c.fetcher
	go c.runLoad(task, fileType, func(ctx context.Context) ([]byte, error) {
		return fetcher.Fetch(ctx, rawURL)
	})
	return opened, nil
}

// OpenNew opens a blank document of fileType. The family's template is
// encoded on first use (or earlier by PrepareTemplates), so the session is
// Ready on return.
func (c *Controller) OpenNew(fileType string) (Opened, error) {
	fileType = strings.ToLower(strings.TrimSpace(fileType))
	if fileType == "" {
		fileType = defaultFileType
	}
	family := doctype.Of(fileType)
	tmpl, err := c.blank(c.ctx, family)
	if err != nil {
		return Opened{}, err
	}

	c.mu.Lock()
	c.gen++
	c.key = newKey()
	c.title = newDocumentTitle
	c.fileType = fileType
	c.load = nil
	c.assets.replace(tmpl, nil)
	c.state = StateReady
	key := c.key
	c.mu.Unlock()

	c.logger.Info("blank document created",
		logging.String("document_key", key),
		logging.String("file_type", fileType),
	)
	return Opened{ID: key, DocumentType: family}, nil
}

// begin starts a new generation. Assets of the previous document are
// revoked before the new key becomes visible.
func (c *Controller) begin(title, fileType string) (Opened, *loadTask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.key = newKey()
	c.title = title
	c.fileType = fileType
	c.state = StateLoading
	c.assets.reset()
	task := &loadTask{gen: c.gen, done: make(chan struct{})}
	c.load = task
	return Opened{ID: c.key, DocumentType: doctype.Of(fileType)}, task
}

func (c *Controller) runLoad(task *loadTask, fileType string, fetch func(context.Context) ([]byte, error)) {
	defer close(task.done)
	task.err = c.loadDocument(task.gen, fileType, fetch)
	switch {
	case task.err == nil:
	case errors.Is(task.err, ErrSuperseded):
		c.logger.Info("stale load dropped", logging.Int64("generation", int64(task.gen)))
	default:
		logging.WarnWithContext(c.logger, "document load failed", "session.load_failed",
			logging.Int64("generation", int64(task.gen)),
			logging.String("file_type", fileType),
			logging.Error(task.err),
		)
	}
}

func (c *Controller) loadDocument(gen uint64, fileType string, fetch func(context.Context) ([]byte, error)) error {
	data, err := fetch(c.ctx)
	if err != nil {
		return c.finishLoad(gen, nil, nil, err)
	}

	if doctype.Of(fileType) == doctype.PDF {
		return c.finishLoad(gen, data, nil, nil)
	}

	res, err := c.conv.Convert(c.ctx, convert.Request{
		Data:     data,
		FileFrom: "doc." + fileType,
		FileTo:   protocol.PrimaryAsset,
	})
	if err == nil && res.Output == nil {
		err = Wrap(ErrConversionFailed, "session", "load", "doc."+fileType+" produced no output", nil)
	}
	if err != nil {
		return c.finishLoad(gen, nil, nil, err)
	}
	return c.finishLoad(gen, res.Output, res.Media, nil)
}

// finishLoad publishes a load result if gen is still current. A failed load
// leaves the session Ready with no primary asset.
func (c *Controller) finishLoad(gen uint64, primary []byte, media map[string][]byte, loadErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrSuperseded
	}
	c.state = StateReady
	if loadErr != nil {
		return loadErr
	}
	c.assets.replace(primary, media)
	c.logger.Info("document ready",
		logging.String("document_key", c.key),
		logging.Int("asset_count", len(media)+1),
	)
	return nil
}

// Wait blocks until the current load has finished and returns its error. A
// load superseded while waiting is followed to its successor.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		task := c.load
		c.mu.Unlock()
		if task == nil {
			return nil
		}
		select {
		case <-task.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if errors.Is(task.err, ErrSuperseded) {
			continue
		}
		return task.err
	}
}

// Document returns the editor configuration, creating a blank docx first
// when nothing is open.
func (c *Controller) Document() Document {
	if c.Key() == "" {
		if _, err := c.OpenNew(defaultFileType); err != nil {
			c.logger.Error("blank document creation failed", logging.Error(err))
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Document{
		FileType: c.fileType,
		Key:      c.key,
		Title:    c.title,
		URL:      "/" + c.key,
	}
}

// User returns the local editor identity.
func (c *Controller) User() protocol.User { return c.user }

// SessionID is the protocol session id, stable for the controller's life.
func (c *Controller) SessionID() string { return c.sessionID }

func (c *Controller) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

func (c *Controller) FileType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fileType
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Assets returns asset name → URL for the current document.
func (c *Controller) Assets() map[string]string {
	return c.assets.urls()
}

// Asset returns the bytes of one asset.
func (c *Controller) Asset(name string) ([]byte, bool) {
	return c.assets.get(name)
}

// Close abandons in-flight loads, unbinds the socket and revokes every
// asset URL.
func (c *Controller) Close() {
	c.cancel()
	c.mu.Lock()
	if c.unbind != nil {
		c.unbind()
		c.unbind = nil
	}
	c.sock = nil
	c.gen++
	c.assets.reset()
	c.mu.Unlock()
}

func resolveFileType(override, title string) string {
	if ft := strings.ToLower(strings.TrimSpace(override)); ft != "" {
		return strings.TrimPrefix(ft, ".")
	}
	if ft := doctype.FileExt(title); ft != "" {
		return ft
	}
	return defaultFileType
}

func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultURLTitle
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return defaultURLTitle
	}
	return name
}

func newKey() string {
	var b strings.Builder
	b.Grow(keyLength)
	for range keyLength {
		b.WriteByte(keyAlphabet[rand.IntN(len(keyAlphabet))])
	}
	return b.String()
}
