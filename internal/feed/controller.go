package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/push"
)

const defaultFetchTimeout = 30 * time.Second

// Backend is the REST surface the controller consumes.
type Backend interface {
	List(ctx context.Context, limit, skip int) ([]capture.Record, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
}

// View is the state handed to a Presenter after every change.
type View struct {
	Records []capture.Record
	HasMore bool
	Loading bool
	Total   int
}

// Presenter draws the current record set.
type Presenter interface {
	Render(View)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(View)

// Render calls f(v).
func (f PresenterFunc) Render(v View) { f(v) }

// NoticeKind classifies a user-facing notice.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeNewRequest
	NoticeError
)

// Notice is a transient message for the user.
type Notice struct {
	Kind NoticeKind
	Text string
	Err  error
	At   time.Time
}

// Notifier surfaces notices.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Recorder receives every successfully fetched page.
type Recorder interface {
	Save(records []capture.Record) error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPageSize sets the number of records fetched per page.
func WithPageSize(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithPresenter sets the render target.
func WithPresenter(p Presenter) ControllerOption {
	return func(c *Controller) { c.presenter = p }
}

// WithNotifier sets the notice target.
func WithNotifier(n Notifier) ControllerOption {
	return func(c *Controller) { c.notifier = n }
}

// WithRecorder sets where fetched pages are archived.
func WithRecorder(r Recorder) ControllerOption {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithFetchTimeout bounds each backend call.
func WithFetchTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

type commandKind int

const (
	cmdLoadInitial commandKind = iota
	cmdLoadMore
	cmdPush
	cmdDelete
	cmdClearAll
)

type command struct {
	kind  commandKind
	id    string
	event push.Event
}

type resultKind int

const (
	resInitial resultKind = iota
	resMore
	resDelete
	resClearAll
)

type result struct {
	kind    resultKind
	seq     uint64
	id      string
	records []capture.Record
	count   int
	err     error
}

// Controller decides when the Store is mutated. All state is owned by the
// goroutine running Run; the enqueue methods only post commands to it.
type Controller struct {
	backend      Backend
	presenter    Presenter
	notifier     Notifier
	recorder     Recorder
	log          *slog.Logger
	pageSize     int
	fetchTimeout time.Duration

	qmu     sync.Mutex
	queue   []command
	wake    chan struct{}
	results chan result

	// Owned by Run.
	store   *Store
	seq     uint64
	pending uint64 // sequence of the outstanding page fetch, 0 if none
	hasMore bool
	paged   bool
	refresh bool

	vmu  sync.RWMutex
	view View
}

// NewController creates a controller over backend.
func NewController(backend Backend, opts ...ControllerOption) *Controller {
	c := &Controller{
		backend:      backend,
		log:          slog.Default(),
		pageSize:     DefaultPageSize,
		fetchTimeout: defaultFetchTimeout,
		wake:         make(chan struct{}, 1),
		results:      make(chan result),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store = NewStore(c.pageSize)
	c.view = View{Records: []capture.Record{}}
	return c
}

// LoadInitial requests the first page, replacing the cache.
func (c *Controller) LoadInitial() { c.enqueue(command{kind: cmdLoadInitial}) }

// LoadMore requests the next page if one may exist.
func (c *Controller) LoadMore() { c.enqueue(command{kind: cmdLoadMore}) }

// HandleEvent feeds a push event to the controller. It has the signature
// of push.Manager's event handler.
func (c *Controller) HandleEvent(ev push.Event) { c.enqueue(command{kind: cmdPush, event: ev}) }

// DeleteOne deletes a capture remotely and then from the cache.
func (c *Controller) DeleteOne(id string) { c.enqueue(command{kind: cmdDelete, id: id}) }

// ClearAll deletes every capture of the account and reloads.
func (c *Controller) ClearAll() { c.enqueue(command{kind: cmdClearAll}) }

// View returns the most recently published state.
func (c *Controller) View() View {
	c.vmu.RLock()
	defer c.vmu.RUnlock()
	v := c.view
	v.Records = slices.Clone(v.Records)
	return v
}

// Snapshot returns the most recently published records.
func (c *Controller) Snapshot() []capture.Record {
	return c.View().Records
}

// Find looks a record up in the published records.
func (c *Controller) Find(id string) (capture.Record, bool) {
	c.vmu.RLock()
	defer c.vmu.RUnlock()
	for _, r := range c.view.Records {
		if r.ID == id {
			return r, true
		}
	}
	return capture.Record{}, false
}

func (c *Controller) enqueue(cmd command) {
	c.qmu.Lock()
	c.queue = append(c.queue, cmd)
	c.qmu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) takeQueue() []command {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	q := c.queue
	c.queue = nil
	return q
}

// Run processes commands and completions until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.wake:
			for _, cmd := range c.takeQueue() {
				c.handle(ctx, cmd)
			}
		case res := <-c.results:
			c.apply(ctx, res)
		}
	}
}

func (c *Controller) handle(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdLoadInitial:
		if c.pending != 0 {
			c.log.Debug("feed: load rejected, fetch outstanding", "op", "initial")
			return
		}
		c.startFetch(ctx, resInitial)

	case cmdLoadMore:
		if c.pending != 0 {
			c.log.Debug("feed: load rejected, fetch outstanding", "op", "more")
			return
		}
		if !c.hasMore {
			c.log.Debug("feed: no more pages")
			return
		}
		c.startFetch(ctx, resMore)

	case cmdPush:
		c.onPush(ctx, cmd.event)

	case cmdDelete:
		id := cmd.id
		c.call(ctx, func(fctx context.Context) result {
			return result{kind: resDelete, id: id, err: c.backend.Delete(fctx, id)}
		})

	case cmdClearAll:
		c.call(ctx, func(fctx context.Context) result {
			n, err := c.backend.DeleteAll(fctx)
			return result{kind: resClearAll, count: n, err: err}
		})
	}
}

func (c *Controller) onPush(ctx context.Context, ev push.Event) {
	if ev.Type != push.EventNewRequest {
		return
	}
	at := ev.Received
	if at.IsZero() {
		at = time.Now()
	}
	c.notify(Notice{Kind: NoticeNewRequest, Text: "New request received", At: at})

	switch {
	case c.paged:
		c.log.Debug("feed: new request while paged, cache left untouched", "request_id", ev.RequestID)
	case c.pending != 0:
		c.refresh = true
	default:
		c.startFetch(ctx, resInitial)
	}
}

func (c *Controller) startFetch(ctx context.Context, kind resultKind) {
	c.seq++
	seq := c.seq
	c.pending = seq
	skip := 0
	if kind == resMore {
		skip = c.store.Len()
	}
	limit := c.pageSize
	c.publish()

	c.call(ctx, func(fctx context.Context) result {
		records, err := c.backend.List(fctx, limit, skip)
		return result{kind: kind, seq: seq, records: records, err: err}
	})
}

// call runs fn on its own goroutine under the fetch timeout and posts the
// result back to Run.
func (c *Controller) call(ctx context.Context, fn func(context.Context) result) {
	go func() {
		fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
		res := fn(fctx)
		select {
		case c.results <- res:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) apply(ctx context.Context, res result) {
	switch res.kind {
	case resInitial, resMore:
		c.applyPage(ctx, res)
	case resDelete:
		c.applyDelete(res)
	case resClearAll:
		c.applyClear(ctx, res)
	}
}

func (c *Controller) applyPage(ctx context.Context, res result) {
	if res.seq != c.pending {
		c.log.Debug("feed: discarding stale page", "seq", res.seq, "latest", c.seq)
		return
	}
	c.pending = 0

	records := res.records
	switch {
	case errors.Is(res.err, capture.ErrInvalidData):
		c.log.Warn("feed: malformed page, treating as empty", "error", res.err)
		records = nil
	case res.err != nil:
		c.log.Error("feed: page fetch failed", "error", res.err)
		c.notify(Notice{Kind: NoticeError, Text: "Failed to load request history.", Err: res.err, At: time.Now()})
		c.publish()
		c.followUp(ctx)
		return
	}

	if res.kind == resInitial {
		c.store.Reset(records)
		c.paged = false
	} else {
		if dups := c.store.Append(records); dups > 0 {
			c.log.Warn("feed: page repeated cached ids", "duplicates", dups)
		}
		if len(records) > 0 {
			c.paged = true
		}
	}
	c.hasMore = res.err == nil && len(records) == c.pageSize

	if c.recorder != nil && len(records) > 0 {
		if err := c.recorder.Save(records); err != nil {
			c.log.Warn("feed: recording page failed", "error", err)
		}
	}
	c.publish()
	c.followUp(ctx)
}

// followUp runs a refresh that was requested while a fetch was outstanding.
func (c *Controller) followUp(ctx context.Context) {
	if !c.refresh {
		return
	}
	c.refresh = false
	if c.paged {
		return
	}
	c.startFetch(ctx, resInitial)
}

func (c *Controller) applyDelete(res result) {
	if res.err != nil {
		c.log.Error("feed: delete failed", "id", res.id, "error", res.err)
		c.notify(Notice{Kind: NoticeError, Text: "Failed to delete request.", Err: res.err, At: time.Now()})
		return
	}
	if !c.store.RemoveByID(res.id) {
		c.log.Debug("feed: deleted id was not cached", "id", res.id)
	}
	c.publish()
	c.notify(Notice{
		Kind: NoticeInfo,
		Text: fmt.Sprintf("Request deleted. %d remaining.", c.store.Len()),
		At:   time.Now(),
	})
}

func (c *Controller) applyClear(ctx context.Context, res result) {
	if res.err != nil {
		c.log.Error("feed: clear failed", "error", res.err)
		c.notify(Notice{Kind: NoticeError, Text: "Failed to clear requests.", Err: res.err, At: time.Now()})
		return
	}
	c.store.Clear()
	c.hasMore = false
	c.paged = false
	c.refresh = false
	c.pending = 0
	c.publish()
	c.notify(Notice{Kind: NoticeInfo, Text: fmt.Sprintf("Deleted %d requests.", res.count), At: time.Now()})
	c.startFetch(ctx, resInitial)
}

func (c *Controller) publish() {
	v := View{
		Records: c.store.Snapshot(),
		HasMore: c.hasMore,
		Loading: c.pending != 0,
		Total:   c.store.Len(),
	}
	c.vmu.Lock()
	c.view = v
	c.vmu.Unlock()

	if c.presenter != nil {
		c.presenter.Render(v)
	}
}

func (c *Controller) notify(n Notice) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}
