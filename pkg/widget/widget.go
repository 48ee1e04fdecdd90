// Package widget wires the slots, the resolver and the history into one
// chat-driven overlay.
package widget

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"tableflip.dev/teamviz/pkg/command"
	"tableflip.dev/teamviz/pkg/memento"
	"tableflip.dev/teamviz/pkg/resolver"
	"tableflip.dev/teamviz/pkg/slot"
	"tableflip.dev/teamviz/pkg/store"
	"tableflip.dev/teamviz/pkg/view"
)

// Message is one chat message.
type Message struct {
	User        string `json:"user"`
	Text        string `json:"text"`
	Moderator   bool   `json:"moderator,omitempty"`
	Broadcaster bool   `json:"broadcaster,omitempty"`
}

// Status tells what happened to a message.
type Status int

const (
	// StatusIgnored covers messages that are not commands or not permitted.
	StatusIgnored Status = iota
	// StatusBusy means another command was still running.
	StatusBusy
	// StatusCooldown means the cooldown had not ended yet.
	StatusCooldown
	// StatusApplied means the command was interpreted.
	StatusApplied
)

func (s Status) String() string {
	switch s {
	case StatusIgnored:
		return "ignored"
	case StatusBusy:
		return "busy"
	case StatusCooldown:
		return "cooldown"
	case StatusApplied:
		return "applied"
	}
	return "unknown"
}

// Result reports how a message was handled.
type Result struct {
	Status  Status          `json:"-"`
	Args    []string        `json:"args,omitempty"`
	Outcome command.Outcome `json:"-"`
	Changed bool            `json:"changed"`
}

// Option configures a Widget.
type Option func(*Widget)

// WithSink sends view frames to s.
func WithSink(s view.Sink) Option {
	return func(w *Widget) { w.sink = s }
}

// WithLoader validates images through l.
func WithLoader(l view.Loader) Option {
	return func(w *Widget) { w.loader = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Widget) { w.log = l }
}

// WithClock replaces time.Now for cooldown checks.
func WithClock(now func() time.Time) Option {
	return func(w *Widget) { w.now = now }
}

// WithHTTPClient is used for document queries.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Widget) { w.client = c }
}

// WithResolver replaces the document resolver built from the config.
func WithResolver(r command.Resolver) Option {
	return func(w *Widget) { w.resolver = r }
}

// Widget is the explicit context of one overlay. Commands are handled one at
// a time; messages arriving meanwhile are dropped.
type Widget struct {
	cfg  Config
	keys command.Keys

	sink     view.Sink
	loader   view.Loader
	client   *http.Client
	resolver command.Resolver
	log      *zap.Logger
	now      func() time.Time

	slots   []*slot.Slot
	mgr     *memento.Manager
	history *memento.History
	interp  *command.Interpreter

	trigger string
	other   map[string]bool
	blocked map[string]bool

	busy        atomic.Bool
	cooldownEnd atomic.Int64 // unix nanos
}

// New validates cfg and builds the slots. The widget ignores messages until
// Load has run.
func New(cfg Config, st store.Store, opts ...Option) (*Widget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Widget{
		cfg:     cfg,
		keys:    StoreKeys(cfg),
		sink:    view.Discard,
		log:     zap.NewNop(),
		now:     time.Now,
		trigger: strings.ToLower(cfg.Command),
		other:   userSet(cfg.OtherUsers),
		blocked: userSet(cfg.BlockedUsers),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.busy.Store(true)

	if w.resolver == nil && cfg.DocumentURL != "" {
		var ropts []resolver.Option
		if cfg.ResolverBase != "" {
			ropts = append(ropts, resolver.WithBase(cfg.ResolverBase))
		}
		if w.client != nil {
			ropts = append(ropts, resolver.WithHTTPClient(w.client))
		}
		r, err := resolver.New(cfg.DocumentURL, ropts...)
		if err != nil {
			// Chat commands other than name lookups keep working.
			w.log.Warn("name resolution disabled", zap.Error(err))
		} else {
			w.log.Info("name resolution enabled", zap.String("query", r.URL("")))
			w.resolver = r
		}
	}

	scfg, err := cfg.SlotConfig()
	if err != nil {
		return nil, err
	}
	w.slots = make([]*slot.Slot, cfg.SlotQuantity)
	for i := range w.slots {
		if w.slots[i], err = slot.New(i+1, scfg, w.sink, w.loader); err != nil {
			return nil, err
		}
	}
	w.sink.Render(view.Frame{Layer: view.RootLayer, Property: view.PropShadow, Value: cfg.Shadow.DropShadow()})

	w.history = memento.NewHistory(cfg.HistoryDepth)
	w.mgr = &memento.Manager{
		Slots:     w.slots,
		Store:     st,
		StatusKey: w.keys.StatusQuo,
		SaveDelay: cfg.SaveDelay,
		Logger:    w.log,
	}
	w.interp = &command.Interpreter{
		Mementos:    w.mgr,
		History:     w.history,
		Keys:        w.keys,
		OnSaveState: w.flashSaveState,
		Logger:      w.log,
	}
	if w.resolver != nil {
		w.interp.Resolver = w.resolver
	}
	return w, nil
}

func userSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, u := range strings.Split(strings.ToLower(list), ",") {
		u = strings.Join(strings.Fields(u), "")
		if u != "" {
			set[u] = true
		}
	}
	return set
}

// Config returns the validated configuration.
func (w *Widget) Config() Config { return w.cfg }

// Keys returns the store keys.
func (w *Widget) Keys() command.Keys { return w.keys }

// Slots exposes the slots in index order.
func (w *Widget) Slots() []*slot.Slot { return w.slots }

// History exposes the undo stack. Only safe while no command is running.
func (w *Widget) History() *memento.History { return w.history }

// Load shows the backgrounds and restores the last state, or the test mode
// state. Restore failures leave slots empty and are only logged.
func (w *Widget) Load(ctx context.Context) error {
	defer w.busy.Store(false)

	for i, err := range slot.Each(ctx, w.slots, func(ctx context.Context, _ int, s *slot.Slot) error {
		return s.ShowBackground(ctx)
	}) {
		if err != nil {
			w.log.Warn("background not shown", zap.Int("slot", i+1), zap.Error(err))
		}
	}

	if w.cfg.TestMode.Enabled {
		w.logResults("test state", w.mgr.Restore(ctx, w.testMemento(ctx)))
		return ctx.Err()
	}

	results, err := w.mgr.Load(ctx, w.keys.StatusQuo)
	if err != nil {
		w.log.Info("no status quo restored", zap.String("key", w.keys.StatusQuo), zap.Error(err))
		return ctx.Err()
	}
	w.logResults("status quo", results)
	return ctx.Err()
}

func (w *Widget) testMemento(ctx context.Context) memento.Memento {
	tm := w.cfg.TestMode
	if tm.SlotBorder {
		w.sink.Render(view.Frame{Layer: view.RootLayer, Property: view.PropBorder, Value: "1px solid black"})
	}
	var url string
	if args := command.ParseArgs(strings.ToLower(tm.Args)); w.resolver != nil && len(args) > 0 {
		var err error
		if url, err = w.resolver.Query(ctx, args); err != nil {
			w.log.Info("test args not resolved", zap.Strings("args", args), zap.Error(err))
		}
	}
	base, _ := ScaleVector(w.cfg.DefaultMirroring)
	mem := make(memento.Memento, len(w.slots))
	for i := range mem {
		mem[i] = slot.Data{
			ForegroundURL: url,
			Incapacitated: tm.KO,
			MirrorBase:    base,
			Mirrored:      slot.Flags{X: tm.MirrorX, Y: tm.MirrorY},
		}
	}
	return mem
}

func (w *Widget) logResults(what string, results []error) {
	for i, err := range results {
		if err != nil {
			w.log.Debug(what+" not applied", zap.Int("slot", i+1), zap.Error(err))
		}
	}
}

// Handle runs msg if it is a permitted command and the widget is idle and
// off cooldown.
func (w *Widget) Handle(ctx context.Context, msg Message) (Result, error) {
	if w.busy.Load() {
		return Result{Status: StatusBusy}, nil
	}
	if w.now().UnixNano() < w.cooldownEnd.Load() {
		return Result{Status: StatusCooldown}, nil
	}
	if !w.permitted(msg) {
		return Result{Status: StatusIgnored}, nil
	}
	rest, ok := w.match(msg.Text)
	if !ok {
		return Result{Status: StatusIgnored}, nil
	}
	args := command.ParseArgs(strings.ToLower(rest))
	if len(args) == 0 {
		return Result{Status: StatusIgnored}, nil
	}

	if !w.busy.CompareAndSwap(false, true) {
		return Result{Status: StatusBusy}, nil
	}
	defer w.busy.Store(false)
	w.cooldownEnd.Store(w.now().Add(w.cfg.Cooldown).UnixNano())

	before := w.mgr.Create()
	out, err := w.interp.Interpret(ctx, args)
	res := Result{Status: StatusApplied, Args: args, Outcome: out}
	if err != nil {
		w.log.Warn("command failed", zap.Strings("args", args), zap.Error(err))
		return res, err
	}

	res.Changed = out.Changed()
	if res.Changed {
		if args[0] != command.Undo {
			w.history.Push(before)
		}
		w.mgr.ScheduleSave()
	}
	w.log.Debug("command handled",
		zap.String("user", msg.User),
		zap.Strings("args", args),
		zap.Bool("changed", res.Changed))
	return res, nil
}

func (w *Widget) permitted(msg Message) bool {
	user := strings.ToLower(msg.User)
	if w.blocked[user] {
		return false
	}
	return msg.Broadcaster ||
		(msg.Moderator && w.cfg.PermissionLevel == PermissionMods) ||
		w.other[user]
}

// match strips the trigger phrase, which must be followed by whitespace.
func (w *Widget) match(text string) (string, bool) {
	n := len(w.trigger)
	if len(text) <= n || !strings.EqualFold(text[:n], w.trigger) {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(text[n:])
	if !unicode.IsSpace(r) {
		return "", false
	}
	return text[n:], true
}

func (w *Widget) flashSaveState() {
	w.sink.Render(view.Frame{Layer: view.RootLayer, Property: view.PropFilter, Value: "invert(1)"})
	w.sink.Render(view.Frame{
		Layer:    view.RootLayer,
		Property: view.PropFilter,
		Value:    "invert(0)",
		Duration: w.cfg.SaveStateAnimationDuration.Seconds(),
	})
}

// Snapshot returns the current state of every slot.
func (w *Widget) Snapshot() memento.Memento { return w.mgr.Create() }

// Close writes a pending status-quo save.
func (w *Widget) Close(ctx context.Context) error {
	return w.mgr.Flush(ctx)
}
