package slot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"tableflip.dev/teamviz/pkg/barrier"
	"tableflip.dev/teamviz/pkg/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLoader struct {
	mu  sync.Mutex
	bad map[string]bool
}

func (f *fakeLoader) Load(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bad[url] {
		return errors.New("404")
	}
	return nil
}

func testConfig() Config {
	return Config{
		MaxOpacityBg: 1,
		MaxOpacityFg: 1,
		OKFilter:     "grayscale(0%) brightness(100%)",
		KOFilterBg:   "grayscale(100%) brightness(50%)",
		KOFilterFg:   "grayscale(100%) brightness(50%)",
		BaseScale:    Vector{X: 1, Y: 1},
	}
}

func newSlot(t *testing.T, cfg Config, loader view.Loader) *Slot {
	t.Helper()
	s, err := New(1, cfg, nil, loader)
	if err != nil {
		t.Fatalf("new slot: %v", err)
	}
	return s
}

func TestNewValidation(t *testing.T) {
	tests := map[string]struct {
		index int
		scale Vector
	}{
		"zero index": {index: 0, scale: Vector{X: 1, Y: 1}},
		"zero scale": {index: 1, scale: Vector{X: 0, Y: 1}},
		"big scale":  {index: 1, scale: Vector{X: 1, Y: 2}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BaseScale = tc.scale
			if _, err := New(tc.index, cfg, nil, nil); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestSwapForeground(t *testing.T) {
	ctx := context.Background()
	s := newSlot(t, testConfig(), nil)

	if err := s.SwapForeground(ctx, "a.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := s.ApplyKO(ctx); err != nil {
		t.Fatalf("ko: %v", err)
	}
	if err := s.SwapForeground(ctx, "b.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}

	got := s.Extract()
	if got.ForegroundURL != "b.png" || got.Incapacitated {
		t.Fatalf("unexpected data after swap: %+v", got)
	}
	if !s.Visible() {
		t.Fatal("expected visible foreground")
	}
	if st := s.Foreground().State(); st.Image != "b.png" || st.Opacity != 1 || st.Filter != testConfig().OKFilter {
		t.Fatalf("unexpected foreground layer state: %+v", st)
	}
}

func TestSwapForegroundEmptyURL(t *testing.T) {
	s := newSlot(t, testConfig(), nil)
	b := barrier.New(1)
	if err := s.SwapForeground(context.Background(), "", b); !errors.Is(err, ErrNoChange) {
		t.Fatalf("expected ErrNoChange, got %v", err)
	}
	if b.Pending() != 0 {
		t.Fatalf("barrier registration missing, pending %d", b.Pending())
	}
}

func TestSwapForegroundLoadError(t *testing.T) {
	s := newSlot(t, testConfig(), &fakeLoader{bad: map[string]bool{"bad.png": true}})
	ctx := context.Background()

	if err := s.SwapForeground(ctx, "a.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := s.ApplyKO(ctx); err != nil {
		t.Fatalf("ko: %v", err)
	}
	err := s.SwapForeground(ctx, "bad.png", nil)
	if !errors.Is(err, view.ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
	got := s.Extract()
	if got.ForegroundURL != "" || got.Incapacitated || s.Visible() {
		t.Fatalf("failed swap must leave an empty slot, got %+v visible=%v", got, s.Visible())
	}
	// The lock is released.
	if err := s.SwapForeground(ctx, "a.png", nil); err != nil {
		t.Fatalf("swap after failure: %v", err)
	}
}

func TestSwapForegroundBlocked(t *testing.T) {
	cfg := testConfig()
	cfg.Fade = 50 * time.Millisecond
	s := newSlot(t, cfg, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.SwapForeground(ctx, "a.png", nil) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		locked := s.locked
		s.mu.Unlock()
		if locked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("swap never locked the slot")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.SwapForeground(ctx, "b.png", nil); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if err := s.ClearForeground(ctx); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first swap: %v", err)
	}
}

func TestClearForegroundTwice(t *testing.T) {
	ctx := context.Background()
	s := newSlot(t, testConfig(), nil)
	if err := s.SwapForeground(ctx, "a.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := s.ApplyKO(ctx); err != nil {
		t.Fatalf("ko: %v", err)
	}
	if err := s.ClearForeground(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.ClearForeground(ctx); !errors.Is(err, ErrNoChange) {
		t.Fatalf("expected ErrNoChange, got %v", err)
	}
	if got := s.Extract(); got.Incapacitated || got.ForegroundURL != "" {
		t.Fatalf("unexpected data after clear: %+v", got)
	}
	if st := s.Foreground().State(); st.Image != "" {
		t.Fatalf("image not removed: %+v", st)
	}
}

func TestKO(t *testing.T) {
	ctx := context.Background()
	s := newSlot(t, testConfig(), nil)

	if err := s.ApplyKO(ctx); !errors.Is(err, ErrNoChange) {
		t.Fatalf("ko on empty slot: expected ErrNoChange, got %v", err)
	}
	if err := s.UndoKO(ctx); !errors.Is(err, ErrNoChange) {
		t.Fatalf("ok on healthy slot: expected ErrNoChange, got %v", err)
	}
	if err := s.SwapForeground(ctx, "a.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := s.ApplyKO(ctx); err != nil {
		t.Fatalf("ko: %v", err)
	}
	if err := s.ApplyKO(ctx); !errors.Is(err, ErrNoChange) {
		t.Fatalf("second ko: expected ErrNoChange, got %v", err)
	}
	if st := s.Background().State(); st.Filter != testConfig().KOFilterBg {
		t.Fatalf("background filter not applied: %q", st.Filter)
	}
	if err := s.UndoKO(ctx); err != nil {
		t.Fatalf("ok: %v", err)
	}
	if st := s.Foreground().State(); st.Filter != testConfig().OKFilter {
		t.Fatalf("foreground filter not reset: %q", st.Filter)
	}
}

func TestMirrorSelfInverse(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.BaseScale = Vector{X: -1, Y: 1}
	s := newSlot(t, cfg, nil)

	if err := s.MirrorX(ctx); !errors.Is(err, ErrNoChange) {
		t.Fatalf("mirror on empty slot: expected ErrNoChange, got %v", err)
	}
	if err := s.SwapForeground(ctx, "a.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}
	orig := s.Foreground().State().ScaleX

	if err := s.MirrorX(ctx); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if got := s.Foreground().State().ScaleX; got != -orig {
		t.Fatalf("expected scale %v, got %v", -orig, got)
	}
	if err := s.MirrorX(ctx); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if got := s.Foreground().State().ScaleX; got != orig {
		t.Fatalf("expected scale %v restored, got %v", orig, got)
	}
	if err := s.MirrorY(ctx); err != nil {
		t.Fatalf("mirror y: %v", err)
	}
	if got := s.Extract().Mirrored; !got.Y || got.X {
		t.Fatalf("unexpected flags %+v", got)
	}
}

func TestSwapResetsMirror(t *testing.T) {
	ctx := context.Background()
	s := newSlot(t, testConfig(), nil)
	if err := s.SwapForeground(ctx, "a.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := s.MirrorX(ctx); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if err := s.SwapForeground(ctx, "b.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if got := s.Extract().Mirrored; got != (Flags{}) {
		t.Fatalf("expected reset flags, got %+v", got)
	}
	if got := s.Foreground().State().ScaleX; got != 1 {
		t.Fatalf("expected scale 1, got %v", got)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSlot(t, testConfig(), nil)

	if err := s.SwapForeground(ctx, "a.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := s.ApplyKO(ctx); err != nil {
		t.Fatalf("ko: %v", err)
	}
	if err := s.MirrorY(ctx); err != nil {
		t.Fatalf("mirror: %v", err)
	}

	want := s.Extract()
	if err := s.Restore(ctx, want, barrier.New(1)); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if diff := cmp.Diff(want, s.Extract()); diff != "" {
		t.Fatalf("restore round trip (-want +got):\n%s", diff)
	}
}

func TestRestoreChangedBaseDropsMirror(t *testing.T) {
	ctx := context.Background()
	s := newSlot(t, testConfig(), nil)

	d := Data{
		ForegroundURL: "a.png",
		MirrorBase:    Vector{X: -1, Y: 1},
		Mirrored:      Flags{X: true},
	}
	if err := s.Restore(ctx, d, nil); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := s.Extract().Mirrored; got != (Flags{}) {
		t.Fatalf("expected mirror flags dropped, got %+v", got)
	}
}

func TestRestoreCohortMixedBranches(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := testConfig()
	cfg.Fade = 5 * time.Millisecond
	loader := &fakeLoader{bad: map[string]bool{"bad.png": true}}

	slots := make([]*Slot, 4)
	for i := range slots {
		s, err := New(i+1, cfg, nil, loader)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		slots[i] = s
	}
	if err := slots[1].SwapForeground(ctx, "x.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}

	data := []Data{
		{ForegroundURL: "a.png", MirrorBase: cfg.BaseScale},
		{},                         // clear
		{},                         // already empty: NoChange
		{ForegroundURL: "bad.png"}, // load error
	}
	b := barrier.New(len(slots))
	errs := Each(ctx, slots, func(ctx context.Context, i int, s *Slot) error {
		return s.Restore(ctx, data[i], b)
	})

	if errs[0] != nil || errs[1] != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !errors.Is(errs[2], ErrNoChange) {
		t.Fatalf("expected ErrNoChange, got %v", errs[2])
	}
	if !errors.Is(errs[3], view.ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", errs[3])
	}
	if b.Pending() != 0 {
		t.Fatalf("barrier left %d parties waiting", b.Pending())
	}
	if ctx.Err() != nil {
		t.Fatal("cohort deadlocked")
	}
}

type timedFrame struct {
	at time.Time
	f  view.Frame
}

// frameLog records every frame with its arrival time. fadeOut is closed on
// the first timed fade-out of watch.
type frameLog struct {
	mu      sync.Mutex
	frames  []timedFrame
	watch   string
	fadeOut chan struct{}
	once    sync.Once
}

func newFrameLog(watch string) *frameLog {
	return &frameLog{watch: watch, fadeOut: make(chan struct{})}
}

func (l *frameLog) Render(f view.Frame) {
	l.mu.Lock()
	l.frames = append(l.frames, timedFrame{at: time.Now(), f: f})
	l.mu.Unlock()
	if f.Layer == l.watch && f.Property == view.PropOpacity && f.Value == 0.0 && f.Duration > 0 {
		l.once.Do(func() { close(l.fadeOut) })
	}
}

func (l *frameLog) images(url string) map[string]time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]time.Time)
	for _, tf := range l.frames {
		if tf.f.Property == view.PropImage && tf.f.Value == url {
			out[tf.f.Layer] = tf.at
		}
	}
	return out
}

func newCohort(t *testing.T, n int, cfg Config, sink view.Sink) []*Slot {
	t.Helper()
	slots := make([]*Slot, n)
	for i := range slots {
		s, err := New(i+1, cfg, sink, nil)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		slots[i] = s
	}
	return slots
}

func TestSwapCohortFadesInTogether(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Fade = 50 * time.Millisecond
	log := newFrameLog("slot-1/fg")
	slots := newCohort(t, 3, cfg, log)

	// Only the first slot has something to fade out.
	if err := slots[0].SwapForeground(ctx, "old.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}

	b := barrier.New(len(slots))
	start := time.Now()
	errs := Each(ctx, slots, func(ctx context.Context, _ int, s *Slot) error {
		return s.SwapForeground(ctx, "new.png", b)
	})
	for i, err := range errs {
		if err != nil {
			t.Fatalf("slot %d: %v", i+1, err)
		}
		if got := slots[i].Extract().ForegroundURL; got != "new.png" {
			t.Fatalf("slot %d: got %q", i+1, got)
		}
	}

	shown := log.images("new.png")
	if len(shown) != len(slots) {
		t.Fatalf("expected an image frame per slot, got %v", shown)
	}
	for layer, at := range shown {
		if elapsed := at.Sub(start); elapsed < cfg.Fade {
			t.Fatalf("%s showed new.png after %v, before slot 1 faded out (%v)", layer, elapsed, cfg.Fade)
		}
	}
}

func TestSwapCohortSurvivesInterruptedFadeOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg := testConfig()
	cfg.Fade = 200 * time.Millisecond
	log := newFrameLog("slot-1/fg")
	slots := newCohort(t, 2, cfg, log)

	if err := slots[0].SwapForeground(ctx, "old.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}

	b := barrier.New(len(slots))
	go func() {
		<-log.fadeOut
		_ = slots[0].Foreground().SetOpacity(ctx, 0.5, 0)
	}()
	errs := Each(ctx, slots, func(ctx context.Context, _ int, s *Slot) error {
		return s.SwapForeground(ctx, "new.png", b)
	})

	if !errors.Is(errs[0], view.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", errs[0])
	}
	if errs[1] != nil {
		t.Fatalf("slot 2: %v", errs[1])
	}
	if b.Pending() != 0 {
		t.Fatalf("barrier left %d parties waiting", b.Pending())
	}
	if ctx.Err() != nil {
		t.Fatal("cohort deadlocked")
	}
	if got := slots[0].Extract().ForegroundURL; got != "" {
		t.Fatalf("interrupted slot kept %q", got)
	}
	if got := slots[1].Extract().ForegroundURL; got != "new.png" {
		t.Fatalf("slot 2: got %q", got)
	}
}

func TestRestoreCohortSurvivesInterruptedFadeOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg := testConfig()
	cfg.Fade = 200 * time.Millisecond
	log := newFrameLog("slot-1/fg")
	slots := newCohort(t, 2, cfg, log)

	if err := slots[0].SwapForeground(ctx, "old.png", nil); err != nil {
		t.Fatalf("swap: %v", err)
	}

	data := []Data{
		{ForegroundURL: "a.png", MirrorBase: cfg.BaseScale},
		{ForegroundURL: "b.png", MirrorBase: cfg.BaseScale},
	}
	b := barrier.New(len(slots))
	go func() {
		<-log.fadeOut
		_ = slots[0].Foreground().SetOpacity(ctx, 0.5, 0)
	}()
	errs := Each(ctx, slots, func(ctx context.Context, i int, s *Slot) error {
		return s.Restore(ctx, data[i], b)
	})

	if !errors.Is(errs[0], view.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", errs[0])
	}
	if errs[1] != nil {
		t.Fatalf("slot 2: %v", errs[1])
	}
	if b.Pending() != 0 {
		t.Fatalf("barrier left %d parties waiting", b.Pending())
	}
	if ctx.Err() != nil {
		t.Fatal("cohort deadlocked")
	}
	if got := slots[1].Extract().ForegroundURL; got != "b.png" {
		t.Fatalf("slot 2: got %q", got)
	}
}
