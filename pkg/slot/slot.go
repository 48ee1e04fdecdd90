// Package slot sequences the animations of one overlay slot: a background and
// a foreground image with fades, the KO filter and mirroring.
package slot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tableflip.dev/teamviz/pkg/barrier"
	"tableflip.dev/teamviz/pkg/view"
)

var (
	// ErrBlocked means an image change is already running on the slot.
	ErrBlocked = errors.New("slot: blocked")

	// ErrNoChange means the slot is already in the requested state.
	ErrNoChange = errors.New("slot: no change")

	// ErrValidation reports bad construction input.
	ErrValidation = errors.New("slot: invalid configuration")
)

// Config is shared by every slot of a widget.
type Config struct {
	Background string

	MaxOpacityBg float64
	MaxOpacityFg float64

	OKFilter   string
	KOFilterBg string
	KOFilterFg string

	Fade             time.Duration
	KOTransition     time.Duration
	MirrorTransition time.Duration

	BaseScale Vector
	Classes   []string
}

// Data is the persisted state of one slot.
type Data struct {
	ForegroundURL string `json:"foregroundUrl"`
	Incapacitated bool   `json:"incapacitated"`
	MirrorBase    Vector `json:"mirrorBase"`
	Mirrored      Flags  `json:"mirrored"`
}

// Slot owns one background and one foreground layer.
type Slot struct {
	index int
	cfg   Config
	sink  view.Sink

	bg *view.Layer
	fg *view.Layer

	mu      sync.Mutex
	locked  bool // image changes in flight
	visible bool
	ko      bool
	url     string
	mirror  Mirror
}

// New builds slot index (1-based) and resets its layers to defaults.
func New(index int, cfg Config, sink view.Sink, loader view.Loader) (*Slot, error) {
	if index < 1 {
		return nil, fmt.Errorf("%w: index %d must be >= 1", ErrValidation, index)
	}
	if !unit(cfg.BaseScale.X) || !unit(cfg.BaseScale.Y) {
		return nil, fmt.Errorf("%w: base scale %+v must use components of 1 or -1", ErrValidation, cfg.BaseScale)
	}
	if sink == nil {
		sink = view.Discard
	}
	s := &Slot{
		index:  index,
		cfg:    cfg,
		sink:   sink,
		bg:     view.NewLayer(fmt.Sprintf("slot-%d/bg", index), sink, loader),
		fg:     view.NewLayer(fmt.Sprintf("slot-%d/fg", index), sink, loader),
		mirror: NewMirror(cfg.BaseScale),
	}

	// Explicit defaults so the first real transition is never skipped.
	ctx := context.Background()
	for _, l := range []*view.Layer{s.bg, s.fg} {
		_ = l.SetOpacity(ctx, 0, 0)
		_ = l.SetFilter(ctx, cfg.OKFilter, 0)
		_ = l.SetScaleX(ctx, s.mirror.X(), 0)
		_ = l.SetScaleY(ctx, s.mirror.Y(), 0)
	}
	return s, nil
}

func unit(v float64) bool { return v == 1 || v == -1 }

// Index returns the 1-based slot number.
func (s *Slot) Index() int { return s.index }

// Foreground exposes the foreground layer.
func (s *Slot) Foreground() *view.Layer { return s.fg }

// Background exposes the background layer.
func (s *Slot) Background() *view.Layer { return s.bg }

// ShowBackground loads the configured background and fades it in.
func (s *Slot) ShowBackground(ctx context.Context) error {
	if s.cfg.Background == "" {
		return nil
	}
	if err := s.bg.SetImage(ctx, s.cfg.Background); err != nil {
		return fmt.Errorf("slot %d: background: %w", s.index, err)
	}
	return s.bg.SetOpacity(ctx, s.cfg.MaxOpacityBg, s.cfg.Fade)
}

// Extract returns the persisted view of the slot. It has no side effects.
func (s *Slot) Extract() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Data{
		ForegroundURL: s.url,
		Incapacitated: s.ko,
		MirrorBase:    s.mirror.Base(),
		Mirrored:      s.mirror.Mirrored(),
	}
}

// Visible reports whether a foreground image is shown.
func (s *Slot) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// SwapForeground fades out the current foreground, waits for the rest of the
// cohort on b and fades in url. b may be nil.
func (s *Slot) SwapForeground(ctx context.Context, url string, b *barrier.Barrier) error {
	return s.swap(ctx, url, b, false)
}

// swap keeps the slot locked on success when hold is set; the caller unlocks.
func (s *Slot) swap(ctx context.Context, url string, b *barrier.Barrier, hold bool) (err error) {
	s.mu.Lock()
	switch {
	case s.locked:
		err = ErrBlocked
	case url == "":
		err = ErrNoChange
	}
	if err != nil {
		s.mu.Unlock()
		// The cohort expects one registration from every member.
		_ = b.Wait(ctx)
		return err
	}
	s.locked = true
	s.url = url
	wasVisible := s.visible
	s.visible = false
	s.mu.Unlock()

	removeHint := view.Preload(s.sink, url)
	var pending []<-chan error

	defer func() {
		for _, ch := range pending {
			<-ch
		}
		if err != nil {
			s.fg.RemoveImage()
			if ch, kerr := s.startKO(ctx, false); kerr == nil {
				<-ch
			}
		}
		s.mu.Lock()
		if err != nil {
			s.url = ""
		}
		if err != nil || !hold {
			s.locked = false
		}
		s.mu.Unlock()
		removeHint()
	}()

	if wasVisible {
		if err = s.fg.SetOpacity(ctx, 0, s.cfg.Fade); err != nil {
			_ = b.Wait(ctx)
			return fmt.Errorf("slot %d: fade out: %w", s.index, err)
		}
		// A newly switched-in foreground is never incapacitated.
		if ch, kerr := s.startKO(ctx, false); kerr == nil {
			pending = append(pending, ch)
		}
	}

	if err = b.Wait(ctx); err != nil {
		return fmt.Errorf("slot %d: barrier: %w", s.index, err)
	}

	s.mu.Lock()
	s.mirror.Reset()
	x, y := s.mirror.X(), s.mirror.Y()
	s.mu.Unlock()
	_ = s.fg.SetScaleX(ctx, x, 0)
	_ = s.fg.SetScaleY(ctx, y, 0)

	if err = s.fg.SetImage(ctx, url, s.cfg.Classes...); err != nil {
		return fmt.Errorf("slot %d: %w", s.index, err)
	}

	pending = append(pending, async(func() error {
		return s.fg.SetOpacity(ctx, s.cfg.MaxOpacityFg, s.cfg.Fade)
	}))

	s.mu.Lock()
	s.visible = true
	s.mu.Unlock()
	return nil
}

// ClearForeground fades out and removes the foreground image.
func (s *Slot) ClearForeground(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.locked:
		s.mu.Unlock()
		return ErrBlocked
	case !s.visible:
		s.mu.Unlock()
		return ErrNoChange
	}
	s.locked = true
	s.url = ""
	s.visible = false
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.locked = false
		s.mu.Unlock()
	}()

	err := s.fg.SetOpacity(ctx, 0, s.cfg.Fade)
	s.fg.RemoveImage()

	// A cleared slot cannot be incapacitated.
	if ch, kerr := s.startKO(ctx, false); kerr == nil {
		<-ch
	}
	if err != nil {
		return fmt.Errorf("slot %d: fade out: %w", s.index, err)
	}
	return nil
}

// ApplyKO greys out both layers. The foreground must be visible.
func (s *Slot) ApplyKO(ctx context.Context) error {
	ch, err := s.startKO(ctx, true)
	if err != nil {
		return err
	}
	return <-ch
}

// UndoKO removes the KO filter.
func (s *Slot) UndoKO(ctx context.Context) error {
	ch, err := s.startKO(ctx, false)
	if err != nil {
		return err
	}
	return <-ch
}

// startKO flips the flag immediately and runs both filter transitions in the
// background.
func (s *Slot) startKO(ctx context.Context, on bool) (<-chan error, error) {
	s.mu.Lock()
	if s.ko == on || (on && !s.visible) {
		s.mu.Unlock()
		return nil, ErrNoChange
	}
	s.ko = on
	s.mu.Unlock()

	bgFilter, fgFilter := s.cfg.OKFilter, s.cfg.OKFilter
	if on {
		bgFilter, fgFilter = s.cfg.KOFilterBg, s.cfg.KOFilterFg
	}
	return async(func() error {
		var g errgroup.Group
		g.Go(func() error { return s.bg.SetFilter(ctx, bgFilter, s.cfg.KOTransition) })
		g.Go(func() error { return s.fg.SetFilter(ctx, fgFilter, s.cfg.KOTransition) })
		return g.Wait()
	}), nil
}

// MirrorX flips the foreground horizontally.
func (s *Slot) MirrorX(ctx context.Context) error {
	ch, err := s.startMirror(ctx, true)
	if err != nil {
		return err
	}
	return <-ch
}

// MirrorY flips the foreground vertically.
func (s *Slot) MirrorY(ctx context.Context) error {
	ch, err := s.startMirror(ctx, false)
	if err != nil {
		return err
	}
	return <-ch
}

func (s *Slot) startMirror(ctx context.Context, horizontal bool) (<-chan error, error) {
	s.mu.Lock()
	if !s.visible {
		s.mu.Unlock()
		return nil, ErrNoChange
	}
	var scale float64
	if horizontal {
		s.mirror.ToggleX()
		scale = s.mirror.X()
	} else {
		s.mirror.ToggleY()
		scale = s.mirror.Y()
	}
	s.mu.Unlock()

	return async(func() error {
		if horizontal {
			return s.fg.SetScaleX(ctx, scale, s.cfg.MirrorTransition)
		}
		return s.fg.SetScaleY(ctx, scale, s.cfg.MirrorTransition)
	}), nil
}

// Restore brings the slot to d, synchronising with the cohort on b.
//
// Every path registers on b exactly twice: once when the fade-out phase is
// over and once when the slot is about to unlock.
func (s *Slot) Restore(ctx context.Context, d Data, b *barrier.Barrier) error {
	if d.ForegroundURL == "" {
		err := s.ClearForeground(ctx)
		_ = b.Wait(ctx)
		_ = b.Wait(ctx)
		return err
	}

	if err := s.swap(ctx, d.ForegroundURL, b, true); err != nil {
		_ = b.Wait(ctx)
		return err
	}

	var pending []<-chan error
	if d.Incapacitated {
		if ch, err := s.startKO(ctx, true); err == nil {
			pending = append(pending, ch)
		}
	}

	// A changed base orientation voids the stored flips.
	s.mu.Lock()
	sameBase := d.MirrorBase == s.mirror.Base()
	s.mu.Unlock()
	if sameBase {
		if d.Mirrored.X {
			if ch, err := s.startMirror(ctx, true); err == nil {
				pending = append(pending, ch)
			}
		}
		if d.Mirrored.Y {
			if ch, err := s.startMirror(ctx, false); err == nil {
				pending = append(pending, ch)
			}
		}
	}
	for _, ch := range pending {
		<-ch
	}

	_ = b.Wait(ctx)

	s.mu.Lock()
	s.locked = false
	s.mu.Unlock()
	return nil
}

// Each runs fn on every slot concurrently and returns every outcome in slot
// order. One failure never cancels the others.
func Each(ctx context.Context, slots []*Slot, fn func(ctx context.Context, i int, s *Slot) error) []error {
	errs := make([]error, len(slots))
	var g errgroup.Group
	for i, s := range slots {
		i, s := i, s
		g.Go(func() error {
			errs[i] = fn(ctx, i, s)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func async(fn func() error) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- fn() }()
	return ch
}
