// Package view renders a single image inside independently animated layers.
//
// A Layer never animates anything itself. It records the target value of each
// property, forwards a Frame to its Sink (the browser source performs the
// actual tween) and waits out the duration so callers can sequence work.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrInterrupted is returned when a later call on the same property
	// superseded a transition before it completed.
	ErrInterrupted = errors.New("view: transition interrupted")

	// ErrLoad is returned when an image could not be loaded.
	ErrLoad = errors.New("view: load failed")
)

// Property names one independently animated aspect of a layer.
type Property string

// Properties understood by the renderer.
const (
	PropOpacity Property = "opacity"
	PropFilter  Property = "filter"
	PropScaleX  Property = "scaleX"
	PropScaleY  Property = "scaleY"
	PropImage   Property = "image"
	PropPreload Property = "preload"
	PropShadow  Property = "shadow"
	PropBorder  Property = "border"
)

// RootLayer addresses the overlay container holding every slot.
const RootLayer = "root"

// Frame describes one property change sent to the renderer.
type Frame struct {
	Layer    string   `json:"layer"`
	Property Property `json:"property"`
	Value    any      `json:"value"`
	Duration float64  `json:"duration"` // seconds
	Classes  []string `json:"classes,omitempty"`
	Remove   bool     `json:"remove,omitempty"`
}

// Sink receives frames. Implementations must not block for long.
type Sink interface {
	Render(Frame)
}

// Loader verifies that an image URL can be displayed.
type Loader interface {
	Load(ctx context.Context, url string) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Frame)

func (f SinkFunc) Render(fr Frame) { f(fr) }

// Discard drops every frame.
var Discard Sink = SinkFunc(func(Frame) {})

// State is the last requested value of every property.
type State struct {
	Opacity float64
	Filter  string
	ScaleX  float64
	ScaleY  float64
	Image   string
	Classes []string
}

type transition struct {
	gen        uint64
	superseded chan struct{}
}

// Layer is one opacity/filter/mirror/image stack.
type Layer struct {
	name   string
	sink   Sink
	loader Loader

	mu      sync.Mutex
	gens    map[Property]uint64
	current map[Property]*transition
	state   State
	hasImg  bool
}

// NewLayer creates a layer that reports frames under name.
func NewLayer(name string, sink Sink, loader Loader) *Layer {
	if sink == nil {
		sink = Discard
	}
	return &Layer{
		name:    name,
		sink:    sink,
		loader:  loader,
		gens:    make(map[Property]uint64),
		current: make(map[Property]*transition),
		state:   State{ScaleX: 1, ScaleY: 1},
	}
}

// Name returns the frame address of the layer.
func (l *Layer) Name() string { return l.name }

// State returns a copy of the current property values.
func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Classes = append([]string(nil), l.state.Classes...)
	return s
}

// SetOpacity fades the whole layer to amount (0..1).
func (l *Layer) SetOpacity(ctx context.Context, amount float64, d time.Duration) error {
	return l.animate(ctx, PropOpacity, amount, d, func(s *State) { s.Opacity = amount })
}

// SetFilter transitions the CSS filter of the filter container.
func (l *Layer) SetFilter(ctx context.Context, filter string, d time.Duration) error {
	return l.animate(ctx, PropFilter, filter, d, func(s *State) { s.Filter = filter })
}

// SetScaleX transitions the horizontal scale of the mirror container.
func (l *Layer) SetScaleX(ctx context.Context, amount float64, d time.Duration) error {
	return l.animate(ctx, PropScaleX, amount, d, func(s *State) { s.ScaleX = amount })
}

// SetScaleY transitions the vertical scale of the mirror container.
func (l *Layer) SetScaleY(ctx context.Context, amount float64, d time.Duration) error {
	return l.animate(ctx, PropScaleY, amount, d, func(s *State) { s.ScaleY = amount })
}

func (l *Layer) animate(ctx context.Context, p Property, value any, d time.Duration, apply func(*State)) error {
	l.mu.Lock()
	if prev := l.current[p]; prev != nil {
		close(prev.superseded)
	}
	l.gens[p]++
	t := &transition{gen: l.gens[p], superseded: make(chan struct{})}
	l.current[p] = t
	apply(&l.state)
	l.mu.Unlock()

	l.sink.Render(Frame{Layer: l.name, Property: p, Value: value, Duration: d.Seconds()})

	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-t.superseded:
			return fmt.Errorf("%s %s: %w", l.name, p, ErrInterrupted)
		case <-ctx.Done():
			l.finish(p, t)
			return ctx.Err()
		}
	}
	if !l.finish(p, t) {
		return fmt.Errorf("%s %s: %w", l.name, p, ErrInterrupted)
	}
	return nil
}

// finish releases t if it is still the newest transition of p.
func (l *Layer) finish(p Property, t *transition) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gens[p] != t.gen {
		return false
	}
	delete(l.current, p)
	return true
}

// SetImage replaces the layer's image and resolves once it loaded.
func (l *Layer) SetImage(ctx context.Context, url string, classes ...string) error {
	l.RemoveImage()

	l.mu.Lock()
	l.gens[PropImage]++
	gen := l.gens[PropImage]
	l.hasImg = true
	l.state.Image = url
	l.state.Classes = append([]string(nil), classes...)
	l.mu.Unlock()

	l.sink.Render(Frame{Layer: l.name, Property: PropImage, Value: url, Classes: classes})

	if l.loader != nil {
		if err := l.loader.Load(ctx, url); err != nil {
			return fmt.Errorf("%s: couldn't load %q: %w: %v", l.name, url, ErrLoad, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gens[PropImage] != gen {
		return fmt.Errorf("%s %s: %w", l.name, PropImage, ErrInterrupted)
	}
	return nil
}

// RemoveImage drops the current image, if any.
func (l *Layer) RemoveImage() {
	l.mu.Lock()
	if !l.hasImg {
		l.mu.Unlock()
		return
	}
	l.hasImg = false
	l.gens[PropImage]++
	l.state.Image = ""
	l.state.Classes = nil
	l.mu.Unlock()

	l.sink.Render(Frame{Layer: l.name, Property: PropImage, Remove: true})
}

// Preload emits a prefetch hint for url and returns a func removing it.
func Preload(sink Sink, url string) func() {
	if sink == nil {
		return func() {}
	}
	sink.Render(Frame{Layer: "head", Property: PropPreload, Value: url})
	var once sync.Once
	return func() {
		once.Do(func() {
			sink.Render(Frame{Layer: "head", Property: PropPreload, Value: url, Remove: true})
		})
	}
}
