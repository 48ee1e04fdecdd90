package commands

import (
	"go.uber.org/zap"

	"tableflip.dev/teamviz/pkg/overlay"
	"tableflip.dev/teamviz/pkg/store"
	"tableflip.dev/teamviz/pkg/widget"
)

// newOverlay builds the widget from the configuration and the store, rendering
// into a fresh hub.
func newOverlay(log *zap.Logger) (*widget.Widget, *overlay.Hub, error) {
	cfg, err := widget.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Load(nil)
	if err != nil {
		return nil, nil, err
	}
	hub := overlay.NewHub(log.Named("hub"))
	w, err := widget.New(cfg, st,
		widget.WithSink(hub),
		widget.WithLoader(overlay.NewHTTPLoader()),
		widget.WithLogger(log.Named("widget")),
	)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("widget ready",
		zap.String("name", cfg.WidgetName),
		zap.Int("slots", cfg.SlotQuantity),
		zap.String("key", w.Keys().StatusQuo))
	return w, hub, nil
}
