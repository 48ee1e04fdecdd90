package widget

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"tableflip.dev/teamviz/pkg/config"
	"tableflip.dev/teamviz/pkg/slot"
	"tableflip.dev/teamviz/pkg/timeutil"
)

// ErrValidation reports an unusable configuration.
var ErrValidation = errors.New("widget: invalid configuration")

// Permission levels.
const (
	PermissionBroadcaster = "broadcaster"
	PermissionMods        = "mods"
)

// Default foreground orientations.
const (
	MirrorOff    = "off"
	MirrorXAxis  = "xAxis"
	MirrorYAxis  = "yAxis"
	MirrorXYAxis = "xyAxis"
)

// OKFilter is the filter of a slot that is not incapacitated.
const OKFilter = "grayscale(0%) brightness(100%)"

// Config holds every recognised widget option.
type Config struct {
	// Command is the trigger phrase chat messages must start with.
	Command       string `mapstructure:"command"`
	WidgetName    string `mapstructure:"widgetName"`
	WidgetVersion string `mapstructure:"widgetVersion"`
	SlotQuantity  int    `mapstructure:"slotQuantity"`
	BackgroundURL string `mapstructure:"backgroundUrl"`

	// DocumentURL names the keyed document; only the part after the last
	// '/' is used. Empty disables name resolution.
	DocumentURL  string `mapstructure:"documentUrl"`
	ResolverBase string `mapstructure:"resolverBase"`

	PermissionLevel string `mapstructure:"permissionLevel"`
	OtherUsers      string `mapstructure:"otherUsers"`   // comma separated
	BlockedUsers    string `mapstructure:"blockedUsers"` // comma separated

	Cooldown     time.Duration `mapstructure:"cooldown"`
	SaveDelay    time.Duration `mapstructure:"saveDelay"`
	HistoryDepth int           `mapstructure:"historyDepth"`

	// Percentages.
	BgOpacity      float64 `mapstructure:"bgOpacity"`
	FgOpacity      float64 `mapstructure:"fgOpacity"`
	BgKoGrayscale  float64 `mapstructure:"bgKoGrayscale"`
	BgKoBrightness float64 `mapstructure:"bgKoBrightness"`
	FgKoGrayscale  float64 `mapstructure:"fgKoGrayscale"`
	FgKoBrightness float64 `mapstructure:"fgKoBrightness"`

	FadingDuration             time.Duration `mapstructure:"fadingDuration"`
	KOTransDuration            time.Duration `mapstructure:"koTransDuration"`
	MirrorTransDuration        time.Duration `mapstructure:"mirrorTransDuration"`
	SaveStateAnimationDuration time.Duration `mapstructure:"saveStateAnimationDuration"`

	DefaultMirroring string   `mapstructure:"defaultMirroring"`
	Classes          []string `mapstructure:"classes"`

	Shadow   Shadow   `mapstructure:"shadow"`
	TestMode TestMode `mapstructure:"testMode"`
}

// Shadow configures the foreground drop shadows.
type Shadow struct {
	// Directions the shadow is cast towards: n, ne, e, se, s, sw, w, nw.
	Directions []string `mapstructure:"directions"`
	Offset     float64  `mapstructure:"offset"`
	BlurRadius float64  `mapstructure:"blurRadius"`
	Color      string   `mapstructure:"color"`
}

// TestMode restores the same fabricated slot state everywhere on load.
type TestMode struct {
	Enabled    bool   `mapstructure:"enabled"`
	Args       string `mapstructure:"args"`
	KO         bool   `mapstructure:"ko"`
	MirrorX    bool   `mapstructure:"mirrorX"`
	MirrorY    bool   `mapstructure:"mirrorY"`
	SlotBorder bool   `mapstructure:"slotBorder"`
}

// DefaultConfig returns the settings used for absent options.
func DefaultConfig() Config {
	return Config{
		Command:                    "!team",
		WidgetName:                 "teamviz",
		WidgetVersion:              "1",
		SlotQuantity:               6,
		PermissionLevel:            PermissionMods,
		Cooldown:                   3 * time.Second,
		SaveDelay:                  30 * time.Second,
		HistoryDepth:               5,
		BgOpacity:                  100,
		FgOpacity:                  100,
		BgKoGrayscale:              100,
		BgKoBrightness:             50,
		FgKoGrayscale:              100,
		FgKoBrightness:             50,
		FadingDuration:             500 * time.Millisecond,
		KOTransDuration:            500 * time.Millisecond,
		MirrorTransDuration:        300 * time.Millisecond,
		SaveStateAnimationDuration: time.Second,
		DefaultMirroring:           MirrorOff,
		Shadow:                     Shadow{Offset: 2, BlurRadius: 0, Color: "black"},
	}
}

// LoadConfig reads the "widget" section of the shared configuration.
func LoadConfig() (Config, error) {
	if err := config.Read(); err != nil {
		return DefaultConfig(), err
	}
	return Decode(viper.GetViper())
}

// Decode overlays the "widget" section of v on DefaultConfig and validates
// the result. Durations may be given as bare seconds.
func Decode(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if err := v.UnmarshalKey("widget", &cfg, viper.DecodeHook(timeutil.DecodeHook())); err != nil {
		return cfg, fmt.Errorf("widget: decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every option once.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Command) == "" {
		add("command must not be empty")
	}
	if c.SlotQuantity < 1 {
		add("slotQuantity must be at least 1, got %d", c.SlotQuantity)
	}
	if c.HistoryDepth < 1 {
		add("historyDepth must be at least 1, got %d", c.HistoryDepth)
	}
	switch c.PermissionLevel {
	case PermissionBroadcaster, PermissionMods:
	default:
		add("permissionLevel must be %q or %q, got %q", PermissionBroadcaster, PermissionMods, c.PermissionLevel)
	}
	if _, err := ScaleVector(c.DefaultMirroring); err != nil {
		add("%v", err)
	}
	for name, v := range map[string]float64{
		"bgOpacity":     c.BgOpacity,
		"fgOpacity":     c.FgOpacity,
		"bgKoGrayscale": c.BgKoGrayscale,
		"fgKoGrayscale": c.FgKoGrayscale,
	} {
		if v < 0 || v > 100 {
			add("%s must be within 0..100, got %g", name, v)
		}
	}
	if c.BgKoBrightness < 0 || c.FgKoBrightness < 0 {
		add("ko brightness must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"cooldown":                   c.Cooldown,
		"saveDelay":                  c.SaveDelay,
		"fadingDuration":             c.FadingDuration,
		"koTransDuration":            c.KOTransDuration,
		"mirrorTransDuration":        c.MirrorTransDuration,
		"saveStateAnimationDuration": c.SaveStateAnimationDuration,
	} {
		if d < 0 {
			add("%s must not be negative", name)
		}
	}
	for _, dir := range c.Shadow.Directions {
		if _, ok := shadowDirections[strings.ToLower(dir)]; !ok {
			add("unknown shadow direction %q", dir)
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// ScaleVector maps a default mirroring mode to the base scale of every slot.
func ScaleVector(mode string) (slot.Vector, error) {
	v := slot.Vector{X: 1, Y: 1}
	switch mode {
	case MirrorOff:
	case MirrorXAxis:
		v.X = -1
	case MirrorYAxis:
		v.Y = -1
	case MirrorXYAxis:
		v.X, v.Y = -1, -1
	default:
		return v, fmt.Errorf("unknown mirroring mode %q", mode)
	}
	return v, nil
}

// SlotConfig derives the per-slot settings.
func (c Config) SlotConfig() (slot.Config, error) {
	base, err := ScaleVector(c.DefaultMirroring)
	if err != nil {
		return slot.Config{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return slot.Config{
		Background:       c.BackgroundURL,
		MaxOpacityBg:     c.BgOpacity / 100,
		MaxOpacityFg:     c.FgOpacity / 100,
		OKFilter:         OKFilter,
		KOFilterBg:       koFilter(c.BgKoGrayscale, c.BgKoBrightness),
		KOFilterFg:       koFilter(c.FgKoGrayscale, c.FgKoBrightness),
		Fade:             c.FadingDuration,
		KOTransition:     c.KOTransDuration,
		MirrorTransition: c.MirrorTransDuration,
		BaseScale:        base,
		Classes:          c.Classes,
	}, nil
}

func koFilter(grayscale, brightness float64) string {
	return fmt.Sprintf("grayscale(%g%%) brightness(%g%%)", grayscale, brightness)
}

var shadowDirections = map[string][2]float64{
	"n":  {0, -1},
	"ne": {1, -1},
	"e":  {1, 0},
	"se": {1, 1},
	"s":  {0, 1},
	"sw": {-1, 1},
	"w":  {-1, 0},
	"nw": {-1, -1},
}

var shadowOrder = []string{"n", "ne", "e", "se", "s", "sw", "w", "nw"}

// DropShadow renders the CSS filter for the configured shadows, or "none".
func (s Shadow) DropShadow() string {
	want := make(map[string]bool, len(s.Directions))
	for _, d := range s.Directions {
		want[strings.ToLower(d)] = true
	}
	var parts []string
	for _, dir := range shadowOrder {
		if !want[dir] {
			continue
		}
		v := shadowDirections[dir]
		parts = append(parts, fmt.Sprintf("drop-shadow(%gpx %gpx %gpx %s)",
			v[0]*s.Offset, v[1]*s.Offset, s.BlurRadius, s.Color))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
