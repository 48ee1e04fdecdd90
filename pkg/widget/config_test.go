package widget

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"tableflip.dev/teamviz/pkg/slot"
)

func TestDecode(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	err := v.ReadConfig(strings.NewReader(`
widget:
  command: "!mons"
  slotQuantity: 4
  fadingDuration: 1.5
  cooldown: 5
  mirrorTransDuration: 250ms
  defaultMirroring: xAxis
  blockedUsers: "bot1, bot2"
  testMode:
    enabled: true
    args: "1 pikachu"
`))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := DefaultConfig()
	want.Command = "!mons"
	want.SlotQuantity = 4
	want.FadingDuration = 1500 * time.Millisecond
	want.Cooldown = 5 * time.Second
	want.MirrorTransDuration = 250 * time.Millisecond
	want.DefaultMirroring = MirrorXAxis
	want.BlockedUsers = "bot1, bot2"
	want.TestMode = TestMode{Enabled: true, Args: "1 pikachu"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"empty command":       func(c *Config) { c.Command = " " },
		"no slots":            func(c *Config) { c.SlotQuantity = 0 },
		"bad permission":      func(c *Config) { c.PermissionLevel = "everyone" },
		"bad mirroring":       func(c *Config) { c.DefaultMirroring = "zAxis" },
		"opacity too big":     func(c *Config) { c.FgOpacity = 101 },
		"negative fade":       func(c *Config) { c.FadingDuration = -time.Second },
		"no history":          func(c *Config) { c.HistoryDepth = 0 },
		"shadow direction":    func(c *Config) { c.Shadow.Directions = []string{"up"} },
		"negative brightness": func(c *Config) { c.BgKoBrightness = -1 },
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestScaleVector(t *testing.T) {
	tests := map[string]slot.Vector{
		MirrorOff:    {X: 1, Y: 1},
		MirrorXAxis:  {X: -1, Y: 1},
		MirrorYAxis:  {X: 1, Y: -1},
		MirrorXYAxis: {X: -1, Y: -1},
	}
	for mode, want := range tests {
		got, err := ScaleVector(mode)
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if got != want {
			t.Fatalf("%s: expected %+v, got %+v", mode, want, got)
		}
	}
	if _, err := ScaleVector("sideways"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestSlotConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BgOpacity = 80
	cfg.FgKoGrayscale = 75
	cfg.FgKoBrightness = 40
	sc, err := cfg.SlotConfig()
	if err != nil {
		t.Fatalf("slot config: %v", err)
	}
	if sc.MaxOpacityBg != 0.8 || sc.MaxOpacityFg != 1 {
		t.Fatalf("unexpected opacities %v %v", sc.MaxOpacityBg, sc.MaxOpacityFg)
	}
	if sc.KOFilterFg != "grayscale(75%) brightness(40%)" {
		t.Fatalf("unexpected ko filter %q", sc.KOFilterFg)
	}
	if sc.OKFilter != OKFilter {
		t.Fatalf("unexpected ok filter %q", sc.OKFilter)
	}
}

func TestStoreKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WidgetName = "Monster Team"
	cfg.WidgetVersion = "1.0"
	cfg.Command = "!Team"
	keys := StoreKeys(cfg)
	if keys.Base != "monster_team_v12e0_21team" {
		t.Fatalf("unexpected base %q", keys.Base)
	}
	if keys.StatusQuo != keys.Base+"_statusquo" || keys.SaveState != keys.Base+"_savestate" {
		t.Fatalf("unexpected keys %+v", keys)
	}

	cfg.Command = "é🙂"
	if got := StoreKeys(cfg).Base; got != "monster_team_v12e0_e9d83dde42" {
		t.Fatalf("unexpected unicode escape %q", got)
	}
}

func TestDropShadowNone(t *testing.T) {
	if got := (Shadow{}).DropShadow(); got != "none" {
		t.Fatalf("expected none, got %q", got)
	}
}
