package timeutil

import (
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
)

func TestParseDuration(t *testing.T) {
	tests := map[string]struct {
		in   string
		want time.Duration
	}{
		"bare seconds":    {in: "2", want: 2 * time.Second},
		"fractional":      {in: "1.5", want: 1500 * time.Millisecond},
		"go duration":     {in: "750ms", want: 750 * time.Millisecond},
		"composite":       {in: "1m30s", want: 90 * time.Second},
		"spelled out":     {in: "1 min 30 secs", want: 90 * time.Second},
		"upper case":      {in: "2S", want: 2 * time.Second},
		"zero":            {in: "0", want: 0},
		"padded":          {in: "  3  ", want: 3 * time.Second},
		"fractional unit": {in: "0.5 hours", want: 30 * time.Minute},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseDuration(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, in := range []string{"", "noop", "-1", "-2s", "3 fortnights"} {
		if _, err := ParseDuration(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestDecodeHook(t *testing.T) {
	var out struct {
		Fade     time.Duration `mapstructure:"fade"`
		Cooldown time.Duration `mapstructure:"cooldown"`
		Mirror   time.Duration `mapstructure:"mirror"`
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: DecodeHook(),
		Result:     &out,
	})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	in := map[string]interface{}{"fade": 1.5, "cooldown": 10, "mirror": "250ms"}
	if err := dec.Decode(in); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Fade != 1500*time.Millisecond || out.Cooldown != 10*time.Second || out.Mirror != 250*time.Millisecond {
		t.Fatalf("unexpected result %+v", out)
	}
}
