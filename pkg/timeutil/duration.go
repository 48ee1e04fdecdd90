// Package timeutil parses the durations found in widget settings.
package timeutil

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

var (
	segmentPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*([a-zµ]+)`)
	unitMap        = map[string]time.Duration{
		"ms":      time.Millisecond,
		"msec":    time.Millisecond,
		"msecs":   time.Millisecond,
		"µs":      time.Microsecond,
		"us":      time.Microsecond,
		"s":       time.Second,
		"sec":     time.Second,
		"secs":    time.Second,
		"second":  time.Second,
		"seconds": time.Second,
		"m":       time.Minute,
		"min":     time.Minute,
		"mins":    time.Minute,
		"minute":  time.Minute,
		"minutes": time.Minute,
		"h":       time.Hour,
		"hr":      time.Hour,
		"hrs":     time.Hour,
		"hour":    time.Hour,
		"hours":   time.Hour,
	}
)

// ParseDuration accepts a bare number of seconds ("1.5"), a Go duration
// ("750ms") or spelled-out segments ("1 min 30 secs"). Negative values are
// rejected.
func ParseDuration(input string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if secs, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Seconds(secs)
	}
	if d, err := time.ParseDuration(trimmed); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("duration %q must not be negative", input)
		}
		return d, nil
	}

	remaining := trimmed
	total := time.Duration(0)
	for len(strings.TrimSpace(remaining)) > 0 {
		matches := segmentPattern.FindStringSubmatch(remaining)
		if len(matches) != 3 {
			return 0, fmt.Errorf("invalid duration segment %q", strings.TrimSpace(remaining))
		}
		value, err := strconv.ParseFloat(matches[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration value %q: %w", matches[1], err)
		}
		base, ok := unitMap[matches[2]]
		if !ok {
			return 0, fmt.Errorf("unsupported duration unit %q", matches[2])
		}
		total += time.Duration(value * float64(base))
		remaining = remaining[len(matches[0]):]
	}
	return total, nil
}

// Seconds converts a fractional second count.
func Seconds(secs float64) (time.Duration, error) {
	if secs < 0 {
		return 0, fmt.Errorf("duration %gs must not be negative", secs)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// DecodeHook lets mapstructure fill time.Duration fields from numbers (read
// as seconds) or from any string ParseDuration understands.
func DecodeHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return ParseDuration(v)
		case int:
			return Seconds(float64(v))
		case int64:
			return Seconds(float64(v))
		case float32:
			return Seconds(float64(v))
		case float64:
			return Seconds(v)
		}
		return data, nil
	}
}
