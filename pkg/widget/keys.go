package widget

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"tableflip.dev/teamviz/pkg/command"
)

// StoreKeys derives the persisted keys from the widget identity. The command
// is part of the key so every trigger phrase keeps its own state.
func StoreKeys(cfg Config) command.Keys {
	raw := strings.ToLower(cfg.WidgetName + "_v" + cfg.WidgetVersion + "_" + cfg.Command)

	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case isWord(r):
			b.WriteRune(r)
		default:
			for _, unit := range utf16Units(r) {
				b.WriteString(strconv.FormatUint(uint64(unit), 16))
			}
		}
	}
	base := b.String()
	return command.Keys{
		Base:      base,
		StatusQuo: base + "_statusquo",
		SaveState: base + "_savestate",
	}
}

func isWord(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// utf16Units splits runes outside the BMP into their two UTF-16 code units.
func utf16Units(r rune) []uint16 {
	if r1, r2 := utf16.EncodeRune(r); r1 != unicode.ReplacementChar {
		return []uint16{uint16(r1), uint16(r2)}
	}
	return []uint16{uint16(r)}
}
