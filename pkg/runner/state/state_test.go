package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/teamviz/pkg/command"
	"tableflip.dev/teamviz/pkg/memento"
	"tableflip.dev/teamviz/pkg/slot"
	"tableflip.dev/teamviz/pkg/store"
)

var keys = command.Keys{Base: "team", StatusQuo: "team_statusquo", SaveState: "team_savestate"}

func newStore(t *testing.T, key string, mem memento.Memento) store.Store {
	t.Helper()
	st, err := store.Load(store.NewConfig(t.TempDir()))
	require.NoError(t, err)
	if mem != nil {
		b, err := json.Marshal(mem)
		require.NoError(t, err)
		require.NoError(t, st.Set(context.Background(), key, b))
	}
	return st
}

func TestPrintTable(t *testing.T) {
	color.NoColor = true
	mem := memento.Memento{
		{ForegroundURL: "https://img.example/pikachu.png", Incapacitated: true, MirrorBase: slot.Vector{X: 1, Y: 1}, Mirrored: slot.Flags{X: true}},
		{MirrorBase: slot.Vector{X: -1, Y: 1}},
	}
	var out bytes.Buffer
	s := &State{Store: newStore(t, keys.StatusQuo, mem), Keys: keys, Out: &out}
	require.NoError(t, s.Do(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Image")
	assert.Contains(t, lines[1], "pikachu.png")
	assert.Contains(t, lines[1], "KO")
	assert.Contains(t, lines[2], "(empty)")
	assert.Contains(t, lines[2], "-1,1")
}

func TestPrintTruncatesURL(t *testing.T) {
	color.NoColor = true
	long := "https://img.example/" + strings.Repeat("a", 100) + ".png"
	var out bytes.Buffer
	s := &State{URLWidth: 20}
	s.Print(&out, memento.Memento{{ForegroundURL: long, MirrorBase: slot.Vector{X: 1, Y: 1}}})
	assert.NotContains(t, out.String(), long)
	assert.Contains(t, out.String(), "…")
}

func TestSaveStateJSON(t *testing.T) {
	mem := memento.Memento{{ForegroundURL: "eevee.png", MirrorBase: slot.Vector{X: 1, Y: 1}}}
	var out bytes.Buffer
	s := &State{Store: newStore(t, keys.SaveState, mem), Keys: keys, Save: true, JSON: true, Out: &out}
	require.Equal(t, keys.SaveState, s.Key())
	require.NoError(t, s.Do(context.Background()))

	got, err := memento.Decode(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, mem, got)
}

func TestMissingState(t *testing.T) {
	s := &State{Store: newStore(t, "", nil), Keys: keys, Out: &bytes.Buffer{}}
	err := s.Do(context.Background())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
