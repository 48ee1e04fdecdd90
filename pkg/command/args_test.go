package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseArgs(t *testing.T) {
	tests := map[string]struct {
		in   string
		want []string
	}{
		"empty":         {in: "", want: []string{}},
		"blank":         {in: "   \t ", want: []string{}},
		"simple":        {in: "1 fire strong", want: []string{"1", "fire", "strong"}},
		"extra spaces":  {in: "  *\t\tclear  ", want: []string{"*", "clear"}},
		"double quoted": {in: `2 "mega charizard" x`, want: []string{"2", "mega charizard", "x"}},
		"single quoted": {in: `2 'mr mime'`, want: []string{"2", "mr mime"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ParseArgs(tc.in)); diff != "" {
				t.Fatalf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTargets(t *testing.T) {
	tests := map[string]struct {
		in   string
		want []int
	}{
		"wildcard":     {in: "*", want: []int{0, 1, 2}},
		"first":        {in: "1", want: []int{0}},
		"last":         {in: "3", want: []int{2}},
		"zero":         {in: "0"},
		"too big":      {in: "4"},
		"negative":     {in: "-1"},
		"word":         {in: "fire"},
		"number affix": {in: "2nd", want: []int{1}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Targets(tc.in, 3)); diff != "" {
				t.Fatalf("targets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
