package command

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	spaces = regexp.MustCompile(`\s+`)
	tokens = regexp.MustCompile(`(?:[^\s"']+|['"][^'"]*["'])+`)
	quotes = strings.NewReplacer(`"`, "", `'`, "")
)

// ParseArgs splits s on whitespace. Quoted substrings stay one token and the
// quotes are dropped.
func ParseArgs(s string) []string {
	found := tokens.FindAllString(spaces.ReplaceAllString(s, " "), -1)
	args := make([]string, 0, len(found))
	for _, tok := range found {
		args = append(args, quotes.Replace(tok))
	}
	return args
}

// Targets maps a slot selector to zero-based slot indices: the wildcard
// selects all n slots, a 1-based number selects one and anything else none.
func Targets(selector string, n int) []int {
	if selector == Wildcard {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	i, ok := leadingInt(selector)
	if !ok || i < 1 || i > n {
		return nil
	}
	return []int{i - 1}
}

// leadingInt reads an optionally signed integer prefix and ignores the rest,
// so "2nd" selects slot 2.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	i, err := strconv.Atoi(s[:end])
	return i, err == nil
}
