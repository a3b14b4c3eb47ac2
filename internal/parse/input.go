package parse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	optionRe      = regexp.MustCompile(`^([a-z]+)_(\d+)(?:_(\d+))?$`)
	numberRe      = regexp.MustCompile(`^\s*(\d{1,4})\s*[.)]?\s*$`)
	spaceRe       = regexp.MustCompile(`\s+`)
	unsubscribeRe = regexp.MustCompile(`(?i)^\s*(?:unsubscribe|desuscribir)(?:\s+(all|todo|todos|\d{1,4}))?\s*$`)
	menuRe        = regexp.MustCompile(`(?i)^\s*(?:menu|menú|show menu)\s*$`)
)

// MaxNameLength caps registered display names, in runes.
const MaxNameLength = 64

// ErrEmptyName is returned when a candidate name has no visible characters.
var ErrEmptyName = errors.New("empty name")

// ParsedOption is a structured row id such as "lot_2_3" or "page_4".
type ParsedOption struct {
	Prefix string
	// First is the first number; the page for two-number ids.
	First int
	// Second is the row index of two-number ids, -1 otherwise.
	Second int
}

// OptionID splits a row id into its prefix and numeric parts.
func OptionID(id string) (ParsedOption, bool) {
	m := optionRe.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return ParsedOption{}, false
	}
	first, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedOption{}, false
	}
	second := -1
	if m[3] != "" {
		if second, err = strconv.Atoi(m[3]); err != nil {
			return ParsedOption{}, false
		}
	}
	return ParsedOption{Prefix: m[1], First: first, Second: second}, true
}

// Number reads a positive 1-based choice such as "3" or "3.".
func Number(text string) (int, bool) {
	m := numberRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// CommandKind names a free-text command accepted at any step.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandMenu
	CommandUnsubscribe
)

// Command is a parsed free-text command.
type Command struct {
	Kind CommandKind
	// All is set for "unsubscribe all".
	All bool
	// Index is the 1-based subscription number of "unsubscribe N", 0 when absent.
	Index int
}

// Help reports whether an unsubscribe command carries no argument.
func (c Command) Help() bool {
	return c.Kind == CommandUnsubscribe && !c.All && c.Index == 0
}

// ParseCommand recognizes the menu and unsubscribe commands, case-insensitively.
func ParseCommand(text string) Command {
	if menuRe.MatchString(text) {
		return Command{Kind: CommandMenu}
	}
	m := unsubscribeRe.FindStringSubmatch(text)
	if m == nil {
		return Command{Kind: CommandNone}
	}
	arg := strings.ToLower(m[1])
	switch arg {
	case "":
		return Command{Kind: CommandUnsubscribe}
	case "all", "todo", "todos":
		return Command{Kind: CommandUnsubscribe, All: true}
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return Command{Kind: CommandUnsubscribe}
	}
	return Command{Kind: CommandUnsubscribe, Index: n}
}

// Name normalizes a candidate display name: surrounding space is trimmed,
// inner runs of whitespace collapse, and the result is capped at MaxNameLength.
func Name(raw string) (string, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	if s == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(s) > MaxNameLength {
		s = strings.TrimSpace(string([]rune(s)[:MaxNameLength]))
	}
	return s, nil
}
