package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CommandLength is the number of bytes in a request payload.
const CommandLength = 7

// Command is the fixed-size request payload sent to poll an entity.
// The all-zero command means "nothing to poll".
type Command [CommandLength]byte

// hexTokens accepts one to seven hex byte tokens, each optionally 0x-prefixed,
// separated by single spaces.
var hexTokens = regexp.MustCompile(`^((?:0[xX][0-9A-Fa-f]{2}|[0-9A-Fa-f]{2})(?:\s(?:0[xX][0-9A-Fa-f]{2}|[0-9A-Fa-f]{2})){0,6})$`)

// ParseCommand parses a command such as "31 00 FA C0 FC". Missing trailing
// bytes are zero. The empty string yields the zero command.
func ParseCommand(s string) (Command, error) {
	var c Command
	s = strings.TrimSpace(s)
	if s == "" {
		return c, nil
	}
	b, err := ParseHexBytes(s)
	if err != nil {
		return c, err
	}
	copy(c[:], b)
	return c, nil
}

// MustParseCommand is ParseCommand for static tables.
func MustParseCommand(s string) Command {
	c, err := ParseCommand(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseHexBytes parses up to seven space separated hex byte tokens.
func ParseHexBytes(s string) ([]byte, error) {
	if !hexTokens.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCommand, s)
	}
	fields := strings.Fields(s)
	out := make([]byte, 0, len(fields))
	for _, tok := range fields {
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCommand, tok)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// IsZero reports whether no command is configured.
func (c Command) IsZero() bool {
	return c == Command{}
}

// String renders the command as hex pairs.
func (c Command) String() string {
	parts := make([]string, len(c))
	for i, b := range c {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
