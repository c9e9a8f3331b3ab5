package execute

import (
	"errors"
	"strings"
)

// ErrEmptyBlock is returned for a block with no command name.
var ErrEmptyBlock = errors.New("empty command block")

// Arg is one parsed argument line. Key is empty for positional values.
type Arg struct {
	Key   string
	Value string
}

// CommandBlock is the parsed form of one [EXECUTE] block body.
type CommandBlock struct {
	// Name is the first non-blank line of the body, trimmed. Matched
	// case-sensitively against registry entries.
	Name string
	// Args holds the remaining non-blank lines in order: key=value lines
	// split on the first '=', bare lines as positional values.
	Args []Arg
	// Rest is the untouched body after the name line, outer whitespace
	// trimmed. Multi-line commands (ADD_CHUNK, EDIT_CHUNK) consume this
	// instead of Args so that answer text keeps its own line breaks.
	Rest string
}

// ParseBlock converts a raw block body into a CommandBlock.
// Line splitting itself cannot fail; the only parse error is a body with
// no command name at all.
func ParseBlock(body string) (CommandBlock, error) {
	lines := strings.Split(body, "\n")

	nameIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return CommandBlock{}, ErrEmptyBlock
	}

	blk := CommandBlock{
		Name: strings.TrimSpace(lines[nameIdx]),
		Rest: strings.TrimSpace(strings.Join(lines[nameIdx+1:], "\n")),
	}

	for _, line := range lines[nameIdx+1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if k, v, found := strings.Cut(line, "="); found {
			blk.Args = append(blk.Args, Arg{Key: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
		} else {
			blk.Args = append(blk.Args, Arg{Value: line})
		}
	}
	return blk, nil
}

// Get returns the value of the first argument whose key matches,
// case-insensitively, and whether it was present.
func (b CommandBlock) Get(key string) (string, bool) {
	for _, a := range b.Args {
		if strings.EqualFold(a.Key, key) {
			return a.Value, true
		}
	}
	return "", false
}

// Format re-emits the block in wire format. Parsing a formatted block
// yields an equal name and argument list.
func (b CommandBlock) Format() string {
	var sb strings.Builder
	sb.WriteString(OpenTag)
	sb.WriteByte('\n')
	sb.WriteString(b.Name)
	sb.WriteByte('\n')
	for _, a := range b.Args {
		if a.Key != "" {
			sb.WriteString(a.Key)
			sb.WriteByte('=')
		}
		sb.WriteString(a.Value)
		sb.WriteByte('\n')
	}
	sb.WriteString(CloseTag)
	return sb.String()
}
