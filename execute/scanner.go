package execute

import "strings"

// Tags delimiting an embedded command region in agent output.
const (
	OpenTag  = "[EXECUTE]"
	CloseTag = "[/EXECUTE]"
)

// EventType discriminates scanner output events.
type EventType int

const (
	// EventText is a span of agent text to pass through to the client.
	EventText EventType = iota
	// EventBlock is the body of one complete [EXECUTE]...[/EXECUTE] region,
	// with surrounding whitespace trimmed.
	EventBlock
)

// Event is one unit of scanner output.
type Event struct {
	Type EventType
	Text string
}

// Scanner reassembles [EXECUTE] blocks from a fragmented text stream.
// Fragments may split a tag at any byte; the scanner withholds only the
// shortest trailing text that could still be the start of a tag, so plain
// text flows out with minimal latency.
//
// A Scanner tracks at most one open block. Nested opening tags are not
// special: the first closing tag terminates the block.
type Scanner struct {
	inside bool
	buf    strings.Builder
}

// NewScanner returns a scanner in the outside-of-block state.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Feed consumes the next stream fragment and returns the events it
// completes, in stream order.
func (s *Scanner) Feed(fragment string) []Event {
	if fragment == "" {
		return nil
	}
	s.buf.WriteString(fragment)
	return s.drain(false)
}

// Flush signals end of stream. An unterminated block is returned verbatim
// as plain text, opening tag included, so no agent output is ever lost.
func (s *Scanner) Flush() []Event {
	events := s.drain(true)
	pending := s.buf.String()
	s.buf.Reset()
	if s.inside {
		s.inside = false
		pending = OpenTag + pending
	}
	if pending != "" {
		events = append(events, Event{Type: EventText, Text: pending})
	}
	return events
}

func (s *Scanner) drain(final bool) []Event {
	var events []Event
	data := s.buf.String()

	for {
		if s.inside {
			idx := strings.Index(data, CloseTag)
			if idx < 0 {
				break
			}
			events = append(events, Event{Type: EventBlock, Text: strings.TrimSpace(data[:idx])})
			data = data[idx+len(CloseTag):]
			s.inside = false
			continue
		}

		idx := strings.Index(data, OpenTag)
		if idx >= 0 {
			if idx > 0 {
				events = append(events, Event{Type: EventText, Text: data[:idx]})
			}
			data = data[idx+len(OpenTag):]
			s.inside = true
			continue
		}

		// No opening tag yet. Emit everything except a trailing run that
		// could still grow into one.
		if !final {
			keep := tagPrefixLen(data, OpenTag)
			if emit := data[:len(data)-keep]; emit != "" {
				events = append(events, Event{Type: EventText, Text: emit})
			}
			data = data[len(data)-keep:]
		}
		break
	}

	s.buf.Reset()
	s.buf.WriteString(data)
	return events
}

// tagPrefixLen returns the length of the longest suffix of s that is a
// proper prefix of tag.
func tagPrefixLen(s, tag string) int {
	max := len(tag) - 1
	if len(s) < max {
		max = len(s)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(s, tag[:k]) {
			return k
		}
	}
	return 0
}
