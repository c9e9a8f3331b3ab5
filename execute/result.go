package execute

import "fmt"

// ErrorKind classifies command failures. The kind never reaches the
// rendered text directly; it is kept on the Result for caller-side logging.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindParse
	KindUnknownCommand
	KindValidation
	KindUpstream
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindParse:
		return "parse_error"
	case KindUnknownCommand:
		return "unknown_command"
	case KindValidation:
		return "validation_error"
	case KindUpstream:
		return "upstream_error"
	case KindTimeout:
		return "timeout_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of resolving one command block.
type Result struct {
	// Text is the rendered payload on success.
	Text string
	// Kind is KindNone on success.
	Kind ErrorKind
	// Message carries error detail for logging. For validation failures it
	// names the offending field; it is user-safe but not user-facing except
	// where Render chooses to include it.
	Message string
}

// Ok returns a successful result with rendered text.
func Ok(text string) Result {
	return Result{Text: text}
}

// Errf returns a failed result of the given kind.
func Errf(kind ErrorKind, format string, args ...any) Result {
	return Result{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Err reports whether the result is a failure.
func (r Result) Err() bool {
	return r.Kind != KindNone
}

// Render produces the text substituted for the original block in the
// client-visible stream. Errors render short and generic; internal detail
// stays in Message.
func (r Result) Render() string {
	switch r.Kind {
	case KindNone:
		return r.Text
	case KindParse:
		return "The command could not be read."
	case KindUnknownCommand:
		return r.Message
	case KindValidation:
		return "The command is missing or has an invalid argument: " + r.Message + "."
	case KindTimeout:
		return "The request took too long and was cancelled. Please try again."
	default:
		return "The service is temporarily unavailable. Please try again later."
	}
}
