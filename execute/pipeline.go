package execute

import (
	"context"

	"go.uber.org/zap"
)

// outputBuffer bounds the rewritten stream so that a slow client applies
// back-pressure to the pipeline instead of buffering the whole reply.
const outputBuffer = 16

// Pipeline rewrites one agent reply stream: plain text passes through,
// [EXECUTE] blocks are resolved and replaced with rendered results.
//
// One pipeline run serves one chat turn. Runs for different turns are
// independent; the pipeline holds no cross-turn state beyond the
// dispatcher's read-only registries.
type Pipeline struct {
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewPipeline creates a pipeline over the given dispatcher.
func NewPipeline(dispatcher *Dispatcher, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{dispatcher: dispatcher, logger: logger}
}

// Process consumes agent text fragments from in and returns the rewritten,
// client-safe stream. The returned channel is closed after the last
// fragment (and any trailing unterminated block) has been forwarded.
//
// Ordering is preserved: output emitted before a block is already sent,
// output after it waits until the block resolves. Cancelling ctx stops the
// run and cancels any in-flight handler call; its result is discarded.
func (p *Pipeline) Process(ctx context.Context, ec ExecutionContext, in <-chan string) <-chan string {
	out := make(chan string, outputBuffer)
	logger := p.logger.With(
		zap.String("tenantID", ec.TenantID.String()),
		zap.String("dialogID", ec.DialogID.String()),
		zap.String("role", ec.Role.String()),
	)

	go func() {
		defer close(out)

		scanner := NewScanner()

		emit := func(text string) bool {
			select {
			case out <- text:
				return true
			case <-ctx.Done():
				return false
			}
		}

		handle := func(ev Event) bool {
			switch ev.Type {
			case EventBlock:
				result := p.resolve(ctx, ec, ev.Text, logger)
				if ctx.Err() != nil {
					return false
				}
				// Blank lines keep the substitution readable where the
				// block sat inside surrounding prose.
				return emit("\n\n" + result.Render() + "\n\n")
			default:
				if ev.Text == "" {
					return true
				}
				return emit(ev.Text)
			}
		}

		for {
			select {
			case <-ctx.Done():
				logger.Debug("Pipeline cancelled", zap.Error(ctx.Err()))
				return
			case fragment, ok := <-in:
				if !ok {
					for _, ev := range scanner.Flush() {
						if !handle(ev) {
							return
						}
					}
					return
				}
				for _, ev := range scanner.Feed(fragment) {
					if !handle(ev) {
						return
					}
				}
			}
		}
	}()

	return out
}

func (p *Pipeline) resolve(ctx context.Context, ec ExecutionContext, body string, logger *zap.Logger) Result {
	blk, err := ParseBlock(body)
	if err != nil {
		logger.Warn("Command block failed to parse", zap.Error(err))
		return Errf(KindParse, "%v", err)
	}

	result := p.dispatcher.Dispatch(ctx, ec, blk)
	if result.Err() {
		logger.Warn("Command resolved with error",
			zap.String("command", blk.Name),
			zap.String("kind", result.Kind.String()),
			zap.String("detail", result.Message))
	} else {
		logger.Debug("Command resolved", zap.String("command", blk.Name))
	}
	return result
}
