package jobs

import (
	"context"
	"errors"
)

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (Message, bool) {
	if ctx == nil {
		return Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(Message)
	return msg, ok
}

// HandleMessage parses, validates and processes a queue payload.
func HandleMessage(ctx context.Context, processor Processor, body string) error {
	if processor == nil {
		return errors.New("processor not configured")
	}
	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}
	if msg.FileID <= 0 {
		return ErrMissingFileID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}
	if err := processor.Run(ctx, msg.FileID, msg.RequestID); err != nil {
		return ErrProcess{FileID: msg.FileID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
