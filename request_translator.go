package transcode

import (
	"log/slog"

	"google.golang.org/grpc/status"
)

// JSONRequestTranslator composes the whole request pipeline for one call:
// bytes pulled from an InputStream are parsed incrementally and pushed
// through the prefix writer, the request weaver, and a message translator
// (or a stream translator for streaming calls). The translated messages are
// pulled through Output.
//
// The translator is lazy and single-threaded: input is consumed only while
// the caller pulls on the output side, and an input stream that reports "no
// data right now" simply unwinds the pull with all parser state preserved.
type JSONRequestTranslator struct {
	input    InputStream
	parser   *jsonSource
	message  interface {
		MessageStream
		Input() ObjectWriter
	}
	listener *StatusErrorListener
	logger   *slog.Logger

	parsingDone bool
}

// NewJSONRequestTranslator builds the pipeline described by info over the
// given input. With streamingRequest the input must be a JSON array and one
// message is produced per element; otherwise the input is a single object
// producing exactly one message. outputDelimiters prefixes every produced
// message with the five-byte gRPC length delimiter.
func NewJSONRequestTranslator(resolver TypeResolver, input InputStream, info *RequestInfo, streamingRequest, outputDelimiters bool, opts ...Option) *JSONRequestTranslator {
	o := newTranslatorOptions(opts)
	t := &JSONRequestTranslator{
		input:    input,
		listener: NewStatusErrorListener(),
		logger:   o.logger,
	}
	if streamingRequest {
		t.message = newRequestStreamTranslator(resolver, outputDelimiters, info, t.listener)
	} else {
		t.message = newRequestMessageTranslator(resolver, outputDelimiters, info, t.listener)
	}
	t.parser = newJSONSource(t.message.Input(), t.listener)
	return t
}

// Output returns the message stream side of the pipeline.
func (t *JSONRequestTranslator) Output() MessageStream { return t }

// NextMessage pulls input until a translated message is available, the
// input is exhausted, or the input has nothing to offer right now.
func (t *JSONRequestTranslator) NextMessage() ([]byte, bool) {
	for {
		if msg, ok := t.message.NextMessage(); ok {
			t.logger.Debug("translated request message", "bytes", len(msg))
			return msg, true
		}
		if t.parsingDone {
			return nil, false
		}
		if t.input.Finished() {
			t.parser.FinishParse()
			t.parsingDone = true
			if !t.listener.OK() {
				t.logger.Debug("request translation failed", "status", t.listener.Status().Message())
			}
			continue
		}
		chunk := t.input.Next()
		if chunk == nil {
			if t.input.Finished() {
				continue
			}
			// Not ready; the caller re-drives when more input arrives.
			return nil, false
		}
		t.parser.Parse(chunk)
	}
}

// Finished reports whether the pipeline can still produce messages.
func (t *JSONRequestTranslator) Finished() bool {
	return (t.parsingDone || !t.listener.OK()) && t.message.Finished()
}

// Status returns the first non-OK status recorded anywhere in the pipeline.
func (t *JSONRequestTranslator) Status() *status.Status { return t.listener.Status() }
