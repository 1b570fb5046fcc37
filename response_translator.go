package transcode

import (
	"fmt"
	"log/slog"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ResponseToJSONTranslator is the reverse path: it turns protobuf response
// frames coming back from the gRPC backend into JSON for the HTTP client.
// Frames may arrive raw (one complete message per Translate call) or as a
// delimited byte stream fed incrementally, where each message is preceded
// by the five-byte gRPC length delimiter and the delimiter itself may be
// split across reads.
type ResponseToJSONTranslator struct {
	md        protoreflect.MessageDescriptor
	marshaler protojson.MarshalOptions
	logger    *slog.Logger

	buf []byte
}

// NewResponseToJSONTranslator resolves messageType and prepares a
// translator for it.
func NewResponseToJSONTranslator(resolver TypeResolver, messageType string, opts ...Option) (*ResponseToJSONTranslator, error) {
	o := newTranslatorOptions(opts)
	md, err := resolver.ResolveMessageType(messageType)
	if err != nil {
		return nil, fmt.Errorf("unknown response message type %q: %w", messageType, err)
	}
	return &ResponseToJSONTranslator{md: md, logger: o.logger}, nil
}

// Translate converts one complete serialized message to JSON.
func (t *ResponseToJSONTranslator) Translate(message []byte) ([]byte, error) {
	msg := dynamicpb.NewMessage(t.md)
	if err := proto.Unmarshal(message, msg); err != nil {
		return nil, fmt.Errorf("failed to parse response message: %w", err)
	}
	out, err := t.marshaler.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response JSON: %w", err)
	}
	t.logger.Debug("translated response message", "bytes", len(out))
	return out, nil
}

// Feed appends delimited stream bytes for NextJSON to consume.
func (t *ResponseToJSONTranslator) Feed(data []byte) {
	t.buf = append(t.buf, data...)
}

// NextJSON translates the next complete delimited frame from the fed
// bytes. It returns false when no complete frame is buffered yet.
func (t *ResponseToJSONTranslator) NextJSON() ([]byte, bool, error) {
	if len(t.buf) < delimiterSize {
		return nil, false, nil
	}
	n := parseDelimiter(t.buf)
	if len(t.buf) < delimiterSize+n {
		return nil, false, nil
	}
	frame := t.buf[delimiterSize : delimiterSize+n]
	out, err := t.Translate(frame)
	if err != nil {
		return nil, false, err
	}
	t.buf = t.buf[delimiterSize+n:]
	return out, true, nil
}
