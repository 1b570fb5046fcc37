package transcode

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RequestStreamTranslator translates the event stream of an outer JSON
// array into a sequence of protobuf messages, one per array element. Each
// element is handed to a fresh RequestMessageTranslator, so variable
// bindings are woven into every message of the stream. Translated messages
// accumulate in FIFO order and are pulled through the MessageStream side.
type RequestStreamTranslator struct {
	resolver         TypeResolver
	listener         *StatusErrorListener
	info             *RequestInfo
	outputDelimiters bool

	translator *RequestMessageTranslator
	messages   [][]byte

	// Depth within the object tree; the root level (the outer array) is
	// special-cased.
	depth int
	done  bool
}

// NewRequestStreamTranslator builds a stream translator for the message
// type named by info.
func NewRequestStreamTranslator(resolver TypeResolver, outputDelimiters bool, info *RequestInfo) *RequestStreamTranslator {
	return newRequestStreamTranslator(resolver, outputDelimiters, info, NewStatusErrorListener())
}

func newRequestStreamTranslator(resolver TypeResolver, outputDelimiters bool, info *RequestInfo, el *StatusErrorListener) *RequestStreamTranslator {
	return &RequestStreamTranslator{
		resolver:         resolver,
		listener:         el,
		info:             info,
		outputDelimiters: outputDelimiters,
	}
}

// Input returns the ObjectWriter this translator consumes events through.
func (t *RequestStreamTranslator) Input() ObjectWriter { return t }

// NextMessage pops the next translated message from the FIFO.
func (t *RequestStreamTranslator) NextMessage() ([]byte, bool) {
	if len(t.messages) == 0 {
		return nil, false
	}
	msg := t.messages[0]
	t.messages = t.messages[1:]
	return msg, true
}

// Finished reports that the outer array has closed (or translation failed)
// and the FIFO is drained.
func (t *RequestStreamTranslator) Finished() bool {
	return (t.done || !t.listener.OK()) && len(t.messages) == 0
}

// Status returns the translation status.
func (t *RequestStreamTranslator) Status() *status.Status { return t.listener.Status() }

func (t *RequestStreamTranslator) startMessageTranslator() {
	t.translator = newRequestMessageTranslator(t.resolver, t.outputDelimiters, t.info, NewStatusErrorListener())
}

func (t *RequestStreamTranslator) endMessageTranslator() {
	child := t.translator
	t.translator = nil
	if st := child.Status(); st.Code() != codes.OK {
		t.listener.Set(st)
		return
	}
	if msg, ok := child.NextMessage(); ok {
		t.messages = append(t.messages, msg)
	}
}

func (t *RequestStreamTranslator) active() bool { return t.listener.OK() }

func (t *RequestStreamTranslator) StartObject(name string) ObjectWriter {
	switch {
	case !t.active():
	case t.done:
		t.listener.Setf("unexpected data after the end of the message stream")
	case t.depth == 0:
		t.listener.Setf("expected a JSON array of request messages")
	case t.depth == 1:
		t.startMessageTranslator()
		t.translator.Input().StartObject("")
		t.depth++
	default:
		t.translator.Input().StartObject(name)
		t.depth++
	}
	return t
}

func (t *RequestStreamTranslator) EndObject() ObjectWriter {
	switch {
	case !t.active():
	case t.depth <= 1:
		t.listener.Setf("mismatched end of object in message stream")
	default:
		t.depth--
		t.translator.Input().EndObject()
		if t.depth == 1 {
			t.endMessageTranslator()
		}
	}
	return t
}

func (t *RequestStreamTranslator) StartList(name string) ObjectWriter {
	switch {
	case !t.active():
	case t.done:
		t.listener.Setf("unexpected data after the end of the message stream")
	case t.depth == 0:
		// The outer array that carries the stream elements.
		t.depth = 1
	case t.depth == 1:
		t.listener.Setf("expected a JSON object as a stream element")
	default:
		t.translator.Input().StartList(name)
		t.depth++
	}
	return t
}

func (t *RequestStreamTranslator) EndList() ObjectWriter {
	switch {
	case !t.active():
	case t.depth == 1:
		t.depth = 0
		t.done = true
	case t.depth > 1:
		t.depth--
		t.translator.Input().EndList()
	default:
		t.listener.Setf("mismatched end of array in message stream")
	}
	return t
}

func (t *RequestStreamTranslator) RenderNull(name string) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderNull(name) })
}

func (t *RequestStreamTranslator) RenderBool(name string, value bool) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderBool(name, value) })
}

func (t *RequestStreamTranslator) RenderInt32(name string, value int32) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderInt32(name, value) })
}

func (t *RequestStreamTranslator) RenderUint32(name string, value uint32) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderUint32(name, value) })
}

func (t *RequestStreamTranslator) RenderInt64(name string, value int64) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderInt64(name, value) })
}

func (t *RequestStreamTranslator) RenderUint64(name string, value uint64) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderUint64(name, value) })
}

func (t *RequestStreamTranslator) RenderFloat(name string, value float32) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderFloat(name, value) })
}

func (t *RequestStreamTranslator) RenderDouble(name string, value float64) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderDouble(name, value) })
}

func (t *RequestStreamTranslator) RenderString(name string, value string) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderString(name, value) })
}

func (t *RequestStreamTranslator) RenderBytes(name string, value []byte) ObjectWriter {
	return t.renderData(name, func(ow ObjectWriter) { ow.RenderBytes(name, value) })
}

// renderData forwards a scalar into the current element; scalars are not
// valid stream elements themselves.
func (t *RequestStreamTranslator) renderData(_ string, render func(ObjectWriter)) ObjectWriter {
	switch {
	case !t.active():
	case t.depth >= 2:
		render(t.translator.Input())
	case t.done:
		t.listener.Setf("unexpected data after the end of the message stream")
	default:
		t.listener.Setf("expected a JSON object as a stream element")
	}
	return t
}
