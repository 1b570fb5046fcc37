package transcode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// RequestMessageTranslator is the terminal sink of the request pipeline: it
// consumes the typed event stream for a single top-level message and
// produces one serialized protobuf, optionally prefixed with the gRPC
// length delimiter.
//
// Input returns the head of the filter chain (prefix writer, then weaver,
// then the protobuf writer); events pushed into it drive the translation.
// The translated message is exposed through the MessageStream side exactly
// once when the outer object completes.
type RequestMessageTranslator struct {
	listener         *StatusErrorListener
	input            ObjectWriter
	outputDelimiters bool

	out       []byte
	ready     bool
	delivered bool
}

// NewRequestMessageTranslator builds a translator for the message type named
// by info. Type resolution failures are recorded on the translator's status;
// the returned translator then drains events without output.
func NewRequestMessageTranslator(resolver TypeResolver, outputDelimiters bool, info *RequestInfo) *RequestMessageTranslator {
	return newRequestMessageTranslator(resolver, outputDelimiters, info, NewStatusErrorListener())
}

func newRequestMessageTranslator(resolver TypeResolver, outputDelimiters bool, info *RequestInfo, el *StatusErrorListener) *RequestMessageTranslator {
	t := &RequestMessageTranslator{listener: el, outputDelimiters: outputDelimiters}
	md, err := resolver.ResolveMessageType(info.MessageType)
	if err != nil {
		el.Set(status.Newf(codes.InvalidArgument, "unknown request message type %q: %v", info.MessageType, err))
		t.input = noopWriter{}
		return t
	}
	pw := newProtoStreamWriter(md, el, t.complete)
	var ow ObjectWriter = NewRequestWeaver(info.VariableBindings, pw, el, info.RejectBindingBodyCollisions)
	if prefix := info.bodyPrefix(); prefix != "" {
		ow = NewPrefixWriter(prefix, ow)
	}
	t.input = ow
	return t
}

// Input returns the ObjectWriter this translator consumes events through.
func (t *RequestMessageTranslator) Input() ObjectWriter { return t.input }

func (t *RequestMessageTranslator) complete(msg protoreflect.Message) {
	if !t.listener.OK() || t.ready || t.delivered {
		return
	}
	// Deterministic ordering keeps the bytes independent of map iteration,
	// so the same input always yields the same serialized message.
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg.Interface())
	if err != nil {
		t.listener.Set(status.Newf(codes.Internal, "failed to serialize message: %v", err))
		return
	}
	if t.outputDelimiters {
		b = appendDelimited(make([]byte, 0, len(b)+delimiterSize), b)
	}
	t.out = b
	t.ready = true
}

// NextMessage yields the translated message exactly once.
func (t *RequestMessageTranslator) NextMessage() ([]byte, bool) {
	if !t.ready || !t.listener.OK() {
		return nil, false
	}
	t.ready = false
	t.delivered = true
	out := t.out
	t.out = nil
	return out, true
}

// Finished reports that no further messages will be produced.
func (t *RequestMessageTranslator) Finished() bool {
	return t.delivered || !t.listener.OK()
}

// Status returns the translation status.
func (t *RequestMessageTranslator) Status() *status.Status { return t.listener.Status() }

// maxStructNestingDepth bounds dynamically typed Struct/Value/ListValue
// subtrees, which carry no descriptor to limit them. Statically typed
// messages have no fixed limit.
const maxStructNestingDepth = 32

type frameKind int

const (
	frameMessage frameKind = iota
	frameList
	frameMap
)

type writerFrame struct {
	kind frameKind

	// frameMessage
	msg      protoreflect.Message
	complete func(protoreflect.Message)

	// frameList
	list      protoreflect.List
	listField protoreflect.FieldDescriptor

	// frameMap
	mp       protoreflect.Map
	mapField protoreflect.FieldDescriptor

	name string
}

// protoStreamWriter builds a dynamic protobuf message from ObjectWriter
// events. The first error is recorded on the listener and the writer goes
// inert, accepting the rest of the stream as no-ops.
type protoStreamWriter struct {
	listener *StatusErrorListener
	rootDesc protoreflect.MessageDescriptor
	onDone   func(protoreflect.Message)

	frames []*writerFrame
	path   []string
	dyn    *dynBuilder
	done   bool
}

func newProtoStreamWriter(md protoreflect.MessageDescriptor, el *StatusErrorListener, onDone func(protoreflect.Message)) *protoStreamWriter {
	return &protoStreamWriter{listener: el, rootDesc: md, onDone: onDone}
}

func (w *protoStreamWriter) active() bool { return w.listener.OK() && !w.done }

func (w *protoStreamWriter) loc() string { return strings.Join(w.path, ".") }

func (w *protoStreamWriter) top() *writerFrame { return w.frames[len(w.frames)-1] }

func (w *protoStreamWriter) push(f *writerFrame, name string) {
	w.frames = append(w.frames, f)
	if name != "" {
		w.path = append(w.path, name)
	}
	f.name = name
}

func (w *protoStreamWriter) pop() *writerFrame {
	f := w.top()
	w.frames = w.frames[:len(w.frames)-1]
	if f.name != "" {
		w.path = w.path[:len(w.path)-1]
	}
	return f
}

func (w *protoStreamWriter) StartObject(name string) ObjectWriter {
	if !w.active() {
		return w
	}
	if w.dyn != nil {
		w.dyn.startObject(name)
		return w
	}
	if len(w.frames) == 0 {
		if isStructFamily(w.rootDesc.FullName()) {
			w.startRootDyn().startObject(name)
			return w
		}
		root := dynamicpb.NewMessage(w.rootDesc)
		w.push(&writerFrame{kind: frameMessage, msg: root, complete: w.finishRoot}, "")
		return w
	}
	switch f := w.top(); f.kind {
	case frameMessage:
		fd := lookupField(f.msg.Descriptor(), name)
		if fd == nil {
			w.listener.InvalidName(w.loc(), name)
			return w
		}
		w.startObjectField(f.msg, fd, name)
	case frameList:
		fd := f.listField
		if fd.Kind() != protoreflect.MessageKind && fd.Kind() != protoreflect.GroupKind {
			w.listener.InvalidValue(w.loc(), fd.Kind().String(), "object")
			return w
		}
		if isStructFamily(fd.Message().FullName()) {
			list := f.list
			w.startDyn(fd.Message(), func(v protoreflect.Value) { list.Append(v) }).startObject(name)
			return w
		}
		elem := f.list.NewElement().Message()
		list := f.list
		w.push(&writerFrame{kind: frameMessage, msg: elem, complete: func(m protoreflect.Message) {
			list.Append(protoreflect.ValueOfMessage(m))
		}}, "")
	case frameMap:
		fd := f.mapField.MapValue()
		key, err := mapKeyFromString(f.mapField.MapKey(), name)
		if err != nil {
			w.listener.InvalidValue(w.loc(), f.mapField.MapKey().Kind().String(), name)
			return w
		}
		if fd.Kind() != protoreflect.MessageKind {
			w.listener.InvalidValue(w.loc(), fd.Kind().String(), "object")
			return w
		}
		if isStructFamily(fd.Message().FullName()) {
			mp := f.mp
			w.startDyn(fd.Message(), func(v protoreflect.Value) { mp.Set(key, v) }).startObject("")
			return w
		}
		val := f.mp.NewValue().Message()
		mp := f.mp
		w.push(&writerFrame{kind: frameMessage, msg: val, complete: func(m protoreflect.Message) {
			mp.Set(key, protoreflect.ValueOfMessage(m))
		}}, name)
	}
	return w
}

// startObjectField handles a StartObject event addressing fd inside msg.
func (w *protoStreamWriter) startObjectField(msg protoreflect.Message, fd protoreflect.FieldDescriptor, name string) {
	switch {
	case fd.IsMap():
		w.push(&writerFrame{kind: frameMap, mp: msg.Mutable(fd).Map(), mapField: fd}, name)
	case fd.Kind() != protoreflect.MessageKind && fd.Kind() != protoreflect.GroupKind:
		w.listener.InvalidValue(w.loc()+"."+name, fd.Kind().String(), "object")
	case isStructFamily(fd.Message().FullName()):
		if fd.IsList() {
			list := msg.Mutable(fd).List()
			w.startDyn(fd.Message(), func(v protoreflect.Value) { list.Append(v) }).startObject(name)
			return
		}
		w.startDyn(fd.Message(), func(v protoreflect.Value) { msg.Set(fd, v) }).startObject(name)
	case fd.IsList():
		// An object rendered directly against a repeated message field
		// appends one element, the shape the weaver produces.
		list := msg.Mutable(fd).List()
		elem := list.NewElement().Message()
		w.push(&writerFrame{kind: frameMessage, msg: elem, complete: func(m protoreflect.Message) {
			list.Append(protoreflect.ValueOfMessage(m))
		}}, name)
	default:
		w.push(&writerFrame{kind: frameMessage, msg: msg.Mutable(fd).Message()}, name)
	}
}

func (w *protoStreamWriter) EndObject() ObjectWriter {
	if !w.active() {
		return w
	}
	if w.dyn != nil {
		w.dyn.endObject()
		w.closeDynIfDone()
		return w
	}
	if len(w.frames) == 0 {
		w.listener.Set(status.New(codes.Internal, "unbalanced end of object"))
		return w
	}
	f := w.pop()
	switch f.kind {
	case frameMessage:
		w.checkRequiredFields(f.msg)
		if !w.listener.OK() {
			return w
		}
		if f.complete != nil {
			f.complete(f.msg)
		}
	case frameMap:
		// Nothing to finalize; entries were set as they arrived.
	case frameList:
		w.listener.Set(status.New(codes.Internal, "end of object closes a list"))
	}
	return w
}

func (w *protoStreamWriter) StartList(name string) ObjectWriter {
	if !w.active() {
		return w
	}
	if w.dyn != nil {
		w.dyn.startList(name)
		return w
	}
	if len(w.frames) == 0 {
		if isStructFamily(w.rootDesc.FullName()) {
			w.startRootDyn().startList(name)
			return w
		}
		w.listener.Setf("expected a JSON object for message %s", w.rootDesc.FullName())
		return w
	}
	switch f := w.top(); f.kind {
	case frameMessage:
		fd := lookupField(f.msg.Descriptor(), name)
		if fd == nil {
			w.listener.InvalidName(w.loc(), name)
			return w
		}
		if fd.Kind() == protoreflect.MessageKind && isStructFamily(fd.Message().FullName()) && !fd.IsList() {
			// A repeated Value field is a plain list whose elements are
			// dynamically typed; only singular Struct-family fields swallow
			// the whole array.
			msg := f.msg
			w.startDyn(fd.Message(), func(v protoreflect.Value) { msg.Set(fd, v) }).startList(name)
			return w
		}
		if !fd.IsList() {
			w.listener.InvalidValue(w.loc()+"."+name, fd.Kind().String(), "array")
			return w
		}
		w.push(&writerFrame{kind: frameList, list: f.msg.Mutable(fd).List(), listField: fd}, name)
	case frameList:
		fd := f.listField
		if fd.Kind() == protoreflect.MessageKind && isStructFamily(fd.Message().FullName()) {
			list := f.list
			w.startDyn(fd.Message(), func(v protoreflect.Value) { list.Append(v) }).startList(name)
			return w
		}
		w.listener.InvalidValue(w.loc(), fd.Kind().String(), "nested array")
	case frameMap:
		fd := f.mapField.MapValue()
		if fd.Kind() == protoreflect.MessageKind && isStructFamily(fd.Message().FullName()) {
			key, err := mapKeyFromString(f.mapField.MapKey(), name)
			if err != nil {
				w.listener.InvalidValue(w.loc(), f.mapField.MapKey().Kind().String(), name)
				return w
			}
			mp := f.mp
			w.startDyn(fd.Message(), func(v protoreflect.Value) { mp.Set(key, v) }).startList("")
			return w
		}
		w.listener.InvalidValue(w.loc(), fd.Kind().String(), "array")
	}
	return w
}

func (w *protoStreamWriter) EndList() ObjectWriter {
	if !w.active() {
		return w
	}
	if w.dyn != nil {
		w.dyn.endList()
		w.closeDynIfDone()
		return w
	}
	if len(w.frames) == 0 || w.top().kind != frameList {
		w.listener.Set(status.New(codes.Internal, "unbalanced end of list"))
		return w
	}
	w.pop()
	return w
}

func (w *protoStreamWriter) RenderNull(name string) ObjectWriter {
	return w.render(name, nullPiece())
}

func (w *protoStreamWriter) RenderBool(name string, value bool) ObjectWriter {
	return w.render(name, boolPiece(value))
}

func (w *protoStreamWriter) RenderInt32(name string, value int32) ObjectWriter {
	return w.render(name, int32Piece(value))
}

func (w *protoStreamWriter) RenderUint32(name string, value uint32) ObjectWriter {
	return w.render(name, uint32Piece(value))
}

func (w *protoStreamWriter) RenderInt64(name string, value int64) ObjectWriter {
	return w.render(name, int64Piece(value))
}

func (w *protoStreamWriter) RenderUint64(name string, value uint64) ObjectWriter {
	return w.render(name, uint64Piece(value))
}

func (w *protoStreamWriter) RenderFloat(name string, value float32) ObjectWriter {
	return w.render(name, floatPiece(value))
}

func (w *protoStreamWriter) RenderDouble(name string, value float64) ObjectWriter {
	return w.render(name, doublePiece(value))
}

func (w *protoStreamWriter) RenderString(name string, value string) ObjectWriter {
	return w.render(name, stringPiece(value))
}

func (w *protoStreamWriter) RenderBytes(name string, value []byte) ObjectWriter {
	return w.render(name, bytesPiece(value))
}

func (w *protoStreamWriter) render(name string, p dataPiece) ObjectWriter {
	if !w.active() {
		return w
	}
	if w.dyn != nil {
		w.dyn.render(name, p)
		w.closeDynIfDone()
		return w
	}
	if len(w.frames) == 0 {
		if isStructFamily(w.rootDesc.FullName()) {
			w.startRootDyn().render(name, p)
			w.closeDynIfDone()
			return w
		}
		w.listener.Setf("expected a JSON object for message %s", w.rootDesc.FullName())
		return w
	}
	switch f := w.top(); f.kind {
	case frameMessage:
		w.renderField(f.msg, name, p)
	case frameList:
		if f.listField.Kind() == protoreflect.MessageKind && isStructFamily(f.listField.Message().FullName()) {
			list := f.list
			w.startDyn(f.listField.Message(), func(v protoreflect.Value) { list.Append(v) }).render(name, p)
			w.closeDynIfDone()
			return w
		}
		if p.kind == dataNull {
			w.listener.InvalidValue(w.loc(), f.listField.Kind().String(), "null")
			return w
		}
		v, err := w.scalarValue(f.listField, p)
		if err != nil {
			w.scalarError(w.loc(), f.listField, p, err)
			return w
		}
		f.list.Append(v)
	case frameMap:
		key, err := mapKeyFromString(f.mapField.MapKey(), name)
		if err != nil {
			w.listener.InvalidValue(w.loc(), f.mapField.MapKey().Kind().String(), name)
			return w
		}
		if p.kind == dataNull {
			return w
		}
		v, err := w.scalarValue(f.mapField.MapValue(), p)
		if err != nil {
			w.scalarError(w.loc()+"."+name, f.mapField.MapValue(), p, err)
			return w
		}
		f.mp.Set(key, v)
	}
	return w
}

func (w *protoStreamWriter) renderField(msg protoreflect.Message, name string, p dataPiece) {
	fd := lookupField(msg.Descriptor(), name)
	if fd == nil {
		w.listener.InvalidName(w.loc(), name)
		return
	}
	loc := name
	if l := w.loc(); l != "" {
		loc = l + "." + name
	}
	if fd.IsMap() {
		w.listener.InvalidValue(loc, "map", p.valueAsString())
		return
	}
	if p.kind == dataNull {
		// JSON null leaves the field unset, except for Value which has an
		// explicit null representation.
		if fd.Kind() == protoreflect.MessageKind && fd.Message().FullName() == "google.protobuf.Value" && !fd.IsList() {
			w.startDyn(fd.Message(), func(v protoreflect.Value) { msg.Set(fd, v) }).render(name, p)
			w.closeDynIfDone()
		}
		return
	}
	if fd.Kind() == protoreflect.MessageKind && isStructFamily(fd.Message().FullName()) {
		if fd.IsList() {
			list := msg.Mutable(fd).List()
			w.startDyn(fd.Message(), func(v protoreflect.Value) { list.Append(v) }).render(name, p)
		} else {
			w.startDyn(fd.Message(), func(v protoreflect.Value) { msg.Set(fd, v) }).render(name, p)
		}
		w.closeDynIfDone()
		return
	}
	v, err := w.scalarValue(fd, p)
	if err != nil {
		w.scalarError(loc, fd, p, err)
		return
	}
	if fd.IsList() {
		// Repeated values rendered outside a list (weaver bindings, URI
		// repetitions) append in arrival order.
		msg.Mutable(fd).List().Append(v)
		return
	}
	msg.Set(fd, v)
}

func (w *protoStreamWriter) scalarError(loc string, fd protoreflect.FieldDescriptor, p dataPiece, err error) {
	if _, ok := err.(*rangeError); ok {
		w.listener.Set(status.Newf(codes.OutOfRange, "%s: %v", loc, err))
		return
	}
	typeName := fd.Kind().String()
	if fd.Kind() == protoreflect.MessageKind {
		typeName = string(fd.Message().FullName())
	} else if fd.Kind() == protoreflect.EnumKind {
		typeName = string(fd.Enum().FullName())
	}
	w.listener.InvalidValue(loc, typeName, strconv.Quote(p.valueAsString()))
}

// scalarValue coerces p to the wire type of fd. Message kinds cover the
// well-known types that have scalar JSON forms.
func (w *protoStreamWriter) scalarValue(fd protoreflect.FieldDescriptor, p dataPiece) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		v, err := p.toBool()
		return protoreflect.ValueOfBool(v), err
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		v, err := p.toInt32()
		return protoreflect.ValueOfInt32(v), err
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		v, err := p.toInt64()
		return protoreflect.ValueOfInt64(v), err
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		v, err := p.toUint32()
		return protoreflect.ValueOfUint32(v), err
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		v, err := p.toUint64()
		return protoreflect.ValueOfUint64(v), err
	case protoreflect.FloatKind:
		v, err := p.toFloat()
		return protoreflect.ValueOfFloat32(v), err
	case protoreflect.DoubleKind:
		v, err := p.toDouble()
		return protoreflect.ValueOfFloat64(v), err
	case protoreflect.StringKind:
		v, err := p.toString()
		return protoreflect.ValueOfString(v), err
	case protoreflect.BytesKind:
		v, err := p.toBytes()
		return protoreflect.ValueOfBytes(v), err
	case protoreflect.EnumKind:
		return enumValue(fd.Enum(), p)
	case protoreflect.MessageKind:
		return w.wellKnownScalarValue(fd.Message(), p)
	}
	return protoreflect.Value{}, fmt.Errorf("unsupported field kind %s", fd.Kind())
}

func enumValue(ed protoreflect.EnumDescriptor, p dataPiece) (protoreflect.Value, error) {
	switch p.kind {
	case dataString:
		if vd := ed.Values().ByName(protoreflect.Name(p.sval)); vd != nil {
			return protoreflect.ValueOfEnum(vd.Number()), nil
		}
		if n, err := strconv.ParseInt(p.sval, 10, 32); err == nil {
			return protoreflect.ValueOfEnum(protoreflect.EnumNumber(n)), nil
		}
		return protoreflect.Value{}, fmt.Errorf("unknown enum value %q", p.sval)
	case dataInt32, dataInt64, dataUint32, dataUint64, dataDouble, dataFloat:
		n, err := p.toInt32()
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfEnum(protoreflect.EnumNumber(n)), nil
	}
	return protoreflect.Value{}, fmt.Errorf("cannot convert %s to enum", p.kind)
}

// wellKnownScalarValue builds the message kinds whose JSON form is a
// scalar: the wrapper types, Timestamp, Duration, and FieldMask.
func (w *protoStreamWriter) wellKnownScalarValue(md protoreflect.MessageDescriptor, p dataPiece) (protoreflect.Value, error) {
	name := md.FullName()
	switch name {
	case "google.protobuf.DoubleValue", "google.protobuf.FloatValue",
		"google.protobuf.Int64Value", "google.protobuf.UInt64Value",
		"google.protobuf.Int32Value", "google.protobuf.UInt32Value",
		"google.protobuf.BoolValue", "google.protobuf.StringValue",
		"google.protobuf.BytesValue":
		msg := dynamicpb.NewMessage(md)
		inner := md.Fields().ByName("value")
		v, err := w.scalarValue(inner, p)
		if err != nil {
			return protoreflect.Value{}, err
		}
		msg.Set(inner, v)
		return protoreflect.ValueOfMessage(msg), nil
	case "google.protobuf.Timestamp":
		s, err := p.toString()
		if err != nil {
			return protoreflect.Value{}, err
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return protoreflect.Value{}, fmt.Errorf("invalid timestamp %q", s)
		}
		msg := dynamicpb.NewMessage(md)
		msg.Set(md.Fields().ByName("seconds"), protoreflect.ValueOfInt64(ts.Unix()))
		msg.Set(md.Fields().ByName("nanos"), protoreflect.ValueOfInt32(int32(ts.Nanosecond())))
		return protoreflect.ValueOfMessage(msg), nil
	case "google.protobuf.Duration":
		s, err := p.toString()
		if err != nil {
			return protoreflect.Value{}, err
		}
		if !strings.HasSuffix(s, "s") {
			return protoreflect.Value{}, fmt.Errorf("invalid duration %q", s)
		}
		seconds, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
		if err != nil {
			return protoreflect.Value{}, fmt.Errorf("invalid duration %q", s)
		}
		d := time.Duration(seconds * float64(time.Second))
		msg := dynamicpb.NewMessage(md)
		msg.Set(md.Fields().ByName("seconds"), protoreflect.ValueOfInt64(int64(d/time.Second)))
		msg.Set(md.Fields().ByName("nanos"), protoreflect.ValueOfInt32(int32(d%time.Second)))
		return protoreflect.ValueOfMessage(msg), nil
	case "google.protobuf.FieldMask":
		s, err := p.toString()
		if err != nil {
			return protoreflect.Value{}, err
		}
		msg := dynamicpb.NewMessage(md)
		paths := msg.Mutable(md.Fields().ByName("paths")).List()
		for _, path := range strings.Split(s, ",") {
			if path != "" {
				paths.Append(protoreflect.ValueOfString(path))
			}
		}
		return protoreflect.ValueOfMessage(msg), nil
	}
	return protoreflect.Value{}, fmt.Errorf("cannot render a scalar into message %s", name)
}

// checkRequiredFields reports proto2 required fields left unset when their
// containing message closes.
func (w *protoStreamWriter) checkRequiredFields(msg protoreflect.Message) {
	fields := msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.Cardinality() == protoreflect.Required && !msg.Has(fd) {
			w.listener.MissingField(w.loc(), string(fd.Name()))
			return
		}
	}
}

func (w *protoStreamWriter) finishRoot(msg protoreflect.Message) {
	w.done = true
	if w.onDone != nil {
		w.onDone(msg)
	}
}

func (w *protoStreamWriter) startRootDyn() *dynBuilder {
	w.startDyn(w.rootDesc, func(v protoreflect.Value) {
		w.done = true
		if w.onDone != nil {
			w.onDone(v.Message())
		}
	})
	return w.dyn
}

func (w *protoStreamWriter) startDyn(md protoreflect.MessageDescriptor, assign func(protoreflect.Value)) *dynBuilder {
	w.dyn = &dynBuilder{target: md, assign: assign, listener: w.listener, loc: w.loc()}
	return w.dyn
}

func (w *protoStreamWriter) closeDynIfDone() {
	if w.dyn != nil && w.dyn.finished {
		w.dyn = nil
	}
}

func isStructFamily(name protoreflect.FullName) bool {
	switch name {
	case "google.protobuf.Struct", "google.protobuf.Value", "google.protobuf.ListValue":
		return true
	}
	return false
}

func mapKeyFromString(fd protoreflect.FieldDescriptor, key string) (protoreflect.MapKey, error) {
	p := stringPiece(key)
	switch fd.Kind() {
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(key).MapKey(), nil
	case protoreflect.BoolKind:
		v, err := p.toBool()
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		return protoreflect.ValueOfBool(v).MapKey(), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		v, err := p.toInt32()
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		return protoreflect.ValueOfInt32(v).MapKey(), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		v, err := p.toInt64()
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		return protoreflect.ValueOfInt64(v).MapKey(), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		v, err := p.toUint32()
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		return protoreflect.ValueOfUint32(v).MapKey(), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		v, err := p.toUint64()
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		return protoreflect.ValueOfUint64(v).MapKey(), nil
	}
	return protoreflect.MapKey{}, fmt.Errorf("unsupported map key kind %s", fd.Kind())
}

// noopWriter discards every event. It stands in for the filter chain when
// construction fails so callers can still drain their input.
type noopWriter struct{}

func (n noopWriter) StartObject(string) ObjectWriter            { return n }
func (n noopWriter) EndObject() ObjectWriter                    { return n }
func (n noopWriter) StartList(string) ObjectWriter              { return n }
func (n noopWriter) EndList() ObjectWriter                      { return n }
func (n noopWriter) RenderNull(string) ObjectWriter             { return n }
func (n noopWriter) RenderBool(string, bool) ObjectWriter       { return n }
func (n noopWriter) RenderInt32(string, int32) ObjectWriter     { return n }
func (n noopWriter) RenderUint32(string, uint32) ObjectWriter   { return n }
func (n noopWriter) RenderInt64(string, int64) ObjectWriter     { return n }
func (n noopWriter) RenderUint64(string, uint64) ObjectWriter   { return n }
func (n noopWriter) RenderFloat(string, float32) ObjectWriter   { return n }
func (n noopWriter) RenderDouble(string, float64) ObjectWriter  { return n }
func (n noopWriter) RenderString(string, string) ObjectWriter   { return n }
func (n noopWriter) RenderBytes(string, []byte) ObjectWriter    { return n }
