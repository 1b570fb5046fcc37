package transcode

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// weaveInfo is one node of the per-request binding tree. bindings holds the
// values to render into this message; messages holds child nodes keyed by
// the message field leading to them. Both lists keep binding insertion
// order so output is deterministic.
type weaveInfo struct {
	bindings []leafBinding
	messages []weaveChild
}

type leafBinding struct {
	field protoreflect.FieldDescriptor
	value string
}

type weaveChild struct {
	field protoreflect.FieldDescriptor
	info  *weaveInfo
}

func (w *weaveInfo) findWeaveMsg(name string) *weaveInfo {
	for _, m := range w.messages {
		if fieldMatchesName(m.field, name) {
			return m.info
		}
	}
	return nil
}

func (w *weaveInfo) findOrCreateWeaveMsg(fd protoreflect.FieldDescriptor) *weaveInfo {
	for _, m := range w.messages {
		if m.field.FullName() == fd.FullName() {
			return m.info
		}
	}
	child := &weaveInfo{}
	w.messages = append(w.messages, weaveChild{field: fd, info: child})
	return child
}

// RequestWeaver injects URI template and query parameter bindings into the
// event stream at the correct nested position while the body streams
// through. A binding whose field the body also supplies is either checked
// for agreement or silently dropped in favor of the body value; bindings
// the body never mentions are rendered when their enclosing object closes.
type RequestWeaver struct {
	root    weaveInfo
	current []*weaveInfo

	// Tracks the depth within objects the weaver has no bindings for, and
	// within lists (the weaver never injects into a list).
	nonActionableDepth int

	writer           ObjectWriter
	listener         *StatusErrorListener
	reportCollisions bool
}

// NewRequestWeaver builds the binding tree from bindings and wraps ow.
func NewRequestWeaver(bindings []BindingInfo, ow ObjectWriter, el *StatusErrorListener, reportCollisions bool) *RequestWeaver {
	w := &RequestWeaver{writer: ow, listener: el, reportCollisions: reportCollisions}
	for _, b := range bindings {
		w.bind(b.FieldPath, b.Value)
	}
	return w
}

func (w *RequestWeaver) bind(path FieldPath, value string) {
	if len(path) == 0 {
		return
	}
	current := &w.root
	for _, fd := range path[:len(path)-1] {
		current = current.findOrCreateWeaveMsg(fd)
	}
	current.bindings = append(current.bindings, leafBinding{field: path[len(path)-1], value: value})
}

func (w *RequestWeaver) StartObject(name string) ObjectWriter {
	w.writer.StartObject(name)
	if len(w.current) == 0 {
		// The outermost StartObject("").
		w.current = append(w.current, &w.root)
		return w
	}
	if w.nonActionableDepth == 0 {
		if info := w.top().findWeaveMsg(name); info != nil {
			w.current = append(w.current, info)
			return w
		}
	}
	// No bindings live under this object; skip matching until it closes.
	w.nonActionableDepth++
	return w
}

func (w *RequestWeaver) EndObject() ObjectWriter {
	if w.nonActionableDepth > 0 {
		w.nonActionableDepth--
	} else if len(w.current) > 0 {
		w.weaveTree(w.top())
		w.current = w.current[:len(w.current)-1]
	}
	w.writer.EndObject()
	return w
}

func (w *RequestWeaver) StartList(name string) ObjectWriter {
	// Bindings aimed at a repeated field render ahead of the body's list so
	// URI-supplied repetitions precede body-supplied ones.
	if w.nonActionableDepth == 0 && len(w.current) > 0 {
		w.renderRepeatedBindings(name)
	}
	w.writer.StartList(name)
	w.nonActionableDepth++
	return w
}

func (w *RequestWeaver) EndList() ObjectWriter {
	w.writer.EndList()
	w.nonActionableDepth--
	return w
}

func (w *RequestWeaver) RenderNull(name string) ObjectWriter {
	w.writer.RenderNull(name)
	return w
}

func (w *RequestWeaver) RenderBool(name string, value bool) ObjectWriter {
	w.collisionCheck(name, boolPiece(value))
	w.writer.RenderBool(name, value)
	return w
}

func (w *RequestWeaver) RenderInt32(name string, value int32) ObjectWriter {
	w.collisionCheck(name, int32Piece(value))
	w.writer.RenderInt32(name, value)
	return w
}

func (w *RequestWeaver) RenderUint32(name string, value uint32) ObjectWriter {
	w.collisionCheck(name, uint32Piece(value))
	w.writer.RenderUint32(name, value)
	return w
}

func (w *RequestWeaver) RenderInt64(name string, value int64) ObjectWriter {
	w.collisionCheck(name, int64Piece(value))
	w.writer.RenderInt64(name, value)
	return w
}

func (w *RequestWeaver) RenderUint64(name string, value uint64) ObjectWriter {
	w.collisionCheck(name, uint64Piece(value))
	w.writer.RenderUint64(name, value)
	return w
}

func (w *RequestWeaver) RenderFloat(name string, value float32) ObjectWriter {
	w.collisionCheck(name, floatPiece(value))
	w.writer.RenderFloat(name, value)
	return w
}

func (w *RequestWeaver) RenderDouble(name string, value float64) ObjectWriter {
	w.collisionCheck(name, doublePiece(value))
	w.writer.RenderDouble(name, value)
	return w
}

func (w *RequestWeaver) RenderString(name string, value string) ObjectWriter {
	w.collisionCheck(name, stringPiece(value))
	w.writer.RenderString(name, value)
	return w
}

func (w *RequestWeaver) RenderBytes(name string, value []byte) ObjectWriter {
	w.collisionCheck(name, bytesPiece(value))
	w.writer.RenderBytes(name, value)
	return w
}

func (w *RequestWeaver) top() *weaveInfo { return w.current[len(w.current)-1] }

// weaveTree renders every binding still pending on info, then recurses into
// child nodes that still have work, wrapping each in its own object.
func (w *RequestWeaver) weaveTree(info *weaveInfo) {
	for _, b := range info.bindings {
		renderDataPiece(w.writer, string(b.field.Name()), stringPiece(b.value))
	}
	info.bindings = nil
	for _, m := range info.messages {
		if len(m.info.bindings) > 0 || len(m.info.messages) > 0 {
			w.writer.StartObject(string(m.field.Name()))
			w.weaveTree(m.info)
			w.writer.EndObject()
		}
	}
	info.messages = nil
}

// renderRepeatedBindings flushes bindings for the named repeated field just
// before the body's list opens.
func (w *RequestWeaver) renderRepeatedBindings(name string) {
	node := w.top()
	kept := node.bindings[:0]
	for _, b := range node.bindings {
		if fieldMatchesName(b.field, name) && b.field.Cardinality() == protoreflect.Repeated {
			renderDataPiece(w.writer, name, stringPiece(b.value))
			continue
		}
		kept = append(kept, b)
	}
	node.bindings = kept
}

// collisionCheck resolves a body-supplied scalar against pending bindings
// for the same field. Repeated bindings render as siblings; singular ones
// are either verified against the body value or dropped in its favor.
func (w *RequestWeaver) collisionCheck(name string, bodyValue dataPiece) {
	if w.nonActionableDepth != 0 || len(w.current) == 0 {
		return
	}
	node := w.top()
	kept := node.bindings[:0]
	for _, b := range node.bindings {
		if !fieldMatchesName(b.field, name) {
			kept = append(kept, b)
			continue
		}
		if b.field.Cardinality() == protoreflect.Repeated {
			renderDataPiece(w.writer, name, stringPiece(b.value))
		} else if w.reportCollisions {
			if st := compareBindingToBody(name, bodyValue, b.value); st != nil {
				w.listener.Set(st)
			}
		}
		// Entry consumed either way; the body value stands for singular
		// fields when collisions are accepted.
	}
	node.bindings = kept
}

// compareBindingToBody coerces the binding's raw string to the body value's
// shape and compares. A nil return means the values agree.
func compareBindingToBody(name string, body dataPiece, binding string) *status.Status {
	bp := stringPiece(binding)
	equal := true
	var convErr error
	var typeName string
	switch body.kind {
	case dataBool:
		typeName = "bool"
		v, err := bp.toBool()
		convErr = err
		equal = err == nil && v == body.bval
	case dataInt32:
		typeName = "int32"
		v, err := bp.toInt32()
		convErr = err
		equal = err == nil && int64(v) == body.ival
	case dataInt64:
		typeName = "int64"
		v, err := bp.toInt64()
		convErr = err
		equal = err == nil && v == body.ival
	case dataUint32:
		typeName = "uint32"
		v, err := bp.toUint32()
		convErr = err
		equal = err == nil && uint64(v) == body.uval
	case dataUint64:
		typeName = "uint64"
		v, err := bp.toUint64()
		convErr = err
		equal = err == nil && v == body.uval
	case dataFloat:
		typeName = "float"
		v, err := bp.toFloat()
		convErr = err
		equal = err == nil && almostEqual32(v, float32(body.fval))
	case dataDouble:
		typeName = "double"
		v, err := bp.toDouble()
		convErr = err
		equal = err == nil && almostEqual64(v, body.fval)
	case dataString:
		typeName = "string"
		v, err := bp.toString()
		convErr = err
		equal = err == nil && v == body.sval
	case dataBytes:
		typeName = "bytes"
		v, err := bp.toBytes()
		convErr = err
		equal = err == nil && string(v) == string(body.byteval)
	default:
		return nil
	}
	if convErr != nil {
		return status.Newf(codes.InvalidArgument,
			"failed to convert binding value %s:%s to %s", name, binding, typeName)
	}
	if !equal {
		return status.Newf(codes.InvalidArgument,
			"the binding value %q of the field %q is conflicting with the value %q in the body",
			binding, name, body.valueAsString())
	}
	return nil
}
