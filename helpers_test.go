package transcode

import (
	"testing"

	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/drewfead/transcode/internal/testtypes"
	"github.com/drewfead/transcode/typedb"
)

// recordedEvent is one ObjectWriter call captured by eventRecorder.
type recordedEvent struct {
	kind  string
	name  string
	value any
}

// eventRecorder captures the event stream for assertions.
type eventRecorder struct {
	events []recordedEvent
}

func (r *eventRecorder) add(kind, name string, value any) ObjectWriter {
	r.events = append(r.events, recordedEvent{kind: kind, name: name, value: value})
	return r
}

func (r *eventRecorder) StartObject(name string) ObjectWriter { return r.add("StartObject", name, nil) }
func (r *eventRecorder) EndObject() ObjectWriter              { return r.add("EndObject", "", nil) }
func (r *eventRecorder) StartList(name string) ObjectWriter   { return r.add("StartList", name, nil) }
func (r *eventRecorder) EndList() ObjectWriter                { return r.add("EndList", "", nil) }
func (r *eventRecorder) RenderNull(name string) ObjectWriter  { return r.add("RenderNull", name, nil) }
func (r *eventRecorder) RenderBool(name string, v bool) ObjectWriter {
	return r.add("RenderBool", name, v)
}
func (r *eventRecorder) RenderInt32(name string, v int32) ObjectWriter {
	return r.add("RenderInt32", name, v)
}
func (r *eventRecorder) RenderUint32(name string, v uint32) ObjectWriter {
	return r.add("RenderUint32", name, v)
}
func (r *eventRecorder) RenderInt64(name string, v int64) ObjectWriter {
	return r.add("RenderInt64", name, v)
}
func (r *eventRecorder) RenderUint64(name string, v uint64) ObjectWriter {
	return r.add("RenderUint64", name, v)
}
func (r *eventRecorder) RenderFloat(name string, v float32) ObjectWriter {
	return r.add("RenderFloat", name, v)
}
func (r *eventRecorder) RenderDouble(name string, v float64) ObjectWriter {
	return r.add("RenderDouble", name, v)
}
func (r *eventRecorder) RenderString(name string, v string) ObjectWriter {
	return r.add("RenderString", name, v)
}
func (r *eventRecorder) RenderBytes(name string, v []byte) ObjectWriter {
	return r.add("RenderBytes", name, string(v))
}

func ev(kind, name string, value any) recordedEvent {
	return recordedEvent{kind: kind, name: name, value: value}
}

// runTranslate pushes body through the full pipeline and drains the output.
func runTranslate(t *testing.T, db *typedb.DB, body string, info *RequestInfo, streaming, delimiters bool, chunkSize int) ([][]byte, *status.Status) {
	t.Helper()
	input := NewUnaryInputStream([]byte(body), chunkSize)
	translator := NewJSONRequestTranslator(db, input, info, streaming, delimiters)
	out := translator.Output()
	var messages [][]byte
	for {
		msg, ok := out.NextMessage()
		if !ok {
			break
		}
		messages = append(messages, msg)
	}
	return messages, out.Status()
}

// newFixtureDB compiles the shared payload types.
func newFixtureDB(t *testing.T) *typedb.DB {
	t.Helper()
	return testtypes.NewDB(t)
}

// messageOf resolves typeName and fills a fresh dynamic message.
func messageOf(t *testing.T, db *typedb.DB, typeName string, fill func(msg protoreflect.Message, md protoreflect.MessageDescriptor)) proto.Message {
	t.Helper()
	md, err := db.ResolveMessageType(typeName)
	if err != nil {
		t.Fatalf("resolve %s: %v", typeName, err)
	}
	msg := dynamicpb.NewMessage(md)
	if fill != nil {
		fill(msg, md)
	}
	return msg
}

// unmarshalAs parses serialized bytes as typeName.
func unmarshalAs(t *testing.T, db *typedb.DB, typeName string, data []byte) proto.Message {
	t.Helper()
	md, err := db.ResolveMessageType(typeName)
	if err != nil {
		t.Fatalf("resolve %s: %v", typeName, err)
	}
	msg := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(data, msg); err != nil {
		t.Fatalf("unmarshal as %s: %v", typeName, err)
	}
	return msg
}

// fieldOf fetches a field descriptor by name, failing loudly.
func fieldOf(t *testing.T, md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	t.Helper()
	fd := md.Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		t.Fatalf("field %s not found in %s", name, md.FullName())
	}
	return fd
}

// mustPath resolves a dotted field path against typeName.
func mustPath(t *testing.T, db *typedb.DB, typeName, path string) FieldPath {
	t.Helper()
	md, err := db.ResolveMessageType(typeName)
	if err != nil {
		t.Fatalf("resolve %s: %v", typeName, err)
	}
	fp, err := ParseFieldPath(md, path)
	if err != nil {
		t.Fatalf("parse path %s: %v", path, err)
	}
	return fp
}
