package transcode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func TestUnit_StreamTranslator_TwoDelimitedMessages(t *testing.T) {
	db := newFixtureDB(t)

	msgs, st := runTranslate(t, db, `[{"payload":"a"},{"payload":"b"}]`,
		wholeBody("payloads.StringPayload"), true, true, 0)
	require.Equal(t, codes.OK, st.Code(), st.Message())
	require.Len(t, msgs, 2)

	for i, payload := range []string{"a", "b"} {
		out := msgs[i]
		require.GreaterOrEqual(t, len(out), delimiterSize)
		assert.Equal(t, byte(0), out[0])
		assert.Equal(t, uint32(3), binary.BigEndian.Uint32(out[1:5]))

		got := unmarshalAs(t, db, "payloads.StringPayload", out[delimiterSize:])
		want := messageOf(t, db, "payloads.StringPayload", func(m protoreflect.Message, md protoreflect.MessageDescriptor) {
			m.Set(fieldOf(t, md, "payload"), protoreflect.ValueOfString(payload))
		})
		assert.True(t, proto.Equal(want, got), "element %d", i)
	}
}

func TestUnit_StreamTranslator_EmptyArray(t *testing.T) {
	db := newFixtureDB(t)

	input := NewUnaryInputStream([]byte(`[]`), 0)
	translator := NewJSONRequestTranslator(db, input, wholeBody("payloads.StringPayload"), true, false)
	out := translator.Output()

	_, ok := out.NextMessage()
	assert.False(t, ok)
	assert.True(t, out.Finished())
	assert.Equal(t, codes.OK, out.Status().Code())
}

func TestUnit_StreamTranslator_BindingsWovenIntoEveryElement(t *testing.T) {
	db := newFixtureDB(t)

	info := &RequestInfo{
		MessageType:   "payloads.MultiPayload",
		BodyFieldPath: "*",
		VariableBindings: []BindingInfo{
			{FieldPath: mustPath(t, db, "payloads.MultiPayload", "name"), Value: "bound"},
		},
	}
	msgs, st := runTranslate(t, db, `[{"count":1},{"count":2}]`, info, true, false, 0)
	require.Equal(t, codes.OK, st.Code(), st.Message())
	require.Len(t, msgs, 2)

	for i, count := range []int32{1, 2} {
		got := unmarshalAs(t, db, "payloads.MultiPayload", msgs[i])
		want := messageOf(t, db, "payloads.MultiPayload", func(m protoreflect.Message, md protoreflect.MessageDescriptor) {
			m.Set(fieldOf(t, md, "name"), protoreflect.ValueOfString("bound"))
			m.Set(fieldOf(t, md, "count"), protoreflect.ValueOfInt32(count))
		})
		assert.True(t, proto.Equal(want, got), "element %d", i)
	}
}

func TestUnit_StreamTranslator_ScalarElementRejected(t *testing.T) {
	db := newFixtureDB(t)

	msgs, st := runTranslate(t, db, `["notanobject"]`, wholeBody("payloads.StringPayload"), true, false, 0)
	assert.Empty(t, msgs)
	require.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), "expected a JSON object")
}

func TestUnit_StreamTranslator_ObjectInsteadOfArray(t *testing.T) {
	db := newFixtureDB(t)

	msgs, st := runTranslate(t, db, `{"payload":"a"}`, wholeBody("payloads.StringPayload"), true, false, 0)
	assert.Empty(t, msgs)
	require.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), "array")
}

func TestUnit_StreamTranslator_DeliversPrefixBeforeFailing(t *testing.T) {
	db := newFixtureDB(t)

	// The first element is fine; the second carries an unknown field. The
	// first message is still delivered, then the stream reports the error.
	msgs, st := runTranslate(t, db, `[{"payload":"ok"},{"bogus":1}]`,
		wholeBody("payloads.StringPayload"), true, false, 0)
	require.Len(t, msgs, 1)
	got := unmarshalAs(t, db, "payloads.StringPayload", msgs[0])
	want := messageOf(t, db, "payloads.StringPayload", func(m protoreflect.Message, md protoreflect.MessageDescriptor) {
		m.Set(fieldOf(t, md, "payload"), protoreflect.ValueOfString("ok"))
	})
	assert.True(t, proto.Equal(want, got))
	assert.Equal(t, codes.InvalidArgument, st.Code())
}

func TestUnit_StreamTranslator_StreamingInputFlavor(t *testing.T) {
	db := newFixtureDB(t)

	// The streaming benchmark stream synthesizes the outer array around N
	// copies of the message; every copy must translate identically.
	const n = 5
	input := NewStreamingInputStream([]byte(`{"payload":"a"}`), 4, n)
	translator := NewJSONRequestTranslator(db, input, wholeBody("payloads.StringPayload"), true, false)
	out := translator.Output()

	var count int
	for {
		msg, ok := out.NextMessage()
		if !ok {
			break
		}
		got := unmarshalAs(t, db, "payloads.StringPayload", msg)
		want := messageOf(t, db, "payloads.StringPayload", func(m protoreflect.Message, md protoreflect.MessageDescriptor) {
			m.Set(fieldOf(t, md, "payload"), protoreflect.ValueOfString("a"))
		})
		require.True(t, proto.Equal(want, got))
		count++
	}
	assert.Equal(t, n, count)
	assert.Equal(t, codes.OK, out.Status().Code())
	assert.True(t, out.Finished())
}
