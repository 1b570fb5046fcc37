package transcode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// The end-to-end scenarios drive the complete pipeline: chunk stream, JSON
// parser, prefix writer, weaver, and message translator.

func TestIntegration_Scenario_BytesBody(t *testing.T) {
	db := newFixtureDB(t)

	out := translateOne(t, db, `{"payload":"SGVsbG8gV29ybGQh"}`, wholeBody("payloads.BytesPayload"))
	got := unmarshalAs(t, db, "payloads.BytesPayload", out)
	want := messageOf(t, db, "payloads.BytesPayload", func(m protoreflect.Message, md protoreflect.MessageDescriptor) {
		m.Set(fieldOf(t, md, "payload"), protoreflect.ValueOfBytes([]byte("Hello World!")))
	})
	assert.True(t, proto.Equal(want, got))
}

func TestIntegration_Scenario_BindingBuildsNestedMessage(t *testing.T) {
	db := newFixtureDB(t)

	// An empty body with a deep binding must produce the same message as a
	// body that spells the nesting out.
	viaBody := translateOne(t, db, `{"nested":{"nested":{"payload":"x"}}}`, wholeBody("payloads.NestedPayload"))

	info := &RequestInfo{
		MessageType:   "payloads.NestedPayload",
		BodyFieldPath: "*",
		VariableBindings: []BindingInfo{
			{FieldPath: mustPath(t, db, "payloads.NestedPayload", "nested.nested.payload"), Value: "x"},
		},
	}
	viaBinding := translateOne(t, db, `{}`, info)

	gotBody := unmarshalAs(t, db, "payloads.NestedPayload", viaBody)
	gotBinding := unmarshalAs(t, db, "payloads.NestedPayload", viaBinding)
	assert.True(t, proto.Equal(gotBody, gotBinding))
}

func TestIntegration_Scenario_CollisionReported(t *testing.T) {
	db := newFixtureDB(t)

	info := &RequestInfo{
		MessageType:   "payloads.StringPayload",
		BodyFieldPath: "*",
		VariableBindings: []BindingInfo{
			{FieldPath: mustPath(t, db, "payloads.StringPayload", "payload"), Value: "b"},
		},
		RejectBindingBodyCollisions: true,
	}
	msgs, st := runTranslate(t, db, `{"payload":"a"}`, info, false, false, 0)
	assert.Empty(t, msgs)
	require.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), `"a"`)
	assert.Contains(t, st.Message(), `"b"`)
}

func TestIntegration_Property_ChunkingInvariance(t *testing.T) {
	db := newFixtureDB(t)

	bodies := map[string]struct {
		body      string
		streaming bool
		info      *RequestInfo
	}{
		"unary rich message": {
			body: `{"name":"n","count":3,"tags":["a","b"],"labels":{"k":"v"},"child":{"payload":"p"},"value":{"deep":[1,2,{"x":null}]}}`,
			info: wholeBody("payloads.MultiPayload"),
		},
		"streaming": {
			body:      `[{"payload":"a"}, {"payload":"b"}, {"payload":"c"}]`,
			streaming: true,
			info:      wholeBody("payloads.StringPayload"),
		},
	}
	for name, tc := range bodies {
		t.Run(name, func(t *testing.T) {
			reference, st := runTranslate(t, db, tc.body, tc.info, tc.streaming, true, 0)
			require.Equal(t, codes.OK, st.Code(), st.Message())
			for chunkSize := 1; chunkSize <= len(tc.body); chunkSize++ {
				msgs, st := runTranslate(t, db, tc.body, tc.info, tc.streaming, true, chunkSize)
				require.Equal(t, codes.OK, st.Code(), "chunk %d: %s", chunkSize, st.Message())
				require.Len(t, msgs, len(reference), "chunk %d", chunkSize)
				for i := range msgs {
					require.True(t, bytes.Equal(reference[i], msgs[i]), "chunk %d message %d", chunkSize, i)
				}
			}
		})
	}
}

func TestIntegration_Property_PrefixEquivalence(t *testing.T) {
	db := newFixtureDB(t)

	prefixed := translateOne(t, db, `{"payload":"x"}`, &RequestInfo{
		MessageType:   "payloads.NestedPayload",
		BodyFieldPath: "nested.nested",
	})
	spelled := translateOne(t, db, `{"nested":{"nested":{"payload":"x"}}}`, wholeBody("payloads.NestedPayload"))

	assert.True(t, proto.Equal(
		unmarshalAs(t, db, "payloads.NestedPayload", prefixed),
		unmarshalAs(t, db, "payloads.NestedPayload", spelled),
	))
}

func TestIntegration_Property_BindingIdempotence(t *testing.T) {
	db := newFixtureDB(t)

	body := `{"payload":"v"}`
	withBinding := translateOne(t, db, body, &RequestInfo{
		MessageType:   "payloads.StringPayload",
		BodyFieldPath: "*",
		VariableBindings: []BindingInfo{
			{FieldPath: mustPath(t, db, "payloads.StringPayload", "payload"), Value: "v"},
		},
	})
	withoutBinding := translateOne(t, db, body, wholeBody("payloads.StringPayload"))

	assert.Equal(t, withoutBinding, withBinding)
}

func TestIntegration_Property_RoundTrip(t *testing.T) {
	db := newFixtureDB(t)

	// Canonical protojson field names and encodings so the reverse path
	// reproduces the input verbatim (modulo key order).
	body := `{
		"name": "book",
		"count": 3,
		"flag": true,
		"ratio": 2.5,
		"blob": "aGk=",
		"color": "GREEN",
		"tags": ["x", "y"],
		"labels": {"k": "v"},
		"bigCount": "10",
		"createdAt": "2021-06-01T12:30:45.500Z",
		"value": {"inner": [1, "two", true]}
	}`
	out := translateOne(t, db, body, wholeBody("payloads.MultiPayload"))

	rt, err := NewResponseToJSONTranslator(db, "payloads.MultiPayload")
	require.NoError(t, err)
	jsonOut, err := rt.Translate(out)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(jsonOut))
}

func TestIntegration_BodyUnderPrefixWithBindings(t *testing.T) {
	db := newFixtureDB(t)

	// Body populates a subtree; bindings address the root type.
	info := &RequestInfo{
		MessageType:   "payloads.NestedPayload",
		BodyFieldPath: "nested",
		VariableBindings: []BindingInfo{
			{FieldPath: mustPath(t, db, "payloads.NestedPayload", "payload"), Value: "root"},
		},
	}
	out := translateOne(t, db, `{"payload":"inner"}`, info)
	got := unmarshalAs(t, db, "payloads.NestedPayload", out)
	want := messageOf(t, db, "payloads.NestedPayload", func(m protoreflect.Message, md protoreflect.MessageDescriptor) {
		m.Set(fieldOf(t, md, "payload"), protoreflect.ValueOfString("root"))
		inner := m.Mutable(fieldOf(t, md, "nested")).Message()
		inner.Set(fieldOf(t, md, "payload"), protoreflect.ValueOfString("inner"))
	})
	assert.True(t, proto.Equal(want, got))
}

func TestIntegration_RepeatedBindingConcatenation(t *testing.T) {
	db := newFixtureDB(t)

	info := &RequestInfo{
		MessageType:   "payloads.MultiPayload",
		BodyFieldPath: "*",
		VariableBindings: []BindingInfo{
			{FieldPath: mustPath(t, db, "payloads.MultiPayload", "tags"), Value: "uri1"},
			{FieldPath: mustPath(t, db, "payloads.MultiPayload", "tags"), Value: "uri2"},
		},
	}
	out := translateOne(t, db, `{"tags":["body1","body2"]}`, info)
	got := unmarshalAs(t, db, "payloads.MultiPayload", out)

	md, err := db.ResolveMessageType("payloads.MultiPayload")
	require.NoError(t, err)
	list := got.ProtoReflect().Get(fieldOf(t, md, "tags")).List()
	var tags []string
	for i := 0; i < list.Len(); i++ {
		tags = append(tags, list.Get(i).String())
	}
	assert.Equal(t, []string{"uri1", "uri2", "body1", "body2"}, tags)
}

func TestIntegration_MalformedJSONSurfacesStatus(t *testing.T) {
	db := newFixtureDB(t)

	for _, chunkSize := range []int{0, 1, 3} {
		msgs, st := runTranslate(t, db, `{"payload":`, wholeBody("payloads.StringPayload"), false, false, chunkSize)
		assert.Empty(t, msgs)
		assert.Equal(t, codes.InvalidArgument, st.Code())
	}
}

func TestIntegration_TranslatorFinishedSemantics(t *testing.T) {
	db := newFixtureDB(t)

	input := NewUnaryInputStream([]byte(`{"payload":"a"}`), 0)
	translator := NewJSONRequestTranslator(db, input, wholeBody("payloads.StringPayload"), false, false)
	out := translator.Output()

	msg, ok := out.NextMessage()
	require.True(t, ok)
	require.NotEmpty(t, msg)

	_, ok = out.NextMessage()
	assert.False(t, ok)
	assert.True(t, out.Finished())
	assert.Equal(t, codes.OK, out.Status().Code())
}
