// Package transcode translates between JSON request bodies and
// length-delimited protobuf messages, letting a proxy expose a REST facade
// over a gRPC backend.
//
// The request path is fully streaming: bytes are pulled from an
// InputStream, parsed incrementally, and pushed as typed ObjectWriter
// events through a chain of filters before a terminal translator builds the
// serialized protobuf. The whole request is never buffered, and the event
// sequence is independent of how the input is chunked.
//
// # Pipeline
//
// For one unary request the stages compose as
//
//	InputStream -> JSON parser -> PrefixWriter -> RequestWeaver -> RequestMessageTranslator
//
// and the result is pulled through a MessageStream. Streaming calls use
// RequestStreamTranslator as the terminal, which unwraps an outer JSON
// array and produces one message per element.
//
// JSONRequestTranslator wires the stages together from a RequestInfo:
//
//	info := &transcode.RequestInfo{
//	    MessageType:   "example.CreateBookRequest",
//	    BodyFieldPath: "book",
//	    VariableBindings: []transcode.BindingInfo{
//	        {FieldPath: shelfPath, Value: "42"},
//	    },
//	}
//	translator := transcode.NewJSONRequestTranslator(db, body, info, false, true)
//	out := translator.Output()
//	for msg, ok := out.NextMessage(); ok; msg, ok = out.NextMessage() {
//	    // forward msg to the backend
//	}
//	if st := out.Status(); st.Code() != codes.OK {
//	    // surface the translation error
//	}
//
// Message types are resolved through a TypeResolver, typically the
// descriptor database in the typedb subpackage.
//
// # Filters
//
// PrefixWriter grafts the request body under a dotted body field path, so a
// body {"x":1} with path "a.b" reaches the translator as
// {"a":{"b":{"x":1}}}. RequestWeaver injects URI template and query
// parameter bindings at their nested positions while the body streams
// through, detecting collisions with body-supplied values when configured
// to.
//
// Errors anywhere in the pipeline are collected by a StatusErrorListener;
// the first non-OK status sticks and is reported through the message
// stream once the input has drained.
package transcode
