package transcode

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

// TypeResolver maps fully qualified type URLs (or bare fully qualified
// message names) to message descriptors. It is shared, read-only, and
// constructed once from the service configuration.
type TypeResolver interface {
	ResolveMessageType(url string) (protoreflect.MessageDescriptor, error)
}

// BindingInfo carries one URI template or query parameter value destined
// for a nested position in the request message. The value is the raw string
// from the URI; coercion to the field's wire type happens at weave time.
type BindingInfo struct {
	FieldPath FieldPath
	Value     string
}

// RequestInfo is the per-call configuration for translating one HTTP
// request body into protobuf messages.
type RequestInfo struct {
	// MessageType is the type URL or fully qualified name of the top-level
	// request message.
	MessageType string

	// BodyFieldPath designates the subtree of the request message the HTTP
	// body populates. "*" or "" mean the body is the whole message; a
	// dotted path grafts the body under that nested field.
	BodyFieldPath string

	// VariableBindings are injected into the request message alongside the
	// body, one message per stream element for streaming calls.
	VariableBindings []BindingInfo

	// RejectBindingBodyCollisions makes a binding whose value disagrees
	// with a body-supplied value a translation error. When false the body
	// value silently wins.
	RejectBindingBodyCollisions bool
}

// bodyPrefix returns the body field path to graft under, normalized so that
// "*" behaves like the empty prefix.
func (ri *RequestInfo) bodyPrefix() string {
	if ri.BodyFieldPath == "*" {
		return ""
	}
	return ri.BodyFieldPath
}
