package transcode

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// FieldPath is an ordered list of field descriptors resolving a dotted path
// within a message type. Every segment except the last names a singular
// message field.
type FieldPath []protoreflect.FieldDescriptor

// ParseFieldPath resolves the dotted path against md. Each segment is
// matched by JSON name first, then by proto name. The literal "*" and the
// empty string resolve to an empty path (the whole message).
func ParseFieldPath(md protoreflect.MessageDescriptor, path string) (FieldPath, error) {
	if path == "" || path == "*" {
		return nil, nil
	}
	var fields FieldPath
	current := md
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if current == nil {
			return nil, status.Errorf(codes.InvalidArgument,
				"segment %q is not a message field", segments[i-1])
		}
		fd := lookupField(current, segment)
		if fd == nil {
			return nil, status.Errorf(codes.InvalidArgument,
				"field %q not found in type %q", segment, current.FullName())
		}
		fields = append(fields, fd)
		if fd.Kind() == protoreflect.MessageKind && !fd.IsMap() && !fd.IsList() {
			current = fd.Message()
		} else {
			current = nil
		}
	}
	return fields, nil
}

// lookupField finds a field by the name a JSON document would use: the JSON
// name (case-sensitive), then the proto name, then a case-insensitive match
// on the proto name as a last resort for snake_case variants.
func lookupField(md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	fields := md.Fields()
	if fd := fields.ByJSONName(name); fd != nil {
		return fd
	}
	if fd := fields.ByName(protoreflect.Name(name)); fd != nil {
		return fd
	}
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if strings.EqualFold(string(fd.Name()), name) {
			return fd
		}
	}
	return nil
}

// fieldMatchesName reports whether the event name addresses fd, matching
// the JSON name exactly or the proto name.
func fieldMatchesName(fd protoreflect.FieldDescriptor, name string) bool {
	return fd.JSONName() == name || string(fd.Name()) == name
}
