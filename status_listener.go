package transcode

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusErrorListener collects the first non-OK status raised anywhere in a
// translation pipeline. Parsing, weaving, and type resolution all report
// through one listener; once a status is recorded, later reports are ignored
// and the pipeline keeps accepting events as no-ops so the input can drain.
type StatusErrorListener struct {
	st *status.Status
}

// NewStatusErrorListener returns a listener with an OK status.
func NewStatusErrorListener() *StatusErrorListener {
	return &StatusErrorListener{}
}

// OK reports whether no error has been recorded.
func (l *StatusErrorListener) OK() bool { return l.st == nil }

// Status returns the recorded status, or an OK status if none was set.
func (l *StatusErrorListener) Status() *status.Status {
	if l.st == nil {
		return status.New(codes.OK, "")
	}
	return l.st
}

// Set records st as the terminal status. The first non-OK status is sticky.
func (l *StatusErrorListener) Set(st *status.Status) {
	if l.st != nil || st == nil || st.Code() == codes.OK {
		return
	}
	l.st = st
}

// Setf records an InvalidArgument status built from the format string.
func (l *StatusErrorListener) Setf(format string, args ...any) {
	l.Set(status.New(codes.InvalidArgument, fmt.Sprintf(format, args...)))
}

// InvalidName records that name does not exist at the given location.
func (l *StatusErrorListener) InvalidName(loc, name string) {
	l.Set(status.New(codes.InvalidArgument, locPrefix(loc)+fmt.Sprintf("unknown field %q", name)))
}

// InvalidValue records that value cannot be interpreted as typeName.
func (l *StatusErrorListener) InvalidValue(loc, typeName, value string) {
	l.Set(status.New(codes.InvalidArgument,
		locPrefix(loc)+fmt.Sprintf("invalid value %s for type %s", value, typeName)))
}

// MissingField records that a required field was absent when its containing
// message closed.
func (l *StatusErrorListener) MissingField(loc, name string) {
	l.Set(status.New(codes.InvalidArgument, locPrefix(loc)+"missing field "+name))
}

func locPrefix(loc string) string {
	if loc == "" {
		return ""
	}
	return loc + ": "
}
