package transcode

import (
	"encoding/binary"

	"google.golang.org/grpc/status"
)

// MessageStream is the pull interface through which translated protobuf
// messages leave the pipeline.
//
// NextMessage returns the next serialized message, or false when none is
// available right now. Finished reports that no further messages will ever
// be produced. Status may turn non-OK even after some messages were
// delivered; callers should drain the stream and then inspect it.
type MessageStream interface {
	NextMessage() ([]byte, bool)
	Finished() bool
	Status() *status.Status
}

// delimiterSize is the length of the gRPC frame header: one compression
// flag byte followed by a big-endian uint32 message length.
const delimiterSize = 5

// appendDelimited appends the gRPC length delimiter for msg followed by msg
// itself. The delimiter is emitted even for empty payloads.
func appendDelimited(dst, msg []byte) []byte {
	var header [delimiterSize]byte
	binary.BigEndian.PutUint32(header[1:], uint32(len(msg)))
	dst = append(dst, header[:]...)
	return append(dst, msg...)
}

// parseDelimiter reads a gRPC frame header, returning the payload length.
// The buffer must hold at least delimiterSize bytes.
func parseDelimiter(header []byte) int {
	return int(binary.BigEndian.Uint32(header[1:delimiterSize]))
}
