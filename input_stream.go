package transcode

import (
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InputStream is the pull-based byte source a translator consumes. Slices
// returned by Next are borrowed: they stay valid only until the following
// call to Next, and the translator never copies them unless a token spans a
// chunk boundary.
type InputStream interface {
	// Next returns the next non-empty slice of input, or nil. A nil return
	// with Finished() false means no data is available right now; a nil
	// return with Finished() true means the stream is exhausted. Exhaustion
	// is not an error.
	Next() []byte

	// BytesAvailable returns an upper bound on the size of the next slice.
	// It is zero iff the stream is finished.
	BytesAvailable() int64

	// Finished reports whether all input has been handed out.
	Finished() bool

	// Reset restores the stream to its initial state so the same input can
	// be replayed. Streams backed by live request bodies refuse with a
	// FailedPrecondition status.
	Reset() error
}

// UnaryInputStream serves one in-memory buffer in fixed-size chunks. It is
// the stream flavor used for unary request bodies and for replaying the
// same payload many times in benchmarks.
type UnaryInputStream struct {
	msg       []byte
	chunkSize int
	pos       int
	finished  bool
}

// NewUnaryInputStream creates a stream over msg that yields chunkSize-byte
// slices. A chunkSize <= 0 serves the whole buffer in one chunk.
func NewUnaryInputStream(msg []byte, chunkSize int) *UnaryInputStream {
	if chunkSize <= 0 {
		chunkSize = len(msg)
	}
	return &UnaryInputStream{msg: msg, chunkSize: chunkSize}
}

func (s *UnaryInputStream) Next() []byte {
	if s.finished {
		return nil
	}
	if s.pos+s.chunkSize >= len(s.msg) {
		chunk := s.msg[s.pos:]
		s.pos = 0
		s.finished = true
		if len(chunk) == 0 {
			return nil
		}
		return chunk
	}
	chunk := s.msg[s.pos : s.pos+s.chunkSize]
	s.pos += s.chunkSize
	return chunk
}

func (s *UnaryInputStream) BytesAvailable() int64 {
	if s.finished {
		return 0
	}
	if s.pos+s.chunkSize >= len(s.msg) {
		return int64(len(s.msg) - s.pos)
	}
	return int64(s.chunkSize)
}

func (s *UnaryInputStream) Finished() bool { return s.finished }

func (s *UnaryInputStream) Reset() error {
	s.pos = 0
	s.finished = false
	return nil
}

// TotalBytes returns the size of the whole message.
func (s *UnaryInputStream) TotalBytes() int64 { return int64(len(s.msg)) }

// StreamingInputStream repeats one JSON message streamSize times as a JSON
// array, synthesized on the fly: "[" msg ", " msg ... msg "]". The array
// punctuation is carried inside three precomputed segments (header, body,
// tail) and each segment is chunked on its own, so a chunk never ends inside
// the punctuation: the last chunk of a segment absorbs the segment's
// overhead (3 bytes for the header's "[" and ", ", 2 for the body's ", ",
// 1 for the tail's "]").
type StreamingInputStream struct {
	chunkSize int
	header    []byte
	body      []byte
	tail      []byte
	total     int

	pos      int
	msgsSent int
	finished bool
}

// NewStreamingInputStream creates a stream that replays msg streamSize times
// as an array. A chunkSize <= 0 serves each segment whole.
func NewStreamingInputStream(msg []byte, chunkSize, streamSize int) *StreamingInputStream {
	s := &StreamingInputStream{chunkSize: chunkSize, total: streamSize}
	if streamSize == 1 {
		s.header = concat("[", msg, "]")
	} else {
		s.header = concat("[", msg, ", ")
		s.body = concat("", msg, ", ")
		s.tail = concat("", msg, "]")
	}
	if s.chunkSize <= 0 {
		s.chunkSize = len(s.header)
	}
	return s
}

func concat(prefix string, msg []byte, suffix string) []byte {
	out := make([]byte, 0, len(prefix)+len(msg)+len(suffix))
	out = append(out, prefix...)
	out = append(out, msg...)
	return append(out, suffix...)
}

// segment returns the active segment and its punctuation overhead.
func (s *StreamingInputStream) segment() ([]byte, int) {
	switch {
	case s.msgsSent == 0:
		return s.header, 3
	case s.msgsSent+1 == s.total:
		return s.tail, 1
	default:
		return s.body, 2
	}
}

func (s *StreamingInputStream) Next() []byte {
	if s.finished || s.total == 0 {
		s.finished = true
		return nil
	}
	seg, overhead := s.segment()
	var chunk []byte
	if s.pos+s.chunkSize+overhead >= len(seg) {
		chunk = seg[s.pos:]
		s.pos = 0
		s.msgsSent++
	} else {
		chunk = seg[s.pos : s.pos+s.chunkSize]
		s.pos += s.chunkSize
	}
	if s.msgsSent == s.total {
		s.finished = true
	}
	return chunk
}

func (s *StreamingInputStream) BytesAvailable() int64 {
	if s.finished || s.total == 0 {
		return 0
	}
	seg, overhead := s.segment()
	if s.pos+s.chunkSize+overhead >= len(seg) {
		return int64(len(seg) - s.pos)
	}
	return int64(s.chunkSize)
}

func (s *StreamingInputStream) Finished() bool { return s.finished }

func (s *StreamingInputStream) Reset() error {
	s.pos = 0
	s.msgsSent = 0
	s.finished = false
	return nil
}

// TotalBytes returns the size of the synthesized array.
func (s *StreamingInputStream) TotalBytes() int64 {
	switch s.total {
	case 0:
		return 0
	case 1:
		return int64(len(s.header))
	default:
		return int64(len(s.header) + len(s.tail) + len(s.body)*(s.total-2))
	}
}

// ReaderInputStream adapts an io.Reader (typically an HTTP request body) to
// the InputStream interface. It owns a single reusable read buffer, so each
// slice from Next is invalidated by the following call.
type ReaderInputStream struct {
	r        io.Reader
	buf      []byte
	pending  []byte
	finished bool
}

const readerChunkSize = 32 * 1024

// NewReaderInputStream wraps r. Reads are readerChunkSize at most.
func NewReaderInputStream(r io.Reader) *ReaderInputStream {
	return &ReaderInputStream{r: r, buf: make([]byte, readerChunkSize)}
}

func (s *ReaderInputStream) Next() []byte {
	if s.pending != nil {
		chunk := s.pending
		s.pending = nil
		return chunk
	}
	if s.finished {
		return nil
	}
	for {
		n, err := s.r.Read(s.buf)
		if n > 0 {
			if err == io.EOF {
				s.finished = true
			}
			return s.buf[:n]
		}
		if err != nil {
			s.finished = true
			return nil
		}
	}
}

func (s *ReaderInputStream) BytesAvailable() int64 {
	if s.pending != nil {
		return int64(len(s.pending))
	}
	if s.finished {
		return 0
	}
	// One read ahead; remember the chunk for the next call to Next.
	s.pending = s.Next()
	if s.pending == nil {
		return 0
	}
	return int64(len(s.pending))
}

func (s *ReaderInputStream) Finished() bool {
	return s.finished && s.pending == nil
}

// Reset always refuses: a live request body cannot be replayed.
func (s *ReaderInputStream) Reset() error {
	return status.Error(codes.FailedPrecondition, "reader-backed input stream cannot be reset")
}
