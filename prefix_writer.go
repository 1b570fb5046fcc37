package transcode

import "strings"

// PrefixWriter forwards events to a wrapped writer, wrapping the whole
// stream in a chain of nested objects named by a dotted field path. With
// prefix "a.b.c" the body {"x":1} reaches the wrapped writer as if the
// client had sent {"a":{"b":{"c":{"x":1}}}}.
//
// The chain opens on the first event that enters the root level and closes
// when the stream returns to it. Scalar events at the root open and close
// the chain around the single render. An empty prefix is a passthrough.
type PrefixWriter struct {
	prefix             []string
	nonActionableDepth int
	writer             ObjectWriter
}

// NewPrefixWriter splits prefix on "." (empty segments skipped) and wraps ow.
func NewPrefixWriter(prefix string, ow ObjectWriter) *PrefixWriter {
	var segments []string
	for _, s := range strings.Split(prefix, ".") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return &PrefixWriter{prefix: segments, writer: ow}
}

func (w *PrefixWriter) StartObject(name string) ObjectWriter {
	w.nonActionableDepth++
	if w.nonActionableDepth == 1 {
		name = w.startPrefix(name)
	}
	w.writer.StartObject(name)
	return w
}

func (w *PrefixWriter) EndObject() ObjectWriter {
	w.writer.EndObject()
	w.nonActionableDepth--
	if w.nonActionableDepth == 0 {
		w.endPrefix()
	}
	return w
}

func (w *PrefixWriter) StartList(name string) ObjectWriter {
	w.nonActionableDepth++
	if w.nonActionableDepth == 1 {
		name = w.startPrefix(name)
	}
	w.writer.StartList(name)
	return w
}

func (w *PrefixWriter) EndList() ObjectWriter {
	w.writer.EndList()
	w.nonActionableDepth--
	if w.nonActionableDepth == 0 {
		w.endPrefix()
	}
	return w
}

func (w *PrefixWriter) RenderNull(name string) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderNull(n) })
}

func (w *PrefixWriter) RenderBool(name string, value bool) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderBool(n, value) })
}

func (w *PrefixWriter) RenderInt32(name string, value int32) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderInt32(n, value) })
}

func (w *PrefixWriter) RenderUint32(name string, value uint32) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderUint32(n, value) })
}

func (w *PrefixWriter) RenderInt64(name string, value int64) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderInt64(n, value) })
}

func (w *PrefixWriter) RenderUint64(name string, value uint64) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderUint64(n, value) })
}

func (w *PrefixWriter) RenderFloat(name string, value float32) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderFloat(n, value) })
}

func (w *PrefixWriter) RenderDouble(name string, value float64) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderDouble(n, value) })
}

func (w *PrefixWriter) RenderString(name string, value string) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderString(n, value) })
}

func (w *PrefixWriter) RenderBytes(name string, value []byte) ObjectWriter {
	return w.renderScalar(name, func(n string) { w.writer.RenderBytes(n, value) })
}

// renderScalar wraps a scalar render in the prefix when it happens at the
// root level; nested renders pass through untouched.
func (w *PrefixWriter) renderScalar(name string, render func(string)) ObjectWriter {
	root := w.nonActionableDepth == 0
	if root {
		name = w.startPrefix(name)
	}
	render(name)
	if root {
		w.endPrefix()
	}
	return w
}

// startPrefix opens one object per prefix segment. The incoming event keeps
// its own name for the outermost object and is renamed to the last segment.
func (w *PrefixWriter) startPrefix(name string) string {
	for _, segment := range w.prefix {
		w.writer.StartObject(name)
		name = segment
	}
	return name
}

func (w *PrefixWriter) endPrefix() {
	for range w.prefix {
		w.writer.EndObject()
	}
}
