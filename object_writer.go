package transcode

// ObjectWriter is the event interface every pipeline stage implements. A
// producer walks a JSON-like object tree and reports what it sees: objects
// and lists open and close, scalars render. Every event carries the field
// name it belongs to; the outermost event of a request uses the empty name.
//
// Writers are single-threaded and consume events in the order produced.
// Every method returns the receiver so call sites can chain events. A writer
// that hits a fatal condition records it (see StatusErrorListener) and keeps
// accepting events as no-ops, so upstream stages can drain their input and
// surface the status once.
type ObjectWriter interface {
	StartObject(name string) ObjectWriter
	EndObject() ObjectWriter
	StartList(name string) ObjectWriter
	EndList() ObjectWriter
	RenderNull(name string) ObjectWriter
	RenderBool(name string, value bool) ObjectWriter
	RenderInt32(name string, value int32) ObjectWriter
	RenderUint32(name string, value uint32) ObjectWriter
	RenderInt64(name string, value int64) ObjectWriter
	RenderUint64(name string, value uint64) ObjectWriter
	RenderFloat(name string, value float32) ObjectWriter
	RenderDouble(name string, value float64) ObjectWriter
	RenderString(name string, value string) ObjectWriter
	RenderBytes(name string, value []byte) ObjectWriter
}

// renderDataPiece replays a dataPiece as the matching typed event on ow.
// Binding values are carried as strings, so most callers go through the
// dataString arm; the typed arms exist so filters can re-emit body values
// they had to inspect.
func renderDataPiece(ow ObjectWriter, name string, p dataPiece) {
	switch p.kind {
	case dataNull:
		ow.RenderNull(name)
	case dataBool:
		ow.RenderBool(name, p.bval)
	case dataInt32:
		ow.RenderInt32(name, int32(p.ival))
	case dataUint32:
		ow.RenderUint32(name, uint32(p.uval))
	case dataInt64:
		ow.RenderInt64(name, p.ival)
	case dataUint64:
		ow.RenderUint64(name, p.uval)
	case dataFloat:
		ow.RenderFloat(name, float32(p.fval))
	case dataDouble:
		ow.RenderDouble(name, p.fval)
	case dataString:
		ow.RenderString(name, p.sval)
	case dataBytes:
		ow.RenderBytes(name, p.byteval)
	}
}
