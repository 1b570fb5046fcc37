package transcode

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// dataKind enumerates the concrete shapes a rendered scalar can take.
type dataKind int

const (
	dataNull dataKind = iota
	dataBool
	dataInt32
	dataUint32
	dataInt64
	dataUint64
	dataFloat
	dataDouble
	dataString
	dataBytes
)

func (k dataKind) String() string {
	switch k {
	case dataNull:
		return "null"
	case dataBool:
		return "bool"
	case dataInt32:
		return "int32"
	case dataUint32:
		return "uint32"
	case dataInt64:
		return "int64"
	case dataUint64:
		return "uint64"
	case dataFloat:
		return "float"
	case dataDouble:
		return "double"
	case dataString:
		return "string"
	case dataBytes:
		return "bytes"
	}
	return "unknown"
}

// rangeError marks conversions that parsed fine but do not fit the target
// type. Callers map it to a distinct status code.
type rangeError struct{ msg string }

func (e *rangeError) Error() string { return e.msg }

func outOfRangef(format string, args ...any) error {
	return &rangeError{msg: fmt.Sprintf(format, args...)}
}

// dataPiece is a typed scalar in transit between pipeline stages. String
// pieces keep the raw text; numeric coercion happens on demand so a value
// bound from a URI template can become whatever the target field needs.
type dataPiece struct {
	kind    dataKind
	bval    bool
	ival    int64
	uval    uint64
	fval    float64
	sval    string
	byteval []byte
}

func nullPiece() dataPiece                { return dataPiece{kind: dataNull} }
func boolPiece(v bool) dataPiece          { return dataPiece{kind: dataBool, bval: v} }
func int32Piece(v int32) dataPiece        { return dataPiece{kind: dataInt32, ival: int64(v)} }
func uint32Piece(v uint32) dataPiece      { return dataPiece{kind: dataUint32, uval: uint64(v)} }
func int64Piece(v int64) dataPiece        { return dataPiece{kind: dataInt64, ival: v} }
func uint64Piece(v uint64) dataPiece      { return dataPiece{kind: dataUint64, uval: v} }
func floatPiece(v float32) dataPiece      { return dataPiece{kind: dataFloat, fval: float64(v)} }
func doublePiece(v float64) dataPiece     { return dataPiece{kind: dataDouble, fval: v} }
func stringPiece(v string) dataPiece      { return dataPiece{kind: dataString, sval: v} }
func bytesPiece(v []byte) dataPiece       { return dataPiece{kind: dataBytes, byteval: v} }

// valueAsString renders the piece for error messages.
func (p dataPiece) valueAsString() string {
	switch p.kind {
	case dataNull:
		return "null"
	case dataBool:
		return strconv.FormatBool(p.bval)
	case dataInt32, dataInt64:
		return strconv.FormatInt(p.ival, 10)
	case dataUint32, dataUint64:
		return strconv.FormatUint(p.uval, 10)
	case dataFloat, dataDouble:
		return strconv.FormatFloat(p.fval, 'g', -1, 64)
	case dataString:
		return p.sval
	case dataBytes:
		return base64.StdEncoding.EncodeToString(p.byteval)
	}
	return ""
}

func (p dataPiece) toInt32() (int32, error) {
	v, err := p.toInt64()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, outOfRangef("value %d out of range for int32", v)
	}
	return int32(v), nil
}

func (p dataPiece) toInt64() (int64, error) {
	switch p.kind {
	case dataInt32, dataInt64:
		return p.ival, nil
	case dataUint32, dataUint64:
		if p.uval > math.MaxInt64 {
			return 0, outOfRangef("value %d out of range for int64", p.uval)
		}
		return int64(p.uval), nil
	case dataFloat, dataDouble:
		if p.fval != math.Trunc(p.fval) || p.fval < math.MinInt64 || p.fval >= math.MaxInt64 {
			return 0, outOfRangef("value %s out of range for int64", p.valueAsString())
		}
		return int64(p.fval), nil
	case dataString:
		v, err := strconv.ParseInt(strings.TrimSpace(p.sval), 10, 64)
		if err != nil {
			if isRangeErr(err) {
				return 0, outOfRangef("value %q out of range for int64", p.sval)
			}
			return 0, fmt.Errorf("invalid integer %q", p.sval)
		}
		return v, nil
	}
	return 0, fmt.Errorf("cannot convert %s to integer", p.kind)
}

func (p dataPiece) toUint32() (uint32, error) {
	v, err := p.toUint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, outOfRangef("value %d out of range for uint32", v)
	}
	return uint32(v), nil
}

func (p dataPiece) toUint64() (uint64, error) {
	switch p.kind {
	case dataInt32, dataInt64:
		if p.ival < 0 {
			return 0, outOfRangef("value %d out of range for uint64", p.ival)
		}
		return uint64(p.ival), nil
	case dataUint32, dataUint64:
		return p.uval, nil
	case dataFloat, dataDouble:
		if p.fval != math.Trunc(p.fval) || p.fval < 0 || p.fval >= math.MaxUint64 {
			return 0, outOfRangef("value %s out of range for uint64", p.valueAsString())
		}
		return uint64(p.fval), nil
	case dataString:
		v, err := strconv.ParseUint(strings.TrimSpace(p.sval), 10, 64)
		if err != nil {
			if isRangeErr(err) {
				return 0, outOfRangef("value %q out of range for uint64", p.sval)
			}
			return 0, fmt.Errorf("invalid unsigned integer %q", p.sval)
		}
		return v, nil
	}
	return 0, fmt.Errorf("cannot convert %s to unsigned integer", p.kind)
}

func (p dataPiece) toFloat() (float32, error) {
	v, err := p.toDouble()
	if err != nil {
		return 0, err
	}
	if !math.IsInf(v, 0) && math.Abs(v) > math.MaxFloat32 {
		return 0, outOfRangef("value %s out of range for float", p.valueAsString())
	}
	return float32(v), nil
}

func (p dataPiece) toDouble() (float64, error) {
	switch p.kind {
	case dataInt32, dataInt64:
		return float64(p.ival), nil
	case dataUint32, dataUint64:
		return float64(p.uval), nil
	case dataFloat, dataDouble:
		return p.fval, nil
	case dataString:
		switch p.sval {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p.sval), 64)
		if err != nil {
			if isRangeErr(err) {
				return 0, outOfRangef("value %q out of range for double", p.sval)
			}
			return 0, fmt.Errorf("invalid number %q", p.sval)
		}
		return v, nil
	}
	return 0, fmt.Errorf("cannot convert %s to number", p.kind)
}

func (p dataPiece) toBool() (bool, error) {
	switch p.kind {
	case dataBool:
		return p.bval, nil
	case dataString:
		switch p.sval {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean %q", p.sval)
	}
	return false, fmt.Errorf("cannot convert %s to bool", p.kind)
}

func (p dataPiece) toString() (string, error) {
	switch p.kind {
	case dataString:
		return p.sval, nil
	case dataBool, dataInt32, dataInt64, dataUint32, dataUint64, dataFloat, dataDouble:
		return p.valueAsString(), nil
	case dataBytes:
		return string(p.byteval), nil
	}
	return "", fmt.Errorf("cannot convert %s to string", p.kind)
}

// toBytes base64-decodes string pieces. Standard and URL-safe alphabets are
// both accepted and padding is optional.
func (p dataPiece) toBytes() ([]byte, error) {
	switch p.kind {
	case dataBytes:
		return p.byteval, nil
	case dataString:
		return decodeBase64(p.sval)
	}
	return nil, fmt.Errorf("cannot convert %s to bytes", p.kind)
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("invalid base64 value: %w", firstErr)
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// almostEqual64 compares doubles with a tolerance of a few dozen ULPs, so a
// binding value that went through decimal text still matches the body value
// it duplicates.
func almostEqual64(a, b float64) bool {
	if a == b {
		return true
	}
	const eps = 2.220446049250313e-16 // 2^-52
	tol := 32 * eps * math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= tol
}

func almostEqual32(a, b float32) bool {
	if a == b {
		return true
	}
	const eps = 1.1920929e-7 // 2^-23
	fa, fb := float64(a), float64(b)
	tol := 32 * eps * math.Max(math.Abs(fa), math.Abs(fb))
	return math.Abs(fa-fb) <= tol
}
