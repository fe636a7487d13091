package resp

import (
	"strconv"
)

// Serialize renders f to its wire form. It is total over every Frame
// value produced by this package's constructors; nested arrays are
// serialized depth-first.
func Serialize(f Frame) []byte {
	buf := make([]byte, 0, 64)
	return appendFrame(buf, f)
}

// SerializeInto renders f into buf (typically obtained from a
// BytePool), returning the extended slice. This is the pooled
// counterpart to Serialize, used on the hot reply path so a
// connection's steady-state traffic doesn't allocate one reply buffer
// per command.
func SerializeInto(buf []byte, f Frame) []byte {
	return appendFrame(buf, f)
}

func appendFrame(buf []byte, f Frame) []byte {
	switch f.Type {
	case SimpleString:
		buf = append(buf, '+')
		buf = append(buf, f.Str...)
		return append(buf, '\r', '\n')
	case Error:
		buf = append(buf, '-')
		buf = append(buf, f.Str...)
		return append(buf, '\r', '\n')
	case Integer:
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, f.Int, 10)
		return append(buf, '\r', '\n')
	case BulkString:
		if f.IsNull {
			return append(buf, '$', '-', '1', '\r', '\n')
		}
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(f.Bulk)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, f.Bulk...)
		return append(buf, '\r', '\n')
	case Array:
		if f.IsNull {
			return append(buf, '*', '-', '1', '\r', '\n')
		}
		buf = append(buf, '*')
		buf = strconv.AppendInt(buf, int64(len(f.Items)), 10)
		buf = append(buf, '\r', '\n')
		for _, item := range f.Items {
			buf = appendFrame(buf, item)
		}
		return buf
	default:
		panic("resp: unknown frame type")
	}
}
