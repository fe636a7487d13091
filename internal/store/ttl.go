package store

// TTLKind selects how a TTL value in a TTL is interpreted, matching the
// SET modifiers in spec.md §4.3 (EX, PX, EXAT, PXAT) plus "none".
type TTLKind uint8

const (
	TTLNone TTLKind = iota
	TTLRelativeSeconds
	TTLRelativeMillis
	TTLAbsoluteSeconds
	TTLAbsoluteMillis
)

// TTL is a not-yet-normalized expiration spec, as parsed from a
// command's modifier tokens.
type TTL struct {
	Kind  TTLKind
	Value int64
}

// NoTTL clears any prior expiration on SET, per spec.md §4.2.
var NoTTL = TTL{Kind: TTLNone}

// AbsoluteMillis normalizes t to an absolute millisecond deadline given
// the current wall-clock time in milliseconds. It returns 0 for
// TTLNone, meaning "never expires".
func (t TTL) AbsoluteMillis(nowMillis int64) int64 {
	switch t.Kind {
	case TTLNone:
		return 0
	case TTLRelativeSeconds:
		return nowMillis + t.Value*1000
	case TTLRelativeMillis:
		return nowMillis + t.Value
	case TTLAbsoluteSeconds:
		return t.Value * 1000
	case TTLAbsoluteMillis:
		return t.Value
	default:
		return 0
	}
}
