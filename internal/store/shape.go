package store

// shapeKind tags which concrete Shape a stored value holds. Kept as a
// closed set (Text, Counter, List) so every switch over it is
// exhaustive — the same guarantee the teacher's CacheItem.DataType enum
// gave, but enforced at the type level instead of by convention.
type shapeKind uint8

const (
	kindText shapeKind = iota
	kindCounter
	kindList
)

// Shape is the discriminated union of value representations a key can
// hold. Only textValue, counterValue, and *listValue implement it.
type Shape interface {
	kind() shapeKind
}

// textValue is an opaque byte string.
type textValue []byte

func (textValue) kind() shapeKind { return kindText }

// counterValue is an integer created by INCR/DECR, or by SET of a
// decimal-parseable string being coerced on first arithmetic use.
type counterValue int64

func (counterValue) kind() shapeKind { return kindCounter }

// listValue is an ordered, doubly-linked sequence of byte strings,
// adapted from the teacher's List/ListNode (list.go) with the
// per-list mutex removed: the shard lock already covers the entire
// read-modify-write, so a second lock here would be redundant and,
// per spec.md §9, is exactly the kind of two-step locking that causes
// lost updates.
type listValue struct {
	head, tail *listNode
	length     int
}

func (*listValue) kind() shapeKind { return kindList }

type listNode struct {
	value      []byte
	prev, next *listNode
}

func newListValue() *listValue { return &listValue{} }

func (l *listValue) leftPush(value []byte) int {
	node := &listNode{value: value}
	if l.head == nil {
		l.head, l.tail = node, node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}
	l.length++
	return l.length
}

func (l *listValue) rightPush(value []byte) int {
	node := &listNode{value: value}
	if l.tail == nil {
		l.head, l.tail = node, node
	} else {
		l.tail.next = node
		node.prev = l.tail
		l.tail = node
	}
	l.length++
	return l.length
}

// rangeSlice returns a copy of the elements in [start, stop] inclusive.
// Negative indices count from the end of the list (-1 is the last
// element), then both bounds are clamped into range: start floored to
// 0, stop capped at the last index.
func (l *listValue) rangeSlice(start, stop int) [][]byte {
	if start < 0 {
		start += l.length
	}
	if stop < 0 {
		stop += l.length
	}
	if start < 0 {
		start = 0
	}
	if stop >= l.length {
		stop = l.length - 1
	}
	if start > stop || l.length == 0 {
		return [][]byte{}
	}

	result := make([][]byte, 0, stop-start+1)
	current := l.head
	for i := 0; i < start; i++ {
		current = current.next
	}
	for i := start; i <= stop && current != nil; i++ {
		result = append(result, current.value)
		current = current.next
	}
	return result
}
