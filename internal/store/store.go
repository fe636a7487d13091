// Package store implements the concurrent, shape-polymorphic,
// TTL-aware keyspace at the center of the server: the Value Store from
// spec.md §4.2.
package store

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// ErrWrongType is returned when a command's required shape does not
// match the key's current shape.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// ErrNotInteger is returned when INCR/DECR operate on a Text value that
// does not parse as a decimal signed 64-bit integer.
var ErrNotInteger = errors.New("ERR value is not an integer or out of range")

// ErrOverflow is returned when INCR/DECR would overflow an int64. The
// teacher silently wraps on overflow; spec.md requires this to be a
// typed, rejected error with the value left unchanged.
var ErrOverflow = errors.New("ERR increment or decrement would overflow")

const defaultShardCount = 32

type entry struct {
	value     Shape
	expiresAt int64 // absolute ms since epoch; 0 = never expires
}

func (e *entry) expired(nowMillis int64) bool {
	return e.expiresAt > 0 && nowMillis >= e.expiresAt
}

type shard struct {
	mu   sync.Mutex
	data map[string]*entry
}

// Store is a sharded concurrent keyspace. Per spec.md §5 and the
// REDESIGN FLAG in §9, per-key atomicity is provided by holding a
// single shard's lock across an entire read-modify-write, never by
// reading, releasing, and re-inserting.
type Store struct {
	shards []*shard
	mask   uint64

	// sweepCursor is the next shard index SweepOnce will visit,
	// advanced with atomic so concurrent sweeper callers (there is
	// normally only one) never double-visit a shard in one pass.
	sweepCursor atomic.Uint64
}

// New returns a Store with shardCount shards, rounded up to the next
// power of two so shard selection is a mask instead of a modulo.
func New(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	n := 1
	for n < shardCount {
		n <<= 1
	}
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{data: make(map[string]*entry)}
	}
	return &Store{shards: shards, mask: uint64(n - 1)}
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[xxhash.Sum64String(key)&s.mask]
}

// lookupLocked returns the entry for key if present and not expired. An
// expired entry is deleted before returning, so every read path
// observes "logically absent" per spec.md §3's invariant. Caller must
// hold sh.mu.
func lookupLocked(sh *shard, key string, now int64) (*entry, bool) {
	e, ok := sh.data[key]
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		delete(sh.data, key)
		return nil, false
	}
	return e, true
}

// Get returns the value's bytes for Text and Counter shapes (a Counter
// is rendered as its decimal representation, since SET/INCR and GET all
// observe the same "string-like" surface), or found=false if the key
// is absent or expired. A List shape is a WRONGTYPE error.
func (s *Store) Get(key string, now int64) (value []byte, found bool, err error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := lookupLocked(sh, key, now)
	if !ok {
		return nil, false, nil
	}
	switch v := e.value.(type) {
	case textValue:
		out := make([]byte, len(v))
		copy(out, v)
		return out, true, nil
	case counterValue:
		return []byte(strconv.FormatInt(int64(v), 10)), true, nil
	default:
		return nil, false, ErrWrongType
	}
}

// Set stores bytes under key with the given TTL, overwriting any prior
// value and shape. A TTL with no deadline clears any existing TTL, per
// spec.md §4.2.
func (s *Store) Set(key string, value []byte, ttl TTL, now int64) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)
	sh.data[key] = &entry{value: textValue(buf), expiresAt: ttl.AbsoluteMillis(now)}
}

// Del removes each key that is present (and not expired) and returns
// the count actually removed. Each key is processed independently;
// per spec.md §4.2 this need not be atomic as a whole.
func (s *Store) Del(keys []string, now int64) int {
	removed := 0
	for _, key := range keys {
		sh := s.shardFor(key)
		sh.mu.Lock()
		if _, ok := lookupLocked(sh, key, now); ok {
			delete(sh.data, key)
			removed++
		}
		sh.mu.Unlock()
	}
	return removed
}

// Exists reports how many of keys are present and unexpired.
func (s *Store) Exists(keys []string, now int64) int {
	count := 0
	for _, key := range keys {
		sh := s.shardFor(key)
		sh.mu.Lock()
		if _, ok := lookupLocked(sh, key, now); ok {
			count++
		}
		sh.mu.Unlock()
	}
	return count
}

// Incr adds 1 to key's integer value, per the shape-coercion rules in
// spec.md §4.2: absent keys become 1, Counter values add directly,
// integer-parseable Text values convert to Counter, non-parseable Text
// errors, List is WRONGTYPE. The whole read-modify-write happens under
// a single shard lock acquisition.
func (s *Store) Incr(key string, now int64) (int64, error) {
	return s.addDelta(key, 1, now)
}

// Decr subtracts 1, with the same rules as Incr.
func (s *Store) Decr(key string, now int64) (int64, error) {
	return s.addDelta(key, -1, now)
}

func (s *Store) addDelta(key string, delta int64, now int64) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := lookupLocked(sh, key, now)
	var current int64
	var expiresAt int64
	if ok {
		switch v := e.value.(type) {
		case counterValue:
			current = int64(v)
			expiresAt = e.expiresAt
		case textValue:
			parsed, err := strconv.ParseInt(string(v), 10, 64)
			if err != nil {
				return 0, ErrNotInteger
			}
			current = parsed
			expiresAt = e.expiresAt
		default:
			return 0, ErrWrongType
		}
	}

	next, overflowed := addOverflowChecked(current, delta)
	if overflowed {
		return 0, ErrOverflow
	}

	sh.data[key] = &entry{value: counterValue(next), expiresAt: expiresAt}
	return next, nil
}

func addOverflowChecked(a, b int64) (sum int64, overflow bool) {
	sum = a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, true
	}
	return sum, false
}

// LPush pushes each value onto the head of key's list, in argument
// order — "LPUSH a b c" on an empty list yields [c, b, a], per
// spec.md §4.2's push-ordering rule — and returns the new length.
func (s *Store) LPush(key string, values [][]byte, now int64) (int, error) {
	return s.push(key, values, now, (*listValue).leftPush)
}

// RPush pushes each value onto the tail, in argument order, so
// "RPUSH a b c" yields [a, b, c].
func (s *Store) RPush(key string, values [][]byte, now int64) (int, error) {
	return s.push(key, values, now, (*listValue).rightPush)
}

func (s *Store) push(key string, values [][]byte, now int64, op func(*listValue, []byte) int) (int, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := lookupLocked(sh, key, now)
	var list *listValue
	if ok {
		lv, isList := e.value.(*listValue)
		if !isList {
			return 0, ErrWrongType
		}
		list = lv
	} else {
		list = newListValue()
		e = &entry{value: list}
		sh.data[key] = e
	}

	length := 0
	for _, v := range values {
		buf := make([]byte, len(v))
		copy(buf, v)
		length = op(list, buf)
	}
	return length, nil
}

// LRange returns a copy of the elements of key's list in [start, stop]
// (inclusive, Redis-style clamped indices). Absent keys behave as an
// empty list. This is the one command spec.md's expanded command set
// adds beyond the distilled command table (SPEC_FULL.md §4.3).
func (s *Store) LRange(key string, start, stop int, now int64) ([][]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := lookupLocked(sh, key, now)
	if !ok {
		return [][]byte{}, nil
	}
	list, isList := e.value.(*listValue)
	if !isList {
		return nil, ErrWrongType
	}
	return list.rangeSlice(start, stop), nil
}

// SweepOnce actively expires a bounded sample from one shard, advancing
// round-robin across shards on each call. Per spec.md §4.2's sweeper
// policy, it never holds a lock longer than the single shard it visits
// and does O(sampleSize) work. It returns the number of keys removed.
func (s *Store) SweepOnce(now int64, sampleSize int) int {
	idx := s.sweepCursor.Add(1) - 1
	sh := s.shards[idx&s.mask]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	removed := 0
	visited := 0
	for key, e := range sh.data {
		if visited >= sampleSize {
			break
		}
		visited++
		if e.expired(now) {
			delete(sh.data, key)
			removed++
		}
	}
	return removed
}

// ShardCount reports the number of shards, mostly useful for tests and
// for the sweeper to size its tick cadence against keyspace breadth.
func (s *Store) ShardCount() int { return len(s.shards) }
