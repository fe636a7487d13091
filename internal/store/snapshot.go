package store

// ShapeKind is the exported form of shapeKind, used by the snapshot
// package to dump/restore entries without reaching into store
// internals.
type ShapeKind = shapeKind

const (
	ShapeText    = kindText
	ShapeCounter = kindCounter
	ShapeList    = kindList
)

// Record is one key's durable representation: shape, payload, and
// absolute-millisecond expiry deadline (0 = none). It is the unit the
// snapshot package serializes and restores.
type Record struct {
	Key       string
	Kind      ShapeKind
	Text      []byte
	Counter   int64
	List      [][]byte
	ExpiresAt int64
}

// Snapshot returns a point-in-time copy of every live (unexpired) key.
// Per spec.md §5, all shards are locked for the duration of the scan so
// concurrent writers observe the snapshot as strictly before or after,
// never torn within a single key. Shards are locked in a fixed index
// order to avoid any possibility of lock-ordering deadlock.
func (s *Store) Snapshot(now int64) []Record {
	for _, sh := range s.shards {
		sh.mu.Lock()
	}
	defer func() {
		for _, sh := range s.shards {
			sh.mu.Unlock()
		}
	}()

	var out []Record
	for _, sh := range s.shards {
		for key, e := range sh.data {
			if e.expired(now) {
				continue
			}
			out = append(out, recordOf(key, e))
		}
	}
	return out
}

func recordOf(key string, e *entry) Record {
	rec := Record{Key: key, Kind: e.value.kind(), ExpiresAt: e.expiresAt}
	switch v := e.value.(type) {
	case textValue:
		rec.Text = append([]byte(nil), v...)
	case counterValue:
		rec.Counter = int64(v)
	case *listValue:
		items := make([][]byte, 0, v.length)
		for n := v.head; n != nil; n = n.next {
			items = append(items, append([]byte(nil), n.value...))
		}
		rec.List = items
	}
	return rec
}

// Restore inserts records into the store, dropping any whose deadline
// has already passed, per spec.md §6: "restore ... inserts all
// non-expired entries into an empty store". Restore is meant to run
// once, at startup, against a freshly constructed Store.
func (s *Store) Restore(records []Record, now int64) {
	for _, rec := range records {
		if rec.ExpiresAt > 0 && now >= rec.ExpiresAt {
			continue
		}
		sh := s.shardFor(rec.Key)
		sh.mu.Lock()
		sh.data[rec.Key] = &entry{value: shapeFromRecord(rec), expiresAt: rec.ExpiresAt}
		sh.mu.Unlock()
	}
}

func shapeFromRecord(rec Record) Shape {
	switch rec.Kind {
	case kindCounter:
		return counterValue(rec.Counter)
	case kindList:
		lv := newListValue()
		for _, item := range rec.List {
			lv.rightPush(item)
		}
		return lv
	default:
		return textValue(rec.Text)
	}
}
