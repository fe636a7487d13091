// Package snapshot persists and restores a store.Store to a
// length-prefixed binary file, per spec.md §9's preference for a
// self-describing binary format over an ad hoc text dump. I/O goes
// through afero.Fs so tests exercise the format against an in-memory
// filesystem, the same boundary the teacher drew around its DataDir.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/gofast-io/gofast-server/internal/store"
)

const (
	magic   uint32 = 0x676f6673 // "gofs"
	version uint8  = 1
)

// Save writes every live key in s to path on fs, in the binary format:
//
//	magic(4) version(1) count(8)
//	per record: kind(1) expiresAt(8) keyLen(4) key(keyLen)
//	  Text:    valueLen(4) value
//	  Counter: value(8, big-endian)
//	  List:    itemCount(4) then itemLen(4)+item per item
func Save(fs afero.Fs, path string, s *store.Store, now int64) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("snapshot: close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	records := s.Snapshot(now)

	if err := binary.Write(w, binary.BigEndian, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(len(records))); err != nil {
		return err
	}

	for _, rec := range records {
		if err := writeRecord(w, rec); err != nil {
			return fmt.Errorf("snapshot: write record %q: %w", rec.Key, err)
		}
	}

	return w.Flush()
}

func writeRecord(w io.Writer, rec store.Record) error {
	if err := binary.Write(w, binary.BigEndian, uint8(rec.Kind)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, rec.ExpiresAt); err != nil {
		return err
	}
	if err := writeBytes(w, []byte(rec.Key)); err != nil {
		return err
	}

	switch rec.Kind {
	case store.ShapeCounter:
		return binary.Write(w, binary.BigEndian, rec.Counter)
	case store.ShapeList:
		if err := binary.Write(w, binary.BigEndian, uint32(len(rec.List))); err != nil {
			return err
		}
		for _, item := range rec.List {
			if err := writeBytes(w, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return writeBytes(w, rec.Text)
	}
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// Load reads a snapshot file written by Save and restores its records
// into s. now is the reference time against which already-expired
// records are dropped (store.Store.Restore's contract). It is not an
// error for path to not exist — a fresh DataDir has no prior snapshot.
func Load(fs afero.Fs, path string, s *store.Store, now int64) error {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return fmt.Errorf("snapshot: stat %s: %w", path, err)
	}
	if !exists {
		return nil
	}

	f, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var gotMagic uint32
	if err := binary.Read(r, binary.BigEndian, &gotMagic); err != nil {
		return fmt.Errorf("snapshot: read magic: %w", err)
	}
	if gotMagic != magic {
		return fmt.Errorf("snapshot: bad magic %x in %s", gotMagic, path)
	}

	var gotVersion uint8
	if err := binary.Read(r, binary.BigEndian, &gotVersion); err != nil {
		return fmt.Errorf("snapshot: read version: %w", err)
	}
	if gotVersion != version {
		return fmt.Errorf("snapshot: unsupported version %d in %s", gotVersion, path)
	}

	var count uint64
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return fmt.Errorf("snapshot: read count: %w", err)
	}

	records := make([]store.Record, 0, count)
	for i := uint64(0); i < count; i++ {
		rec, err := readRecord(r)
		if err != nil {
			return fmt.Errorf("snapshot: read record %d: %w", i, err)
		}
		records = append(records, rec)
	}

	s.Restore(records, now)
	return nil
}

func readRecord(r io.Reader) (store.Record, error) {
	var kind uint8
	if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
		return store.Record{}, err
	}
	var expiresAt int64
	if err := binary.Read(r, binary.BigEndian, &expiresAt); err != nil {
		return store.Record{}, err
	}
	key, err := readBytes(r)
	if err != nil {
		return store.Record{}, err
	}

	rec := store.Record{Key: string(key), Kind: store.ShapeKind(kind), ExpiresAt: expiresAt}

	switch rec.Kind {
	case store.ShapeCounter:
		var v int64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return store.Record{}, err
		}
		rec.Counter = v
	case store.ShapeList:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return store.Record{}, err
		}
		items := make([][]byte, n)
		for i := range items {
			item, err := readBytes(r)
			if err != nil {
				return store.Record{}, err
			}
			items[i] = item
		}
		rec.List = items
	default:
		text, err := readBytes(r)
		if err != nil {
			return store.Record{}, err
		}
		rec.Text = text
	}

	return rec, nil
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
