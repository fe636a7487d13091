package snapshot

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/gofast-io/gofast-server/internal/store"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	s := store.New(4)
	s.Set("a", []byte("1"), store.NoTTL, 1000)
	s.Set("b", []byte("2"), store.TTL{Kind: store.TTLRelativeSeconds, Value: 3600}, 1000)
	s.RPush("l", [][]byte{[]byte("x"), []byte("y")}, 1000)
	s.Incr("n", 1000)

	if err := Save(fs, "/data/snapshot.bin", s, 1000); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := store.New(4)
	if err := Load(fs, "/data/snapshot.bin", restored, 1000); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, found, err := restored.Get("a", 1000)
	if err != nil || !found || string(got) != "1" {
		t.Fatalf("a: got %q found=%v err=%v", got, found, err)
	}
	got, found, err = restored.Get("b", 1000)
	if err != nil || !found || string(got) != "2" {
		t.Fatalf("b: got %q found=%v err=%v", got, found, err)
	}
	list, err := restored.LRange("l", 0, -1, 1000)
	if err != nil || len(list) != 2 || string(list[0]) != "x" || string(list[1]) != "y" {
		t.Fatalf("l: got %v err=%v", list, err)
	}
	got, found, err = restored.Get("n", 1000)
	if err != nil || !found || string(got) != "1" {
		t.Fatalf("n: got %q found=%v err=%v", got, found, err)
	}

	if _, found, _ := restored.Get("never-set", 1000); found {
		t.Fatal("unexpected key present after restore")
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := store.New(4)
	if err := Load(fs, "/data/does-not-exist.bin", s, 1000); err != nil {
		t.Fatalf("expected no error for missing snapshot, got %v", err)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/data/bad.bin", []byte("not a snapshot file"), 0o644)

	s := store.New(4)
	if err := Load(fs, "/data/bad.bin", s, 1000); err == nil {
		t.Fatal("expected an error for a file with a bad magic number")
	}
}

func TestSaveDropsExpiredKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := store.New(4)
	s.Set("gone", []byte("v"), store.TTL{Kind: store.TTLRelativeMillis, Value: 1}, 1000)
	s.Set("stays", []byte("v"), store.NoTTL, 1000)

	if err := Save(fs, "/data/snapshot.bin", s, 1100); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := store.New(4)
	if err := Load(fs, "/data/snapshot.bin", restored, 1100); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, found, _ := restored.Get("gone", 1100); found {
		t.Fatal("expired key should not survive a snapshot taken after its deadline")
	}
	if _, found, _ := restored.Get("stays", 1100); !found {
		t.Fatal("unexpired key should survive")
	}
}
