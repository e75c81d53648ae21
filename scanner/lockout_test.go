package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLockoutRanges(t *testing.T) {
	l := NewLockoutSet()
	l.Add(146200000)
	l.ranges = append(l.ranges, LockoutRange{LoHz: 460000000, HiHz: 460500000})

	if !l.Contains(146200000) {
		t.Fatal("added frequency not locked out")
	}
	if !l.Contains(460200000) {
		t.Fatal("frequency inside range not locked out")
	}
	if !l.Contains(460000000) || !l.Contains(460500000) {
		t.Fatal("range bounds are inclusive")
	}
	if l.Contains(460500001) {
		t.Fatal("frequency above range locked out")
	}
	l.Clear()
	if l.Contains(146200000) || l.Contains(460200000) {
		t.Fatal("entries survived clear")
	}
}

func TestLockoutUnsavedFlag(t *testing.T) {
	l := NewLockoutSet()
	l.Add(146200000)
	fs, _ := l.Entries()
	if len(fs) != 1 || !fs[0].Unsaved {
		t.Fatalf("runtime entry should be unsaved: %+v", fs)
	}
	if l.Add(0); l.Contains(0) {
		t.Fatal("parked sentinel locked out")
	}
}

func TestLockoutLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockout.yaml")
	conf := `
frequencies:
  - 146.2001
ranges:
  - min: 460.0
    max: 460.5
`
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}
	l := NewLockoutSet()
	if err := l.LoadFile(path, 5000); err != nil {
		t.Fatal(err)
	}
	// File frequencies quantize onto the grid and are saved entries.
	if !l.Contains(146200000) {
		t.Fatal("file frequency not locked out")
	}
	fs, rs := l.Entries()
	if len(fs) != 1 || fs[0].Unsaved {
		t.Fatalf("file entry should be saved: %+v", fs)
	}
	if len(rs) != 1 || rs[0].LoHz != 460000000 || rs[0].HiHz != 460500000 {
		t.Fatalf("range not loaded: %+v", rs)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("ranges:\n  - min: 460.5\n    max: 460.0\n"), 0644)
	if err := NewLockoutSet().LoadFile(bad, 5000); err == nil {
		t.Fatal("inverted range accepted")
	}
}
