package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPriorityRankOrder(t *testing.T) {
	p := NewPriorityList()
	p.Append(150000000)
	p.Append(146200000)
	if r, ok := p.Rank(150000000); !ok || r != 0 {
		t.Fatalf("first entry rank: %d %v", r, ok)
	}
	if r, ok := p.Rank(146200000); !ok || r != 1 {
		t.Fatalf("second entry rank: %d %v", r, ok)
	}
	if _, ok := p.Rank(152000000); ok {
		t.Fatal("unlisted frequency has a rank")
	}
	if p.Append(150000000) {
		t.Fatal("re-append reported as new")
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", p.Len())
	}
}

func TestPriorityLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "priority.txt")
	if err := os.WriteFile(path, []byte("150000000\n\n146200123\n"), 0644); err != nil {
		t.Fatal(err)
	}
	p := NewPriorityList()
	if err := p.LoadFile(path, 5000); err != nil {
		t.Fatal(err)
	}
	// Entries quantize onto the channel grid.
	if r, ok := p.Rank(146200000); !ok || r != 1 {
		t.Fatalf("expected quantized entry at rank 1, got %d %v", r, ok)
	}

	bad := filepath.Join(t.TempDir(), "bad.txt")
	os.WriteFile(bad, []byte("150e6\nnot-a-freq\n"), 0644)
	if err := NewPriorityList().LoadFile(bad, 5000); err == nil {
		t.Fatal("unparsable priority file accepted")
	}
}

func TestAutoPromoter(t *testing.T) {
	p := NewPriorityList()
	a := NewAutoPromoter(3)

	// Two voice results are below the floor.
	a.Observe(p, 146200000, true)
	if a.Observe(p, 146200000, true) {
		t.Fatal("promoted below minimum voice count")
	}
	if !a.Observe(p, 146200000, true) {
		t.Fatal("expected promotion at third voice result")
	}
	if _, ok := p.Rank(146200000); !ok {
		t.Fatal("promoted frequency not in list")
	}
	// Promotion is monotonic and not repeated.
	if a.Observe(p, 146200000, true) {
		t.Fatal("re-promoted an already listed frequency")
	}

	// Data-dominated channels never promote.
	for i := 0; i < 5; i++ {
		a.Observe(p, 453100000, false)
	}
	a.Observe(p, 453100000, true)
	if _, ok := p.Rank(453100000); ok {
		t.Fatal("data channel promoted")
	}
}
