package model

import "testing"

func TestPieceTableInternsStableNegativeIDs(t *testing.T) {
	pt := newPieceTable(ChatMLSpecials)
	a := pt.intern("你")
	b := pt.intern("好")
	if a >= -1 || b >= -1 || a == b {
		t.Fatalf("unexpected ids a=%d b=%d", a, b)
	}
	if again := pt.intern("你"); again != a {
		t.Fatalf("intern not stable: %d vs %d", again, a)
	}
	p, special, ok := pt.lookup(b)
	if !ok || special || p != "好" {
		t.Fatalf("lookup(b) = %q %v %v", p, special, ok)
	}
	end := pt.intern(ChatMLEnd)
	if _, special, ok := pt.lookup(end); !ok || !special {
		t.Fatalf("expected %s to be special", ChatMLEnd)
	}
	for _, id := range []Token{-1, 0, 5, -100} {
		if _, _, ok := pt.lookup(id); ok {
			t.Fatalf("lookup(%d) should miss", id)
		}
	}
}
