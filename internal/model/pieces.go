package model

import "sync"

// pieceTable interns text pieces streamed by a runtime that reports generated
// text rather than vocabulary ids. Handles are negative so they never collide
// with real ids; -1 is left free to mean "unknown".
type pieceTable struct {
	mu    sync.RWMutex
	ids   map[string]Token
	text  []string
	specs map[string]bool
}

func newPieceTable(specials []string) *pieceTable {
	t := &pieceTable{ids: make(map[string]Token), specs: make(map[string]bool)}
	for _, s := range specials {
		t.specs[s] = true
	}
	return t
}

func (t *pieceTable) intern(piece string) Token {
	t.mu.RLock()
	id, ok := t.ids[piece]
	t.mu.RUnlock()
	if ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[piece]; ok {
		return id
	}
	t.text = append(t.text, piece)
	id = Token(-(len(t.text) + 1))
	t.ids[piece] = id
	return id
}

// lookup returns the piece for id and whether it is a special marker.
func (t *pieceTable) lookup(id Token) (piece string, special, ok bool) {
	idx := int(-id) - 2
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx < 0 || idx >= len(t.text) {
		return "", false, false
	}
	piece = t.text[idx]
	return piece, t.specs[piece], true
}
