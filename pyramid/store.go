package pyramid

import (
	"errors"
	"sync"
)

// ErrTileExists is returned when a tile address is written twice.
var ErrTileExists = errors.New("pyramid: tile already written")

// Store is addressed storage of fixed-size tiles. Put never overwrites; Get
// reports absence with ok == false. Implementations must accept concurrent
// Puts to distinct addresses and concurrent Gets of written addresses.
type Store interface {
	Put(addr Address, t *Tile) error
	Get(addr Address) (t *Tile, ok bool, err error)
	TileSize() int
}

// MemoryStore keeps tiles in memory.
type MemoryStore struct {
	size  int
	tiles sync.Map
}

// NewMemoryStore returns an empty store for size x size tiles.
func NewMemoryStore(size int) *MemoryStore {
	return &MemoryStore{size: size}
}

// TileSize implements Store.
func (s *MemoryStore) TileSize() int { return s.size }

// Put implements Store.
func (s *MemoryStore) Put(addr Address, t *Tile) error {
	if err := t.check(s.size); err != nil {
		return err
	}
	cp := &Tile{Size: t.Size, Data: append([]float64(nil), t.Data...)}
	if _, loaded := s.tiles.LoadOrStore(addr, cp); loaded {
		return ErrTileExists
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(addr Address) (*Tile, bool, error) {
	v, ok := s.tiles.Load(addr)
	if !ok {
		return nil, false, nil
	}
	return v.(*Tile), true, nil
}

// Len counts the stored tiles.
func (s *MemoryStore) Len() int {
	n := 0
	s.tiles.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
