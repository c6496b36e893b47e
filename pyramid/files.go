package pyramid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultLayout places tiles at <root>/<level>/<x>/<y>.<ext>.
const DefaultLayout = "{z}/{x}/{y}.{ext}"

// FileStore writes one file per tile under Root.
type FileStore struct {
	Root     string
	Layout   string
	Encoding string
	size     int
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string, size int, encoding string) *FileStore {
	return &FileStore{
		Root:     dir,
		Layout:   DefaultLayout,
		Encoding: encoding,
		size:     size,
	}
}

// TileSize implements Store.
func (s *FileStore) TileSize() int { return s.size }

// Ext is the file extension of the store's encoding.
func (s *FileStore) Ext() string {
	if s.Encoding == GZIP {
		return "raw.gz"
	}
	return Raw
}

// TilePath 获取瓦片路径
func (s *FileStore) TilePath(a Address) string {
	p := strings.Replace(s.Layout, "{x}", strconv.Itoa(int(a.X)), -1)
	p = strings.Replace(p, "{y}", strconv.Itoa(int(a.Y)), -1)
	p = strings.Replace(p, "{z}", strconv.Itoa(int(a.Z)), -1)
	p = strings.Replace(p, "{ext}", s.Ext(), -1)
	return filepath.Join(s.Root, filepath.FromSlash(p))
}

// Put implements Store. The tile is written to a temporary file and linked
// into place, so readers never observe a partial tile and an existing tile
// is never replaced.
func (s *FileStore) Put(a Address, t *Tile) error {
	if err := t.check(s.size); err != nil {
		return err
	}
	body, err := Encode(t, s.Encoding)
	if err != nil {
		return err
	}
	name := s.TilePath(a)
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tile-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Link(tmp.Name(), name); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrTileExists
		}
		return err
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(a Address) (*Tile, bool, error) {
	name := s.TilePath(a)
	body, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	t, err := Decode(body, s.Encoding, s.size)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", name, err)
	}
	return t, true, nil
}
