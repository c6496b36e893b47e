package pyramid

import (
	"image"
	"sort"
)

// Depth2Tiles is the number of tiles in a full pyramid whose deepest level
// is depth.
func Depth2Tiles(depth int) int64 {
	return (int64(1)<<(2*uint(depth+1)) - 1) / 3
}

// TilesAt is the number of tiles at one level.
func TilesAt(level int) int64 {
	return int64(1) << (2 * uint(level))
}

// Quadrant returns the position (0 or 1 on each axis) of a child inside its
// parent.
func Quadrant(child Address) (dx, dy int) {
	return int(child.X & 1), int(child.Y & 1)
}

// Parents returns the distinct parents of addrs, sorted.
func Parents(addrs []Address) []Address {
	seen := make(map[Address]struct{}, len(addrs)/4+1)
	out := make([]Address, 0, len(addrs)/4+1)
	for _, a := range addrs {
		if a.Z == 0 {
			continue
		}
		p := a.Parent()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	Sort(out)
	return out
}

// Sort orders addresses by level, then row, then column.
func Sort(addrs []Address) {
	sort.Slice(addrs, func(i, j int) bool {
		a, b := addrs[i], addrs[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// Covering lists the tiles at level that intersect any of the pixel
// rectangles, in sorted order. Rectangles are in the level's global pixel
// grid and are clipped to it.
func Covering(level, tileSize int, rects ...image.Rectangle) []Address {
	grid := image.Rect(0, 0, tileSize<<uint(level), tileSize<<uint(level))
	seen := make(map[Address]struct{})
	var out []Address
	for _, r := range rects {
		r = r.Intersect(grid)
		if r.Empty() {
			continue
		}
		for ty := r.Min.Y / tileSize; ty <= (r.Max.Y-1)/tileSize; ty++ {
			for tx := r.Min.X / tileSize; tx <= (r.Max.X-1)/tileSize; tx++ {
				a := NewAddress(level, tx, ty)
				if _, ok := seen[a]; ok {
					continue
				}
				seen[a] = struct{}{}
				out = append(out, a)
			}
		}
	}
	Sort(out)
	return out
}

// Bounds is the rectangle a tile covers in its level's global pixel grid.
func Bounds(a Address, tileSize int) image.Rectangle {
	x0 := int(a.X) * tileSize
	y0 := int(a.Y) * tileSize
	return image.Rect(x0, y0, x0+tileSize, y0+tileSize)
}
