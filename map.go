package main

import (
	"strconv"
	"strings"

	"skytiler/pyramid"
)

// TileMap 输出瓦片的命名与编码
type TileMap struct {
	Name     string
	Format   string
	Encoding string
	// URL 瓦片相对路径模板, 由 openStore 设置
	URL string
}

// GetTileURL 获取瓦片相对路径
func (m *TileMap) GetTileURL(t pyramid.Address) string {
	if m.Format == MBTILES {
		return m.URL + "#" + strconv.Itoa(int(t.Z)) + "/" + strconv.Itoa(int(t.X)) + "/" + strconv.Itoa(int(t.Y))
	}
	url := strings.Replace(m.URL, "{x}", strconv.Itoa(int(t.X)), -1)
	url = strings.Replace(url, "{y}", strconv.Itoa(int(t.Y)), -1)
	url = strings.Replace(url, "{z}", strconv.Itoa(int(t.Z)), -1)
	return url
}
