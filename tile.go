package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	pb "gopkg.in/cheggaaa/pb.v1"

	"skytiler/pyramid"
)

// Constants representing output formats
const (
	FILES   string = "files"   // one file per tile, {z}/{x}/{y}.raw[.gz]
	MBTILES string = "mbtiles" // one sqlite file
)

// Layer 级别&瓦片数
type Layer struct {
	Zoom  int
	Count int64
	Bar   *pb.ProgressBar
}

func (l Layer) String() string {
	return fmt.Sprintf("zoom %d (%d tiles)", l.Zoom, l.Count)
}

// newLayer 创建级别进度, out 为 nil 时不显示进度条
func newLayer(zoom, count int, out io.Writer) *Layer {
	l := &Layer{Zoom: zoom, Count: int64(count)}
	if out == nil || count == 0 {
		return l
	}
	l.Bar = pb.New64(l.Count).Prefix(fmt.Sprintf("Zoom %d : ", zoom)).Postfix("\n")
	l.Bar.Output = out
	l.Bar.SetRefreshRate(time.Second)
	l.Bar.Start()
	return l
}

func (l *Layer) increment() {
	if l != nil && l.Bar != nil {
		l.Bar.Increment()
	}
}

func (l *Layer) finish(taskID string) {
	if l != nil && l.Bar != nil {
		l.Bar.FinishPrint(fmt.Sprintf("Task %s Zoom %d finished ~", taskID, l.Zoom))
	}
}

// openStore 按输出格式打开瓦片存储
func openStore(dir string, tm *TileMap, tileSize int) (pyramid.Store, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	switch strings.ToLower(tm.Format) {
	case FILES, "":
		s := pyramid.NewFileStore(dir, tileSize, tm.Encoding)
		tm.URL = strings.Replace(s.Layout, "{ext}", s.Ext(), -1)
		return s, nil
	case MBTILES:
		name := tm.Name + ".mbtiles"
		s, err := pyramid.OpenSQLite(filepath.Join(dir, name), tileSize, tm.Encoding)
		if err != nil {
			return nil, err
		}
		tm.URL = name
		return s, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", tm.Format)
	}
}
