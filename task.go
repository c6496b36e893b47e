package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"

	"skytiler/builder"
	"skytiler/hips"
	"skytiler/mosaic"
	"skytiler/pyramid"
	"skytiler/reproject"
	"skytiler/skyimage"
)

func InitTask() error {
	start := time.Now()

	task, err := NewTask(conf)
	if err != nil {
		return err
	}
	// 注册安全退出
	SafeExitInst.Register(task.AbortFun)
	defer task.Close()

	err = task.Run()
	secs := time.Since(start).Seconds()
	if err != nil {
		task.log.Errorf("task %s failed after %.3fs", task.ID, secs)
		return err
	}
	task.log.Printf("%.3fs finished...", secs)
	return nil
}

// Task 切片任务
type Task struct {
	ID         string
	Name       string
	Dir        string
	TileMap    TileMap
	Collection *skyimage.Collection
	Store      pyramid.Store
	// Generator 全天区生成器, 默认调用 HiPSgen
	Generator hips.Generator
	// HasJava 检查 Generator 所需的 java 是否可用
	HasJava func(ctx context.Context) bool
	conf    *Conf
	log     *logrus.Entry
	// 进度条输出, nil 表示不显示
	barOut io.Writer
	layer  *Layer

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewTask 创建切片任务
func NewTask(c *Conf) (*Task, error) {
	if len(c.Tiling.Inputs) == 0 {
		return nil, fmt.Errorf("no input images, pass them as arguments or set tiling.inputs")
	}
	id, _ := shortid.Generate()
	dir := filepath.Clean(c.Output.Directory)
	name := c.Index.Name
	if name == "" {
		name = filepath.Base(dir)
	}

	task := &Task{
		ID:   id,
		Name: name,
		Dir:  dir,
		TileMap: TileMap{
			Name:     name,
			Format:   c.Output.Format,
			Encoding: c.Output.Encoding,
		},
		Collection: skyimage.NewCollection(c.Tiling.Inputs,
			skyimage.FromIndices(c.Tiling.HduIndex), skyimage.FITSLoader{}),
		conf: c,
		log:  log.WithField("run", id),
	}
	if isTerminal() {
		task.barOut = os.Stdout
	}
	task.Generator = &hips.Hipsgen{
		Java:      c.Hips.Java,
		Jar:       c.Hips.Jar,
		JarURL:    c.Hips.JarURL,
		Selection: task.Collection.Selection,
		Verbose:   c.Hips.Verbose,
		Progress:  task.barOut != nil,
		Logger:    task.log,
	}
	task.HasJava = func(ctx context.Context) bool {
		return hips.JavaInstalled(ctx, c.Hips.Java)
	}
	task.ctx, task.cancel = context.WithCancel(context.Background())
	return task, nil
}

// 结束任务
func (task *Task) AbortFun() {
	task.cancel()
	task.Close()
}

// Close 释放存储
func (task *Task) Close() {
	task.closeOnce.Do(func() {
		task.cancel()
		if c, ok := task.Store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				task.log.Warnf("close store error ~ %s", err)
			}
		}
	})
}

// Run 分类后选择本地切片或全天区生成
func (task *Task) Run() error {
	task.log.Infof("Task %s: %d inputs -> %s", task.Name, len(task.Collection.Paths), task.Dir)
	reuse, err := prepareOutput(task.Dir, task.conf.Output.Override)
	if err != nil {
		return err
	}
	if reuse {
		return task.reuseOutput()
	}

	wide := task.conf.Tiling.ForceHips
	if !wide && !task.conf.Tiling.ForceTan {
		cls, err := mosaic.ClassifyCollection(task.Collection)
		if err != nil {
			return err
		}
		task.log.Infof("coverage %s, max corner separation %.3f deg", cls.Coverage, cls.MaxSeparation)
		wide = cls.Coverage == mosaic.Wide
	}
	if wide {
		if task.HasJava(task.ctx) {
			return task.runHiPS()
		}
		task.log.Warn("java is not installed, tiling the wide mosaic on a tangent plane")
	}
	return task.runLocal()
}

// reuseOutput 沿用已有输出, 只重写索引
func (task *Task) reuseOutput() error {
	idx, err := builder.ReadIndex(task.Dir)
	if err != nil {
		return err
	}
	task.log.Infof("output %s exists, rewriting the index only (set output.override to rebuild)", task.Dir)
	b := builder.New(task.Dir, nil)
	b.Index = *idx
	b.Logger = task.log
	b.SetName(task.Name)
	b.Index.RunID = task.ID
	return b.WriteIndex()
}

// runLocal 本地切片: 规划 -> 最深层 -> 逐层合并 -> 索引
func (task *Task) runLocal() error {
	c := task.conf
	descs, err := mosaic.DescribeCollection(task.Collection)
	if err != nil {
		return err
	}
	planner := mosaic.NewPlanner(c.Tiling.TileSize)
	planner.Logger = task.log
	planner.AllowDisjoint = c.Tiling.AllowDisjoint
	plan, err := planner.Plan(descs)
	if err != nil {
		return err
	}
	merger, err := mosaic.MergerByName(c.Tiling.Merger)
	if err != nil {
		return err
	}
	overlap, err := mosaic.ParseOverlap(c.Tiling.Overlap)
	if err != nil {
		return err
	}
	method, err := reproject.ParseMethod(c.Tiling.Interpolation)
	if err != nil {
		return err
	}
	images, err := mosaic.LoadImages(task.Collection)
	if err != nil {
		return err
	}

	task.Store, err = openStore(task.Dir, &task.TileMap, plan.TileSize)
	if err != nil {
		return err
	}

	populated := plan.Populated()
	task.startLayer(plan.Level, len(populated))
	tiler := &mosaic.Tiler{
		Plan:        plan,
		Images:      images,
		Store:       task.Store,
		Reprojector: reproject.Reprojector{Method: method},
		Overlap:     overlap,
		Workers:     c.Task.Workers,
		Logger:      task.log,
		OnTile:      func(pyramid.Address) { task.layer.increment() },
	}
	if _, err := tiler.Run(task.ctx); err != nil {
		return err
	}
	task.finishLayer()

	b := builder.New(task.Dir, task.Store)
	b.Logger = task.log
	b.SetName(task.Name)
	if err := b.ApplyPlan(plan); err != nil {
		return err
	}
	cascader := &mosaic.Cascader{
		Merger:      merger,
		Workers:     c.Task.Workers,
		Percentiles: c.Tiling.Percentiles,
		Logger:      task.log,
		OnLevel:     task.startLayer,
		OnTile:      func(pyramid.Address) { task.layer.increment() },
	}
	if err := b.Cascade(task.ctx, cascader, plan.Level, populated); err != nil {
		return err
	}
	task.finishLayer()
	task.log.Infof("root tile at %s", task.TileMap.GetTileURL(pyramid.NewAddress(0, 0, 0)))

	b.Index.URL = task.TileMap.URL
	b.Index.Encoding = task.TileMap.Encoding
	b.Index.RunID = task.ID
	if err := b.WriteFootprints(descs); err != nil {
		return err
	}
	if c.Index.Thumbnail {
		if err := b.WriteThumbnail(); err != nil {
			task.log.Warnf("thumbnail error ~ %s", err)
		}
	}
	if c.Index.Histogram {
		if err := b.WriteHistogram(c.Index.Bins); err != nil {
			task.log.Warnf("histogram error ~ %s", err)
		}
	}
	return b.WriteIndex()
}

// runHiPS 交给 HiPSgen 生成全天区瓦片
func (task *Task) runHiPS() error {
	props, err := task.Generator.Generate(task.ctx, task.Collection.Paths, task.Dir)
	if err != nil {
		return err
	}
	b := builder.New(task.Dir, nil)
	b.Logger = task.log
	b.SetName(task.Name)
	b.ApplyHiPS(props)
	b.Index.RunID = task.ID
	if descs, err := task.Collection.Descriptions(); err == nil {
		if err := b.WriteFootprints(descs); err != nil {
			return err
		}
	}
	return b.WriteIndex()
}

// startLayer 开始新的级别进度; 各级别之间有屏障, 切换时没有进行中的瓦片
func (task *Task) startLayer(zoom, count int) {
	task.finishLayer()
	task.layer = newLayer(zoom, count, task.barOut)
	task.log.Infof("Task layer: %s starting", task.layer)
}

func (task *Task) finishLayer() {
	if task.layer != nil {
		task.layer.finish(task.ID)
		task.layer = nil
	}
}
