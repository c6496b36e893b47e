package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/shiena/ansicolor"
)

var log *logrus.Logger

// InitLog 按配置初始化全局日志
func InitLog() error {
	l, err := newLogger(conf.Output.LogDir, conf.Output.OutputTerminal, logLevel)
	if err != nil {
		return err
	}
	log = l
	return nil
}

// newLogger 日志写入 logDir 下按日期命名的文件, terminal 为 true 时同时输出到控制台
func newLogger(logDir string, terminal bool, level string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		FieldsOrder:     []string{"run", "level"},
	})

	w, err := logWriter(logDir, terminal)
	if err != nil {
		return nil, err
	}
	l.SetOutput(ansicolor.NewAnsiColorWriter(w))

	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.InfoLevel
	}
	l.SetLevel(lv)
	return l, nil
}

func logWriter(logDir string, terminal bool) (io.Writer, error) {
	var ws []io.Writer
	if logDir != "" {
		if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("日志目录创建失败: %w", err)
		}
		filename := filepath.Join(logDir, time.Now().Format("2006-01-02.log"))
		file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("日志文件打开失败: %w", err)
		}
		ws = append(ws, file)
	}
	if terminal {
		ws = append(ws, os.Stdout)
	}
	if len(ws) == 0 {
		return io.Discard, nil
	}
	// 融合日志输出
	return io.MultiWriter(ws...), nil
}
