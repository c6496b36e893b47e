package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"skytiler/builder"
)

// isTerminal 标准输出是否为终端, 非终端时不显示进度条
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// prepareOutput 准备输出目录. 目录已有索引且未设置 override 时返回
// reuse = true, 此时只重写索引; 设置 override 时清空目录.
// 目录非空但没有索引(上次运行失败)时拒绝写入.
func prepareOutput(dir string, override bool) (reuse bool, err error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false, os.MkdirAll(dir, os.ModePerm)
	} else if err != nil {
		return false, err
	}
	if override {
		if err := os.RemoveAll(dir); err != nil {
			return false, err
		}
		return false, os.MkdirAll(dir, os.ModePerm)
	}
	if _, err := os.Stat(filepath.Join(dir, builder.IndexFile)); err == nil {
		return true, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	if len(entries) > 0 {
		return false, fmt.Errorf("%s is not empty and has no %s, set output.override = true to rebuild it", dir, builder.IndexFile)
	}
	return false, nil
}
