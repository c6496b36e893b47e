package main

import (
	"flag"
	"fmt"
	"os"
)

const defaultConfigPath = "./conf/conf.toml"

var (
	hf         bool
	configPath string
	logLevel   string
	outputDir  string
	// 命令行给出的输入文件, 覆盖 tiling.inputs
	inputs []string
)

func InitFlag() {
	flag.BoolVar(&hf, "h", false, "this help")
	flag.StringVar(&configPath, "c", defaultConfigPath, "set config `file`")
	flag.StringVar(&logLevel, "l", "info", "set log level (default: info)")
	flag.StringVar(&outputDir, "o", "", "set output `directory` (overrides output.directory)")
	flag.Usage = usage
	flag.Parse()

	if hf {
		flag.Usage()
		os.Exit(0)
	}
	inputs = flag.Args()
}

func usage() {
	fmt.Fprintf(os.Stderr, `skytiler version: skytiler/v0.1.0
Usage: skytiler [-h] [-c filename] [-l logLevel] [-o directory] [image.fits ...]
`)
	flag.PrintDefaults()
}
