package main

import (
	"errors"
	"fmt"
	"os"

	"skytiler/hips"
)

func main() {
	// 初始化控制台
	InitFlag()
	// 开始安全退出任务
	InitSafeExit()
	// 初始化配置
	InitConf(configPath)
	// 初始化日志
	if err := InitLog(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	// 开始任务
	if err := InitTask(); err != nil {
		log.Error(err)
		var re *hips.RunError
		if errors.As(err, &re) && re.SuggestVerbose() {
			log.Info("rerun with hips.verbose = true to see the full HiPSgen output")
		}
		os.Exit(1)
	}
}
