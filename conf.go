package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var conf *Conf

type Conf struct {
	App struct {
		Version string `toml:"version"`
		Title   string `toml:"title"`
	} `toml:"app"`
	Output struct {
		Directory      string `toml:"directory"`
		LogDir         string `toml:"logDir"`
		OutputTerminal bool   `toml:"outputTerminal"`
		// files | mbtiles
		Format string `toml:"format"`
		// raw | gzip
		Encoding string `toml:"encoding"`
		Override bool   `toml:"override"`
	} `toml:"output"`
	Task struct {
		Workers int `toml:"workers"`
	} `toml:"task"`
	Tiling struct {
		Inputs        []string  `toml:"inputs"`
		HduIndex      []int     `toml:"hduIndex"`
		TileSize      int       `toml:"tileSize"`
		Merger        string    `toml:"merger"`
		Overlap       string    `toml:"overlap"`
		Interpolation string    `toml:"interpolation"`
		ForceTan      bool      `toml:"forceTan"`
		ForceHips     bool      `toml:"forceHips"`
		AllowDisjoint bool      `toml:"allowDisjoint"`
		Percentiles   []float64 `toml:"percentiles"`
	} `toml:"tiling"`
	Hips struct {
		Java    string `toml:"java"`
		Jar     string `toml:"jar"`
		JarURL  string `toml:"jarURL"`
		Verbose bool   `toml:"verbose"`
	} `toml:"hips"`
	Index struct {
		Name      string `toml:"name"`
		Thumbnail bool   `toml:"thumbnail"`
		Histogram bool   `toml:"histogram"`
		Bins      int    `toml:"bins"`
	} `toml:"index"`
}

// initConf 初始化配置
func InitConf(cfgFile string) {
	if cfgFile == "" {
		cfgFile = defaultConfigPath
	}
	viper.SetConfigType("toml")
	viper.AutomaticEnv() // read in environment variables that match
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		// 默认配置文件可以缺省
		if cfgFile != defaultConfigPath {
			fmt.Printf("config file(%s) not exist\n", cfgFile)
			os.Exit(1)
		}
	} else {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Printf("read config file(%s) error, details: %s\n", viper.ConfigFileUsed(), err)
			os.Exit(1)
		}
	}
	setDefaults(viper.GetViper())

	if err := viper.Unmarshal(&conf); err != nil {
		panic("配置文件解析失败")
	}
	if len(inputs) > 0 {
		conf.Tiling.Inputs = inputs
	}
	if outputDir != "" {
		conf.Output.Directory = outputDir
	}
}

// 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.version", "v 0.1.0")
	v.SetDefault("app.title", "Sky Tiler")
	v.SetDefault("output.directory", "output")
	v.SetDefault("output.outputTerminal", true)
	v.SetDefault("output.format", FILES)
	v.SetDefault("output.encoding", "gzip")
	v.SetDefault("task.workers", 4)
	v.SetDefault("tiling.tileSize", 256)
	v.SetDefault("tiling.merger", "average")
	v.SetDefault("tiling.overlap", "last")
	v.SetDefault("tiling.interpolation", "bilinear")
	v.SetDefault("tiling.percentiles", []float64{1, 99})
	v.SetDefault("tiling.allowDisjoint", false)
	v.SetDefault("hips.java", "java")
	v.SetDefault("hips.jar", "lib/Hipsgen.jar")
	v.SetDefault("hips.jarURL", "http://aladin.unistra.fr/java/Hipsgen.jar")
	v.SetDefault("index.thumbnail", true)
	v.SetDefault("index.bins", 64)
}
