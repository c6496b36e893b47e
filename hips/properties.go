package hips

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// PropertiesFile is written by HiPSgen into the output directory on success.
const PropertiesFile = "properties"

// Properties is the subset of a HiPS properties file used for the index.
type Properties struct {
	Order      int
	InitialRA  float64
	InitialDec float64
	InitialFOV float64
	// Values holds every key of the file, lower-cased.
	Values map[string]interface{}
}

var requiredKeys = []string{"hips_order", "hips_initial_ra", "hips_initial_dec", "hips_initial_fov"}

// ReadProperties parses the properties file of a HiPS output directory.
func ReadProperties(dir string) (*Properties, error) {
	path := filepath.Join(dir, PropertiesFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v := viper.New()
	v.SetConfigType("properties")
	if err := v.ReadConfig(f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, k := range requiredKeys {
		if !v.IsSet(k) {
			return nil, fmt.Errorf("%s: missing %s", path, k)
		}
	}
	return &Properties{
		Order:      v.GetInt("hips_order"),
		InitialRA:  v.GetFloat64("hips_initial_ra"),
		InitialDec: v.GetFloat64("hips_initial_dec"),
		InitialFOV: v.GetFloat64("hips_initial_fov"),
		Values:     v.AllSettings(),
	}, nil
}
