package skyimage

import (
	"errors"
)

// Loader reads images from storage. layer may be AutoLayer.
type Loader interface {
	Describe(path string, layer int) (Description, error)
	Load(path string, layer int) (*SkyImage, error)
}

// Collection is an ordered set of input files with a layer selection.
type Collection struct {
	Paths     []string
	Selection Selection
	Loader    Loader
}

// NewCollection builds a collection read with loader.
func NewCollection(paths []string, sel Selection, loader Loader) *Collection {
	return &Collection{
		Paths:     append([]string(nil), paths...),
		Selection: sel,
		Loader:    loader,
	}
}

// Descriptions describes every input without reading pixel data. The result
// holds exactly one Description per path, in order.
func (c *Collection) Descriptions() ([]Description, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	out := make([]Description, 0, len(c.Paths))
	for i, path := range c.Paths {
		layer := c.Selection.For(i)
		d, err := c.Loader.Describe(path, layer)
		if err != nil {
			return nil, wrapLoad(path, layer, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Images loads every input, in order.
func (c *Collection) Images() ([]*SkyImage, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	out := make([]*SkyImage, 0, len(c.Paths))
	for i, path := range c.Paths {
		layer := c.Selection.For(i)
		im, err := c.Loader.Load(path, layer)
		if err != nil {
			return nil, wrapLoad(path, layer, err)
		}
		out = append(out, im)
	}
	return out, nil
}

func (c *Collection) validate() error {
	if len(c.Paths) == 0 {
		return &LoadError{Layer: AutoLayer, Err: errors.New("no input images")}
	}
	if err := c.Selection.Validate(len(c.Paths)); err != nil {
		return &LoadError{Path: c.Paths[0], Layer: AutoLayer, Err: err}
	}
	return nil
}

func wrapLoad(path string, layer int, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Path: path, Layer: layer, Err: err}
}
