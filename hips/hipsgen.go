// Package hips hands whole-sky mosaics to the external HiPSgen tool, which
// writes a HEALPix tile hierarchy and a properties file.
package hips

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"skytiler/skyimage"
)

// tailLines is how much subprocess output a RunError keeps.
const tailLines = 20

// Generator builds a whole-sky pyramid for inputs in outDir.
type Generator interface {
	Generate(ctx context.Context, inputs []string, outDir string) (*Properties, error)
}

// RunError reports a failed generator run with the end of its output.
type RunError struct {
	Err     error
	Output  []string
	Verbose bool
}

func (e *RunError) Error() string {
	msg := "hipsgen failed: " + e.Err.Error()
	if e.SuggestVerbose() {
		msg += " (enable hips.verbose to see the full output)"
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// SuggestVerbose reports whether rerunning with verbose output would show
// more than this error carries.
func (e *RunError) SuggestVerbose() bool { return !e.Verbose }

// Hipsgen runs `java -jar Hipsgen.jar`.
type Hipsgen struct {
	Java   string
	Jar    string
	JarURL string
	// Selection becomes the hdu= argument unless it is auto.
	Selection skyimage.Selection
	// CreatorID defaults to ivo://skytiler/<output directory name>.
	CreatorID string
	// Verbose logs the tool output at info level instead of debug.
	Verbose  bool
	Progress bool
	Logger   logrus.FieldLogger
}

var _ Generator = (*Hipsgen)(nil)

// Args is the command line after the java binary.
func (h *Hipsgen) Args(inDir, outDir string, n int) []string {
	creator := h.CreatorID
	if creator == "" {
		creator = "ivo://skytiler/" + filepath.Base(outDir)
	}
	args := []string{"-jar", h.Jar, "in=" + inDir, "out=" + outDir, "creator_did=" + creator}
	if idx := h.Selection.Indices(n); idx != nil {
		parts := make([]string, len(idx))
		for i, v := range idx {
			parts[i] = fmt.Sprint(v)
		}
		args = append(args, "hdu="+strings.Join(parts, ","))
	}
	return append(args, "INDEX", "TILES")
}

// Generate links the inputs into a scratch directory, runs HiPSgen on it
// and reads back the properties it wrote.
func (h *Hipsgen) Generate(ctx context.Context, inputs []string, outDir string) (*Properties, error) {
	if len(inputs) == 0 {
		return nil, errors.New("hipsgen: no inputs")
	}
	if err := h.Selection.Validate(len(inputs)); err != nil {
		return nil, err
	}
	log := h.logger()
	if err := EnsureJar(ctx, h.Jar, h.JarURL, h.Progress, log); err != nil {
		return nil, err
	}
	inDir, err := linkInputs(inputs)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(inDir)

	java := h.Java
	if java == "" {
		java = "java"
	}
	args := h.Args(inDir, outDir, len(inputs))
	log.Infof("running %s %s", java, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, java, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, &RunError{Err: err, Verbose: h.Verbose}
	}

	var tail []string
	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		line := sc.Text()
		if h.Verbose {
			log.Info(line)
		} else {
			log.Debug(line)
		}
		tail = append(tail, line)
		if len(tail) > tailLines {
			tail = tail[1:]
		}
	}
	if err := cmd.Wait(); err != nil {
		return nil, &RunError{Err: err, Output: tail, Verbose: h.Verbose}
	}

	props, err := ReadProperties(outDir)
	if err != nil {
		return nil, &RunError{Err: fmt.Errorf("no valid output: %w", err), Output: tail, Verbose: h.Verbose}
	}
	return props, nil
}

func (h *Hipsgen) logger() logrus.FieldLogger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

// linkInputs symlinks every input into a fresh temporary directory under
// its base name. Later inputs with an already linked name are skipped.
func linkInputs(inputs []string) (string, error) {
	dir, err := os.MkdirTemp("", "skytiler-hips-")
	if err != nil {
		return "", err
	}
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			os.RemoveAll(dir)
			return "", err
		}
		link := filepath.Join(dir, filepath.Base(in))
		if _, err := os.Lstat(link); err == nil {
			continue
		}
		if err := os.Symlink(abs, link); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	return dir, nil
}
