package hips

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// DefaultJarURL is where HiPSgen is published.
const DefaultJarURL = "http://aladin.unistra.fr/java/Hipsgen.jar"

// JavaInstalled runs `java -version` and looks for a version banner. The
// banner is printed on stderr by most runtimes.
func JavaInstalled(ctx context.Context, java string) bool {
	if java == "" {
		java = "java"
	}
	out, err := exec.CommandContext(ctx, java, "-version").CombinedOutput()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(out)), "version")
}

// EnsureJar downloads the jar to path unless it already exists.
func EnsureJar(ctx context.Context, path, url string, progress bool, log logrus.FieldLogger) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if url == "" {
		url = DefaultJarURL
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	log.Infof("downloading HiPSgen from %s ~", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status code %d", url, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if progress && resp.ContentLength > 0 {
		bar := pb.New64(resp.ContentLength).SetUnits(pb.U_BYTES).Prefix("Hipsgen.jar ")
		bar.Start()
		defer bar.Finish()
		body = bar.NewProxyReader(resp.Body)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".hipsgen-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
