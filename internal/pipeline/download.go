package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var driveFileRe = regexp.MustCompile(`^/file/d/([^/]+)`)

// RewriteGoogleDriveURL converts a Google Drive share link into its direct
// download form. Other URLs pass through unchanged.
func RewriteGoogleDriveURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasSuffix(u.Host, "drive.google.com") {
		return raw
	}
	m := driveFileRe.FindStringSubmatch(u.Path)
	if m == nil {
		return raw
	}
	return "https://drive.google.com/uc?export=download&id=" + m[1]
}

// download streams the remote source into the upload directory and
// returns the local path.
func (p *Processor) download(ctx context.Context, jobID, rawURL string) (string, error) {
	target := RewriteGoogleDriveURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download source video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download source video: server returned %s", resp.Status)
	}

	dest := filepath.Join(p.settings.UploadDir, jobID+downloadExt(target))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create download target: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("stream source video: %w", err)
	}
	p.log.WithField("job_id", jobID).WithField("bytes", n).Info("Downloaded source video")
	return dest, nil
}

// downloadExt guesses a file extension from the URL path, defaulting to
// .mp4 for extensionless download endpoints.
func downloadExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".mp4"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".mp4", ".mov", ".mkv", ".webm", ".avi":
		return ext
	}
	return ".mp4"
}
