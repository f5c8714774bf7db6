// Package media stores generated images on local disk so they can be served
// from the /media route, replacing short-lived provider URLs with stable
// ones under the public base URL.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subdir is where generated images are written under the media root.
const Subdir = "generated_images"

// MaxImageBytes caps a downloaded image.
const MaxImageBytes = 20 << 20

// ErrTooLarge is returned when a download exceeds MaxImageBytes.
var ErrTooLarge = errors.New("media: image exceeds size limit")

// Archiver downloads images into Root/generated_images.
type Archiver struct {
	Root          string
	PublicBaseURL string
	Client        *http.Client
}

// NewArchiver returns an Archiver with a 30s HTTP timeout.
func NewArchiver(root, publicBaseURL string) *Archiver {
	return &Archiver{
		Root:          root,
		PublicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		Client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// Archive fetches url and returns the public URL of the stored copy.
func (a *Archiver) Archive(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media: download: unexpected status %d", resp.StatusCode)
	}

	dir := filepath.Join(a.Root, Subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := "energy_fault_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + extFor(resp.Header.Get("Content-Type"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, MaxImageBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxImageBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return a.PublicBaseURL + "/media/" + Subdir + "/" + name, nil
}

func extFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
