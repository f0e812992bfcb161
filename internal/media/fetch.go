package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Fetcher downloads remote audio/image artifacts into a local directory
// with collision-avoiding names.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// titleSanitizer replaces filesystem-unsafe characters with underscores
var titleSanitizer = strings.NewReplacer(
	"/", "_", "\\", "_", "?", "_", "*", "_",
	"<", "_", ">", "_", "|", "_", "\"", "_", ":", "_",
)

// SanitizeTitle makes a song title safe to use as a filename stem
func SanitizeTitle(title string) string {
	return titleSanitizer.Replace(title)
}

// Download fetches a remote resource fully into memory and writes it to
// dir as {sanitizedTitle}_{index}.{ext}, returning the filename. The index
// is one past the highest numeric suffix already present for that title
// and extension, so repeated generations under the same title never
// overwrite earlier downloads. Errors propagate unmodified; there is no
// retry at this layer.
func (f *Fetcher) Download(ctx context.Context, rawURL, dir, title, ext string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rawURL, err)
	}

	name := SanitizeTitle(title)
	index := nextIndex(dir, name, ext)
	filename := fmt.Sprintf("%s_%d.%s", name, index, ext)

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return filename, nil
}

// nextIndex scans dir for files named {stem}_<N>.{ext} and returns one
// past the highest N found, starting at 1. Audio and image artifacts
// number independently because their extensions differ.
func nextIndex(dir, stem, ext string) int {
	max := 0
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}
	prefix := stem + "_"
	suffix := "." + ext
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}
