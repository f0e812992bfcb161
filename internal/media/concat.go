package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// runFunc executes the external media tool. Swappable in tests.
type runFunc func(ctx context.Context, bin string, args ...string) error

// Concatenator merges multiple audio files into a single chaptered
// AAC/M4B container via one ffmpeg invocation.
type Concatenator struct {
	bin    string
	prober DurationProber
	tmpDir string
	run    runFunc
}

func NewConcatenator(bin string, prober DurationProber) *Concatenator {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Concatenator{
		bin:    bin,
		prober: prober,
		tmpDir: os.TempDir(),
		run:    runCommand,
	}
}

func runCommand(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	data, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(data))
	}
	return nil
}

// Concatenate merges items in order into outputPath, embedding a chapter
// per input track. The temporary concat manifest and metadata files are
// removed regardless of the tool's outcome, spawn failures included, so a
// failed run never leaves artifacts behind.
func (c *Concatenator) Concatenate(ctx context.Context, items []Item, outputPath string) error {
	if len(items) == 0 {
		return fmt.Errorf("concatenate: no input files")
	}

	// Timestamp-named temp files so concurrent runs never collide
	stamp := time.Now().UnixNano()
	listPath := filepath.Join(c.tmpDir, fmt.Sprintf("mixtape_concat_%d.txt", stamp))
	metaPath := filepath.Join(c.tmpDir, fmt.Sprintf("mixtape_meta_%d.txt", stamp))

	if err := os.WriteFile(listPath, []byte(buildManifest(items)), 0o644); err != nil {
		return fmt.Errorf("concatenate: couldn't write manifest: %w", err)
	}
	defer removeQuiet(listPath)

	plan := BuildPlan(ctx, c.prober, items)
	if err := os.WriteFile(metaPath, []byte(RenderMetadata(plan)), 0o644); err != nil {
		return fmt.Errorf("concatenate: couldn't write metadata: %w", err)
	}
	defer removeQuiet(metaPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", metaPath,
		"-map_metadata", "1",
		"-c:a", "aac",
		"-b:a", "192k",
		outputPath,
	}
	if err := c.run(ctx, c.bin, args...); err != nil {
		return fmt.Errorf("concatenate: ffmpeg failed: %w", err)
	}
	return nil
}

// buildManifest renders the concat demuxer file list. Each path is single
// quoted with embedded quotes escaped so the safe concat parser accepts it.
func buildManifest(items []Item) string {
	var b strings.Builder
	for _, item := range items {
		escaped := strings.ReplaceAll(item.Path, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return b.String()
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove temp file %s: %v", path, err)
	}
}
