package media

import (
	"context"
	"fmt"
	"strings"
)

// DurationProber reports a file's duration in milliseconds, 0 when unknown
type DurationProber interface {
	DurationMs(ctx context.Context, path string) int64
}

// Item is one input track for a concatenation run, in playback order
type Item struct {
	Title string
	Path  string
}

// Chapter is one entry of a chapter plan. StartMs of the first chapter is
// 0, every following chapter starts where the previous one ends, and
// EndMs-StartMs equals the probed duration of the chapter's file.
type Chapter struct {
	Title   string
	Path    string
	StartMs int64
	EndMs   int64
}

// BuildPlan probes every item sequentially and accumulates start/end
// offsets. The plan is recomputed from scratch on every call.
func BuildPlan(ctx context.Context, prober DurationProber, items []Item) []Chapter {
	plan := make([]Chapter, 0, len(items))
	var offset int64
	for _, item := range items {
		d := prober.DurationMs(ctx, item.Path)
		plan = append(plan, Chapter{
			Title:   item.Title,
			Path:    item.Path,
			StartMs: offset,
			EndMs:   offset + d,
		})
		offset += d
	}
	return plan
}

// metaTitleSanitizer replaces the characters that break ffmetadata field
// syntax with a space.
var metaTitleSanitizer = strings.NewReplacer("=", " ", ";", " ", "\n", " ", "\\", " ")

// RenderMetadata renders a plan as an ffmetadata document with one chapter
// block per entry, against a millisecond timebase.
func RenderMetadata(plan []Chapter) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	for _, ch := range plan {
		b.WriteString("\n[CHAPTER]\n")
		b.WriteString("TIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", ch.StartMs)
		fmt.Fprintf(&b, "END=%d\n", ch.EndMs)
		fmt.Fprintf(&b, "title=%s\n", metaTitleSanitizer.Replace(ch.Title))
	}
	return b.String()
}
