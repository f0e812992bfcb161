package media

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
)

// durationRe matches the duration line ffmpeg prints while inspecting an
// input, e.g. "Duration: 00:03:24.77, start: 0.000000, bitrate: 192 kb/s".
// Centisecond precision is all the tool reports.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2})\.(\d{2})`)

// Prober extracts media durations by running ffmpeg against a file and
// parsing its diagnostic output.
type Prober struct {
	bin string
}

func NewProber(bin string) *Prober {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Prober{bin: bin}
}

// DurationMs returns the file's duration in milliseconds, or 0 when no
// duration could be read. Callers must treat 0 as "unknown", not as a
// zero-length track. It never returns an error: ffmpeg exits non-zero
// when invoked without an output file, but the duration line is printed
// regardless.
func (p *Prober) DurationMs(ctx context.Context, path string) int64 {
	cmd := exec.CommandContext(ctx, p.bin, "-i", path)
	out, _ := cmd.CombinedOutput()
	return parseDurationMs(string(out))
}

func parseDurationMs(out string) int64 {
	m := durationRe.FindStringSubmatch(out)
	if m == nil {
		return 0
	}
	h, _ := strconv.ParseInt(m[1], 10, 64)
	min, _ := strconv.ParseInt(m[2], 10, 64)
	s, _ := strconv.ParseInt(m[3], 10, 64)
	cs, _ := strconv.ParseInt(m[4], 10, 64)
	return h*3600000 + min*60000 + s*1000 + cs*10
}
