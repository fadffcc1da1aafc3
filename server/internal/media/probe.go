package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/lucasjordaoreal/UltraDownloader/server/config"
)

// Stats are the source media facts a compression plan is derived from,
// probed once per job.
type Stats struct {
	Duration float64
	Width    int
	Height   int
	Size     int64
}

// ProbeError means the source stats could not be obtained or are unusable
// (duration <= 0). It is fatal for a compression job and fires before the
// transcoder is spawned.
type ProbeError struct {
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("probe failed: %s", e.Reason)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// ffprobe's JSON layout for the entries we request. Numbers inside the
// format section arrive as strings.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

// Probe runs ffprobe against a local file and returns its stats.
func Probe(ctx context.Context, path string) (*Stats, error) {
	cmd := exec.CommandContext(ctx, config.Instance().Paths.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration,size:stream=width,height",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, &ProbeError{Reason: "ffprobe did not run", Err: err}
	}

	var fallbackSize int64
	if fi, err := os.Stat(path); err == nil {
		fallbackSize = fi.Size()
	}

	return parseStats(out, fallbackSize)
}

func parseStats(raw []byte, fallbackSize int64) (*Stats, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProbeError{Reason: "unreadable ffprobe output", Err: err}
	}

	duration, _ := strconv.ParseFloat(out.Format.Duration, 64)
	if duration <= 0 {
		return nil, &ProbeError{Reason: "source has no usable duration"}
	}

	size, _ := strconv.ParseInt(out.Format.Size, 10, 64)
	if size <= 0 {
		size = fallbackSize
	}

	stats := &Stats{Duration: duration, Size: size}
	if len(out.Streams) > 0 {
		stats.Width = out.Streams[0].Width
		stats.Height = out.Streams[0].Height
	}

	return stats, nil
}
