package compress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/config"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/encoder"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/fsutil"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/jobs"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/media"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/progress"
)

// Request is one compression job: the uploaded source and the planner
// knobs.
type Request struct {
	Filename string
	File     io.Reader
	Options  Options
}

// Result is the synchronous payload returned to the caller on success.
type Result struct {
	OutputPath       string  `json:"output_path"`
	Filename         string  `json:"filename"`
	FinalSize        int64   `json:"final_size"`
	FinalSizeHuman   string  `json:"final_size_human"`
	SourceSize       int64   `json:"source_size"`
	SourceSizeHuman  string  `json:"source_size_human"`
	TargetSizeBytes  int64   `json:"target_size_bytes"`
	TargetSizeHuman  string  `json:"target_size_human"`
	ReductionPercent float64 `json:"reduction_percent"`
	DurationSeconds  float64 `json:"duration_seconds"`
	VideoBitrateKbps int     `json:"video_bitrate_kbps"`
	AudioBitrateKbps int     `json:"audio_bitrate_kbps"`
	AppliedHeight    int     `json:"applied_resolution,omitempty"`
	SourceWidth      int     `json:"source_width"`
	SourceHeight     int     `json:"source_height"`
	SizeCap          bool    `json:"size_cap"`
	EncoderUsed      string  `json:"encoder_used"`
	HardwareModeUsed string  `json:"hardware_mode_used"`
}

// Service drives a whole compression job: staging, probing, planning,
// transcoding and cleanup.
type Service struct {
	broadcaster *progress.Broadcaster
	runner      *Runner
	selector    *encoder.Selector

	// tempRoot is the parent of per-job working directories; empty means
	// the system default.
	tempRoot string
}

func NewService(b *progress.Broadcaster, selector *encoder.Selector) *Service {
	return &Service{
		broadcaster: b,
		runner:      NewRunner(b),
		selector:    selector,
	}
}

func (s *Service) event(status string, pct float64) common.ProgressEvent {
	return common.ProgressEvent{
		Task:     common.TaskCompressor,
		Status:   status,
		Progress: common.Percent(pct),
	}
}

// Compress runs the job to completion. The temporary working directory is
// removed on every exit path. Cancellation returns jobs.ErrCancelled after
// a "cancelled" broadcast; other failures broadcast an error event and
// return the cause.
func (s *Service) Compress(ctx context.Context, req Request, job *jobs.Job) (*Result, error) {
	if req.Filename == "" {
		return nil, common.InputErrorf("missing upload filename")
	}

	choice, err := s.selector.Select(ctx, req.Options.HardwareMode)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp(s.tempRoot, "compress-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	s.broadcaster.Broadcast(s.event(common.StatusPreparing, 0))

	result, err := s.run(ctx, req, job, choice, tempDir)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrCancelled):
			s.broadcaster.Broadcast(s.event(common.StatusCancelled, 0))
		default:
			ev := s.event(common.StatusError, 0)
			ev.Detail = err.Error()
			s.broadcaster.Broadcast(ev)
		}
		return nil, err
	}

	return result, nil
}

func (s *Service) run(ctx context.Context, req Request, job *jobs.Job, choice encoder.Choice, tempDir string) (*Result, error) {
	token := job.Token

	tempInput := filepath.Join(tempDir, "input.mp4")
	if err := stageUpload(tempInput, req.File); err != nil {
		return nil, err
	}

	if token.Cancelled() {
		return nil, jobs.ErrCancelled
	}

	stats, err := media.Probe(ctx, tempInput)
	if err != nil {
		return nil, err
	}

	plan, err := BuildPlan(stats, req.Options, choice)
	if err != nil {
		return nil, err
	}

	outputDir := req.Options.TargetDir
	if outputDir == "" {
		outputDir = config.Instance().Paths.CompressedPath
	}
	if _, err := fsutil.EnsureDir(outputDir); err != nil {
		return nil, err
	}

	baseName := fsutil.SanitizeFilename(req.Options.CustomName)
	if baseName == "" {
		stem := fsutil.SanitizeFilename(strings.TrimSuffix(req.Filename, filepath.Ext(req.Filename)))
		if stem == "" {
			stem = "video"
		}
		baseName = stem + "-compressed"
	}
	outputPath := fsutil.UniqueOutputPath(outputDir, baseName, ".mp4")

	slog.Info("starting transcode",
		slog.String("id", job.ID),
		slog.String("encoder", plan.Encoder.Name),
		slog.Int("video_kbps", plan.VideoKbps),
		slog.Int("audio_kbps", plan.AudioKbps),
	)

	startEv := s.event(common.StatusCompressing, 0)
	startEv.Encoder = plan.Encoder.Name
	startEv.HardwareMode = string(plan.Encoder.Kind)
	s.broadcaster.Broadcast(startEv)

	if err := s.runner.Run(plan.Args(tempInput, outputPath), stats.Duration, token); err != nil {
		// never leave a partial output behind
		os.Remove(outputPath)
		return nil, err
	}

	fi, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("compressed file was not produced: %w", err)
	}

	finalSize := fi.Size()
	var reduction float64
	if stats.Size > 0 {
		reduction = 100 - float64(finalSize)/float64(stats.Size)*100
		if reduction < 0 {
			reduction = 0
		}
	}

	doneEv := s.event(common.StatusCompressed, 100)
	doneEv.SavedPath = outputPath
	doneEv.FinalSize = finalSize
	doneEv.Encoder = plan.Encoder.Name
	doneEv.HardwareMode = string(plan.Encoder.Kind)
	s.broadcaster.Broadcast(doneEv)

	return &Result{
		OutputPath:       outputPath,
		Filename:         filepath.Base(outputPath),
		FinalSize:        finalSize,
		FinalSizeHuman:   humanize.Bytes(uint64(finalSize)),
		SourceSize:       stats.Size,
		SourceSizeHuman:  humanize.Bytes(uint64(stats.Size)),
		TargetSizeBytes:  plan.TargetBytes,
		TargetSizeHuman:  humanize.Bytes(uint64(plan.TargetBytes)),
		ReductionPercent: reduction,
		DurationSeconds:  stats.Duration,
		VideoBitrateKbps: plan.VideoKbps,
		AudioBitrateKbps: plan.AudioKbps,
		AppliedHeight:    appliedHeight(plan, stats),
		SourceWidth:      stats.Width,
		SourceHeight:     stats.Height,
		SizeCap:          req.Options.SizeCap,
		EncoderUsed:      plan.Encoder.Name,
		HardwareModeUsed: string(plan.Encoder.Kind),
	}, nil
}

func appliedHeight(plan *Plan, stats *media.Stats) int {
	if plan.TargetHeight > 0 {
		return plan.TargetHeight
	}
	return stats.Height
}

func stageUpload(path string, src io.Reader) error {
	dest, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dest.Close()

	n, err := io.Copy(dest, src)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.InputErrorf("uploaded file is empty")
	}

	return nil
}
