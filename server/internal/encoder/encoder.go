package encoder

import (
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/config"
)

// Kind says whether a choice offloads to dedicated hardware.
type Kind string

const (
	KindHardware Kind = "hardware"
	KindSoftware Kind = "software"
)

// Choice is a selected video encoder with its tuning arguments.
type Choice struct {
	Name      string
	ExtraArgs []string
	Kind      Kind
}

// ErrNoHardwareEncoder is returned when hardware-only mode is requested but
// the transcoder exposes none of the known accelerated encoders.
var ErrNoHardwareEncoder = common.InputErrorf("no compatible hardware encoder")

// Accelerated H.264 encoders in preference order.
var hardwarePreference = []string{
	"h264_nvenc",
	"h264_qsv",
	"h264_amf",
	"h264_videotoolbox",
}

// Tuning arguments applied per hardware encoder.
var hardwareExtraArgs = map[string][]string{
	"h264_nvenc":        {"-preset", "p5"},
	"h264_qsv":          {"-preset", "medium"},
	"h264_amf":          {"-quality", "balanced"},
	"h264_videotoolbox": {},
}

func softwareChoice() Choice {
	return Choice{
		Name:      "libx264",
		ExtraArgs: []string{"-preset", "veryfast"},
		Kind:      KindSoftware,
	}
}

// Selector detects hardware encoders with a single capability probe per
// process lifetime. The probe function is swappable for tests.
type Selector struct {
	probe    func(ctx context.Context) string
	once     sync.Once
	detected []string
}

func NewSelector() *Selector {
	return &Selector{probe: listEncoders}
}

// NewSelectorWithProbe builds a selector with a custom capability probe.
func NewSelectorWithProbe(probe func(context.Context) string) *Selector {
	return &Selector{probe: probe}
}

func listEncoders(ctx context.Context) string {
	cmd := exec.CommandContext(ctx, config.Instance().Paths.FFmpegPath,
		"-hide_banner", "-encoders")

	out, err := cmd.Output()
	if err != nil {
		slog.Warn("encoder listing failed", slog.Any("err", err))
		return ""
	}

	return string(out)
}

// DetectHardware returns the accelerated encoders present in the
// transcoder's capability listing, in preference order. The listing is
// probed at most once, even under concurrent first callers.
func (s *Selector) DetectHardware(ctx context.Context) []string {
	s.once.Do(func() {
		output := s.probe(ctx)
		for _, enc := range hardwarePreference {
			pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(enc) + `\b`)
			if pattern.MatchString(output) {
				s.detected = append(s.detected, enc)
			}
		}
		slog.Info("hardware encoders detected", slog.Any("encoders", s.detected))
	})

	return append([]string(nil), s.detected...)
}

// Select picks an encoder for the requested mode. Modes are "software"
// (default, also "cpu"), "hardware" (also "gpu") and "auto"; anything else
// normalizes to software. Hardware-only mode fails when nothing is
// detected; auto falls back to software.
func (s *Selector) Select(ctx context.Context, mode string) (Choice, error) {
	requested := strings.ToLower(strings.TrimSpace(mode))
	switch requested {
	case "gpu":
		requested = "hardware"
	case "hardware", "auto":
	default:
		requested = "software"
	}

	if requested == "software" {
		return softwareChoice(), nil
	}

	detected := s.DetectHardware(ctx)
	if len(detected) == 0 {
		if requested == "hardware" {
			return Choice{}, ErrNoHardwareEncoder
		}
		return softwareChoice(), nil
	}

	name := detected[0]
	return Choice{
		Name:      name,
		ExtraArgs: append([]string(nil), hardwareExtraArgs[name]...),
		Kind:      KindHardware,
	}, nil
}
