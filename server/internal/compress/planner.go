package compress

import (
	"strconv"
	"strings"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/encoder"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/media"
)

const (
	// SizeCapBytes is the fixed size-cap target (Discord attachment limit).
	SizeCapBytes = 9 * 1024 * 1024

	minTargetBytes  = 256_000
	minTotalBitrate = 128_000
	minVideoBitrate = 64_000
	minHeight       = 144
)

// Options are the caller-supplied compression knobs.
type Options struct {
	// Strength is the compression percentage, 0-99. Ignored when SizeCap
	// is set.
	Strength int
	// SizeCap targets the fixed platform cap instead of a strength factor.
	SizeCap bool
	// Resolution token: "auto"/"original"/"source"/"none"/"" keep the
	// source height; "720p" or "720" request a downscale.
	Resolution string
	// HardwareMode: software (default), hardware, auto.
	HardwareMode string
	TargetDir    string
	CustomName   string
}

// Plan is the fully solved transcode: bitrates, rate-control bounds, the
// target height (0 = keep source) and the encoder. Derived
// deterministically from the source stats and options.
type Plan struct {
	TargetBytes  int64
	VideoBitrate int // bps
	AudioBitrate int // bps
	VideoKbps    int
	AudioKbps    int
	MaxrateKbps  int
	BufsizeKbps  int
	TargetHeight int
	Encoder      encoder.Choice
}

// ParseResolutionToken converts a requested resolution token into a pixel
// height. Zero means keep the source resolution. Unparsable tokens are an
// input error.
func ParseResolutionToken(token string) (int, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	switch t {
	case "", "auto", "original", "source", "none", "best":
		return 0, nil
	}

	t = strings.TrimSuffix(t, "p")
	n, err := strconv.Atoi(t)
	if err != nil || n <= 0 {
		return 0, common.InputErrorf("unresolvable resolution %q", token)
	}
	if n < minHeight {
		n = minHeight
	}
	return n, nil
}

// BuildPlan solves the target bitrate split for the source stats. Pure:
// no I/O, the encoder choice is passed in by the caller.
func BuildPlan(stats *media.Stats, opts Options, choice encoder.Choice) (*Plan, error) {
	if stats.Duration <= 0 {
		return nil, &media.ProbeError{Reason: "source has no usable duration"}
	}

	targetHeight, err := ParseResolutionToken(opts.Resolution)
	if err != nil {
		return nil, err
	}
	// never upscale
	if targetHeight > 0 && stats.Height > 0 && targetHeight >= stats.Height {
		targetHeight = 0
	}

	var targetBytes int64
	if opts.SizeCap {
		targetBytes = min(stats.Size, SizeCapBytes)
	} else {
		strength := opts.Strength
		if strength < 0 {
			strength = 0
		}
		if strength > 99 {
			strength = 99
		}
		factor := max(0.01, 1.0-float64(strength)/100.0)
		targetBytes = int64(max(float64(stats.Size)*factor, minTargetBytes))
		targetBytes = min(targetBytes, stats.Size)
	}

	if targetBytes <= 0 {
		return nil, &media.ProbeError{Reason: "target size is not computable"}
	}

	totalBitrate := max(int(float64(targetBytes*8)/stats.Duration), minTotalBitrate)
	audioBitrate := min(128_000, max(64_000, totalBitrate/5))
	videoBitrate := totalBitrate - audioBitrate
	if videoBitrate < minVideoBitrate {
		videoBitrate = max(48_000, totalBitrate/2)
		audioBitrate = max(48_000, totalBitrate-videoBitrate)
	}
	if videoBitrate <= 0 {
		return nil, common.InputErrorf("resulting video bitrate is invalid")
	}

	videoKbps := max(64, videoBitrate/1000)
	audioKbps := max(48, audioBitrate/1000)

	return &Plan{
		TargetBytes:  targetBytes,
		VideoBitrate: videoBitrate,
		AudioBitrate: audioBitrate,
		VideoKbps:    videoKbps,
		AudioKbps:    audioKbps,
		MaxrateKbps:  max(videoKbps+1, int(float64(videoBitrate)*1.35)/1000),
		BufsizeKbps:  max(videoKbps+1, videoBitrate*2/1000),
		TargetHeight: targetHeight,
		Encoder:      choice,
	}, nil
}

// Args renders the transcoder invocation for the plan: machine-parsable
// progress on stdout, H.264 + AAC in a faststart MP4.
func (p *Plan) Args(inputPath, outputPath string) []string {
	args := []string{
		"-hide_banner",
		"-y",
		"-i", inputPath,
		"-c:v", p.Encoder.Name,
	}
	args = append(args, p.Encoder.ExtraArgs...)
	args = append(args,
		"-b:v", strconv.Itoa(p.VideoKbps)+"k",
		"-maxrate", strconv.Itoa(p.MaxrateKbps)+"k",
		"-bufsize", strconv.Itoa(p.BufsizeKbps)+"k",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-c:a", "aac",
		"-b:a", strconv.Itoa(p.AudioKbps)+"k",
	)
	if p.TargetHeight > 0 {
		args = append(args, "-vf", "scale=-2:"+strconv.Itoa(p.TargetHeight))
	}
	args = append(args, "-progress", "pipe:1", "-nostats", outputPath)
	return args
}
