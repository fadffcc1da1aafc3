package compress

import (
	"errors"
	"strings"
	"testing"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/encoder"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/media"
)

func software() encoder.Choice {
	return encoder.Choice{Name: "libx264", ExtraArgs: []string{"-preset", "veryfast"}, Kind: encoder.KindSoftware}
}

func stats(duration float64, size int64, width, height int) *media.Stats {
	return &media.Stats{Duration: duration, Size: size, Width: width, Height: height}
}

func TestParseResolutionToken(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"auto", 0},
		{"ORIGINAL", 0},
		{"source", 0},
		{"none", 0},
		{"best", 0},
		{"720p", 720},
		{"1080", 1080},
		{"100p", 144}, // floor
	}

	for _, c := range cases {
		got, err := ParseResolutionToken(c.in)
		if err != nil {
			t.Fatalf("ParseResolutionToken(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseResolutionToken(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseResolutionTokenInvalid(t *testing.T) {
	for _, in := range []string{"potato", "-720", "0"} {
		_, err := ParseResolutionToken(in)
		if !errors.Is(err, common.ErrInput) {
			t.Errorf("ParseResolutionToken(%q): expected input error, got %v", in, err)
		}
	}
}

func TestPlanTargetBytesWithinSource(t *testing.T) {
	for _, strength := range []int{0, 40, 99} {
		plan, err := BuildPlan(stats(60, 10<<20, 1920, 1080), Options{Strength: strength}, software())
		if err != nil {
			t.Fatalf("strength %d: %v", strength, err)
		}
		if plan.TargetBytes <= 0 || plan.TargetBytes > 10<<20 {
			t.Errorf("strength %d: target bytes %d out of (0, source]", strength, plan.TargetBytes)
		}
		if plan.VideoBitrate <= 0 {
			t.Errorf("strength %d: video bitrate %d", strength, plan.VideoBitrate)
		}
	}
}

func TestPlanSizeCap(t *testing.T) {
	// large source caps at exactly 9 MiB
	plan, err := BuildPlan(stats(60, 20<<20, 1920, 1080), Options{SizeCap: true}, software())
	if err != nil {
		t.Fatal(err)
	}
	if plan.TargetBytes != 9<<20 {
		t.Errorf("target bytes = %d, want %d", plan.TargetBytes, 9<<20)
	}

	// source already under the cap stays at source size
	plan, err = BuildPlan(stats(60, 5<<20, 1920, 1080), Options{SizeCap: true}, software())
	if err != nil {
		t.Fatal(err)
	}
	if plan.TargetBytes != 5<<20 {
		t.Errorf("target bytes = %d, want %d", plan.TargetBytes, 5<<20)
	}
}

func TestPlanBitrateSplit(t *testing.T) {
	plan, err := BuildPlan(stats(60, 20<<20, 1920, 1080), Options{SizeCap: true}, software())
	if err != nil {
		t.Fatal(err)
	}

	total := int(float64(plan.TargetBytes*8) / 60)
	if total < 128_000 {
		total = 128_000
	}
	if plan.VideoBitrate+plan.AudioBitrate != total {
		t.Errorf("split %d+%d != total %d", plan.VideoBitrate, plan.AudioBitrate, total)
	}
	if plan.AudioBitrate < 64_000 || plan.AudioBitrate > 128_000 {
		t.Errorf("audio bitrate %d outside [64k, 128k]", plan.AudioBitrate)
	}
}

func TestPlanTotalBitrateFloor(t *testing.T) {
	// tiny target over a long duration hits the 128 kbps total floor,
	// which splits into exactly 64k video + 64k audio.
	plan, err := BuildPlan(stats(3600, 300_000, 640, 360), Options{Strength: 99}, software())
	if err != nil {
		t.Fatal(err)
	}
	if plan.VideoBitrate != 64_000 {
		t.Errorf("video bitrate %d, want 64000", plan.VideoBitrate)
	}
	if plan.AudioBitrate != 64_000 {
		t.Errorf("audio bitrate %d, want 64000", plan.AudioBitrate)
	}
	if plan.TargetBytes != 256_000 {
		t.Errorf("target bytes %d, want the 256k floor", plan.TargetBytes)
	}
}

func TestPlanNeverUpscales(t *testing.T) {
	plan, err := BuildPlan(stats(60, 10<<20, 1920, 1080), Options{Resolution: "1440p"}, software())
	if err != nil {
		t.Fatal(err)
	}
	if plan.TargetHeight != 0 {
		t.Errorf("requested 1440p on a 1080p source: target height %d, want 0 (keep)", plan.TargetHeight)
	}

	plan, err = BuildPlan(stats(60, 10<<20, 1920, 1080), Options{Resolution: "720p"}, software())
	if err != nil {
		t.Fatal(err)
	}
	if plan.TargetHeight != 720 {
		t.Errorf("downscale: target height %d, want 720", plan.TargetHeight)
	}
}

func TestPlanRateControlBounds(t *testing.T) {
	plan, err := BuildPlan(stats(30, 50<<20, 1920, 1080), Options{Strength: 40}, software())
	if err != nil {
		t.Fatal(err)
	}
	if plan.MaxrateKbps <= plan.VideoKbps {
		t.Errorf("maxrate %d not above video %d", plan.MaxrateKbps, plan.VideoKbps)
	}
	if plan.BufsizeKbps <= plan.VideoKbps {
		t.Errorf("bufsize %d not above video %d", plan.BufsizeKbps, plan.VideoKbps)
	}
}

func TestPlanInvalidDuration(t *testing.T) {
	_, err := BuildPlan(stats(0, 10<<20, 1920, 1080), Options{}, software())
	var perr *media.ProbeError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProbeError, got %v", err)
	}
}

func TestPlanArgs(t *testing.T) {
	plan, err := BuildPlan(stats(60, 20<<20, 1920, 1080), Options{SizeCap: true, Resolution: "720p"}, software())
	if err != nil {
		t.Fatal(err)
	}

	args := plan.Args("in.mp4", "out.mp4")

	joined := strings.Join(args, " ")
	for _, want := range []string{"-c:v libx264", "-vf scale=-2:720", "-progress pipe:1", "-movflags +faststart"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("output path must be last, got %q", args[len(args)-1])
	}
}
