package encoder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
)

func fixedProbe(output string) func(context.Context) string {
	return func(context.Context) string { return output }
}

const sampleListing = ` V..... libx264              libx264 H.264 / AVC / MPEG-4 AVC
 V....D h264_qsv             H.264 / AVC (Intel Quick Sync Video)
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder
`

func TestDetectHardwarePreservesPreferenceOrder(t *testing.T) {
	s := &Selector{probe: fixedProbe(sampleListing)}

	got := s.DetectHardware(context.Background())
	want := []string{"h264_nvenc", "h264_qsv"}

	if len(got) != len(want) {
		t.Fatalf("detected %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("detected %v, want %v", got, want)
		}
	}
}

func TestDetectHardwareProbesOnce(t *testing.T) {
	var calls int32
	s := &Selector{probe: func(context.Context) string {
		atomic.AddInt32(&calls, 1)
		return sampleListing
	}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.DetectHardware(context.Background())
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("probe ran %d times, want 1", n)
	}
}

func TestSelectSoftwareDefault(t *testing.T) {
	s := &Selector{probe: fixedProbe(sampleListing)}

	for _, mode := range []string{"", "software", "cpu", "bogus", "SOFTWARE"} {
		choice, err := s.Select(context.Background(), mode)
		if err != nil {
			t.Fatalf("mode %q: unexpected error %v", mode, err)
		}
		if choice.Name != "libx264" || choice.Kind != KindSoftware {
			t.Fatalf("mode %q: got %+v, want libx264/software", mode, choice)
		}
	}
}

func TestSelectHardware(t *testing.T) {
	s := &Selector{probe: fixedProbe(sampleListing)}

	choice, err := s.Select(context.Background(), "hardware")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if choice.Name != "h264_nvenc" || choice.Kind != KindHardware {
		t.Fatalf("got %+v, want h264_nvenc/hardware", choice)
	}
	if len(choice.ExtraArgs) != 2 || choice.ExtraArgs[0] != "-preset" || choice.ExtraArgs[1] != "p5" {
		t.Fatalf("unexpected tuning args: %v", choice.ExtraArgs)
	}
}

func TestSelectHardwareWithoutEncodersFails(t *testing.T) {
	s := &Selector{probe: fixedProbe(" V..... libx264 only software here")}

	_, err := s.Select(context.Background(), "hardware")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, common.ErrInput) {
		t.Fatalf("expected input-class error, got %v", err)
	}
}

func TestSelectAutoFallsBackToSoftware(t *testing.T) {
	s := &Selector{probe: fixedProbe("")}

	choice, err := s.Select(context.Background(), "auto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if choice.Kind != KindSoftware {
		t.Fatalf("got %+v, want software fallback", choice)
	}
}

func TestSelectAutoPrefersHardware(t *testing.T) {
	s := &Selector{probe: fixedProbe(sampleListing)}

	choice, err := s.Select(context.Background(), "auto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if choice.Kind != KindHardware || choice.Name != "h264_nvenc" {
		t.Fatalf("got %+v, want h264_nvenc/hardware", choice)
	}
}
