package compress

import (
	"fmt"
	"testing"
)

func TestParseElapsedSeconds(t *testing.T) {
	cases := []struct {
		line string
		want float64
		ok   bool
	}{
		{"out_time_ms=1500000", 1.5, true},
		{"out_time_us=2500000", 2.5, true},
		{"out_time_ms=0", 0, true},
		{"out_time_ms=N/A", 0, false},
		{"frame=120", 0, false},
		{"speed=1.01x", 0, false},
		{"", 0, false},
	}

	for _, c := range cases {
		got, ok := parseElapsedSeconds(c.line)
		if ok != c.ok || got != c.want {
			t.Errorf("parseElapsedSeconds(%q) = (%v, %v), want (%v, %v)",
				c.line, got, ok, c.want, c.ok)
		}
	}
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	tail := newTailBuffer(3)

	for i := 1; i <= 5; i++ {
		tail.Add(fmt.Sprintf("line-%d", i))
	}

	got := tail.Last(3)
	want := []string{"line-3", "line-4", "line-5"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTailBufferLastMoreThanStored(t *testing.T) {
	tail := newTailBuffer(30)
	tail.Add("only")

	if got := tail.Last(6); len(got) != 1 || got[0] != "only" {
		t.Fatalf("got %v, want [only]", got)
	}
}

func TestTranscodeErrorMessage(t *testing.T) {
	err := &TranscodeError{ExitCode: 1, Tail: []string{"boom"}}
	if err.Error() == "" {
		t.Fatal("empty error message")
	}
}
