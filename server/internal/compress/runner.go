package compress

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/config"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/jobs"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/progress"
)

const (
	diagnosticLines = 30
	cancelPollEvery = 200 * time.Millisecond
	killGracePeriod = 2 * time.Second
)

// TranscodeError carries the transcoder's exit code and the tail of its
// diagnostic output.
type TranscodeError struct {
	ExitCode int
	Tail     []string
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("ffmpeg failed (%d): %s", e.ExitCode, strings.Join(e.Tail, "\n"))
}

// Runner executes the transcoder and turns its machine-parsable progress
// stream into broadcast events, enforcing cooperative cancellation.
type Runner struct {
	broadcaster *progress.Broadcaster
}

func NewRunner(b *progress.Broadcaster) *Runner {
	return &Runner{broadcaster: b}
}

// Run blocks until the transcoder exits. Cancellation yields
// jobs.ErrCancelled, a non-zero exit yields a TranscodeError with the last
// few diagnostic lines, zero exit is success. Callers run it from their
// own worker goroutine.
func (r *Runner) Run(args []string, duration float64, token *jobs.Token) error {
	cmd := exec.Command(config.Instance().Paths.FFmpegPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	var cancelRequested atomic.Bool
	done := make(chan struct{})

	// ffmpeg can stall without emitting progress; the watcher makes a
	// cancel effective even then.
	go func() {
		ticker := time.NewTicker(cancelPollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if token.Cancelled() {
					cancelRequested.Store(true)
					terminate(cmd)
					return
				}
			}
		}
	}()

	tail := newTailBuffer(diagnosticLines)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				tail.Add(line)
			}
		}
	}()

	r.consumeProgress(stdout, duration, token, &cancelRequested, cmd)

	wg.Wait()
	waitErr := cmd.Wait()
	close(done)

	if cancelRequested.Load() || token.Cancelled() {
		return jobs.ErrCancelled
	}

	if waitErr != nil {
		code := -1
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return &TranscodeError{ExitCode: code, Tail: tail.Last(6)}
	}

	return nil
}

func (r *Runner) consumeProgress(stdout io.Reader, duration float64, token *jobs.Token, cancelRequested *atomic.Bool, cmd *exec.Cmd) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if token.Cancelled() {
			cancelRequested.Store(true)
			terminate(cmd)
			return
		}

		elapsed, ok := parseElapsedSeconds(line)
		if !ok {
			continue
		}

		pct := elapsed / duration * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}

		r.broadcaster.Broadcast(common.ProgressEvent{
			Task:     common.TaskCompressor,
			Status:   common.StatusCompressing,
			Progress: common.Percent(pct),
		})
	}
}

// parseElapsedSeconds extracts the elapsed encode time from an
// out_time_ms=/out_time_us= progress line. Both keys count microseconds
// across ffmpeg versions.
func parseElapsedSeconds(line string) (float64, bool) {
	var value string
	switch {
	case strings.HasPrefix(line, "out_time_ms="):
		value = strings.TrimPrefix(line, "out_time_ms=")
	case strings.HasPrefix(line, "out_time_us="):
		value = strings.TrimPrefix(line, "out_time_us=")
	default:
		return 0, false
	}

	micro, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}

	return float64(micro) / 1_000_000, true
}

// terminate asks the whole process group to stop, then force-kills after a
// short grace window. ffmpeg spawns no children here but the group signal
// mirrors how downloads are stopped.
func terminate(cmd *exec.Cmd) {
	proc := cmd.Process
	if proc == nil {
		return
	}

	pgid, err := syscall.Getpgid(proc.Pid)
	if err != nil {
		_ = proc.Kill()
		return
	}

	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		slog.Warn("failed to signal transcoder", slog.Any("err", err))
	}

	time.AfterFunc(killGracePeriod, func() {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	})
}

// tailBuffer keeps the last N lines of output for diagnostics.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *tailBuffer) Last(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > len(t.lines) {
		n = len(t.lines)
	}
	return append([]string(nil), t.lines[len(t.lines)-n:]...)
}
