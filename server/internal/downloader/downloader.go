package downloader

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/config"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/jobs"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/progress"
)

const (
	cancelPollEvery = 200 * time.Millisecond
	killGracePeriod = 2 * time.Second
)

// Orchestrator runs yt-dlp downloads, translating its progress hooks into
// broadcast events and resolving where the finished file landed.
type Orchestrator struct {
	broadcaster *progress.Broadcaster
	metadata    MetadataFetcher

	// fetchOne is swapped out in queue tests.
	fetchOne func(ctx context.Context, url string, opts Options, token *jobs.Token) error
}

func New(b *progress.Broadcaster) *Orchestrator {
	o := &Orchestrator{
		broadcaster: b,
		metadata:    FetchMetadata,
	}
	o.fetchOne = o.fetch
	return o
}

// Fetch downloads one URL to completion. On cancellation it emits a
// terminal cancelled event and returns jobs.ErrCancelled; any other failure
// is reported with a terminal error event.
func (o *Orchestrator) Fetch(ctx context.Context, url string, opts Options, token *jobs.Token) error {
	return o.fetchOne(ctx, url, opts, token)
}

func (o *Orchestrator) fetch(ctx context.Context, url string, opts Options, token *jobs.Token) error {
	simple := simpleModeURL(url)
	template := opts.outputTemplate(simple)
	args := buildArgs(url, opts, template)

	slog.Info("requesting download",
		slog.String("url", url),
		slog.String("template", template),
	)

	cmd := exec.Command(config.Instance().Paths.DownloaderPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return o.fail(url, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return o.fail(url, err)
	}

	if err := cmd.Start(); err != nil {
		return o.fail(url, err)
	}

	var cancelRequested atomic.Bool
	done := make(chan struct{})

	// The hooks go quiet while yt-dlp stalls on a slow extractor; the
	// watcher keeps a cancel effective even then.
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

	var hookPath string

	g := new(errgroup.Group)

	g.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()

			if token.Cancelled() {
				cancelRequested.Store(true)
				terminate(cmd)
				return nil
			}

			if pct, ok := parseDownloadFrame(line); ok {
				o.broadcaster.Broadcast(common.ProgressEvent{
					Task:     common.TaskDownloader,
					Status:   common.StatusDownloading,
					Progress: pct,
				})
				continue
			}

			if path, ok := parsePostprocessFrame(line); ok {
				if path != "" {
					hookPath = path
				}
				o.broadcaster.Broadcast(common.ProgressEvent{
					Task:   common.TaskDownloader,
					Status: common.StatusProcessing,
				})
			}
		}
		return scanner.Err()
	})

	g.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			slog.Error("yt-dlp",
				slog.String("url", url),
				slog.String("line", scanner.Text()),
			)
		}
		return scanner.Err()
	})

	streamErr := g.Wait()
	waitErr := cmd.Wait()
	close(done)

	if cancelRequested.Load() || token.Cancelled() {
		o.broadcaster.Broadcast(common.ProgressEvent{
			Task:     common.TaskDownloader,
			Status:   common.StatusCancelled,
			Progress: common.Percent(0),
		})
		return jobs.ErrCancelled
	}

	if waitErr != nil {
		return o.fail(url, fmt.Errorf("yt-dlp failed: %w", waitErr))
	}
	if streamErr != nil {
		slog.Warn("progress stream ended early", slog.Any("err", streamErr))
	}

	saved := ResolveSavedPath(ResolveInput{
		HookPath:    hookPath,
		Meta:        o.describe(ctx, url),
		Template:    template,
		MergeFormat: opts.mergeFormat(),
	})

	o.broadcaster.Broadcast(common.ProgressEvent{
		Task:      common.TaskDownloader,
		Status:    common.StatusFinishing,
		Progress:  common.Percent(100),
		SavedPath: saved,
	})

	return nil
}

// describe fetches metadata for path resolution. Best effort: the file is
// already on disk, so a metadata failure only degrades resolution.
func (o *Orchestrator) describe(ctx context.Context, url string) *common.DownloadMetadata {
	meta, err := o.metadata(ctx, url)
	if err != nil {
		slog.Warn("metadata fetch failed", slog.String("url", url), slog.Any("err", err))
		return nil
	}
	return meta
}

func (o *Orchestrator) fail(url string, err error) error {
	slog.Error("download failed", slog.String("url", url), slog.Any("err", err))
	o.broadcaster.Broadcast(common.ProgressEvent{
		Task:   common.TaskDownloader,
		Status: common.StatusError,
		Detail: err.Error(),
	})
	return err
}

// terminate signals the whole process group, then force-kills after a
// grace window. yt-dlp forks ffmpeg for merging, so the group signal is
// what actually stops the work.
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
		slog.Warn("failed to signal downloader", slog.Any("err", err))
	}

	time.AfterFunc(killGracePeriod, func() {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	})
}
