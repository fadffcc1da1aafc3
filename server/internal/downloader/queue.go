package downloader

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/jobs"
)

// FetchQueue downloads the URLs sequentially under one shared token. A
// cancel stops at the current item and the queue emits exactly one queue
// cancelled event; one item failing does not stop the rest. Natural
// completion emits exactly one queue finished event.
func (o *Orchestrator) FetchQueue(ctx context.Context, urls []string, opts Options, token *jobs.Token) error {
	for _, url := range urls {
		if token.Cancelled() {
			o.broadcastQueueCancelled()
			return jobs.ErrCancelled
		}

		if err := o.fetchOne(ctx, url, opts, token); err != nil {
			if errors.Is(err, jobs.ErrCancelled) {
				o.broadcastQueueCancelled()
				return err
			}
			slog.Error("queue item failed",
				slog.String("url", url),
				slog.Any("err", err),
			)
		}
	}

	o.broadcaster.Broadcast(common.ProgressEvent{
		Task:          common.TaskDownloader,
		Status:        common.StatusQueueFinished,
		Progress:      common.Percent(100),
		QueueFinished: true,
		TargetDir:     opts.targetDir(),
	})
	return nil
}

func (o *Orchestrator) broadcastQueueCancelled() {
	o.broadcaster.Broadcast(common.ProgressEvent{
		Task:     common.TaskDownloader,
		Status:   common.StatusQueueCancelled,
		Progress: common.Percent(0),
	})
}
