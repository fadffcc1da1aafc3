package rest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/compress"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/downloader"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/jobs"
	"github.com/lucasjordaoreal/UltraDownloader/server/sys"
)

const (
	kindDownload = "download"
	kindQueue    = "queue"
	kindCompress = "compress"
)

type Service struct {
	registry   *jobs.Registry
	downloader *downloader.Orchestrator
	compressor *compress.Service
}

func NewService(args *ContainerArgs) *Service {
	return &Service{
		registry:   args.Registry,
		downloader: args.Downloader,
		compressor: args.Compressor,
	}
}

// Exec starts a single download in the background and returns its job id
// immediately; progress flows over the push channel.
func (s *Service) Exec(url string, opts downloader.Options) (string, error) {
	if url == "" {
		return "", common.InputErrorf("missing url")
	}

	job := s.registry.Register(kindDownload)

	go func() {
		defer s.registry.Release(job.ID)
		if err := s.downloader.Fetch(context.Background(), url, opts, job.Token); err != nil &&
			!errors.Is(err, jobs.ErrCancelled) {
			slog.Error("download failed", slog.String("id", job.ID), slog.Any("err", err))
		}
	}()

	return job.ID, nil
}

// ExecQueue starts a sequential batch under one shared token.
func (s *Service) ExecQueue(urls []string, opts downloader.Options) (string, error) {
	if len(urls) == 0 {
		return "", common.InputErrorf("missing urls")
	}

	job := s.registry.Register(kindQueue)

	go func() {
		defer s.registry.Release(job.ID)
		if err := s.downloader.FetchQueue(context.Background(), urls, opts, job.Token); err != nil &&
			!errors.Is(err, jobs.ErrCancelled) {
			slog.Error("queue failed", slog.String("id", job.ID), slog.Any("err", err))
		}
	}()

	return job.ID, nil
}

// ExecCompress runs a compression synchronously, returning when the
// transcode finishes, fails or is cancelled.
func (s *Service) ExecCompress(ctx context.Context, req compress.Request) (string, *compress.Result, error) {
	job := s.registry.Register(kindCompress)
	defer s.registry.Release(job.ID)

	result, err := s.compressor.Compress(ctx, req, job)
	return job.ID, result, err
}

// Cancel flips the token of the given job, or of every live job when no
// id is supplied.
func (s *Service) Cancel(id string) bool {
	if id == "" {
		return s.registry.CancelAny()
	}
	return s.registry.Cancel(id)
}

func (s *Service) FreeSpace() (uint64, error) {
	return sys.FreeSpace()
}
