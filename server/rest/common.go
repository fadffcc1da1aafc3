package rest

import (
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/compress"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/downloader"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/jobs"
)

type ContainerArgs struct {
	Registry   *jobs.Registry
	Downloader *downloader.Orchestrator
	Compressor *compress.Service
}
