package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"syscall"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/config"
)

// MetadataFetcher resolves the media metadata for a URL.
type MetadataFetcher func(ctx context.Context, url string) (*common.DownloadMetadata, error)

// FetchMetadata asks yt-dlp for the full info JSON without downloading.
func FetchMetadata(ctx context.Context, url string) (*common.DownloadMetadata, error) {
	cmd := exec.CommandContext(ctx, config.Instance().Paths.DownloaderPath, url, "-J")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var bufferedStderr bytes.Buffer

	go func() {
		io.Copy(&bufferedStderr, stderr)
	}()

	slog.Info("retrieving metadata", slog.String("url", url))

	var meta common.DownloadMetadata
	if err := json.NewDecoder(stdout).Decode(&meta); err != nil {
		cmd.Wait()
		return nil, err
	}

	if err := cmd.Wait(); err != nil {
		return nil, errors.New(bufferedStderr.String())
	}

	return &meta, nil
}
