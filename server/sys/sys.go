package sys

import (
	"golang.org/x/sys/unix"

	"github.com/lucasjordaoreal/UltraDownloader/server/config"
)

// FreeSpace reports the bytes available on the filesystem backing the
// download directory.
func FreeSpace() (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(config.Instance().Paths.DownloadPath, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
