package downloader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
)

// Extensions tried, in order, when the real one is unknown.
var fallbackExtensions = []string{"mp4", "mp3", "m4a", "wav", "flac"}

// ResolveInput carries everything known about a finished download that
// can hint at where the file ended up.
type ResolveInput struct {
	// HookPath is the filepath reported by the postprocessor hook, the
	// most reliable source when present.
	HookPath string
	Meta     *common.DownloadMetadata
	// Template is the -o output template the download was started with.
	Template string
	// MergeFormat is the container forced via --merge-output-format.
	MergeFormat string
}

// Each resolver proposes candidate paths in decreasing confidence. The
// first candidate naming an existing regular file wins.
var resolvers = []func(ResolveInput) []string{
	resolveFromHook,
	resolveFromMetadata,
	resolveFromTemplate,
}

// ResolveSavedPath locates the downloaded file on disk, or returns the
// empty string when no candidate exists.
func ResolveSavedPath(in ResolveInput) string {
	for _, resolve := range resolvers {
		for _, candidate := range resolve(in) {
			if candidate == "" {
				continue
			}
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			return fixPlaceholderExtension(candidate, bestKnownExtension(in))
		}
	}
	return ""
}

func resolveFromHook(in ResolveInput) []string {
	return []string{in.HookPath}
}

func resolveFromMetadata(in ResolveInput) []string {
	if in.Meta == nil {
		return nil
	}
	return []string{in.Meta.Filepath, in.Meta.Filename}
}

// resolveFromTemplate reconstructs the path from the output template:
// the title fills %(title)s and the best-known extension fills the
// extension placeholders, then every fallback extension is tried.
func resolveFromTemplate(in ResolveInput) []string {
	if in.Template == "" {
		return nil
	}

	title := "video"
	if in.Meta != nil && in.Meta.Title != "" {
		title = in.Meta.Title
	}
	base := strings.ReplaceAll(in.Template, "%(title)s", title)

	var candidates []string
	if ext := bestKnownExtension(in); ext != "" {
		candidates = append(candidates, substituteExtension(base, ext))
	}
	for _, ext := range fallbackExtensions {
		candidates = append(candidates, substituteExtension(base, ext))
	}
	return candidates
}

func substituteExtension(path, ext string) string {
	replaced := strings.NewReplacer(
		"%(ext)s", ext,
		"%(final_ext)s", ext,
	).Replace(path)
	if strings.Contains(replaced, "%(") {
		return ""
	}
	return withExtension(replaced, ext)
}

func withExtension(path, ext string) string {
	current := filepath.Ext(path)
	return strings.TrimSuffix(path, current) + "." + ext
}

// bestKnownExtension picks the most specific extension the metadata or
// the arguments reveal, normalized without the leading dot.
func bestKnownExtension(in ResolveInput) string {
	if m := in.Meta; m != nil {
		for _, ext := range []string{m.FinalExt, m.Ext} {
			if e := normalizeExtension(ext); e != "" {
				return e
			}
		}
		for _, d := range m.RequestedDownloads {
			if e := normalizeExtension(d.Ext); e != "" {
				return e
			}
		}
		for _, f := range m.RequestedFormats {
			if e := normalizeExtension(f.Ext); e != "" {
				return e
			}
		}
	}
	if e := normalizeExtension(in.MergeFormat); e != "" {
		return e
	}
	return templateLiteralExtension(in.Template)
}

func normalizeExtension(ext string) string {
	e := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if e == "" || e == "na" || strings.Contains(e, "%") {
		return ""
	}
	return e
}

func templateLiteralExtension(template string) string {
	return normalizeExtension(filepath.Ext(template))
}

// fixPlaceholderExtension renames files yt-dlp saved with a literal .NA
// suffix. The rename is best effort: on failure the original path is
// still returned, since the file does exist there.
func fixPlaceholderExtension(path, ext string) string {
	if !strings.EqualFold(filepath.Ext(path), ".na") || ext == "" {
		return path
	}

	renamed := withExtension(path, ext)
	if _, err := os.Stat(renamed); err == nil {
		return path
	}
	if err := os.Rename(path, renamed); err != nil {
		return path
	}
	return renamed
}
