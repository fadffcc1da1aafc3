package downloader

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasjordaoreal/UltraDownloader/server/config"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/fsutil"
)

// Audio-only output formats; everything else downloads as MP4.
var audioFormats = map[string]bool{
	"mp3":  true,
	"m4a":  true,
	"wav":  true,
	"flac": true,
}

// Hosts whose extractors misbehave with strict format selectors. They get
// "simple mode": best available format, no resolution filter.
var (
	instagramHost = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.|m\.)?instagram\.com/`)
	facebookHost  = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.|m\.)?(facebook\.com|fb\.watch)/`)
	twitterHost   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(twitter\.com|x\.com)/`)
)

func simpleModeURL(url string) bool {
	return instagramHost.MatchString(url) ||
		facebookHost.MatchString(url) ||
		twitterHost.MatchString(url)
}

// Options shape one download request.
type Options struct {
	// Format: mp4 (default) or one of the audio formats.
	Format string
	// Quality is the audio quality passed to the extract-audio
	// postprocessor.
	Quality int
	// Resolution caps the video height ("720p", "1080"); "best"/"auto"
	// and unparsable tokens impose no cap.
	Resolution string
	TargetDir  string
	// Filename overrides the title-based name (sanitized, no extension).
	Filename string
}

func expectedExtension(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if audioFormats[f] {
		return f
	}
	return "mp4"
}

func (o Options) targetDir() string {
	if o.TargetDir != "" {
		return o.TargetDir
	}
	return config.Instance().Paths.DownloadPath
}

// outputTemplate builds the yt-dlp -o template. Simple mode keeps the
// extension placeholder since the final container is the extractor's call.
func (o Options) outputTemplate(simple bool) string {
	name := "%(title)s." + expectedExtension(o.Format)
	if simple {
		name = "%(title)s.%(ext)s"
	}
	if custom := fsutil.SanitizeFilename(o.Filename); custom != "" {
		name = custom + "." + expectedExtension(o.Format)
	}
	return filepath.Join(o.targetDir(), name)
}

// mergeFormat is the requested output container, when one is forced.
func (o Options) mergeFormat() string {
	if audioFormats[strings.ToLower(o.Format)] {
		return ""
	}
	return "mp4"
}

// heightCap parses the resolution token leniently: anything unparsable
// means no cap, matching the original picker's "best" behavior.
func (o Options) heightCap() int {
	t := strings.ToLower(strings.TrimSpace(o.Resolution))
	t = strings.TrimSuffix(t, "p")
	n, err := strconv.Atoi(t)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// buildArgs assembles the yt-dlp invocation for one URL.
func buildArgs(url string, o Options, template string) []string {
	args := []string{
		url,
		"--newline",
		"--no-colors",
		"--no-playlist",
		"--no-exec",
		"--progress-template", compactTemplate(downloadTemplate),
		"--progress-template", compactTemplate(postprocessTemplate),
		"-o", template,
	}

	format := strings.ToLower(strings.TrimSpace(o.Format))

	switch {
	case simpleModeURL(url):
		args = append(args,
			"-f", "best",
			"--merge-output-format", "mp4",
			"--embed-metadata",
		)

	case audioFormats[format]:
		quality := o.Quality
		if quality <= 0 {
			quality = 192
		}
		args = append(args,
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", format,
			"--audio-quality", strconv.Itoa(quality),
		)
		if format == "mp3" || format == "m4a" {
			args = append(args, "--embed-thumbnail")
		}
		args = append(args, "--embed-metadata")

	default:
		videoPart := "bv*[vcodec^=avc][ext=mp4]"
		if h := o.heightCap(); h > 0 {
			videoPart = "bv*[height<=" + strconv.Itoa(h) + "][vcodec^=avc][ext=mp4]"
		}
		args = append(args,
			"-f", videoPart+"+ba[ext=m4a]/mp4",
			"--merge-output-format", "mp4",
			"--embed-metadata",
		)
	}

	return args
}
