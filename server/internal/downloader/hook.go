package downloader

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Progress templates handed to yt-dlp. The download:/postprocess: prefix
// is the template type selector, consumed by yt-dlp itself; emitted lines
// carry only the substituted JSON body. Numeric fields are quoted since
// yt-dlp prints the literal NA for anything missing, which would break
// the JSON otherwise.
const downloadTemplate = `download:
{
	"downloaded":"%(progress.downloaded_bytes)s",
	"total":"%(progress.total_bytes)s",
	"total_estimate":"%(progress.total_bytes_estimate)s"
}`

// The filepath only becomes known once postprocessing starts.
const postprocessTemplate = `postprocess:
{
	"filepath":"%(info.filepath)s"
}`

var templateCompactor = strings.NewReplacer("\n", "", "\t", "")

func compactTemplate(t string) string {
	return templateCompactor.Replace(t)
}

// frame holds the union of both template bodies; which fields are filled
// tells the two kinds apart, since the emitted lines carry no marker.
type frame struct {
	Downloaded    string `json:"downloaded"`
	Total         string `json:"total"`
	TotalEstimate string `json:"total_estimate"`
	Filepath      string `json:"filepath"`
}

func parseFrame(line string) (*frame, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return nil, false
	}

	var f frame
	if err := json.Unmarshal([]byte(line), &f); err != nil {
		return nil, false
	}
	return &f, true
}

// parseDownloadFrame reports whether line is a download hook line and, if
// the frame carries usable byte counts, the completion percentage.
func parseDownloadFrame(line string) (*float64, bool) {
	f, ok := parseFrame(line)
	if !ok || (f.Downloaded == "" && f.Total == "") {
		return nil, false
	}

	downloaded := lenientFloat(f.Downloaded)
	total := lenientFloat(f.Total)
	if total <= 0 {
		total = lenientFloat(f.TotalEstimate)
	}
	if total <= 0 || downloaded < 0 {
		return nil, true
	}

	pct := downloaded / total * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return &pct, true
}

// parsePostprocessFrame extracts the filepath hook value, if any.
func parsePostprocessFrame(line string) (string, bool) {
	f, ok := parseFrame(line)
	if !ok || f.Filepath == "" {
		return "", false
	}
	if f.Filepath == "NA" {
		return "", true
	}
	return f.Filepath, true
}

func lenientFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return -1
	}
	return v
}
