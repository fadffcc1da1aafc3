package common

// FormatDescriptor is one requested sub-download or format candidate as
// reported by yt-dlp's JSON dump. Only the extension matters for output
// path resolution.
type FormatDescriptor struct {
	Ext string `json:"ext"`
}

// DownloadMetadata is the subset of the yt-dlp -J dump used to resolve the
// final saved file path after a download completes.
type DownloadMetadata struct {
	Title              string             `json:"title"`
	Ext                string             `json:"ext"`
	FinalExt           string             `json:"final_ext"`
	Filepath           string             `json:"filepath"`
	Filename           string             `json:"_filename"`
	RequestedDownloads []FormatDescriptor `json:"requested_downloads"`
	RequestedFormats   []FormatDescriptor `json:"requested_formats"`
}
