package common

// Statuses carried by ProgressEvent. The frontend switches on these strings,
// so they are part of the wire contract.
const (
	StatusConnected      = "connected"
	StatusDownloading    = "downloading"
	StatusProcessing     = "processing"
	StatusFinishing      = "finishing"
	StatusCancelled      = "cancelled"
	StatusQueueCancelled = "queue cancelled"
	StatusQueueFinished  = "queue finished"
	StatusPreparing      = "preparing"
	StatusCompressing    = "compressing"
	StatusCompressed     = "compression finished"
	StatusError          = "error"
)

// Task tags distinguishing event streams sharing the push channel.
const (
	TaskDownloader = "downloader"
	TaskCompressor = "compressor"
)

// ProgressEvent is a single status update pushed to every connected
// observer. Immutable once constructed; Progress is a pointer so "unknown"
// is distinguishable from 0%.
type ProgressEvent struct {
	Task          string   `json:"task,omitempty"`
	Status        string   `json:"status"`
	Detail        string   `json:"detail,omitempty"`
	Progress      *float64 `json:"progress,omitempty"`
	SavedPath     string   `json:"saved_path,omitempty"`
	QueueFinished bool     `json:"queue_finished,omitempty"`
	TargetDir     string   `json:"target_dir,omitempty"`
	FinalSize     int64    `json:"final_size,omitempty"`
	Encoder       string   `json:"encoder,omitempty"`
	HardwareMode  string   `json:"hardware_mode,omitempty"`
}

// Percent boxes a progress value for ProgressEvent.
func Percent(v float64) *float64 { return &v }
