package model

// JobStatus is the normalized lifecycle vocabulary for a generation job.
// The upstream API's richer status set collapses into these three values.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// NormalizedStatus is the client-facing view of a generation job.
//
// The URL/duration slices are index-aligned to the same track ordering,
// but they are not guaranteed to be populated together: early polls may
// carry audio URLs with no durations, and local URLs only appear after a
// successful download. Consumers must tolerate any subset.
type NormalizedStatus struct {
	Status    JobStatus `json:"status"`
	AudioURLs []string  `json:"audio_urls,omitempty"`
	LocalURLs []string  `json:"local_urls,omitempty"`
	ImageURLs []string  `json:"image_urls,omitempty"`
	Durations []float64 `json:"durations,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// GenerateStartRequest is the payload for submitting a generation job
type GenerateStartRequest struct {
	Lyrics string `json:"lyrics" validate:"required"`
	Genre  string `json:"genre,omitempty" validate:"max=200"`
	Title  string `json:"title,omitempty" validate:"max=200"`
}

// GenerateStartResponse is returned once the upstream API accepts the job
type GenerateStartResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

// MixtapeStartResponse is returned immediately; the outcome arrives later
// over the websocket channel keyed by TaskID.
type MixtapeStartResponse struct {
	TaskID string `json:"taskId"`
}

// MixtapeCustomRequest selects an explicit ordered song set
type MixtapeCustomRequest struct {
	SongIDs []string `json:"songIds" validate:"required"`
	Name    string   `json:"name,omitempty" validate:"max=200"`
}

// MixtapeJobPayload is the asynq task payload for mixtape assembly
type MixtapeJobPayload struct {
	TaskID string        `json:"taskId"`
	Name   string        `json:"name,omitempty"`
	Items  []MixtapeItem `json:"items"`
}

// MixtapeItem is one source track of a mixtape, in playback order
type MixtapeItem struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}
