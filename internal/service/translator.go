package service

import (
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/client"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
)

// genericFailureMessage is what clients see when upstream gives no detail
const genericFailureMessage = "Music generation failed"

// TranslateRecord collapses an upstream task record into the normalized
// status vocabulary. It is a pure function: the same record always yields
// the same result, and unknown upstream statuses map to pending rather
// than erroring.
func TranslateRecord(rec *client.TaskRecord) model.NormalizedStatus {
	var status model.JobStatus
	switch rec.Status {
	case client.TaskStatusSuccess:
		status = model.JobStatusCompleted
	case client.TaskStatusCreateTaskFailed,
		client.TaskStatusGenerateFailed,
		client.TaskStatusCallbackException,
		client.TaskStatusSensitiveWordError:
		status = model.JobStatusFailed
	default:
		// PENDING, GENERATING, TEXT_SUCCESS, FIRST_SUCCESS and anything
		// unrecognized: the job is still in flight
		status = model.JobStatusPending
	}

	out := model.NormalizedStatus{Status: status}

	for _, track := range rec.Response.SunoData {
		// The source audio URL is authoritative when present
		audioURL := track.SourceAudioURL
		if audioURL == "" {
			audioURL = track.AudioURL
		}
		if audioURL != "" {
			out.AudioURLs = append(out.AudioURLs, audioURL)
		}
		if track.ImageURL != "" {
			out.ImageURLs = append(out.ImageURLs, track.ImageURL)
		}
		if track.Duration > 0 {
			out.Durations = append(out.Durations, track.Duration)
		}
	}

	if status == model.JobStatusFailed || rec.ErrorCode != "" {
		out.Error = rec.ErrorMessage
		if out.Error == "" {
			out.Error = genericFailureMessage
		}
	}

	return out
}
