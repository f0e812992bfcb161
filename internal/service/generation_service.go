package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/client"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/config"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/media"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
)

const (
	// defaultTitle is used when custom-mode submissions omit a title
	defaultTitle = "Untitled"

	// simplePromptLimit is the upstream prompt cap in non-custom mode;
	// longer text is truncated silently before submission
	simplePromptLimit = 500
)

// ErrJobNotFound is returned for job IDs the tracker isn't watching.
// Jobs are dropped from the registry once they reach a terminal status,
// and the registry is in-memory only: a restart abandons all in-flight
// jobs. Both are deliberate (the UI re-fetches library state over HTTP).
var ErrJobNotFound = errors.New("job not found")

// SubmitError is a generation request the upstream API rejected, or a
// transport failure at submit time. It is surfaced synchronously and
// never retried.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SubmitError) Unwrap() error { return e.Err }

// EventPublisher pushes events to connected clients. Implemented by the
// websocket hub; tests substitute a recorder.
type EventPublisher interface {
	BroadcastSunoUpdate(jobID string, status model.NormalizedStatus)
	BroadcastMixtapeReady(taskID, downloadURL, errMsg string)
}

// generationJob is the tracker's per-job bookkeeping. At most one timer
// is outstanding per job at any instant.
type generationJob struct {
	title   string
	attempt int
	timer   Timer
	last    model.NormalizedStatus
}

// GenerationService owns the full lifecycle of generation jobs: it
// submits requests upstream, polls their status on a fixed interval,
// downloads finished artifacts and publishes normalized status events.
type GenerationService struct {
	suno    client.MusicGenerator
	fetcher *media.Fetcher
	hub     EventPublisher
	sched   Scheduler

	audioDir string
	imageDir string
	model    string
	callback string

	pollInterval time.Duration
	maxAttempts  int

	mu   sync.Mutex
	jobs map[string]*generationJob
}

// NewGenerationService creates the job tracker. sched may be nil, in
// which case real timers are used.
func NewGenerationService(
	suno client.MusicGenerator,
	fetcher *media.Fetcher,
	hub EventPublisher,
	sched Scheduler,
	sunoCfg *config.SunoConfig,
	mediaCfg *config.MediaConfig,
	trackerCfg *config.TrackerConfig,
) *GenerationService {
	if sched == nil {
		sched = NewWallScheduler()
	}
	interval := time.Duration(trackerCfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	maxAttempts := trackerCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	return &GenerationService{
		suno:         suno,
		fetcher:      fetcher,
		hub:          hub,
		sched:        sched,
		audioDir:     mediaCfg.AudioDir,
		imageDir:     mediaCfg.ImageDir,
		model:        sunoCfg.Model,
		callback:     sunoCfg.CallbackURL,
		pollInterval: interval,
		maxAttempts:  maxAttempts,
		jobs:         make(map[string]*generationJob),
	}
}

// Submit sends a generation request upstream and registers the accepted
// job for polling. The first poll runs after one full interval; the
// upstream service needs time to begin processing before a status query
// returns anything useful.
func (s *GenerationService) Submit(ctx context.Context, req *model.GenerateStartRequest) (*model.GenerateStartResponse, error) {
	text := strings.TrimSpace(req.Lyrics)
	if text == "" {
		return nil, &SubmitError{Message: "lyrics or prompt must not be empty"}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTitle
	}

	apiReq := &client.GenerateRequest{
		Prompt:      text,
		Model:       s.model,
		CallBackURL: s.callback,
	}
	if req.Genre != "" {
		// Custom mode: longer prompts allowed, style and title required
		apiReq.CustomMode = true
		apiReq.Style = req.Genre
		apiReq.Title = title
	} else if runes := []rune(text); len(runes) > simplePromptLimit {
		// Simple mode truncates silently; this mirrors the upstream cap.
		// Cut on rune boundaries so multi-byte text stays valid UTF-8.
		apiReq.Prompt = string(runes[:simplePromptLimit])
	}

	data, err := s.suno.Generate(ctx, apiReq)
	if err != nil {
		return nil, &SubmitError{Message: "music generation request failed", Err: err}
	}

	jobID := data.TaskID
	s.mu.Lock()
	job := &generationJob{
		title: title,
		last:  model.NormalizedStatus{Status: model.JobStatusPending},
	}
	s.jobs[jobID] = job
	job.timer = s.sched.AfterFunc(s.pollInterval, func() { s.poll(jobID) })
	s.mu.Unlock()

	log.Printf("Generation job %s submitted (title=%q customMode=%v)", jobID, title, apiReq.CustomMode)

	return &model.GenerateStartResponse{
		JobID:  jobID,
		Status: model.JobStatusPending,
	}, nil
}

// Status returns the last published status for a tracked job
func (s *GenerationService) Status(jobID string) (model.NormalizedStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return model.NormalizedStatus{}, ErrJobNotFound
	}
	return job.last, nil
}

// poll runs one status query for a job. Polls for one job are strictly
// sequential: the next timer is armed only after this poll's handling,
// downloads included, has finished.
func (s *GenerationService) poll(jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	attempt := job.attempt
	title := job.title
	s.mu.Unlock()

	ctx := context.Background()

	rec, err := s.suno.RecordInfo(ctx, jobID)
	if err != nil {
		// Transient failure: retry silently, no status event
		log.Printf("Generation job %s poll %d failed: %v", jobID, attempt+1, err)
		if attempt+1 >= s.maxAttempts {
			s.publish(jobID, model.NormalizedStatus{
				Status: model.JobStatusFailed,
				Error:  genericFailureMessage,
			})
			s.deregister(jobID)
			return
		}
		s.reschedule(jobID, attempt+1)
		return
	}

	status := TranslateRecord(rec)
	s.publish(jobID, status)

	// Completion is announced before the downloads start: they can take a
	// while, and clients should see the remote URLs right away. A second
	// event follows once the download attempt is done.
	if status.Status == model.JobStatusCompleted && len(status.AudioURLs) > 0 {
		s.downloadArtifacts(ctx, title, &status)
		s.publish(jobID, status)
	}

	if status.Status != model.JobStatusPending {
		s.deregister(jobID)
		return
	}
	if attempt+1 >= s.maxAttempts {
		// Still pending after the last allowed poll: force-fail so clients
		// are not left watching a job that will never resolve
		s.publish(jobID, model.NormalizedStatus{
			Status: model.JobStatusFailed,
			Error:  genericFailureMessage,
		})
		s.deregister(jobID)
		return
	}
	s.reschedule(jobID, attempt+1)
}

// downloadArtifacts pulls the remote audio and cover files to local
// storage and rewrites the status to include local references.
//
// Audio is all-or-nothing: if any track fails to download, the error is
// logged and the event goes out with the original remote URLs and no
// local ones, and no retry is attempted. Image downloads are best-effort
// per file; a failed image is simply omitted.
func (s *GenerationService) downloadArtifacts(ctx context.Context, title string, status *model.NormalizedStatus) {
	localURLs := make([]string, 0, len(status.AudioURLs))
	for _, u := range status.AudioURLs {
		name, err := s.fetcher.Download(ctx, u, s.audioDir, title, "mp3")
		if err != nil {
			log.Printf("Audio download failed for %q: %v", title, err)
			localURLs = nil
			break
		}
		localURLs = append(localURLs, "/mp3s/"+name)
	}
	if localURLs != nil {
		status.LocalURLs = localURLs
	}

	var localImages []string
	for _, u := range status.ImageURLs {
		name, err := s.fetcher.Download(ctx, u, s.imageDir, title, "jpg")
		if err != nil {
			log.Printf("Image download failed for %q: %v", title, err)
			continue
		}
		localImages = append(localImages, "/covers/"+name)
	}
	status.ImageURLs = localImages
}

func (s *GenerationService) publish(jobID string, status model.NormalizedStatus) {
	s.mu.Lock()
	if job, ok := s.jobs[jobID]; ok {
		job.last = status
	}
	s.mu.Unlock()
	s.hub.BroadcastSunoUpdate(jobID, status)
}

func (s *GenerationService) reschedule(jobID string, nextAttempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	job.attempt = nextAttempt
	job.timer = s.sched.AfterFunc(s.pollInterval, func() { s.poll(jobID) })
}

func (s *GenerationService) deregister(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	if job.timer != nil {
		job.timer.Stop()
	}
	delete(s.jobs, jobID)
	log.Printf("Generation job %s deregistered", jobID)
}
