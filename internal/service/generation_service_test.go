package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/client"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/config"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/media"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
)

// manualScheduler collects timer callbacks so tests can drive the poll
// loop deterministically, one tick at a time.
type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

type manualTimer struct{}

func (manualTimer) Stop() bool { return false }

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, f)
	return manualTimer{}
}

// fire runs the oldest pending callback synchronously. Returns false when
// nothing is scheduled.
func (s *manualScheduler) fire() bool {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return false
	}
	f := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()
	f()
	return true
}

func (s *manualScheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

type sunoEvent struct {
	jobID  string
	status model.NormalizedStatus
}

type recorderHub struct {
	mu         sync.Mutex
	sunoEvents []sunoEvent
}

func (h *recorderHub) BroadcastSunoUpdate(jobID string, status model.NormalizedStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sunoEvents = append(h.sunoEvents, sunoEvent{jobID: jobID, status: status})
}

func (h *recorderHub) BroadcastMixtapeReady(taskID, downloadURL, errMsg string) {}

func (h *recorderHub) events() []sunoEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]sunoEvent, len(h.sunoEvents))
	copy(out, h.sunoEvents)
	return out
}

type fakeGenerator struct {
	mu          sync.Mutex
	generateReq *client.GenerateRequest
	generateErr error
	taskID      string
	recordFn    func(taskID string) (*client.TaskRecord, error)
	recordCalls int
}

func (g *fakeGenerator) Generate(ctx context.Context, req *client.GenerateRequest) (*client.GenerateData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generateReq = req
	if g.generateErr != nil {
		return nil, g.generateErr
	}
	id := g.taskID
	if id == "" {
		id = "task-1"
	}
	return &client.GenerateData{TaskID: id}, nil
}

func (g *fakeGenerator) RecordInfo(ctx context.Context, taskID string) (*client.TaskRecord, error) {
	g.mu.Lock()
	g.recordCalls++
	g.mu.Unlock()
	return g.recordFn(taskID)
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.recordCalls
}

func newTestService(t *testing.T, gen *fakeGenerator, sched *manualScheduler, hub *recorderHub, maxAttempts int) *GenerationService {
	t.Helper()
	dir := t.TempDir()
	audioDir := filepath.Join(dir, "mp3s")
	imageDir := filepath.Join(dir, "covers")
	for _, d := range []string{audioDir, imageDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	return NewGenerationService(
		gen,
		media.NewFetcher(),
		hub,
		sched,
		&config.SunoConfig{Model: "V3_5", CallbackURL: "https://api.example.com/callback"},
		&config.MediaConfig{AudioDir: audioDir, ImageDir: imageDir},
		&config.TrackerConfig{PollIntervalSec: 5, MaxAttempts: maxAttempts},
	)
}

func TestSubmit_CustomMode(t *testing.T) {
	gen := &fakeGenerator{}
	sched := &manualScheduler{}
	svc := newTestService(t, gen, sched, &recorderHub{}, 60)

	resp, err := svc.Submit(context.Background(), &model.GenerateStartRequest{
		Lyrics: "city lights and slow goodbyes",
		Genre:  "synthwave",
		Title:  "Night Drive",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.JobID != "task-1" || resp.Status != model.JobStatusPending {
		t.Errorf("response = %+v, want task-1/pending", resp)
	}

	req := gen.generateReq
	if !req.CustomMode {
		t.Error("CustomMode = false, want true when a genre is given")
	}
	if req.Style != "synthwave" {
		t.Errorf("Style = %q, want synthwave", req.Style)
	}
	if req.Title != "Night Drive" {
		t.Errorf("Title = %q, want Night Drive", req.Title)
	}
	if req.Prompt != "city lights and slow goodbyes" {
		t.Errorf("Prompt = %q", req.Prompt)
	}
	if req.Model != "V3_5" {
		t.Errorf("Model = %q, want V3_5", req.Model)
	}
	if req.CallBackURL != "https://api.example.com/callback" {
		t.Errorf("CallBackURL = %q", req.CallBackURL)
	}

	if sched.pendingCount() != 1 {
		t.Errorf("pending timers = %d, want 1 after submit", sched.pendingCount())
	}
}

func TestSubmit_SimpleModeTruncates(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(t, gen, &manualScheduler{}, &recorderHub{}, 60)

	long := strings.Repeat("a", 800)
	if _, err := svc.Submit(context.Background(), &model.GenerateStartRequest{Lyrics: long}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	req := gen.generateReq
	if req.CustomMode {
		t.Error("CustomMode = true, want false without a genre")
	}
	if len(req.Prompt) != 500 {
		t.Errorf("len(Prompt) = %d, want 500", len(req.Prompt))
	}
	if req.Title != "" {
		t.Errorf("Title = %q, want empty in simple mode", req.Title)
	}
}

func TestSubmit_SimpleModeTruncatesMultiByte(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(t, gen, &manualScheduler{}, &recorderHub{}, 60)

	long := strings.Repeat("歌", 600)
	if _, err := svc.Submit(context.Background(), &model.GenerateStartRequest{Lyrics: long}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	prompt := gen.generateReq.Prompt
	if n := utf8.RuneCountInString(prompt); n != 500 {
		t.Errorf("rune count = %d, want 500", n)
	}
	if !utf8.ValidString(prompt) {
		t.Error("truncated prompt is not valid UTF-8")
	}
}

func TestSubmit_DefaultTitle(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(t, gen, &manualScheduler{}, &recorderHub{}, 60)

	if _, err := svc.Submit(context.Background(), &model.GenerateStartRequest{
		Lyrics: "hello",
		Genre:  "pop",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gen.generateReq.Title != "Untitled" {
		t.Errorf("Title = %q, want Untitled", gen.generateReq.Title)
	}
}

func TestSubmit_EmptyLyrics(t *testing.T) {
	gen := &fakeGenerator{}
	sched := &manualScheduler{}
	svc := newTestService(t, gen, sched, &recorderHub{}, 60)

	_, err := svc.Submit(context.Background(), &model.GenerateStartRequest{Lyrics: "   "})
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("err = %v, want *SubmitError", err)
	}
	if gen.generateReq != nil {
		t.Error("upstream Generate was called for an empty prompt")
	}
	if sched.pendingCount() != 0 {
		t.Error("a poll timer was armed for a rejected submission")
	}
}

func TestSubmit_UpstreamFailure(t *testing.T) {
	upstream := errors.New("suno API error (code 429): rate limited")
	gen := &fakeGenerator{generateErr: upstream}
	svc := newTestService(t, gen, &manualScheduler{}, &recorderHub{}, 60)

	_, err := svc.Submit(context.Background(), &model.GenerateStartRequest{Lyrics: "hello"})
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("err = %v, want *SubmitError", err)
	}
	if !errors.Is(err, upstream) {
		t.Errorf("SubmitError does not wrap the upstream error: %v", err)
	}
}

func TestStatus_UnknownJob(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{}, &manualScheduler{}, &recorderHub{}, 60)
	if _, err := svc.Status("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestPoll_PendingReschedules(t *testing.T) {
	gen := &fakeGenerator{
		recordFn: func(string) (*client.TaskRecord, error) {
			return &client.TaskRecord{Status: client.TaskStatusGenerating}, nil
		},
	}
	sched := &manualScheduler{}
	hub := &recorderHub{}
	svc := newTestService(t, gen, sched, hub, 60)

	resp, err := svc.Submit(context.Background(), &model.GenerateStartRequest{Lyrics: "hello"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if !sched.fire() {
		t.Fatal("no poll timer was armed")
	}

	events := hub.events()
	if len(events) != 1 || events[0].status.Status != model.JobStatusPending {
		t.Errorf("events = %+v, want one pending update", events)
	}
	if sched.pendingCount() != 1 {
		t.Errorf("pending timers = %d, want 1 (rescheduled)", sched.pendingCount())
	}

	status, err := svc.Status(resp.JobID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != model.JobStatusPending {
		t.Errorf("Status = %q, want pending", status.Status)
	}
}

func TestPoll_FailedDeregisters(t *testing.T) {
	gen := &fakeGenerator{
		recordFn: func(string) (*client.TaskRecord, error) {
			return &client.TaskRecord{
				Status:       client.TaskStatusGenerateFailed,
				ErrorMessage: "generation backend unavailable",
			}, nil
		},
	}
	sched := &manualScheduler{}
	hub := &recorderHub{}
	svc := newTestService(t, gen, sched, hub, 60)

	resp, err := svc.Submit(context.Background(), &model.GenerateStartRequest{Lyrics: "hello"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	sched.fire()

	events := hub.events()
	if len(events) != 1 {
		t.Fatalf("events = %+v, want exactly one", events)
	}
	if events[0].status.Status != model.JobStatusFailed {
		t.Errorf("Status = %q, want failed", events[0].status.Status)
	}
	if events[0].status.Error != "generation backend unavailable" {
		t.Errorf("Error = %q", events[0].status.Error)
	}
	if sched.pendingCount() != 0 {
		t.Error("terminal job was rescheduled")
	}
	if _, err := svc.Status(resp.JobID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Status after terminal = %v, want ErrJobNotFound", err)
	}
}

func TestPoll_TransportErrorsAreSilentUntilCap(t *testing.T) {
	gen := &fakeGenerator{
		recordFn: func(string) (*client.TaskRecord, error) {
			return nil, errors.New("connection refused")
		},
	}
	sched := &manualScheduler{}
	hub := &recorderHub{}
	svc := newTestService(t, gen, sched, hub, 3)

	resp, err := svc.Submit(context.Background(), &model.GenerateStartRequest{Lyrics: "hello"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// First two failures retry without publishing anything
	sched.fire()
	sched.fire()
	if got := hub.events(); len(got) != 0 {
		t.Fatalf("events after %d failures = %+v, want none", 2, got)
	}

	// Third failure hits the attempt cap: one synthetic failed event
	sched.fire()
	if gen.calls() != 3 {
		t.Errorf("RecordInfo calls = %d, want 3", gen.calls())
	}
	events := hub.events()
	if len(events) != 1 {
		t.Fatalf("events = %+v, want exactly one", events)
	}
	want := model.NormalizedStatus{Status: model.JobStatusFailed, Error: genericFailureMessage}
	if !reflect.DeepEqual(events[0].status, want) {
		t.Errorf("synthetic status = %+v, want %+v", events[0].status, want)
	}
	if sched.pendingCount() != 0 {
		t.Error("job was rescheduled past the attempt cap")
	}
	if _, err := svc.Status(resp.JobID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Status after cap = %v, want ErrJobNotFound", err)
	}
}

func TestPoll_CompletedDownloadsArtifacts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a.mp3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "fake mp3 bytes")
	})
	mux.HandleFunc("/a.jpg", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "fake jpg bytes")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	gen := &fakeGenerator{
		recordFn: func(string) (*client.TaskRecord, error) {
			return &client.TaskRecord{
				Status: client.TaskStatusSuccess,
				Response: client.TaskTracks{
					SunoData: []client.Track{
						{ID: "t1", AudioURL: srv.URL + "/a.mp3", ImageURL: srv.URL + "/a.jpg", Duration: 180},
					},
				},
			}, nil
		},
	}
	sched := &manualScheduler{}
	hub := &recorderHub{}
	svc := newTestService(t, gen, sched, hub, 60)

	if _, err := svc.Submit(context.Background(), &model.GenerateStartRequest{
		Lyrics: "hello",
		Genre:  "pop",
		Title:  "Test",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	sched.fire()

	// Completion is published twice: once as soon as the upstream reports
	// success, then again after the download attempt with local URLs
	events := hub.events()
	if len(events) != 2 {
		t.Fatalf("events = %+v, want two (completed, then with local URLs)", events)
	}

	first := events[0].status
	if first.Status != model.JobStatusCompleted {
		t.Errorf("first Status = %q, want completed", first.Status)
	}
	if first.LocalURLs != nil {
		t.Errorf("first LocalURLs = %v, want none before the download", first.LocalURLs)
	}
	if want := []string{srv.URL + "/a.mp3"}; !reflect.DeepEqual(first.AudioURLs, want) {
		t.Errorf("first AudioURLs = %v, want %v", first.AudioURLs, want)
	}

	second := events[1].status
	if second.Status != model.JobStatusCompleted {
		t.Errorf("second Status = %q, want completed", second.Status)
	}
	if want := []string{"/mp3s/Test_1.mp3"}; !reflect.DeepEqual(second.LocalURLs, want) {
		t.Errorf("second LocalURLs = %v, want %v", second.LocalURLs, want)
	}
	if want := []string{"/covers/Test_1.jpg"}; !reflect.DeepEqual(second.ImageURLs, want) {
		t.Errorf("second ImageURLs = %v, want %v", second.ImageURLs, want)
	}
	if want := []string{srv.URL + "/a.mp3"}; !reflect.DeepEqual(second.AudioURLs, want) {
		t.Errorf("second AudioURLs = %v, want %v", second.AudioURLs, want)
	}

	if _, err := os.Stat(filepath.Join(svc.audioDir, "Test_1.mp3")); err != nil {
		t.Errorf("downloaded audio file missing: %v", err)
	}
}

func TestPoll_DownloadFailureKeepsRemoteURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	gen := &fakeGenerator{
		recordFn: func(string) (*client.TaskRecord, error) {
			return &client.TaskRecord{
				Status: client.TaskStatusSuccess,
				Response: client.TaskTracks{
					SunoData: []client.Track{
						{ID: "t1", AudioURL: srv.URL + "/a.mp3"},
					},
				},
			}, nil
		},
	}
	sched := &manualScheduler{}
	hub := &recorderHub{}
	svc := newTestService(t, gen, sched, hub, 60)

	if _, err := svc.Submit(context.Background(), &model.GenerateStartRequest{Lyrics: "hello"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	sched.fire()

	events := hub.events()
	if len(events) != 2 {
		t.Fatalf("events = %+v, want two", events)
	}
	got := events[1].status
	if got.Status != model.JobStatusCompleted {
		t.Errorf("Status = %q, want completed even when download fails", got.Status)
	}
	if got.LocalURLs != nil {
		t.Errorf("LocalURLs = %v, want none after a failed download", got.LocalURLs)
	}
	if want := []string{srv.URL + "/a.mp3"}; !reflect.DeepEqual(got.AudioURLs, want) {
		t.Errorf("AudioURLs = %v, want remote URLs preserved", got.AudioURLs)
	}
}

func TestPoll_PendingAtCapForceFails(t *testing.T) {
	gen := &fakeGenerator{
		recordFn: func(string) (*client.TaskRecord, error) {
			return &client.TaskRecord{Status: client.TaskStatusGenerating}, nil
		},
	}
	sched := &manualScheduler{}
	hub := &recorderHub{}
	svc := newTestService(t, gen, sched, hub, 2)

	resp, err := svc.Submit(context.Background(), &model.GenerateStartRequest{Lyrics: "hello"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sched.fire()
	sched.fire()

	if gen.calls() != 2 {
		t.Errorf("RecordInfo calls = %d, want 2", gen.calls())
	}
	events := hub.events()
	if len(events) != 3 {
		t.Fatalf("events = %+v, want pending, pending, failed", events)
	}
	last := events[2].status
	if last.Status != model.JobStatusFailed || last.Error != genericFailureMessage {
		t.Errorf("final event = %+v, want synthetic failed", last)
	}
	if sched.pendingCount() != 0 {
		t.Error("job was rescheduled past the attempt cap")
	}
	if _, err := svc.Status(resp.JobID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Status after cap = %v, want ErrJobNotFound", err)
	}
}
