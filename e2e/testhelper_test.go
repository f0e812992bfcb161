package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/client"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/config"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/handler"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/media"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/service"
)

// testApp holds the app plus the fakes the routes are wired to, so tests
// can both drive requests and inspect side effects.
type testApp struct {
	app  *fiber.App
	suno *fakeSuno
	hub  *recorderHub
	enq  *fakeEnqueuer
}

// fakeSuno is an in-memory stand-in for the generation API
type fakeSuno struct {
	mu          sync.Mutex
	generateErr error
	lastReq     *client.GenerateRequest
	records     map[string]*client.TaskRecord
}

func (f *fakeSuno) Generate(ctx context.Context, req *client.GenerateRequest) (*client.GenerateData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &client.GenerateData{TaskID: "task-e2e-1"}, nil
}

func (f *fakeSuno) RecordInfo(ctx context.Context, taskID string) (*client.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[taskID]; ok {
		return rec, nil
	}
	return &client.TaskRecord{TaskID: taskID, Status: client.TaskStatusPending}, nil
}

// noopScheduler never fires; e2e tests exercise the HTTP surface, not the
// poll loop.
type noopScheduler struct{}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

func (noopScheduler) AfterFunc(d time.Duration, f func()) service.Timer { return noopTimer{} }

type recorderHub struct {
	mu      sync.Mutex
	suno    []string
	mixtape []mixtapeEvent
}

type mixtapeEvent struct {
	taskID      string
	downloadURL string
	errMsg      string
}

func (h *recorderHub) BroadcastSunoUpdate(jobID string, status model.NormalizedStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.suno = append(h.suno, jobID)
}

func (h *recorderHub) BroadcastMixtapeReady(taskID, downloadURL, errMsg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mixtape = append(h.mixtape, mixtapeEvent{taskID: taskID, downloadURL: downloadURL, errMsg: errMsg})
}

func (h *recorderHub) mixtapeEvents() []mixtapeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]mixtapeEvent, len(h.mixtape))
	copy(out, h.mixtape)
	return out
}

type fakeSongStore struct {
	songs []model.Song
}

func (s *fakeSongStore) ListSongs(ctx context.Context) ([]model.Song, error) {
	return s.songs, nil
}

func (s *fakeSongStore) GetSong(ctx context.Context, id string) (*model.Song, error) {
	for i := range s.songs {
		if s.songs[i].ID == id {
			return &s.songs[i], nil
		}
	}
	return nil, service.ErrSongNotFound
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (e *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (e *fakeEnqueuer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// setupApp builds the HTTP surface the way main.go does, with external
// systems replaced by in-memory fakes. songs seeds the mixtape song store.
func setupApp(t *testing.T, songs []model.Song) *testApp {
	t.Helper()

	validate := validator.New()

	suno := &fakeSuno{records: map[string]*client.TaskRecord{}}
	hub := &recorderHub{}
	enq := &fakeEnqueuer{}
	store := &fakeSongStore{songs: songs}

	dir := t.TempDir()

	groqClient := client.NewGroqClient(&config.GroqConfig{}) // no API key, mock fallback

	lyricsService := service.NewLyricsService(groqClient)
	generationService := service.NewGenerationService(
		suno,
		media.NewFetcher(),
		hub,
		noopScheduler{},
		&config.SunoConfig{Model: "V3_5"},
		&config.MediaConfig{AudioDir: dir, ImageDir: dir},
		&config.TrackerConfig{},
	)
	mixtapeService := service.NewMixtapeService(store, enq, hub, dir)

	generateHandler := handler.NewGenerateHandler(generationService, validate)
	mixtapeHandler := handler.NewMixtapeHandler(mixtapeService, validate, dir)
	lyricsHandler := handler.NewLyricsHandler(lyricsService, validate)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	generate := api.Group("/generate")
	generate.Post("/", generateHandler.Start)
	generate.Get("/status/:jobId", generateHandler.Status)

	mixtape := api.Group("/mixtape")
	mixtape.Post("/liked", mixtapeHandler.Liked)
	mixtape.Post("/custom", mixtapeHandler.Custom)
	mixtape.Get("/download/:taskId", mixtapeHandler.Download)

	lyrics := api.Group("/lyrics")
	lyrics.Post("/generate", lyricsHandler.Generate)

	return &testApp{app: app, suno: suno, hub: hub, enq: enq}
}

// doRequest performs an HTTP request against the test app
func doRequest(app *fiber.App, method, path string, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses the response body into a map
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts the error.code field of an error envelope
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	result := parseJSON(t, resp)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got %v", result)
	}
	code, _ := errObj["code"].(string)
	return code
}
