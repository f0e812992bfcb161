package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
)

// TaskTypeMixtape is the asynq task type for mixtape assembly
const TaskTypeMixtape = "mixtape:assemble"

// SongStore is the slice of the record store the orchestrator needs
type SongStore interface {
	ListSongs(ctx context.Context) ([]model.Song, error)
	GetSong(ctx context.Context, id string) (*model.Song, error)
}

// TaskEnqueuer submits background tasks. Satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// MixtapeService resolves a song set and hands assembly off to the task
// queue. The HTTP request returns a task ID immediately; the outcome
// arrives later as a mixtape-ready event.
type MixtapeService struct {
	store    SongStore
	enqueuer TaskEnqueuer
	hub      EventPublisher
	audioDir string
}

func NewMixtapeService(store SongStore, enqueuer TaskEnqueuer, hub EventPublisher, audioDir string) *MixtapeService {
	return &MixtapeService{
		store:    store,
		enqueuer: enqueuer,
		hub:      hub,
		audioDir: audioDir,
	}
}

// GenerateFromLiked assembles a mixtape from every liked song that has a
// local audio file, oldest first. An empty selection publishes a failure
// event immediately; the concatenator is never invoked.
func (s *MixtapeService) GenerateFromLiked(ctx context.Context) (*model.MixtapeStartResponse, error) {
	taskID := uuid.New().String()

	songs, err := s.store.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve liked songs: %w", err)
	}

	var items []model.MixtapeItem
	for _, song := range songs {
		if song.Feedback != model.FeedbackUp || song.AudioFile == "" {
			continue
		}
		items = append(items, model.MixtapeItem{
			Title: song.Title,
			Path:  filepath.Join(s.audioDir, song.AudioFile),
		})
	}

	if len(items) == 0 {
		s.hub.BroadcastMixtapeReady(taskID, "", "No liked songs found")
		return &model.MixtapeStartResponse{TaskID: taskID}, nil
	}

	return s.enqueue(taskID, "Liked Songs", items)
}

// GenerateCustom assembles a mixtape from an explicit ordered song-ID
// list, preserving the caller's order. IDs that resolve to nothing or to
// songs without local audio are skipped.
func (s *MixtapeService) GenerateCustom(ctx context.Context, songIDs []string, name string) (*model.MixtapeStartResponse, error) {
	taskID := uuid.New().String()

	var items []model.MixtapeItem
	for _, id := range songIDs {
		song, err := s.store.GetSong(ctx, id)
		if errors.Is(err, ErrSongNotFound) {
			log.Printf("Mixtape %s: song %s not found, skipping", taskID, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve song %s: %w", id, err)
		}
		if song.AudioFile == "" {
			continue
		}
		items = append(items, model.MixtapeItem{
			Title: song.Title,
			Path:  filepath.Join(s.audioDir, song.AudioFile),
		})
	}

	if len(items) == 0 {
		s.hub.BroadcastMixtapeReady(taskID, "", "No songs found")
		return &model.MixtapeStartResponse{TaskID: taskID}, nil
	}

	return s.enqueue(taskID, name, items)
}

func (s *MixtapeService) enqueue(taskID, name string, items []model.MixtapeItem) (*model.MixtapeStartResponse, error) {
	payload, err := json.Marshal(&model.MixtapeJobPayload{
		TaskID: taskID,
		Name:   name,
		Items:  items,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mixtape payload: %w", err)
	}

	// Failures are reported over the push channel, so retrying would
	// double-publish; one attempt only.
	_, err = s.enqueuer.Enqueue(
		asynq.NewTask(TaskTypeMixtape, payload),
		asynq.Queue("mixtape"),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue mixtape task: %w", err)
	}

	log.Printf("Mixtape task %s queued (%d tracks)", taskID, len(items))
	return &model.MixtapeStartResponse{TaskID: taskID}, nil
}
