package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/client"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/media"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/service"
)

// Assembler merges ordered tracks into one output file. Satisfied by
// *media.Concatenator.
type Assembler interface {
	Concatenate(ctx context.Context, items []media.Item, outputPath string) error
}

// MixtapeWorker assembles queued mixtapes and reports the outcome over
// the push channel. A failure never surfaces technical detail to the
// client; it is logged here and published as a short generic message.
type MixtapeWorker struct {
	concat     Assembler
	hub        service.EventPublisher
	storage    client.StorageClient
	mixtapeDir string
}

// NewMixtapeWorker creates a mixtape worker. storage may be nil; finished
// files are then served from the local filesystem only.
func NewMixtapeWorker(concat Assembler, hub service.EventPublisher, storage client.StorageClient, mixtapeDir string) *MixtapeWorker {
	return &MixtapeWorker{
		concat:     concat,
		hub:        hub,
		storage:    storage,
		mixtapeDir: mixtapeDir,
	}
}

// ProcessTask handles one mixtape assembly task
func (w *MixtapeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.MixtapeJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal mixtape payload: %w", err)
	}

	log.Printf("Assembling mixtape %s (%d tracks)", payload.TaskID, len(payload.Items))

	items := make([]media.Item, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, media.Item{Title: item.Title, Path: item.Path})
	}

	filename := payload.TaskID + ".m4b"
	outputPath := filepath.Join(w.mixtapeDir, filename)

	if err := w.concat.Concatenate(ctx, items, outputPath); err != nil {
		log.Printf("Mixtape %s assembly failed: %v", payload.TaskID, err)
		w.hub.BroadcastMixtapeReady(payload.TaskID, "", "Mixtape assembly failed")
		return err
	}

	downloadURL := "/mixtapes/" + filename
	if w.storage != nil {
		if remote, err := w.uploadMixtape(ctx, filename, outputPath); err != nil {
			log.Printf("Mixtape %s upload failed, serving locally: %v", payload.TaskID, err)
		} else {
			downloadURL = remote
		}
	}

	w.hub.BroadcastMixtapeReady(payload.TaskID, downloadURL, "")
	log.Printf("Mixtape %s ready at %s", payload.TaskID, downloadURL)
	return nil
}

func (w *MixtapeWorker) uploadMixtape(ctx context.Context, filename, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return w.storage.Upload(ctx, "mixtapes/"+filename, f, "audio/mp4")
}
