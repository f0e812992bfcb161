package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
)

var (
	ErrSongNotFound     = errors.New("song not found")
	ErrGenreNotFound    = errors.New("genre not found")
	ErrPlaylistNotFound = errors.New("playlist not found")
)

const (
	songKeyPrefix     = "song:"
	songIndexKey      = "songs:index"
	genreKeyPrefix    = "genre:"
	genreIndexKey     = "genres:index"
	playlistKeyPrefix = "playlist:"
	playlistIndexKey  = "playlists:index"
)

// LibraryService is the persisted record store for songs, genre presets
// and playlists. Records are stored as JSON blobs keyed by ID with a set
// index per record type.
type LibraryService struct {
	redis *redis.Client
}

func NewLibraryService(redisClient *redis.Client) *LibraryService {
	return &LibraryService{redis: redisClient}
}

// Songs

func (s *LibraryService) CreateSong(ctx context.Context, req *model.SongCreateRequest) (*model.Song, error) {
	now := time.Now()
	song := &model.Song{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Lyrics:    req.Lyrics,
		Genre:     req.Genre,
		AudioFile: req.AudioFile,
		ImageFile: req.ImageFile,
		JobID:     req.JobID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.saveSong(ctx, song); err != nil {
		return nil, err
	}
	if err := s.redis.SAdd(ctx, songIndexKey, song.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to index song: %w", err)
	}
	return song, nil
}

// ListSongs returns every song, oldest first
func (s *LibraryService) ListSongs(ctx context.Context) ([]model.Song, error) {
	ids, err := s.redis.SMembers(ctx, songIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	songs := make([]model.Song, 0, len(ids))
	for _, id := range ids {
		song, err := s.GetSong(ctx, id)
		if errors.Is(err, ErrSongNotFound) {
			continue // index entry for a deleted record
		}
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}

	sort.Slice(songs, func(i, j int) bool {
		return songs[i].CreatedAt.Before(songs[j].CreatedAt)
	})
	return songs, nil
}

func (s *LibraryService) GetSong(ctx context.Context, id string) (*model.Song, error) {
	data, err := s.redis.Get(ctx, songKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("failed to load song: %w", err)
	}

	var song model.Song
	if err := json.Unmarshal(data, &song); err != nil {
		return nil, fmt.Errorf("failed to unmarshal song: %w", err)
	}
	return &song, nil
}

func (s *LibraryService) UpdateSong(ctx context.Context, id string, req *model.SongUpdateRequest) (*model.Song, error) {
	song, err := s.GetSong(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		song.Title = *req.Title
	}
	if req.Lyrics != nil {
		song.Lyrics = *req.Lyrics
	}
	if req.Genre != nil {
		song.Genre = *req.Genre
	}
	if req.Feedback != nil {
		song.Feedback = *req.Feedback
	}
	if req.AudioFile != nil {
		song.AudioFile = *req.AudioFile
	}
	if req.ImageFile != nil {
		song.ImageFile = *req.ImageFile
	}
	song.UpdatedAt = time.Now()

	if err := s.saveSong(ctx, song); err != nil {
		return nil, err
	}
	return song, nil
}

func (s *LibraryService) DeleteSong(ctx context.Context, id string) error {
	if _, err := s.GetSong(ctx, id); err != nil {
		return err
	}
	if err := s.redis.Del(ctx, songKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	return s.redis.SRem(ctx, songIndexKey, id).Err()
}

func (s *LibraryService) saveSong(ctx context.Context, song *model.Song) error {
	data, err := json.Marshal(song)
	if err != nil {
		return fmt.Errorf("failed to marshal song: %w", err)
	}
	return s.redis.Set(ctx, songKeyPrefix+song.ID, data, 0).Err()
}

// Genres

func (s *LibraryService) CreateGenre(ctx context.Context, req *model.GenreCreateRequest) (*model.GenreRecord, error) {
	genre := &model.GenreRecord{
		ID:        uuid.New().String(),
		Name:      req.Name,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(genre)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal genre: %w", err)
	}
	if err := s.redis.Set(ctx, genreKeyPrefix+genre.ID, data, 0).Err(); err != nil {
		return nil, err
	}
	if err := s.redis.SAdd(ctx, genreIndexKey, genre.ID).Err(); err != nil {
		return nil, err
	}
	return genre, nil
}

func (s *LibraryService) ListGenres(ctx context.Context) ([]model.GenreRecord, error) {
	ids, err := s.redis.SMembers(ctx, genreIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}

	genres := make([]model.GenreRecord, 0, len(ids))
	for _, id := range ids {
		data, err := s.redis.Get(ctx, genreKeyPrefix+id).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var genre model.GenreRecord
		if err := json.Unmarshal(data, &genre); err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}

	sort.Slice(genres, func(i, j int) bool {
		return genres[i].CreatedAt.Before(genres[j].CreatedAt)
	})
	return genres, nil
}

func (s *LibraryService) DeleteGenre(ctx context.Context, id string) error {
	n, err := s.redis.Del(ctx, genreKeyPrefix+id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrGenreNotFound
	}
	return s.redis.SRem(ctx, genreIndexKey, id).Err()
}

// Playlists

func (s *LibraryService) CreatePlaylist(ctx context.Context, req *model.PlaylistCreateRequest) (*model.Playlist, error) {
	now := time.Now()
	pl := &model.Playlist{
		ID:        uuid.New().String(),
		Name:      req.Name,
		SongIDs:   req.SongIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pl.SongIDs == nil {
		pl.SongIDs = []string{}
	}
	if err := s.savePlaylist(ctx, pl); err != nil {
		return nil, err
	}
	if err := s.redis.SAdd(ctx, playlistIndexKey, pl.ID).Err(); err != nil {
		return nil, err
	}
	return pl, nil
}

func (s *LibraryService) ListPlaylists(ctx context.Context) ([]model.Playlist, error) {
	ids, err := s.redis.SMembers(ctx, playlistIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	playlists := make([]model.Playlist, 0, len(ids))
	for _, id := range ids {
		pl, err := s.GetPlaylist(ctx, id)
		if errors.Is(err, ErrPlaylistNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *pl)
	}

	sort.Slice(playlists, func(i, j int) bool {
		return playlists[i].CreatedAt.Before(playlists[j].CreatedAt)
	})
	return playlists, nil
}

func (s *LibraryService) GetPlaylist(ctx context.Context, id string) (*model.Playlist, error) {
	data, err := s.redis.Get(ctx, playlistKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}

	var pl model.Playlist
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal playlist: %w", err)
	}
	return &pl, nil
}

func (s *LibraryService) UpdatePlaylist(ctx context.Context, id string, req *model.PlaylistUpdateRequest) (*model.Playlist, error) {
	pl, err := s.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		pl.Name = *req.Name
	}
	if req.SongIDs != nil {
		pl.SongIDs = *req.SongIDs
	}
	pl.UpdatedAt = time.Now()

	if err := s.savePlaylist(ctx, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

func (s *LibraryService) DeletePlaylist(ctx context.Context, id string) error {
	if _, err := s.GetPlaylist(ctx, id); err != nil {
		return err
	}
	if err := s.redis.Del(ctx, playlistKeyPrefix+id).Err(); err != nil {
		return err
	}
	return s.redis.SRem(ctx, playlistIndexKey, id).Err()
}

func (s *LibraryService) savePlaylist(ctx context.Context, pl *model.Playlist) error {
	data, err := json.Marshal(pl)
	if err != nil {
		return fmt.Errorf("failed to marshal playlist: %w", err)
	}
	return s.redis.Set(ctx, playlistKeyPrefix+pl.ID, data, 0).Err()
}
