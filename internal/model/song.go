package model

import "time"

// Feedback values for a song
type Feedback string

const (
	FeedbackUp   Feedback = "up"
	FeedbackDown Feedback = "down"
	FeedbackNone Feedback = ""
)

// Song represents a generated or uploaded track in the user's library
type Song struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Lyrics    string    `json:"lyrics,omitempty"`
	Genre     string    `json:"genre,omitempty"`
	Feedback  Feedback  `json:"feedback,omitempty"`
	AudioFile string    `json:"audioFile,omitempty"`
	ImageFile string    `json:"imageFile,omitempty"`
	JobID     string    `json:"jobId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SongCreateRequest is the payload for creating a library entry
type SongCreateRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Lyrics    string `json:"lyrics,omitempty"`
	Genre     string `json:"genre,omitempty" validate:"max=100"`
	AudioFile string `json:"audioFile,omitempty"`
	ImageFile string `json:"imageFile,omitempty"`
	JobID     string `json:"jobId,omitempty"`
}

// SongUpdateRequest is a partial update; nil fields are left untouched
type SongUpdateRequest struct {
	Title     *string   `json:"title,omitempty"`
	Lyrics    *string   `json:"lyrics,omitempty"`
	Genre     *string   `json:"genre,omitempty"`
	Feedback  *Feedback `json:"feedback,omitempty"`
	AudioFile *string   `json:"audioFile,omitempty"`
	ImageFile *string   `json:"imageFile,omitempty"`
}

// GenreRecord is a user-defined style preset
type GenreRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// GenreCreateRequest is the payload for creating a genre preset
type GenreCreateRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Playlist is an ordered collection of song IDs
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SongIDs   []string  `json:"songIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlaylistCreateRequest is the payload for creating a playlist
type PlaylistCreateRequest struct {
	Name    string   `json:"name" validate:"required,max=200"`
	SongIDs []string `json:"songIds,omitempty"`
}

// PlaylistUpdateRequest renames a playlist and/or replaces its song order
type PlaylistUpdateRequest struct {
	Name    *string   `json:"name,omitempty"`
	SongIDs *[]string `json:"songIds,omitempty"`
}
