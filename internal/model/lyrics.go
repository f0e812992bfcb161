package model

// LyricsGenerateRequest is the payload for AI lyrics generation
type LyricsGenerateRequest struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
	Genre  string `json:"genre,omitempty" validate:"max=200"`
}

// LyricsGenerateResponse carries the generated lyrics text
type LyricsGenerateResponse struct {
	Title  string `json:"title,omitempty"`
	Lyrics string `json:"lyrics"`
}
