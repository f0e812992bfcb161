package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/client"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
)

const lyricsSystemPrompt = `You are a songwriter. Write complete song lyrics for the topic the user gives you.
Structure the song with [Verse], [Chorus] and optionally [Bridge] section markers.
Reply with the lyrics only, no commentary.`

// LyricsService generates song lyrics with a single blocking AI call.
// There is no job lifecycle here; slow-generation tracking only applies
// to the music pipeline.
type LyricsService struct {
	groqClient *client.GroqClient
}

func NewLyricsService(groqClient *client.GroqClient) *LyricsService {
	return &LyricsService{groqClient: groqClient}
}

// Generate creates lyrics for a prompt. Falls back to a canned response
// when no AI credential is configured, so development works offline.
func (s *LyricsService) Generate(ctx context.Context, req *model.LyricsGenerateRequest) (*model.LyricsGenerateResponse, error) {
	if s.groqClient == nil || !s.groqClient.IsConfigured() {
		return s.generateMock(req), nil
	}

	userPrompt := req.Prompt
	if req.Genre != "" {
		userPrompt = fmt.Sprintf("%s\n\nGenre: %s", req.Prompt, req.Genre)
	}

	text, err := s.groqClient.ChatCompletion(ctx, lyricsSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("AI generation failed: %w", err)
	}

	return &model.LyricsGenerateResponse{
		Lyrics: strings.TrimSpace(text),
	}, nil
}

func (s *LyricsService) generateMock(req *model.LyricsGenerateRequest) *model.LyricsGenerateResponse {
	topic := strings.TrimSpace(req.Prompt)
	return &model.LyricsGenerateResponse{
		Title: "Demo Song",
		Lyrics: fmt.Sprintf(`[Verse]
Thinking about %s tonight
Words are falling into place
Every line a little light
Shining on an empty page

[Chorus]
Sing it out, sing it loud
This is just a demo now
When the real words come around
We will write them down`, topic),
	}
}
