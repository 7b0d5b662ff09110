package app

import (
	"context"
	"fmt"
	"math"

	"insight-survey-service/internal/domain"
)

// Synthesizer converts text to audio bytes via the external provider.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioStore persists synthesized audio under an id and returns the filename
// it can later be served as.
type AudioStore interface {
	Put(id string, data []byte) (string, error)
}

// SpeechService bridges display text to a servable audio file. Every call is
// independent: identical text synthesizes again and produces a fresh file.
type SpeechService struct {
	synth Synthesizer
	store AudioStore
	newID func() string
}

func NewSpeechService(synth Synthesizer, store AudioStore) *SpeechService {
	return &SpeechService{synth: synth, store: store, newID: NewAudioID}
}

// Speak synthesizes text and writes the audio to the store. The survey id is
// accepted for parity with the wire contract but does not affect synthesis.
func (s *SpeechService) Speak(ctx context.Context, text, surveyID string) (domain.SpeechResult, error) {
	if text == "" {
		return domain.SpeechResult{}, domain.Validationf("text is required")
	}

	data, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return domain.SpeechResult{}, err
	}

	audioID := s.newID()
	filename, err := s.store.Put(audioID, data)
	if err != nil {
		return domain.SpeechResult{}, fmt.Errorf("save audio: %w", err)
	}

	return domain.SpeechResult{
		AudioID:         audioID,
		Filename:        filename,
		Text:            text,
		DurationSeconds: EstimateDuration(text),
	}, nil
}

// EstimateDuration approximates playback length in seconds from character
// count (~150 words per minute, ~5 characters per word). It is a heuristic,
// not derived from the audio itself.
func EstimateDuration(text string) int {
	const (
		wordsPerMinute  = 150.0
		avgCharsPerWord = 5.0
	)
	words := float64(len(text)) / avgCharsPerWord
	return int(math.Ceil(words / wordsPerMinute * 60))
}
