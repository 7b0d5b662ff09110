package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeNow is swapped in tests for deterministic timestamps.
var timeNow = time.Now

// NewSurveyID generates a process-unique survey id combining a millisecond
// timestamp with a random component, e.g. survey_1735689600000_9f2c1a4d7.
func NewSurveyID() string {
	return fmt.Sprintf("survey_%d_%s", timeNow().UnixMilli(), randomSuffix())
}

// NewAudioID generates a unique identifier for one synthesized audio artifact.
func NewAudioID() string {
	return fmt.Sprintf("speech_%d_%s", timeNow().UnixMilli(), randomSuffix())
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
