package domain

import "time"

// Question is a single survey prompt with a closed set of answer options.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// QuestionSet is the ordered question sequence presented during one survey.
type QuestionSet struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Reward is the payout promised for completing a survey.
type Reward struct {
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

// Character is the static assistant persona sent with a new survey.
type Character struct {
	Name     string `json:"name"`
	VoiceID  string `json:"voice_id"`
	Greeting string `json:"greeting"`
}

// SurveySession tracks one player's progress through a question sequence.
// CurrentQuestion ranges over [0, question count]; reaching the count means
// the survey is complete. Responses never holds an index the session has not
// reached. The struct is JSON-serializable so stores can persist it as-is.
type SurveySession struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	GameID          string         `json:"gameId"`
	QuestionSetID   string         `json:"questionSetId"`
	RewardType      string         `json:"rewardType"`
	RewardAmount    int            `json:"rewardAmount"`
	Responses       map[int]string `json:"responses"`
	CurrentQuestion int            `json:"currentQuestion"`
	StartTime       time.Time      `json:"startTime"`
}

// NextQuestion is the question payload returned after an accepted answer.
type NextQuestion struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SpeechResult describes one synthesized audio artifact.
type SpeechResult struct {
	AudioID         string
	Filename        string
	Text            string
	DurationSeconds int
}

const (
	// DefaultRewardType and DefaultRewardAmount apply when the caller does
	// not override the payout.
	DefaultRewardType   = "coins"
	DefaultRewardAmount = 500

	// DefaultQuestionSetID is the built-in sequence used for games without
	// a custom set.
	DefaultQuestionSetID = "default"
)

// DefaultQuestionSet returns the built-in three-question sequence.
func DefaultQuestionSet() QuestionSet {
	return QuestionSet{
		ID: DefaultQuestionSetID,
		Questions: []Question{
			{
				Text:    "What's your primary video streaming service?",
				Options: []string{"Netflix", "YouTube", "Amazon Prime", "Spotify"},
			},
			{
				Text:    "How do you most often pay for things?",
				Options: []string{"Credit Card", "Debit Card", "Mobile Payment", "Cash"},
			},
			{
				Text:    "Which of these is the cutest?",
				Options: []string{"Baby pandas", "Baby elephants", "The Octocat", "Puppies"},
			},
		},
	}
}

// DefaultCharacter returns the assistant persona with the given voice.
func DefaultCharacter(voiceID string) Character {
	return Character{
		Name:     "Louis",
		VoiceID:  voiceID,
		Greeting: "Hey there! 👋 I'm Louis, your AI survey assistant! I'm here to ask you a few basic questions and I'd really love to get your honest answers. It's super quick and you'll earn some awesome coins! Are you ready to help me out?",
	}
}
