package app

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"insight-survey-service/internal/domain"
)

// SessionRepository abstracts how survey sessions are stored (in-memory, Redis, etc).
// Save is used for both creation and update; implementations refresh any TTL on write.
type SessionRepository interface {
	Save(ctx context.Context, session domain.SurveySession) error
	Get(ctx context.Context, id string) (domain.SurveySession, error)
	Count(ctx context.Context) (int, error)
}

// QuestionRepository loads question content (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error)
}

// StartRequest carries the fields of a survey-start call.
type StartRequest struct {
	UserID       string
	GameID       string
	RewardType   string
	RewardAmount int
}

// StartResult is the payload for a freshly created survey.
type StartResult struct {
	SurveyID  string             `json:"surveyId"`
	Questions []domain.Question  `json:"questions"`
	Character domain.Character   `json:"character"`
	Reward    domain.Reward      `json:"reward"`
}

// AnswerRequest carries the fields of an answer submission.
type AnswerRequest struct {
	SurveyID      string
	QuestionIndex int
	Answer        string
}

// AnswerResult is either the next question or the completion payload.
type AnswerResult struct {
	Completed    bool                 `json:"completed"`
	NextQuestion *domain.NextQuestion `json:"nextQuestion,omitempty"`
	Message      string               `json:"message,omitempty"`
	Reward       *domain.Reward       `json:"reward,omitempty"`
}

const sessionLockStripes = 64

// SurveyService contains the survey flow use cases: start a survey, advance
// it answer by answer, and pay out on completion.
type SurveyService struct {
	sessions  SessionRepository
	questions QuestionRepository
	character domain.Character
	reward    domain.Reward
	newID     func() string

	// Striped locks serialize read-modify-write cycles per session so two
	// concurrent submissions for the same survey cannot lose an update.
	// Stripes bound memory; a collision only serializes unrelated sessions.
	locks [sessionLockStripes]sync.Mutex
}

func NewSurveyService(store SessionRepository, questions QuestionRepository, character domain.Character, reward domain.Reward) *SurveyService {
	if reward.Type == "" {
		reward.Type = domain.DefaultRewardType
	}
	if reward.Amount == 0 {
		reward.Amount = domain.DefaultRewardAmount
	}
	return &SurveyService{
		sessions:  store,
		questions: questions,
		character: character,
		reward:    reward,
		newID:     NewSurveyID,
	}
}

// Start creates a session and returns the full question sequence with the
// greeting and reward contract. Games without a custom question set get the
// built-in default sequence.
func (s *SurveyService) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	if err := requireFields(
		field{"userId", req.UserID},
		field{"gameId", req.GameID},
	); err != nil {
		return StartResult{}, err
	}

	set, err := s.questionSetForGame(ctx, req.GameID)
	if err != nil {
		return StartResult{}, err
	}

	reward := s.reward
	if req.RewardType != "" {
		reward.Type = req.RewardType
	}
	if req.RewardAmount > 0 {
		reward.Amount = req.RewardAmount
	}

	session := domain.SurveySession{
		ID:              s.newID(),
		UserID:          req.UserID,
		GameID:          req.GameID,
		QuestionSetID:   set.ID,
		RewardType:      reward.Type,
		RewardAmount:    reward.Amount,
		Responses:       make(map[int]string),
		CurrentQuestion: 0,
		StartTime:       timeNow(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return StartResult{}, fmt.Errorf("save session: %w", err)
	}

	return StartResult{
		SurveyID:  session.ID,
		Questions: set.Questions,
		Character: s.character,
		Reward:    reward,
	}, nil
}

// SubmitAnswer records an answer and advances the session. Progression is
// server-authoritative: the submitted index must match the session's expected
// question, so a client cannot skip, rewind, or answer past completion.
func (s *SurveyService) SubmitAnswer(ctx context.Context, req AnswerRequest) (AnswerResult, error) {
	if err := requireFields(
		field{"surveyId", req.SurveyID},
		field{"answer", req.Answer},
	); err != nil {
		return AnswerResult{}, err
	}
	if req.QuestionIndex < 0 {
		return AnswerResult{}, domain.Validationf("questionIndex must not be negative")
	}

	lock := s.sessionLock(req.SurveyID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.Get(ctx, req.SurveyID)
	if err != nil {
		return AnswerResult{}, err
	}

	set, err := s.questions.GetQuestionSet(ctx, session.QuestionSetID)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("load question set %q: %w", session.QuestionSetID, err)
	}
	total := len(set.Questions)

	if session.CurrentQuestion >= total {
		return AnswerResult{}, domain.Validationf("survey already completed")
	}
	if req.QuestionIndex != session.CurrentQuestion {
		return AnswerResult{}, domain.Validationf("questionIndex %d does not match expected question %d", req.QuestionIndex, session.CurrentQuestion)
	}

	if session.Responses == nil {
		session.Responses = make(map[int]string)
	}
	session.Responses[req.QuestionIndex] = req.Answer
	session.CurrentQuestion = req.QuestionIndex + 1
	if err := s.sessions.Save(ctx, session); err != nil {
		return AnswerResult{}, fmt.Errorf("save session: %w", err)
	}

	if session.CurrentQuestion >= total {
		reward := domain.Reward{Type: session.RewardType, Amount: session.RewardAmount}
		return AnswerResult{
			Completed: true,
			Message:   fmt.Sprintf("Perfect! Thanks for answering my questions. Here are your %d %s! 🎉", reward.Amount, reward.Type),
			Reward:    &reward,
		}, nil
	}

	next := set.Questions[session.CurrentQuestion]
	return AnswerResult{
		Completed: false,
		NextQuestion: &domain.NextQuestion{
			Index:   session.CurrentQuestion,
			Text:    next.Text,
			Options: next.Options,
		},
	}, nil
}

// ActiveSessions reports the number of live sessions for health checks.
func (s *SurveyService) ActiveSessions(ctx context.Context) (int, error) {
	return s.sessions.Count(ctx)
}

func (s *SurveyService) questionSetForGame(ctx context.Context, gameID string) (domain.QuestionSet, error) {
	set, err := s.questions.GetQuestionSet(ctx, gameID)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, domain.ErrQuestionSetNotFound) {
		return domain.QuestionSet{}, fmt.Errorf("load question set for game %q: %w", gameID, err)
	}
	set, err = s.questions.GetQuestionSet(ctx, domain.DefaultQuestionSetID)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load default question set: %w", err)
	}
	return set, nil
}

func (s *SurveyService) sessionLock(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.locks[h.Sum32()%sessionLockStripes]
}

type field struct {
	name  string
	value string
}

// requireFields returns a ValidationError naming every missing field, in the
// order the fields were declared.
func requireFields(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return domain.Validationf("%s is required", missing[0])
	default:
		return domain.Validationf("%s are required", strings.Join(missing, " and "))
	}
}
