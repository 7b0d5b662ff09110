package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"insight-survey-service/internal/app"
	"insight-survey-service/internal/domain"
	"insight-survey-service/internal/infra/audio"
)

// Handler exposes the survey REST surface.
type Handler struct {
	surveys            *app.SurveyService
	speech             *app.SpeechService
	audio              *audio.Store
	providerConfigured func() bool
}

func NewHandler(surveys *app.SurveyService, speech *app.SpeechService, audioStore *audio.Store, providerConfigured func() bool) *Handler {
	return &Handler{
		surveys:            surveys,
		speech:             speech,
		audio:              audioStore,
		providerConfigured: providerConfigured,
	}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /test", h.handleTest)
	mux.HandleFunc("POST /api/v1/survey/request", h.handleRequestSurvey)
	mux.HandleFunc("POST /api/v1/survey/speak", h.handleSpeak)
	mux.HandleFunc("POST /api/v1/survey/answer", h.handleAnswer)
	mux.HandleFunc("GET /audio/{file}", h.handleAudio)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.surveys.ActiveSessions(r.Context())
	if err != nil {
		log.Printf("health: count sessions: %v", err)
		count = 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
		"activeSurveys":      count,
		"providerConfigured": h.providerConfigured(),
	})
}

func (h *Handler) handleTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Server is working!"})
}

type startRequest struct {
	UserID       string `json:"userId"`
	GameID       string `json:"gameId"`
	RewardType   string `json:"rewardType"`
	RewardAmount int    `json:"rewardAmount"`
}

func (h *Handler) handleRequestSurvey(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Validationf("invalid JSON body"))
		return
	}
	result, err := h.surveys.Start(r.Context(), app.StartRequest{
		UserID:       req.UserID,
		GameID:       req.GameID,
		RewardType:   req.RewardType,
		RewardAmount: req.RewardAmount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type speakRequest struct {
	Text     string `json:"text"`
	SurveyID string `json:"surveyId"`
}

type speakResponse struct {
	AudioURL string `json:"audioUrl"`
	AudioID  string `json:"audioId"`
	Text     string `json:"text"`
	Duration int    `json:"duration"`
}

func (h *Handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Validationf("invalid JSON body"))
		return
	}
	result, err := h.speech.Speak(r.Context(), req.Text, req.SurveyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, speakResponse{
		AudioURL: requestScheme(r) + "://" + r.Host + "/audio/" + result.Filename,
		AudioID:  result.AudioID,
		Text:     result.Text,
		Duration: result.DurationSeconds,
	})
}

type answerRequest struct {
	SurveyID      string `json:"surveyId"`
	QuestionIndex *int   `json:"questionIndex"`
	Answer        string `json:"answer"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Validationf("invalid JSON body"))
		return
	}
	if req.QuestionIndex == nil {
		writeError(w, domain.Validationf("questionIndex is required"))
		return
	}
	result, err := h.surveys.SubmitAnswer(r.Context(), app.AnswerRequest{
		SurveyID:      req.SurveyID,
		QuestionIndex: *req.QuestionIndex,
		Answer:        req.Answer,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	path, err := h.audio.Path(r.PathValue("file"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Audio not found"})
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}

// requestScheme honors X-Forwarded-Proto so audio URLs stay correct behind a
// TLS-terminating proxy.
func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError translates the error taxonomy to HTTP statuses. Unexpected
// errors are logged in full but reach the client as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Message})
		return
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Survey not found"})
		return
	}
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		log.Printf("upstream failure: %v", upstream)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to generate speech",
			"details": upstream.Body,
			"status":  upstream.Status,
		})
		return
	}
	log.Printf("internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
