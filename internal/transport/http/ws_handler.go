package http

import (
	"encoding/json"
	"log"
	"net/http"

	"insight-survey-service/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler drives the survey conversationally over a websocket: the server
// pushes the greeting and questions, the client answers in place. It shares
// the service layer with the REST surface.
type WSHandler struct {
	surveys  *app.SurveyService
	upgrader websocket.Upgrader
}

func NewWSHandler(surveys *app.SurveyService) *WSHandler {
	return &WSHandler{
		surveys: surveys,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsAnswerPayload struct {
	QuestionIndex *int   `json:"questionIndex"`
	Answer        string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS starts a survey for the connecting client and exchanges answer and
// question events until completion or disconnect.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	gameID := r.URL.Query().Get("gameId")
	if userID == "" || gameID == "" {
		http.Error(w, "missing userId or gameId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	started, err := h.surveys.Start(r.Context(), app.StartRequest{UserID: userID, GameID: gameID})
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	if err := conn.WriteJSON(outboundMessage[app.StartResult]{Type: "survey", Payload: started}); err != nil {
		log.Printf("ws write error: %v", err)
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answer":
			var payload wsAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionIndex == nil {
				h.writeError(conn, "invalid answer payload")
				continue
			}
			result, err := h.surveys.SubmitAnswer(r.Context(), app.AnswerRequest{
				SurveyID:      started.SurveyID,
				QuestionIndex: *payload.QuestionIndex,
				Answer:        payload.Answer,
			})
			if err != nil {
				h.writeError(conn, err.Error())
				continue
			}
			event := "question"
			if result.Completed {
				event = "completed"
			}
			if err := conn.WriteJSON(outboundMessage[app.AnswerResult]{Type: event, Payload: result}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
			if result.Completed {
				return
			}
		default:
			h.writeError(conn, "unsupported message type")
		}
	}
}

func (h *WSHandler) writeError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}
