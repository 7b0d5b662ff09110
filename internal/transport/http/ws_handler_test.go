package http

import (
	"testing"

	"github.com/gorilla/websocket"
)

func TestWebSocketSurveyFlow(t *testing.T) {
	env := newTestEnv(t, "")

	u := "ws" + env.server.URL[len("http"):] + "/ws?userId=u1&gameId=g1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgType, payload := readNext(conn, t)
	if msgType != "survey" {
		t.Fatalf("expected survey event, got %s", msgType)
	}
	questions, _ := payload["questions"].([]any)
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	character, _ := payload["character"].(map[string]any)
	if character["greeting"] == "" {
		t.Fatalf("expected greeting in survey event, got %v", character)
	}

	for i := 0; i < 3; i++ {
		answer := map[string]any{
			"type": "answer",
			"payload": map[string]any{
				"questionIndex": i,
				"answer":        "option",
			},
		}
		if err := conn.WriteJSON(answer); err != nil {
			t.Fatalf("write answer %d: %v", i, err)
		}
		msgType, payload = readNext(conn, t)
		if i < 2 {
			if msgType != "question" {
				t.Fatalf("answer %d: expected question event, got %s", i, msgType)
			}
			next, _ := payload["nextQuestion"].(map[string]any)
			if next["index"] != float64(i+1) {
				t.Fatalf("expected next index %d, got %v", i+1, next)
			}
		} else {
			if msgType != "completed" {
				t.Fatalf("expected completed event, got %s", msgType)
			}
			reward, _ := payload["reward"].(map[string]any)
			if reward["amount"] != float64(500) {
				t.Fatalf("expected 500 reward, got %v", reward)
			}
		}
	}
}

func TestWebSocketRejectsOutOfOrderAnswer(t *testing.T) {
	env := newTestEnv(t, "")

	u := "ws" + env.server.URL[len("http"):] + "/ws?userId=u1&gameId=g1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if msgType, _ := readNext(conn, t); msgType != "survey" {
		t.Fatalf("expected survey event, got %s", msgType)
	}

	skip := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionIndex": 2, "answer": "skip"},
	}
	if err := conn.WriteJSON(skip); err != nil {
		t.Fatalf("write: %v", err)
	}
	msgType, payload := readNext(conn, t)
	if msgType != "error" {
		t.Fatalf("expected error event, got %s", msgType)
	}
	if payload["message"] == "" {
		t.Fatalf("expected error message, got %v", payload)
	}
}

func readNext(conn *websocket.Conn, t *testing.T) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Payload
}
