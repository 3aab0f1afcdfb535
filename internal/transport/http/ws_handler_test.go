package http

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"beer-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env, "")

	state := readState(t, conn)
	if state.Step != domain.StepEmailEntry || state.ID == "" {
		t.Fatalf("expected email entry, got %+v", state)
	}

	send(t, conn, "email", map[string]any{"email": "carla@allowed.com"})
	state = readState(t, conn)
	if state.Step != domain.StepQuestioning || state.Question == nil || state.Question.Index != 0 {
		t.Fatalf("expected first question, got %+v", state)
	}

	send(t, conn, "answer", map[string]any{"value": 9})
	if code := readError(t, conn); code != "invalid_answer" {
		t.Fatalf("expected invalid_answer, got %s", code)
	}
	if state = readState(t, conn); len(state.Answers) != 0 {
		t.Fatalf("invalid answer must not be recorded, got %+v", state)
	}

	for i := 0; i < 5; i++ {
		send(t, conn, "answer", map[string]any{"value": 1})
		state = readState(t, conn)
	}
	if state.Step != domain.StepResult || state.Result == nil || state.Result.Label != "Cerveza dorada ligera" || state.Result.Score != 5 {
		t.Fatalf("unexpected final state %+v", state)
	}
	if env.records.Len() != 1 {
		t.Fatalf("expected persisted response")
	}
}

func TestWebSocketDuplicateAndBadMessages(t *testing.T) {
	env := newTestEnv(t, "dan@allowed.com")
	conn := dial(t, env, "")
	_ = readState(t, conn)

	send(t, conn, "dance", nil)
	if code := readError(t, conn); code != "bad_request" {
		t.Fatalf("expected bad_request, got %s", code)
	}

	send(t, conn, "email", map[string]any{"email": "DAN@allowed.com"})
	if code := readError(t, conn); code != "already_responded" {
		t.Fatalf("expected already_responded, got %s", code)
	}
	state := readState(t, conn)
	if state.Step != domain.StepBlocked || !state.HasAlreadyResponded || state.Message == "" {
		t.Fatalf("expected blocked state, got %+v", state)
	}

	send(t, conn, "reset", nil)
	if state = readState(t, conn); state.Step != domain.StepEmailEntry {
		t.Fatalf("expected email entry after reset, got %+v", state)
	}
}

func TestWebSocketDisconnectEndsSession(t *testing.T) {
	env := newTestEnv(t)
	conn := dial(t, env, "")
	id := readState(t, conn).ID
	_ = conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		_, err := env.service.Get(context.Background(), id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected session %s to end after disconnect", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketResumesExistingSession(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.service.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	conn := dial(t, env, session.ID)
	if state := readState(t, conn); state.ID != session.ID {
		t.Fatalf("expected resumed session %s, got %s", session.ID, state.ID)
	}
	_ = conn.Close()

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?session=missing"
	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil || resp == nil || resp.StatusCode != 404 {
		t.Fatalf("expected 404 for unknown session, got %v", err)
	}
}

func dial(t *testing.T, env *testEnv, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	if session != "" {
		url += "?session=" + session
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) json.RawMessage {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != expect {
		t.Fatalf("expected type %s, got %s: %s", expect, msg.Type, msg.Payload)
	}
	return msg.Payload
}

func readState(t *testing.T, conn *websocket.Conn) sessionView {
	t.Helper()
	var view sessionView
	if err := json.Unmarshal(readNext(t, conn, "state"), &view); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return view
}

func readError(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(readNext(t, conn, "error"), &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return body.Code
}
