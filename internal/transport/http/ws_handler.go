package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"beer-quiz-service/internal/app"
	"beer-quiz-service/internal/domain"
	"beer-quiz-service/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 << 10
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      logger.Logger
}

func NewWSHandler(service *app.QuizService, log logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Get()
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.Named("ws"),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS runs one quiz session per connection. A client may resume an
// existing session with ?session=<id>; sessions created here end when the
// connection closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resumeID := r.URL.Query().Get("session")
	if resumeID != "" {
		if _, err := h.service.Get(ctx, resumeID); err != nil {
			status, body := newErrorBody(err, "")
			http.Error(w, body.Message, status)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(ctx, "ws upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	var session domain.QuizSession
	if resumeID != "" {
		session, err = h.service.Get(ctx, resumeID)
	} else {
		session, err = h.service.Start(ctx)
	}
	if err != nil {
		_, body := newErrorBody(err, "")
		_ = h.write(conn, outboundMessage{Type: "error", Payload: body})
		return
	}
	if resumeID == "" {
		defer func() {
			if err := h.service.End(context.WithoutCancel(ctx), session.ID); err != nil {
				h.log.Warn(ctx, "end session", logger.String("session", session.ID), logger.Error(err))
			}
		}()
	}
	h.log.Debug(ctx, "ws connected", logger.String("session", session.ID))

	if err := h.sendState(ctx, conn, session); err != nil {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug(ctx, "ws read ended", logger.String("session", session.ID), logger.Error(err))
			}
			return
		}

		next, cmdErr := h.dispatch(ctx, session.ID, inbound)
		if cmdErr != nil {
			_, body := newErrorBody(cmdErr, next.Message)
			if errors.Is(cmdErr, errBadPayload) {
				body = errorBody{Code: "bad_request", Message: cmdErr.Error()}
			}
			if err := h.write(conn, outboundMessage{Type: "error", Payload: body}); err != nil {
				return
			}
		}
		if next.ID == "" {
			continue
		}
		session = next
		if err := h.sendState(ctx, conn, session); err != nil {
			return
		}
	}
}

var errBadPayload = errors.New("invalid message")

func (h *WSHandler) dispatch(ctx context.Context, id string, msg inboundMessage) (domain.QuizSession, error) {
	switch msg.Type {
	case "email":
		var payload emailRequest
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return domain.QuizSession{}, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return h.service.SubmitEmail(ctx, id, payload.Email)
	case "answer":
		var payload answerRequest
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return domain.QuizSession{}, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return h.service.Answer(ctx, id, payload.Value)
	case "reset":
		return h.service.Reset(ctx, id)
	default:
		return domain.QuizSession{}, fmt.Errorf("%w: unsupported type %q", errBadPayload, msg.Type)
	}
}

func (h *WSHandler) sendState(ctx context.Context, conn *websocket.Conn, session domain.QuizSession) error {
	content, err := h.service.Content(ctx)
	if err != nil {
		h.log.Warn(ctx, "content unavailable for view", logger.Error(err))
	}
	return h.write(conn, outboundMessage{Type: "state", Payload: newSessionView(session, content, h.service.AllowedDomain())})
}

func (h *WSHandler) write(conn *websocket.Conn, msg outboundMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug(context.Background(), "ws write error", logger.Error(err))
		return err
	}
	return nil
}
