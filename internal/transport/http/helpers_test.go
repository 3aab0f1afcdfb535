package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"beer-quiz-service/internal/app"
	"beer-quiz-service/internal/domain"
	"beer-quiz-service/internal/infra/memory"
	"beer-quiz-service/pkg/logger"
)

type testEnv struct {
	server  *httptest.Server
	service *app.QuizService
	records *memory.RecordStore
}

func newTestEnv(t *testing.T, existing ...string) *testEnv {
	t.Helper()
	records := memory.NewRecordStore()
	for _, email := range existing {
		err := records.Insert(context.Background(), domain.QuizResponse{
			Email: email, Answers: []int{2, 2, 2, 2, 2}, Score: 10, Result: "Cerveza artesanal suave",
		})
		if err != nil {
			t.Fatalf("seed %s: %v", email, err)
		}
	}
	gateway := app.NewResponseGateway(records, app.GatewayOptions{AllowedDomain: "allowed.com", FailClosed: true}, logger.Nop())
	controller := app.NewController(gateway, "allowed.com", logger.Nop())
	content := memory.NewContentRepository(memory.NewStaticContentLoader(domain.DefaultContent()), time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), content, controller, app.ServiceOptions{CommandTimeout: time.Second}, logger.Nop())

	server := httptest.NewServer(NewRouter(service, logger.Nop()))
	t.Cleanup(server.Close)
	return &testEnv{server: server, service: service, records: records}
}
