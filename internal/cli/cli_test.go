package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"beer-quiz-service/internal/config"
	"beer-quiz-service/internal/domain"
	"beer-quiz-service/internal/infra/memory"
	"beer-quiz-service/internal/infra/sqlite"
	"github.com/alicebob/miniredis/v2"
)

func TestLookupPrintsStoredResponses(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "quiz.db")

	store, err := sqlite.NewRecordStore(dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = store.Insert(context.Background(), domain.QuizResponse{
		Email: "ana@allowed.com", Answers: []int{3, 3, 3, 3, 3}, Score: 15, Result: "IPA Amarga",
	})
	_ = store.Close()
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "log_level: error\nstore:\n  driver: sqlite\n  sqlite_path: " + dbPath + "\nquiz:\n  allowed_domain: allowed.com\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"lookup", "--config", cfgPath, "--email", "ANA@allowed.com"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	var responses []domain.QuizResponse
	if err := json.Unmarshal(out.Bytes(), &responses); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if len(responses) != 1 || responses[0].Score != 15 || responses[0].Result != "IPA Amarga" {
		t.Fatalf("unexpected responses %+v", responses)
	}
}

func TestLookupRejectsMemoryStore(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_level: error\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"lookup", "--config", cfgPath, "--email", "ana@allowed.com"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected lookup against the memory store to fail")
	}
}

func TestRootRegistersCommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate", "lookup"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("expected %s command, got %v", name, err)
		}
	}
}

func TestSeedInvalidatesCachedContent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	if err := mr.Set("quiz:content", `{"questions":["old"]}`); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	loader := memory.NewStaticContentLoader(domain.DefaultContent())
	if err := invalidateCachedContent(context.Background(), cfg, loader); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:content") {
		t.Fatalf("expected cached content to be dropped")
	}

	cfg.Redis.Addr = ""
	if err := invalidateCachedContent(context.Background(), cfg, loader); err != nil {
		t.Fatalf("without redis invalidation is a no-op, got %v", err)
	}
}
