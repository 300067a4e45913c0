package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(map[string]domain.QuestionBank{
			"default": sampleBank(),
		}),
	}
	repo := NewBankRepository(client, loader, time.Minute)

	bank, err := repo.GetBank(context.Background(), "default")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(bank.Questions) != 1 || bank.Questions[0].CorrectIndex != 1 {
		t.Fatalf("bank content lost in cache round-trip: %+v", bank)
	}

	// Second call should hit cache, loader not incremented.
	again, err := repo.GetBank(context.Background(), "default")
	if err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(again.Questions) != 1 || again.Questions[0].Text != bank.Questions[0].Text {
		t.Fatalf("cached bank differs: %+v", again)
	}
}

type countingLoader struct {
	memory.BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, bankID)
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		ID: "default",
		Questions: []domain.Question{
			{
				ID:           "q1",
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
				TimeLimit:    20,
				Points:       1000,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
