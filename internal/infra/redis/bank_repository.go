package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
)

// BankRepository caches whole question banks as JSON values in Redis and
// falls back to a loader on cache miss. Unlike the leaderboard-only shapes
// some quiz caches get away with, rooms need the full question content
// (text, options, limits), so the bank is stored verbatim:
//
//	SET bank:{bankID} {json} EX ttl
type BankRepository struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	key := r.bankKey(bankID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var bank domain.QuestionBank
		if err := json.Unmarshal(raw, &bank); err == nil {
			return bank, nil
		}
		// corrupt entry: fall through and reload
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			var bank domain.QuestionBank
			if err := json.Unmarshal(raw, &bank); err == nil {
				return bank, nil
			}
		}

		bank, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		if raw, err := json.Marshal(bank); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

func (r *BankRepository) bankKey(bankID string) string {
	return "bank:" + bankID
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
