package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultApprovalLockTTL = 15 * time.Minute

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// ApprovalLock is a lease on a batch id held for the duration of one approval.
type ApprovalLock struct {
	client *goredis.Client
	ttl    time.Duration
	token  func() string
}

func NewApprovalLock(client *goredis.Client, ttl time.Duration) (*ApprovalLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultApprovalLockTTL
	}
	return &ApprovalLock{client: client, ttl: ttl, token: uuid.NewString}, nil
}

// Acquire takes the lease or reports ErrConflict when another approval holds it.
// The returned token is required to release.
func (l *ApprovalLock) Acquire(ctx context.Context, batchID string) (string, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return "", fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	token := l.token()
	ok, err := l.client.SetNX(ctx, approvalKey(batchID), token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire approval lock: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: approval already in progress for batch %s", domain.ErrConflict, batchID)
	}
	return token, nil
}

// Release drops the lease only if it is still held with token.
func (l *ApprovalLock) Release(ctx context.Context, batchID, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{approvalKey(strings.TrimSpace(batchID))}, token).Err(); err != nil {
		return fmt.Errorf("failed to release approval lock: %w", err)
	}
	return nil
}

func approvalKey(batchID string) string {
	return "approval:batch:" + batchID
}
