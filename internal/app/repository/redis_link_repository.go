package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerOTP/internal/app/model"
)

const (
	linkField        = "link"
	accessCountField = "access_count"
)

// Lua keeps create-if-absent and increment-then-read atomic on the server.
var (
	createLinkScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'link', ARGV[1], 'access_count', 0)
redis.call('PEXPIREAT', KEYS[1], ARGV[2])
return 1
`)

	incrementAccessScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local n = redis.call('HINCRBY', KEYS[1], 'access_count', 1)
return {n, redis.call('HGET', KEYS[1], 'link')}
`)
)

type redisLinkRepository struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisLinkRepository stores each link as a hash that Redis evicts
// retention after the link expires.
func NewRedisLinkRepository(client *redis.Client, retention time.Duration) LinkRepository {
	return &redisLinkRepository{client: client, retention: retention}
}

// storedLink is the immutable part of a link as kept in the hash.
type storedLink struct {
	Codes            []string  `json:"codes"`
	Period           int64     `json:"period"`
	OriginTimestamp  int64     `json:"origin_timestamp"`
	BurnAfterReading bool      `json:"burn_after_reading"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

func (r *redisLinkRepository) Create(ctx context.Context, link *model.ShareLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	link.AccessCount = 0

	data, err := json.Marshal(storedLink{
		Codes:            link.Codes,
		Period:           link.Period,
		OriginTimestamp:  link.OriginTimestamp,
		BurnAfterReading: link.BurnAfterReading,
		ExpiresAt:        link.ExpiresAt,
		CreatedAt:        link.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}

	evictAt := link.ExpiresAt.Add(r.retention).UnixMilli()
	created, err := createLinkScript.Run(ctx, r.client, []string{linkKey(link.ID)}, data, evictAt).Int64()
	if err != nil {
		return err
	}
	if created == 0 {
		return ErrLinkExists
	}
	return nil
}

func (r *redisLinkRepository) IncrementAccess(ctx context.Context, id string) (*model.ShareLink, error) {
	res, err := incrementAccessScript.Run(ctx, r.client, []string{linkKey(id)}).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("increment access: unexpected reply length %d", len(res))
	}

	count, ok := res[0].(int64)
	if !ok {
		return nil, fmt.Errorf("increment access: unexpected counter type %T", res[0])
	}
	raw, ok := res[1].(string)
	if !ok {
		return nil, fmt.Errorf("increment access: unexpected payload type %T", res[1])
	}

	var stored storedLink
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}

	return &model.ShareLink{
		ID:               id,
		Codes:            stored.Codes,
		Period:           stored.Period,
		OriginTimestamp:  stored.OriginTimestamp,
		BurnAfterReading: stored.BurnAfterReading,
		ExpiresAt:        stored.ExpiresAt,
		AccessCount:      count,
		CreatedAt:        stored.CreatedAt,
	}, nil
}

// PurgeExpired is a no-op: keys carry their own PEXPIREAT.
func (r *redisLinkRepository) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func linkKey(id string) string {
	return "share:" + id
}
