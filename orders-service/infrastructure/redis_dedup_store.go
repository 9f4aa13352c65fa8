package infrastructure

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ domain.DedupStore = (*RedisDedupStore)(nil)

const redisDedupPrefix = "saga:dedup:"

// confirmScript binds a pending key to its event id, or creates the key already confirmed.
// Values are "<event id>|<created unix ms>"; a pending key has an empty event id.
var confirmScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	redis.call('SET', KEYS[1], ARGV[1] .. '|' .. ARGV[2], 'PX', ARGV[3])
	return 1
end
if string.sub(current, 1, 1) == '|' then
	redis.call('SET', KEYS[1], ARGV[1] .. current, 'KEEPTTL')
	return 1
end
return 0
`)

// releaseScript deletes a key that is still pending
var releaseScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and string.sub(current, 1, 1) == '|' then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisDedupStore reserves keys with SET NX. Retention is the key TTL, so Purge has nothing to do.
type RedisDedupStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisDedupStore creates a new RedisDedupStore
func NewRedisDedupStore(client redis.UniversalClient, ttl time.Duration) *RedisDedupStore {
	if ttl <= 0 {
		ttl = domain.DedupRetention
	}
	return &RedisDedupStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisDedupStore) CheckAndReserve(ctx context.Context, key domain.DedupKey) (domain.Reservation, error) {
	redisKey := redisDedupPrefix + key.String()

	// the holder may expire between SET NX and GET
	for attempt := 0; attempt < 2; attempt++ {
		reserved, err := s.client.SetNX(ctx, redisKey, "|"+s.stamp(), s.ttl).Result()
		if err != nil {
			return domain.Reservation{}, errors.Wrap(err, "failed to reserve dedup key")
		}
		if reserved {
			return domain.Reserved(), nil
		}

		record, err := s.Lookup(ctx, key)
		if err != nil {
			return domain.Reservation{}, err
		}
		if record != nil {
			return domain.AlreadyProcessed(record.EventID), nil
		}
	}
	return domain.Reservation{}, errors.Errorf("dedup key %s changed during reservation", key)
}

func (s *RedisDedupStore) Confirm(ctx context.Context, key domain.DedupKey, eventID models.ID) error {
	err := confirmScript.Run(ctx, s.client,
		[]string{redisDedupPrefix + key.String()},
		eventID.String(), s.stamp(), s.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return errors.Wrap(err, "failed to confirm dedup key")
	}
	return nil
}

func (s *RedisDedupStore) Release(ctx context.Context, key domain.DedupKey) error {
	err := releaseScript.Run(ctx, s.client, []string{redisDedupPrefix + key.String()}).Err()
	if err != nil {
		return errors.Wrap(err, "failed to release dedup key")
	}
	return nil
}

func (s *RedisDedupStore) Lookup(ctx context.Context, key domain.DedupKey) (*domain.DedupRecord, error) {
	value, err := s.client.Get(ctx, redisDedupPrefix+key.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up dedup key")
	}

	eventID, stamp, ok := strings.Cut(value, "|")
	if !ok {
		return nil, errors.Errorf("malformed dedup value %q", value)
	}
	millis, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed dedup timestamp %q", stamp)
	}

	return &domain.DedupRecord{
		Key:       key,
		EventID:   models.ID(eventID),
		CreatedAt: time.UnixMilli(millis).UTC(),
	}, nil
}

// Purge is a no-op; keys expire on their own
func (s *RedisDedupStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisDedupStore) stamp() string {
	return strconv.FormatInt(s.now().UnixMilli(), 10)
}
