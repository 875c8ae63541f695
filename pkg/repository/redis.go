package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/config"
	"github.com/example/shopdash/pkg/models"
	"github.com/example/shopdash/pkg/notify"
)

// ErrNotFound is returned when a key has expired or never existed.
var ErrNotFound = errors.New("not found")

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) setJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Session is what the gateway remembers about a signed in browser: the
// bearer token it forwards to the backend and the claims read from it.
type Session struct {
	ID        string      `json:"id"`
	Token     string      `json:"token"`
	UserID    string      `json:"userId"`
	Role      models.Role `json:"role"`
	ShopID    string      `json:"shopId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

func sessionKey(id string) string { return fmt.Sprintf("session:%s", id) }
func toastKey(id string) string   { return fmt.Sprintf("toasts:%s", id) }

func (r *RedisRepository) SaveSession(ctx context.Context, s *Session, ttl time.Duration) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return r.setJSON(ctx, sessionKey(s.ID), s, ttl)
}

// GetSession returns the session and slides its expiry forward.
func (r *RedisRepository) GetSession(ctx context.Context, id string, ttl time.Duration) (*Session, error) {
	var s Session
	if err := r.getJSON(ctx, sessionKey(id), &s); err != nil {
		return nil, err
	}
	if ttl > 0 {
		if err := r.client.Expire(ctx, sessionKey(id), ttl).Err(); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// DeleteSession drops the session and anything left in its toast inbox.
func (r *RedisRepository) DeleteSession(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id), toastKey(id)).Err()
}

// PushToast appends a toast to the session's inbox. The inbox expires ttl
// after its last toast.
func (r *RedisRepository) PushToast(ctx context.Context, t notify.Toast, ttl time.Duration) error {
	data, err := json.Marshal(storedToast{Level: t.Level, Message: t.Message, At: t.At})
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, toastKey(t.Session), data)
		p.Expire(ctx, toastKey(t.Session), ttl)
		return nil
	})
	return err
}

type storedToast struct {
	Level   notify.Level `json:"level"`
	Message string       `json:"message"`
	At      time.Time    `json:"at"`
}

// DrainToasts returns the toasts still showing and empties the inbox. A
// toast is dismissed ttl after it was raised.
func (r *RedisRepository) DrainToasts(ctx context.Context, session string, ttl time.Duration) ([]notify.Toast, error) {
	var lrange *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		lrange = p.LRange(ctx, toastKey(session), 0, -1)
		p.Del(ctx, toastKey(session))
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]notify.Toast, 0)
	for _, raw := range lrange.Val() {
		var st storedToast
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			continue
		}
		if ttl > 0 && now.Sub(st.At) > ttl {
			continue
		}
		out = append(out, notify.Toast{Session: session, Level: st.Level, Message: st.Message, At: st.At})
	}
	return out, nil
}

// ToastInbox is a Notifier that parks toasts in Redis until the session's
// browser polls for them.
type ToastInbox struct {
	repo   *RedisRepository
	ttl    time.Duration
	logger *zap.Logger
}

func NewToastInbox(repo *RedisRepository, ttl time.Duration, logger *zap.Logger) *ToastInbox {
	return &ToastInbox{repo: repo, ttl: ttl, logger: logger}
}

func (i *ToastInbox) Notify(ctx context.Context, t notify.Toast) {
	if t.Session == "" {
		return
	}
	if err := i.repo.PushToast(ctx, t, i.ttl); err != nil {
		i.logger.Warn("Failed to store toast", zap.String("session", t.Session), zap.Error(err))
	}
}

func (i *ToastInbox) Drain(ctx context.Context, session string) ([]notify.Toast, error) {
	return i.repo.DrainToasts(ctx, session, i.ttl)
}
