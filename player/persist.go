package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/models"
)

// Persister keeps the "now playing" state of a user across restarts.
// Load returns nil, nil when nothing is stored.
type Persister interface {
	Load(ctx context.Context, userID uuid.UUID) (*models.PlaybackState, error)
	Save(ctx context.Context, state *models.PlaybackState) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// DBPersister stores playback state in the playback_states table.
type DBPersister struct {
	db *gorm.DB
}

func NewDBPersister(db *gorm.DB) *DBPersister {
	return &DBPersister{db: db}
}

func (p *DBPersister) Load(ctx context.Context, userID uuid.UUID) (*models.PlaybackState, error) {
	var state models.PlaybackState
	err := p.db.WithContext(ctx).First(&state, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (p *DBPersister) Save(ctx context.Context, state *models.PlaybackState) error {
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(state).Error
}

func (p *DBPersister) Clear(ctx context.Context, userID uuid.UUID) error {
	return p.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PlaybackState{}).Error
}

const redisKeyPrefix = "player:state:"

// RedisPersister stores playback state as JSON under player:state:<user>.
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersister keeps states for ttl after the last change. Zero means
// no expiry.
func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl}
}

func redisKey(userID uuid.UUID) string {
	return redisKeyPrefix + userID.String()
}

func (p *RedisPersister) Load(ctx context.Context, userID uuid.UUID) (*models.PlaybackState, error) {
	raw, err := p.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state models.PlaybackState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode playback state: %w", err)
	}
	return &state, nil
}

func (p *RedisPersister) Save(ctx context.Context, state *models.PlaybackState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode playback state: %w", err)
	}
	return p.client.Set(ctx, redisKey(state.UserID), raw, p.ttl).Err()
}

func (p *RedisPersister) Clear(ctx context.Context, userID uuid.UUID) error {
	return p.client.Del(ctx, redisKey(userID)).Err()
}

// NewRedisClient connects to Redis with a small pool and checks the
// connection before returning.
func NewRedisClient(host, port, password string) (*redis.Client, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	logger.Log.Info("Redis connected", zap.String("address", addr))
	return client, nil
}
