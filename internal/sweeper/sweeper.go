package sweeper

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	keyPattern = "agg:*"
	rescueTTL  = 24 * time.Hour
)

// Sweeper periodically restores a TTL on accumulator keys that lost theirs,
// so an interrupted write can never leave a key alive forever. Window expiry
// itself is the store's TTL; this is only the safety net behind it.
type Sweeper struct {
	cron   *cron.Cron
	client *redis.Client
	logger *zap.Logger
}

// New builds a sweeper around an existing Redis client.
func New(client *redis.Client, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cron:   cron.New(),
		client: client,
		logger: logger,
	}
}

// Start schedules the hourly sweep.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("accumulator sweeper started")
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("accumulator sweeper stopped")
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var rescued int
	iter := s.client.Scan(ctx, 0, keyPattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := s.client.TTL(ctx, key).Result()
		if err != nil {
			s.logger.Warn("ttl check failed", zap.String("key", key), zap.Error(err))
			continue
		}
		// go-redis reports "no expiry" as -1s
		if ttl == -1*time.Second {
			if err := s.client.Expire(ctx, key, rescueTTL).Err(); err != nil {
				s.logger.Warn("expire failed", zap.String("key", key), zap.Error(err))
				continue
			}
			rescued++
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("accumulator sweep aborted", zap.Error(err))
		return
	}
	if rescued > 0 {
		s.logger.Info("accumulator keys rescued", zap.Int("count", rescued))
	}
}
