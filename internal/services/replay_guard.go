package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"emiho-marketplace/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard remembers confirmation events that were already applied so
// redeliveries can be acknowledged without touching the database. It is an
// optimisation: the unique payment reference remains the real guarantee, so
// implementations fail open.
type ReplayGuard interface {
	Seen(ctx context.Context, eventID string) bool
	Remember(ctx context.Context, eventID string)
}

const defaultEventTTL = 24 * time.Hour

// MemoryReplayGuard keeps applied event ids in process memory
type MemoryReplayGuard struct {
	processedEvents map[string]time.Time
	mutex           sync.RWMutex
	cleanupInterval time.Duration
	eventTTL        time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryReplayGuard creates an in-process guard with hourly cleanup
func NewMemoryReplayGuard() *MemoryReplayGuard {
	rp := &MemoryReplayGuard{
		processedEvents: make(map[string]time.Time),
		cleanupInterval: time.Hour,
		eventTTL:        defaultEventTTL,
		stopCleanup:     make(chan struct{}),
	}

	go rp.startCleanupRoutine()

	return rp
}

// Seen reports whether eventID was remembered and has not expired
func (rp *MemoryReplayGuard) Seen(_ context.Context, eventID string) bool {
	if eventID == "" {
		return false
	}

	rp.mutex.RLock()
	defer rp.mutex.RUnlock()

	processedTime, exists := rp.processedEvents[eventKey(eventID)]
	if !exists {
		return false
	}
	if time.Since(processedTime) > rp.eventTTL {
		return false
	}
	logging.Infof("Replay detected - event_id: %s, previously processed at: %v", eventID, processedTime)
	return true
}

// Remember records eventID as applied
func (rp *MemoryReplayGuard) Remember(_ context.Context, eventID string) {
	if eventID == "" {
		return
	}

	rp.mutex.Lock()
	defer rp.mutex.Unlock()

	rp.processedEvents[eventKey(eventID)] = time.Now()
}

func eventKey(eventID string) string {
	hash := sha256.Sum256([]byte(eventID))
	return hex.EncodeToString(hash[:])
}

func (rp *MemoryReplayGuard) startCleanupRoutine() {
	ticker := time.NewTicker(rp.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rp.cleanup()
		case <-rp.stopCleanup:
			return
		}
	}
}

// cleanup drops expired event ids
func (rp *MemoryReplayGuard) cleanup() {
	rp.mutex.Lock()
	defer rp.mutex.Unlock()

	now := time.Now()
	initialCount := len(rp.processedEvents)

	for key, processedTime := range rp.processedEvents {
		if now.Sub(processedTime) > rp.eventTTL {
			delete(rp.processedEvents, key)
		}
	}

	cleanedCount := initialCount - len(rp.processedEvents)
	if cleanedCount > 0 {
		logging.Infof("Replay guard cleanup: removed %d expired events, remaining: %d", cleanedCount, len(rp.processedEvents))
	}
}

// GetStats reports the guard's size and settings
func (rp *MemoryReplayGuard) GetStats() map[string]interface{} {
	rp.mutex.RLock()
	defer rp.mutex.RUnlock()

	return map[string]interface{}{
		"backend":          "memory",
		"total_processed":  len(rp.processedEvents),
		"cleanup_interval": rp.cleanupInterval.String(),
		"event_ttl":        rp.eventTTL.String(),
	}
}

// Stop ends the cleanup goroutine
func (rp *MemoryReplayGuard) Stop() {
	rp.stopOnce.Do(func() { close(rp.stopCleanup) })
}

// RedisReplayGuard shares applied event ids between server instances
type RedisReplayGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReplayGuard creates a Redis-backed guard
func NewRedisReplayGuard(client *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{client: client, ttl: defaultEventTTL}
}

func redisEventKey(eventID string) string {
	return "payment_event:" + eventID
}

// Seen reports whether eventID is recorded in Redis. Redis errors count as unseen.
func (g *RedisReplayGuard) Seen(ctx context.Context, eventID string) bool {
	if eventID == "" {
		return false
	}
	exists, err := g.client.Exists(ctx, redisEventKey(eventID)).Result()
	if err != nil {
		logging.Errorf("Replay guard lookup failed for event %s: %v", eventID, err)
		return false
	}
	return exists > 0
}

// Remember records eventID with the guard's TTL
func (g *RedisReplayGuard) Remember(ctx context.Context, eventID string) {
	if eventID == "" {
		return
	}
	if err := g.client.Set(ctx, redisEventKey(eventID), time.Now().Unix(), g.ttl).Err(); err != nil {
		logging.Errorf("Replay guard write failed for event %s: %v", eventID, err)
	}
}

// NewReplayGuard picks Redis when a client is available, else process memory
func NewReplayGuard(client *redis.Client) ReplayGuard {
	if client != nil {
		return NewRedisReplayGuard(client)
	}
	return NewMemoryReplayGuard()
}
