package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"notecard-service/internal/logger"
	"notecard-service/internal/types"

	"github.com/redis/go-redis/v9"
)

// RedisClient mirrors relay and battery state into Redis for other services
// and pops inbound signals from a list.
type RedisClient struct {
	client *redis.Client
	logger *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRedisClient(host string, port int, l *logger.Logger) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		logger: l,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		r.logger.Errorf("Redis connection failed: %v", err)
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// publishHashSet atomically updates hash fields and publishes a notification
func (r *RedisClient) publishHashSet(hash string, fields map[string]interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, fields)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

func (r *RedisClient) PublishBatteryReading(reading types.SensorReading) error {
	r.logger.Debugf("Publishing battery reading: raw=%d charge=%.1f", reading.RawBatteryReading, reading.BatteryPercentage)

	fields := map[string]interface{}{
		"raw":    reading.RawBatteryReading,
		"charge": strconv.FormatFloat(reading.BatteryPercentage, 'f', 1, 64),
	}
	if err := r.publishHashSet("battery", fields, "battery", "charge"); err != nil {
		r.logger.Warnf("Failed to publish battery reading: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) PublishIgnitionState(on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	r.logger.Debugf("Publishing ignition state: %s", state)

	if err := r.publishHashSet("notecard", map[string]interface{}{"ignition": state}, "notecard", "ignition"); err != nil {
		r.logger.Warnf("Failed to publish ignition state: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) PublishPowerMode(mode types.PowerMode) error {
	r.logger.Infof("Publishing power mode: %s", mode)

	fields := map[string]interface{}{
		"power-mode":           string(mode),
		"power-mode:timestamp": time.Now().Format(time.RFC3339),
	}
	if err := r.publishHashSet("notecard", fields, "notecard", "power-mode"); err != nil {
		r.logger.Warnf("Failed to publish power mode: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) PublishSignal(payload string) error {
	r.logger.Debugf("Publishing signal: %s", payload)

	if err := r.publishHashSet("notecard", map[string]interface{}{"signal:last": payload}, "notecard", "signal"); err != nil {
		r.logger.Warnf("Failed to publish signal: %v", err)
		return err
	}
	return nil
}

// PopSignal waits up to timeout for a value on the given list. ok is false
// when the wait elapsed with nothing queued.
func (r *RedisClient) PopSignal(ctx context.Context, key string, timeout time.Duration) (string, bool, error) {
	result, err := r.client.BRPop(ctx, timeout, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	// BRPOP returns [key, value]
	if len(result) < 2 {
		return "", false, nil
	}
	return result[1], true, nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()
	return r.client.Close()
}
