package aggregation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	minuteKeyPrefix = "agg:minute:"
	hourKeyPrefix   = "agg:hour:"
)

// accumulateScript runs the whole sample→minute→hour fold server-side so the
// read-modify-write is one atomic step per device. Data fields live in the
// hash under "f:<name>", the sample/minute counter under "n".
//
// Returns {0} while the minute is still open, {1} when a minute closed into
// the hour key, and {2, minuteCount, hourCount, name, sum, ...} when the hour
// closed (the hour key is deleted in the same script).
var accumulateScript = redis.NewScript(`
local spm = tonumber(ARGV[1])
local mph = tonumber(ARGV[2])
for i = 5, #ARGV, 2 do
  redis.call('HINCRBYFLOAT', KEYS[1], 'f:' .. ARGV[i], ARGV[i+1])
end
local mcount = redis.call('HINCRBY', KEYS[1], 'n', 1)
redis.call('EXPIRE', KEYS[1], ARGV[3])
if mcount < spm then
  return {0}
end
local mdata = redis.call('HGETALL', KEYS[1])
for i = 1, #mdata, 2 do
  if mdata[i] ~= 'n' then
    redis.call('HINCRBYFLOAT', KEYS[2], mdata[i], tonumber(mdata[i+1]) / mcount)
  end
end
local hcount = redis.call('HINCRBY', KEYS[2], 'n', 1)
redis.call('EXPIRE', KEYS[2], ARGV[4])
redis.call('DEL', KEYS[1])
if hcount < mph then
  return {1}
end
local hdata = redis.call('HGETALL', KEYS[2])
redis.call('DEL', KEYS[2])
local out = {2, mcount, hcount}
for i = 1, #hdata, 2 do
  if hdata[i] ~= 'n' then
    out[#out+1] = hdata[i]
    out[#out+1] = hdata[i+1]
  end
end
return out
`)

// RedisCounterStore is the production CounterStore, backed by one Lua script
// invocation per sample.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore wraps an existing client.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// Accumulate folds one sanitized sample into the device's windows.
func (s *RedisCounterStore) Accumulate(ctx context.Context, deviceID string, fields map[string]float64) (Result, error) {
	args := make([]interface{}, 0, 4+2*len(fields))
	args = append(args,
		SamplesPerMinute,
		MinutesPerHour,
		int(minuteTTL.Seconds()),
		int(hourTTL.Seconds()),
	)
	for name, value := range fields {
		args = append(args, name, value)
	}

	keys := []string{minuteKeyPrefix + deviceID, hourKeyPrefix + deviceID}
	raw, err := accumulateScript.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return Result{}, fmt.Errorf("accumulate %s: %w", deviceID, err)
	}
	return parseScriptReply(raw)
}

func parseScriptReply(raw interface{}) (Result, error) {
	reply, ok := raw.([]interface{})
	if !ok || len(reply) == 0 {
		return Result{}, fmt.Errorf("unexpected script reply %T", raw)
	}
	status, ok := reply[0].(int64)
	if !ok {
		return Result{}, fmt.Errorf("unexpected script status %T", reply[0])
	}

	switch status {
	case 0:
		return Result{}, nil
	case 1:
		return Result{MinuteClosed: true}, nil
	case 2:
		if len(reply) < 3 {
			return Result{}, fmt.Errorf("short hour-close reply: %d elements", len(reply))
		}
		mcount, mok := reply[1].(int64)
		hcount, hok := reply[2].(int64)
		if !mok || !hok {
			return Result{}, fmt.Errorf("unexpected window counts %T/%T", reply[1], reply[2])
		}
		res := Result{
			MinuteClosed: true,
			HourClosed:   true,
			MinuteCount:  int(mcount),
			HourCount:    int(hcount),
			HourSums:     make(map[string]float64),
		}
		for i := 3; i+1 < len(reply); i += 2 {
			name, ok := reply[i].(string)
			if !ok {
				return Result{}, fmt.Errorf("unexpected field name %T", reply[i])
			}
			sumStr, ok := reply[i+1].(string)
			if !ok {
				return Result{}, fmt.Errorf("unexpected field sum %T", reply[i+1])
			}
			sum, err := strconv.ParseFloat(sumStr, 64)
			if err != nil {
				return Result{}, fmt.Errorf("parse sum for %s: %w", name, err)
			}
			res.HourSums[strings.TrimPrefix(name, "f:")] = sum
		}
		return res, nil
	default:
		return Result{}, fmt.Errorf("unknown script status %d", status)
	}
}
