// Package redis implements the JobStore contract against Redis: one hash
// per job (`ae:job:{id}`), a sorted set of ready job ids scored by
// readiness time (`ae:jobs:queue`), and a sorted set of claimed job ids
// scored by last-updated time (`ae:jobs:processing`) the recovery loop
// scans for abandonment. Claim, complete, and fail are each a single Lua
// script so the check-and-mutate is atomic across however many workers
// share this store, the same guarantee the in-memory store gets for free
// from a mutex.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/core/store"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

const (
	keyJobPrefix   = "ae:job:"
	keyReadyQueue  = "ae:jobs:queue"
	keyProcessing  = "ae:jobs:processing"
)

// claimScript atomically pops the lowest-scored ready job id, marks it
// InProgress in its hash, moves it onto the processing set, and returns
// the full hash so the caller doesn't need a second round trip.
var claimScript = redis.NewScript(`
local ready = KEYS[1]
local processing = KEYS[2]
local jobPrefix = ARGV[1]
local now = ARGV[2]
local workerId = ARGV[3]

local ids = redis.call('ZRANGEBYSCORE', ready, '-inf', now, 'LIMIT', 0, 1)
if #ids == 0 then
  return nil
end

local id = ids[1]
redis.call('ZREM', ready, id)

local key = jobPrefix .. id
redis.call('HSET', key, 'status', '300', 'workerId', workerId, 'lastUpdatedAt', now)
if redis.call('HGET', key, 'startedAt') == false or redis.call('HGET', key, 'startedAt') == '' then
  redis.call('HSET', key, 'startedAt', now)
end

redis.call('ZADD', processing, now, id)

return redis.call('HGETALL', key)
`)

// releaseScript removes a job from the processing set and rewrites its
// hash to a terminal or rescheduled state; Update runs it for every
// completion, failure, and reschedule.
var releaseScript = redis.NewScript(`
local processing = KEYS[1]
local ready = KEYS[2]
local jobId = ARGV[1]
local jobKey = ARGV[2]
local readyScore = ARGV[3]
local numFields = tonumber(ARGV[4])

redis.call('ZREM', processing, jobId)

local fields = {}
for i = 1, numFields do
  fields[i] = ARGV[4 + i]
end
if numFields > 0 then
  redis.call('HSET', jobKey, unpack(fields))
end

if readyScore ~= '' then
  redis.call('ZADD', ready, readyScore, jobId)
end

return 1
`)

// recoverScript moves every processing-set entry whose score (last
// updated time) is older than the cutoff out of the processing set and
// applies the same retry-vs-exhausted decision a normal handler failure
// gets: if the job still has retry budget it goes back to Scheduled with
// retryDelayUntil computed from the exponential backoff and rejoins the
// ready set at that score; otherwise it goes to the terminal Failed
// state with a JOB_TIMEOUT error and never rejoins the ready set. Either
// way WorkerId is cleared. Returns the recovered ids.
var recoverScript = redis.NewScript(`
local processing = KEYS[1]
local ready = KEYS[2]
local jobPrefix = ARGV[1]
local cutoff = ARGV[2]
local now = ARGV[3]
local retryDelayBase = tonumber(ARGV[4])

local ids = redis.call('ZRANGEBYSCORE', processing, '-inf', cutoff)
for _, id in ipairs(ids) do
  redis.call('ZREM', processing, id)
  local key = jobPrefix .. id

  local retryCount = tonumber(redis.call('HGET', key, 'retryCount') or '0') or 0
  local maxRetries = tonumber(redis.call('HGET', key, 'maxRetries') or '0') or 0

  if retryCount < maxRetries then
    retryCount = retryCount + 1
    local delay = retryDelayBase * (2 ^ retryCount)
    local retryAt = tonumber(now) + delay
    redis.call('HSET', key,
      'status', '200',
      'workerId', '',
      'retryCount', tostring(retryCount),
      'retryDelayUntil', tostring(retryAt),
      'lastUpdatedAt', now)
    redis.call('ZADD', ready, retryAt, id)
  else
    local errJSON = '{"code":"JOB_TIMEOUT","message":"job was abandoned by its worker and exhausted its retry budget"}'
    redis.call('HSET', key,
      'status', '500',
      'workerId', '',
      'retryCount', tostring(retryCount),
      'retryDelayUntil', '',
      'completedAt', now,
      'error', errJSON,
      'lastUpdatedAt', now)
  end
end

return ids
`)

type Store struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) jobKey(id uuid.UUID) string {
	return keyJobPrefix + id.String()
}

func (s *Store) Create(ctx context.Context, j job.Job) error {
	exists, err := s.client.Exists(ctx, s.jobKey(j.Id)).Result()
	if err != nil {
		return apperrors.StoreError("failed to check job existence", err)
	}
	if exists == 1 {
		return apperrors.JobExists("job " + j.Id.String() + " already exists")
	}

	fields, err := toHash(j)
	if err != nil {
		return apperrors.StoreError("failed to serialize job", err)
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.jobKey(j.Id), fields)
	pipe.ZAdd(ctx, keyReadyQueue, redis.Z{Score: float64(readyScore(j)), Member: j.Id.String()})
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.StoreError("failed to persist job", err)
	}
	return nil
}

func (s *Store) GetById(ctx context.Context, id uuid.UUID) (job.Job, error) {
	data, err := s.client.HGetAll(ctx, s.jobKey(id)).Result()
	if err != nil {
		return job.Job{}, apperrors.StoreError("failed to read job", err)
	}
	if len(data) == 0 {
		return job.Job{}, store.NotFound(id)
	}
	return fromHash(data)
}

// Update persists a mutated job, routing it through release so the
// processing-set removal, the hash rewrite, and (when the new status is
// Scheduled or Queued) the ready-set re-add all happen under one script
// invocation.
// A job landing in a terminal status is removed from processing and never
// rejoins the ready set.
func (s *Store) Update(ctx context.Context, j job.Job) error {
	exists, err := s.client.Exists(ctx, s.jobKey(j.Id)).Result()
	if err != nil {
		return apperrors.StoreError("failed to check job existence", err)
	}
	if exists == 0 {
		return store.NotFound(j.Id)
	}

	var readyAt *time.Time
	if j.Status == job.StatusScheduled {
		if j.RetryDelayUntil != nil {
			readyAt = j.RetryDelayUntil
		} else {
			readyAt = &j.LastUpdatedAt
		}
	} else if j.Status == job.StatusQueued {
		readyAt = &j.LastUpdatedAt
	}

	if err := s.release(ctx, j, readyAt); err != nil {
		return apperrors.StoreError("failed to persist job", err)
	}
	return nil
}

func (s *Store) ClaimNextJobForWorker(ctx context.Context, workerId uuid.UUID, now time.Time) (job.Job, error) {
	res, err := claimScript.Run(ctx, s.client,
		[]string{keyReadyQueue, keyProcessing},
		keyJobPrefix, strconv.FormatInt(now.Unix(), 10), workerId.String(),
	).Result()
	if err == redis.Nil {
		return job.Job{}, apperrors.JobNotFound("no ready job available")
	}
	if err != nil {
		return job.Job{}, apperrors.StoreError("claim script failed", err)
	}
	if res == nil {
		return job.Job{}, apperrors.JobNotFound("no ready job available")
	}

	flat, ok := res.([]interface{})
	if !ok || len(flat) == 0 {
		return job.Job{}, apperrors.JobNotFound("no ready job available")
	}

	data := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		data[toString(flat[i])] = toString(flat[i+1])
	}
	return fromHash(data)
}

// release pushes a terminal or rescheduled mutation for j through
// releaseScript, keeping the processing-set removal and the hash rewrite
// atomic with each other.
func (s *Store) release(ctx context.Context, j job.Job, readyAt *time.Time) error {
	fields, err := toHash(j)
	if err != nil {
		return apperrors.StoreError("failed to serialize job", err)
	}

	args := []interface{}{j.Id.String(), s.jobKey(j.Id)}
	readyScore := ""
	if readyAt != nil {
		readyScore = strconv.FormatInt(readyAt.Unix(), 10)
	}
	args = append(args, readyScore, len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}

	return releaseScript.Run(ctx, s.client, []string{keyProcessing, keyReadyQueue}, args...).Err()
}

func (s *Store) SupportsRecovery() bool { return true }

func (s *Store) ListStuckInProgress(ctx context.Context, olderThan time.Time) ([]job.Job, error) {
	ids, err := s.client.ZRangeByScore(ctx, keyProcessing, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(olderThan.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, apperrors.StoreError("failed to scan processing set", err)
	}

	jobs := make([]job.Job, 0, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		j, err := s.GetById(ctx, id)
		if err != nil {
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Recover moves every abandoned processing-set entry older than cutoff
// through the same retry-vs-exhausted decision a handler failure gets,
// in one atomic script invocation, returning the recovered job ids. The
// RecoveryService calls this directly rather than ListStuckInProgress +
// per-job Update, so the reclaim itself is atomic even though inspecting
// the result is not. retryDelayBase is the exponential backoff base
// (delay = base * 2^retryCount) applied to jobs still within budget.
func (s *Store) Recover(ctx context.Context, cutoff, now time.Time, retryDelayBase time.Duration) ([]uuid.UUID, error) {
	res, err := recoverScript.Run(ctx, s.client,
		[]string{keyProcessing, keyReadyQueue},
		keyJobPrefix, strconv.FormatInt(cutoff.Unix(), 10), strconv.FormatInt(now.Unix(), 10),
		strconv.FormatFloat(retryDelayBase.Seconds(), 'f', -1, 64),
	).Result()
	if err != nil {
		return nil, apperrors.StoreError("recovery script failed", err)
	}

	raw, ok := res.([]interface{})
	if !ok {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(toString(v))
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func readyScore(j job.Job) int64 {
	if j.RetryDelayUntil != nil {
		return j.RetryDelayUntil.Unix()
	}
	return j.CreatedAt.Unix()
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

var _ store.JobStore = (*Store)(nil)
