package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const scanBatchSize = 1000

type RedisStore struct {
	rdb *goredis.Client
}

type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewRedisStore connects and pings the server, failing fast on a bad address.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// NewRedisStoreFromClient wraps an existing client without pinging it.
func NewRedisStoreFromClient(rdb *goredis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) IncrementScore(ctx context.Context, key, member string, delta float64) error {
	return s.rdb.ZIncrBy(ctx, key, delta, member).Err()
}

func (s *RedisStore) SetWithScore(ctx context.Context, key, member string, score float64) error {
	return s.rdb.ZAddGT(ctx, key, goredis.Z{Score: score, Member: member}).Err()
}

func (s *RedisStore) TopNByScore(ctx context.Context, key string, n int) ([]Member, error) {
	zs, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, stopIndex(n)).Result()
	if err != nil {
		return nil, err
	}
	return toMembers(zs), nil
}

func (s *RedisStore) TopNByScoreMany(ctx context.Context, keys []string, n int) ([]MembersResult, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.ZSliceCmd, len(keys))
	_, err := s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.ZRevRangeWithScores(ctx, key, 0, stopIndex(n))
		}
		return nil
	})
	if err != nil && allFailed(cmdErrors(cmds)) {
		return nil, err
	}

	results := make([]MembersResult, len(keys))
	for i, cmd := range cmds {
		zs, cmdErr := cmd.Result()
		if cmdErr != nil {
			results[i].Err = cmdErr
			continue
		}
		results[i].Members = toMembers(zs)
	}
	return results, nil
}

func (s *RedisStore) ScoreMany(ctx context.Context, lookups []KeyMember) ([]ScoreResult, error) {
	if len(lookups) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.FloatCmd, len(lookups))
	_, err := s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, l := range lookups {
			cmds[i] = pipe.ZScore(ctx, l.Key, l.Member)
		}
		return nil
	})

	errs := make([]error, len(cmds))
	for i, cmd := range cmds {
		if cmdErr := cmd.Err(); cmdErr != nil && !errors.Is(cmdErr, goredis.Nil) {
			errs[i] = cmdErr
		}
	}
	if err != nil && !errors.Is(err, goredis.Nil) && allFailed(errs) {
		return nil, err
	}

	results := make([]ScoreResult, len(lookups))
	for i, cmd := range cmds {
		if errs[i] != nil {
			results[i].Err = errs[i]
			continue
		}
		if errors.Is(cmd.Err(), goredis.Nil) {
			continue
		}
		results[i] = ScoreResult{Score: cmd.Val(), Found: true}
	}
	return results, nil
}

func (s *RedisStore) DeleteKey(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) ScanKeysByPattern(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Pipeline runs the queued writes inside MULTI/EXEC.
func (s *RedisStore) Pipeline(ctx context.Context, fn func(pipe Pipe) error) error {
	var fnErr error
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		fnErr = fn(&redisPipe{ctx: ctx, pipe: pipe})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return err
}

type redisPipe struct {
	ctx  context.Context
	pipe goredis.Pipeliner
}

func (p *redisPipe) IncrementScore(key, member string, delta float64) {
	p.pipe.ZIncrBy(p.ctx, key, delta, member)
}

func (p *redisPipe) SetWithScore(key, member string, score float64) {
	p.pipe.ZAddGT(p.ctx, key, goredis.Z{Score: score, Member: member})
}

func (p *redisPipe) DeleteKey(key string) {
	p.pipe.Del(p.ctx, key)
}

func (p *redisPipe) Expire(key string, ttl time.Duration) {
	p.pipe.Expire(p.ctx, key, ttl)
}

func stopIndex(n int) int64 {
	if n <= 0 {
		return -1
	}
	return int64(n - 1)
}

func toMembers(zs []goredis.Z) []Member {
	members := make([]Member, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			id = fmt.Sprint(z.Member)
		}
		members = append(members, Member{ID: id, Score: z.Score})
	}
	return members
}

func cmdErrors(cmds []*goredis.ZSliceCmd) []error {
	errs := make([]error, len(cmds))
	for i, cmd := range cmds {
		errs[i] = cmd.Err()
	}
	return errs
}

func allFailed(errs []error) bool {
	for _, err := range errs {
		if err == nil {
			return false
		}
	}
	return len(errs) > 0
}
