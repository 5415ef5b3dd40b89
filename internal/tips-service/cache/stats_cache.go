package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const genKey = "stats:gen"

// StatsCache guarda números derivados (resumos, leaderboard) com TTL.
// As chaves carregam a geração atual; Invalidate incrementa a geração
// e todas as entradas antigas deixam de ser lidas.
type StatsCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{R: r, TTL: ttl}
}

func (c *StatsCache) generation(ctx context.Context) (string, error) {
	g, err := c.R.Get(ctx, genKey).Int64()
	if err == redis.Nil {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(g, 10), nil
}

func (c *StatsCache) key(ctx context.Context, name string) (string, error) {
	g, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return "stats:" + g + ":" + name, nil
}

// Get procura name na geração atual e devolve a chave consultada.
// Set deve receber essa mesma chave: um valor calculado antes de um
// Invalidate fica preso à geração antiga e nunca é lido depois.
func (c *StatsCache) Get(ctx context.Context, name string, dst any) (string, bool, error) {
	k, err := c.key(ctx, name)
	if err != nil {
		return "", false, err
	}
	b, err := c.R.Get(ctx, k).Bytes()
	if err == redis.Nil {
		return k, false, nil
	}
	if err != nil {
		return k, false, err
	}
	return k, true, json.Unmarshal(b, dst)
}

func (c *StatsCache) Set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, c.TTL).Err()
}

func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.R.Incr(ctx, genKey).Err()
}

// Nop não guarda nada (STORE=memory sem Redis, testes)
type Nop struct{}

func (Nop) Get(context.Context, string, any) (string, bool, error) { return "", false, nil }
func (Nop) Set(context.Context, string, any) error                 { return nil }
func (Nop) Invalidate(context.Context) error                       { return nil }
