package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/sports-tips-platform/pkg/contracts/events"
)

type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Relay consome mudanças de tips do Kafka e as repassa ao Redis Pub/Sub,
// de onde cada réplica do tips-service empurra invalidações via websocket.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Relay struct {
	Log         *zap.Logger
	Reader      Reader
	Broadcaster Broadcaster
	Channel     string

	RetryDelay time.Duration

	OnConsumed  func()       // métricas (counter++)
	OnPublished func()       // métricas
	OnError     func(string) // métricas por fase
}

func (p *Relay) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

// Run inicia o loop principal de consumo até o contexto ser cancelado
func (p *Relay) Run(ctx context.Context) error {
	delay := p.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		payload, err := normalize(m)
		if err != nil {
			p.Log.Warn("invalid message", zap.ByteString("key", m.Key), zap.Error(err))
			p.fail("decode")
			continue
		}

		pctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		err = p.Broadcaster.Publish(pctx, p.Channel, payload)
		cancel()
		if err != nil {
			// invalidação perdida: o cliente ainda converge pelo TTL do cache e pelo próximo evento
			p.Log.Warn("redis publish failed", zap.Error(err))
			p.fail("publish")
			continue
		}
		if p.OnPublished != nil {
			p.OnPublished()
		}
	}
}

// normalize valida o evento e reserializa só os campos do contrato.
// Sem timestamp, vale o horário da mensagem no Kafka (ou o de agora).
func normalize(m kafka.Message) ([]byte, error) {
	var ev events.TipChanged
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return nil, err
	}
	if ev.TipID == "" {
		return nil, errors.New("tip_id missing")
	}
	if ev.TsUnixMs == 0 {
		ts := m.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		ev.TsUnixMs = ts.UnixMilli()
	}
	return json.Marshal(ev)
}
