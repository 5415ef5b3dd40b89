package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/sports-tips-platform/pkg/contracts/events"
)

// fakeReader entrega as mensagens em ordem e cancela o contexto ao esvaziar
type fakeReader struct {
	msgs   []kafka.Message
	errs   []error
	cancel context.CancelFunc
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

type fakeBroadcaster struct {
	channel  string
	payloads [][]byte
	err      error
}

func (b *fakeBroadcaster) Publish(_ context.Context, channel string, payload []byte) error {
	if b.err != nil {
		return b.err
	}
	b.channel = channel
	b.payloads = append(b.payloads, payload)
	return nil
}

func msg(t *testing.T, ev events.TipChanged) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Key: []byte(ev.TipID), Value: b}
}

func TestRelay_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		errs: []error{errors.New("broker hiccup")},
		msgs: []kafka.Message{
			msg(t, events.TipChanged{TipID: "t1", Kind: events.TipSettled, Status: "won"}),
			{Value: []byte("not json")},
			{Value: []byte(`{"kind":"tip_updated"}`)},
			msg(t, events.TipChanged{TipID: "t2", Kind: events.CommentAdded}),
		},
		cancel: cancel,
	}
	bc := &fakeBroadcaster{}

	var consumed, published int
	stages := map[string]int{}
	relay := &Relay{
		Log:         zap.NewNop(),
		Reader:      reader,
		Broadcaster: bc,
		Channel:     "tip_changes_broadcast",
		RetryDelay:  1,
		OnConsumed:  func() { consumed++ },
		OnPublished: func() { published++ },
		OnError:     func(stage string) { stages[stage]++ },
	}

	if err := relay.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if consumed != 4 || published != 2 {
		t.Errorf("consumed=%d published=%d", consumed, published)
	}
	if stages["read"] != 1 || stages["decode"] != 2 {
		t.Errorf("stages = %v", stages)
	}
	if bc.channel != "tip_changes_broadcast" {
		t.Errorf("channel = %s", bc.channel)
	}

	var first events.TipChanged
	if err := json.Unmarshal(bc.payloads[0], &first); err != nil {
		t.Fatal(err)
	}
	if first.TipID != "t1" || first.Kind != events.TipSettled || first.Status != "won" {
		t.Errorf("unexpected payload %+v", first)
	}
}

func TestRelay_PublishFailureContinues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		msgs:   []kafka.Message{msg(t, events.TipChanged{TipID: "t1"}), msg(t, events.TipChanged{TipID: "t2"})},
		cancel: cancel,
	}
	stages := map[string]int{}
	relay := &Relay{
		Log:         zap.NewNop(),
		Reader:      reader,
		Broadcaster: &fakeBroadcaster{err: errors.New("redis down")},
		OnError:     func(stage string) { stages[stage]++ },
	}

	_ = relay.Run(ctx)
	if stages["publish"] != 2 {
		t.Errorf("stages = %v", stages)
	}
}

func TestNormalize_Timestamp(t *testing.T) {
	sent := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	withTime := msg(t, events.TipChanged{TipID: "t1"})
	withTime.Time = sent

	tests := []struct {
		name  string
		m     kafka.Message
		check func(int64) bool
	}{
		{"kept", msg(t, events.TipChanged{TipID: "t1", TsUnixMs: 42}), func(ts int64) bool { return ts == 42 }},
		{"from message time", withTime, func(ts int64) bool { return ts == sent.UnixMilli() }},
		{"now", msg(t, events.TipChanged{TipID: "t1"}), func(ts int64) bool { return ts > 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := normalize(tt.m)
			if err != nil {
				t.Fatal(err)
			}
			var ev events.TipChanged
			if err := json.Unmarshal(b, &ev); err != nil {
				t.Fatal(err)
			}
			if !tt.check(ev.TsUnixMs) {
				t.Errorf("ts_unix_ms = %d", ev.TsUnixMs)
			}
		})
	}
}
