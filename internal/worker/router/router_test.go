package router

import (
	"testing"

	"dex-arb/internal/worker/config"

	"go.uber.org/zap"
)

func TestWriterForReuse(t *testing.T) {
	r := NewEventRouter(config.KafkaConfig{
		Brokers:             "localhost:9092",
		StrategyTopicPrefix: "strategy-",
	}, zap.NewNop())
	defer r.CloseAll()

	w1 := r.writerFor("arbitrage")
	w2 := r.writerFor("arbitrage")
	if w1 != w2 {
		t.Error("expected writer reuse for same strategy type")
	}
	if w1.Topic != "strategy-arbitrage" {
		t.Errorf("topic = %s, want strategy-arbitrage", w1.Topic)
	}

	w3 := r.writerFor("momentum")
	if w3 == w1 {
		t.Error("expected distinct writer per strategy type")
	}
}
