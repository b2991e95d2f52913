package mixnode

import (
	"math/rand"
	"time"
)

// FillDummies pads batch toward cfg.BatchSize, drawing a Bernoulli trial
// per open slot and appending a dummy message on success (spec §4.6: "pad
// to batch_size with dummy messages drawn from a Bernoulli(dummy_probability)
// generator when under quota").
func FillDummies(batch []Message, cfg Config, rng *rand.Rand) []Message {
	open := cfg.BatchSize - len(batch)
	for i := 0; i < open; i++ {
		if rng.Float64() < cfg.DummyProbability {
			batch = append(batch, Message{Dummy: true, Data: nil})
		}
	}
	return batch
}

// Shuffle randomizes batch order in place using rng (Fisher-Yates).
func Shuffle(batch []Message, rng *rand.Rand) {
	rng.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
}

// ShapeDelay returns how long to sleep before releasing a batch of size n
// so that, combined with the time already elapsed since lastFlush, the
// node's long-run output rate approaches cfg.TargetRateMsgSec (spec §4.6:
// "sleeping the minimum residual interval").
func ShapeDelay(cfg Config, n int, elapsedSinceLast time.Duration) time.Duration {
	if cfg.TargetRateMsgSec <= 0 || n == 0 {
		return 0
	}
	target := time.Duration(float64(n) / cfg.TargetRateMsgSec * float64(time.Second))
	residual := target - elapsedSinceLast
	if residual < 0 {
		return 0
	}
	return residual
}

// Jitter draws a uniform random delay in [JitterMin, JitterMax).
func Jitter(cfg Config, rng *rand.Rand) time.Duration {
	if cfg.JitterMax <= cfg.JitterMin {
		return cfg.JitterMin
	}
	span := cfg.JitterMax - cfg.JitterMin
	return cfg.JitterMin + time.Duration(rng.Int63n(int64(span)))
}
