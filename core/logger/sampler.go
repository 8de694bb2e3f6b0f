package logger

import (
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	coreconfig "github.com/m3rciful/cupbot/core/config"
)

const decimalDenominator = 1000

// ratioSampler lets numerator out of every denominator events through.
// A zero ratio disables sampling.
type ratioSampler struct {
	ratio atomic.Uint64 // numerator<<32 | denominator
	count atomic.Uint64
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set configures the sampling ratio and restarts the cycle.
func (s *ratioSampler) Set(numerator, denominator int) {
	if numerator <= 0 || denominator <= 0 {
		numerator, denominator = 0, 0
	}
	numerator = min(numerator, denominator)
	s.ratio.Store(uint64(numerator)<<32 | uint64(uint32(denominator)))
	s.count.Store(0)
}

// Allow reports whether the current event should pass sampling.
func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	num, den := r>>32, r&math.MaxUint32
	if num == 0 || den == 0 {
		return true
	}
	n := s.count.Add(1) - 1
	return n%den < num
}

// parseDebugSample reads logging.debug_sample; the default is 1/50.
func parseDebugSample(cfg *coreconfig.Config) (int, int) {
	if cfg == nil || strings.TrimSpace(cfg.Logging.DebugSample) == "" {
		return 1, 50
	}
	num, den := parseRatio(cfg.Logging.DebugSample)
	if num == 0 && den == 0 {
		return 0, 0
	}
	if num <= 0 || den <= 0 {
		return 1, 50
	}
	return num, den
}

// parseRatio accepts "n/m", "m" (one in m) and decimal fractions like "0.1".
func parseRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0
	}
	if a, b, ok := strings.Cut(raw, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return -1, -1
		}
		return num, den
	}
	if v, err := strconv.Atoi(raw); err == nil {
		if v <= 0 {
			return 0, 0
		}
		return 1, v
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 && f <= 1 {
		return int(math.Round(f * decimalDenominator)), decimalDenominator
	}
	return -1, -1
}
