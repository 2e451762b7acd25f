package loader

import (
	"errors"
	"time"
)

// Config holds the loader's wording and timings.
type Config struct {
	InitialMessages     []string
	LongRequestMessages []string

	RotateEvery      time.Duration
	LongRequestAfter time.Duration
	ElapsedEvery     time.Duration
	HideDelay        time.Duration
	ErrorHideDelay   time.Duration
	CustomDuration   time.Duration

	SlowAfter   time.Duration
	SlowMessage string
	TookAfter   time.Duration
	TookMessage string
	DoneMessage string

	TotalFormat  string
	ErrorMessage string
}

// DefaultConfig returns the stock wording and timings.
func DefaultConfig() Config {
	return Config{
		InitialMessages: []string{
			"Connecting to the AI...",
			"Preparing the generation...",
			"Analyzing your emotion...",
		},
		LongRequestMessages: []string{
			"The AI is processing your request...",
			"Generating the perfect phrase...",
			"This may take a few more seconds...",
			"Almost there...",
		},
		RotateEvery:      2 * time.Second,
		LongRequestAfter: 3 * time.Second,
		ElapsedEvery:     time.Second,
		HideDelay:        time.Second,
		ErrorHideDelay:   3 * time.Second,
		CustomDuration:   2 * time.Second,

		SlowAfter:   10 * time.Second,
		SlowMessage: "Done! (The connection was slow, but it was worth it)",
		TookAfter:   5 * time.Second,
		TookMessage: "Done! (The AI took its time to create something special)",
		DoneMessage: "Done!",

		TotalFormat:  "Total time: %ds",
		ErrorMessage: "Generation failed",
	}
}

// Validate rejects empty message sets and non-positive timings.
func (c *Config) Validate() error {
	if len(c.InitialMessages) == 0 || len(c.LongRequestMessages) == 0 {
		return errors.New("loader: message sets must not be empty")
	}
	for _, d := range []time.Duration{c.RotateEvery, c.LongRequestAfter, c.ElapsedEvery, c.HideDelay, c.ErrorHideDelay, c.CustomDuration} {
		if d <= 0 {
			return errors.New("loader: timings must be > 0")
		}
	}
	if c.TookAfter > c.SlowAfter {
		return errors.New("loader: TookAfter must not exceed SlowAfter")
	}
	return nil
}
