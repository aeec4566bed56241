// Package ai wraps text generation providers behind a single interface and
// chains them for failover.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNoProviders is returned by a Chain with nothing configured.
var ErrNoProviders = errors.New("no AI providers configured")

// Generator produces a completion for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder receives one call per provider attempt.
type Recorder interface {
	RecordAIRequest(provider, outcome string)
}

// Chain tries its providers in order and returns the first non-empty answer.
type Chain struct {
	providers []Generator
	logger    logrus.FieldLogger
	recorder  Recorder
}

func NewChain(logger logrus.FieldLogger, recorder Recorder, providers ...Generator) *Chain {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Chain{providers: providers, logger: logger, recorder: recorder}
}

// Empty reports whether no provider is configured.
func (c *Chain) Empty() bool {
	return len(c.providers) == 0
}

// Generate returns the answer and the name of the provider that produced it.
func (c *Chain) Generate(ctx context.Context, prompt string) (string, string, error) {
	if c.Empty() {
		return "", "", ErrNoProviders
	}

	var errs []error
	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		answer, err := provider.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(answer) == "" {
			err = errors.New("empty response")
		}
		if err != nil {
			c.record(provider.Name(), "error")
			c.logger.WithError(err).WithField("provider", provider.Name()).Warn("AI provider failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
			continue
		}

		c.record(provider.Name(), "success")
		return strings.TrimSpace(answer), provider.Name(), nil
	}
	return "", "", errors.Join(errs...)
}

func (c *Chain) record(provider, outcome string) {
	if c.recorder != nil {
		c.recorder.RecordAIRequest(provider, outcome)
	}
}
