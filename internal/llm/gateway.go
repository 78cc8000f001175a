package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/qnagen/internal/logging"
	"github.com/ziadkadry99/qnagen/internal/metrics"
)

// FallbackPolicy decides how a call walks an ordered tier list. Quota-class
// failures on a non-final tier wait attempt*Delay and move on; everything
// else stops the walk.
type FallbackPolicy struct {
	IsQuota func(error) bool
	Delay   time.Duration
	Sleep   func(ctx context.Context, d time.Duration) error
}

// DefaultFallbackPolicy classifies with IsQuotaError and sleeps on a timer.
func DefaultFallbackPolicy(delay time.Duration) FallbackPolicy {
	return FallbackPolicy{
		IsQuota: IsQuotaError,
		Delay:   delay,
		Sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute runs fn once per tier in order until it succeeds or fails fatally.
// The returned attempts include the successful one, if any.
func (p FallbackPolicy) Execute(ctx context.Context, order []Tier, fn func(ctx context.Context, tier Tier) error) ([]Attempt, error) {
	if len(order) == 0 {
		return nil, errors.New("fallback policy: empty tier list")
	}
	isQuota := p.IsQuota
	if isQuota == nil {
		isQuota = IsQuotaError
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	attempts := make([]Attempt, 0, len(order))
	for i, tier := range order {
		err := fn(ctx, tier)
		if err == nil {
			attempts = append(attempts, Attempt{Tier: tier})
			return attempts, nil
		}

		quota := isQuota(err)
		attempts = append(attempts, Attempt{Tier: tier, Quota: quota, Err: err})
		if !quota {
			return attempts, err
		}
		if i == len(order)-1 {
			return attempts, &QuotaError{Tier: tier, Err: err}
		}

		next := order[i+1]
		metrics.LLMFallbackTotal.WithLabelValues(string(tier), string(next)).Inc()
		logging.FromContext(ctx).Warn("quota-class failure, falling back",
			"from", tier, "to", next, "attempt", i+1, "error", err)

		if err := sleep(ctx, time.Duration(i+1)*p.Delay); err != nil {
			return attempts, err
		}
	}
	return attempts, fmt.Errorf("fallback policy: no tier succeeded")
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// Models maps each tier to the provider model name.
	Models      map[Tier]string
	CallTimeout time.Duration
	MaxTokens   int
	Temperature float64
	Policy      FallbackPolicy
}

// Gateway invokes the generative provider with quota-aware tier fallback.
// It is stateless between calls and safe for concurrent use.
type Gateway struct {
	provider Provider
	cfg      GatewayConfig
}

// NewGateway creates a Gateway over the given provider.
func NewGateway(provider Provider, cfg GatewayConfig) *Gateway {
	return &Gateway{provider: provider, cfg: cfg}
}

// Invoke sends prompt (and an optional image) to the provider, trying tiers
// in the order derived from preferred. The returned record describes the
// successful call; the caller owns appending it to its ledger.
func (g *Gateway) Invoke(ctx context.Context, prompt string, image *Image, preferred Tier) (*Invocation, error) {
	var inv Invocation

	attempts, err := g.cfg.Policy.Execute(ctx, preferred.Order(), func(ctx context.Context, tier Tier) error {
		resp, err := g.call(ctx, tier, prompt, image)
		if err != nil {
			return err
		}
		inv.Text = resp.Content
		inv.Record = recordFrom(tier, g.cfg.Models[tier], resp)
		return nil
	})
	inv.Attempts = attempts
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (g *Gateway) call(ctx context.Context, tier Tier, prompt string, image *Image) (*CompletionResponse, error) {
	if g.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Model:       g.cfg.Models[tier],
		Messages:    []Message{{Role: RoleUser, Content: prompt, Image: image}},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	metrics.LLMCallDuration.WithLabelValues(g.provider.Name(), string(tier)).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.LLMCallTotal.WithLabelValues(g.provider.Name(), string(tier), "ok").Inc()
	case IsQuotaError(err):
		metrics.LLMCallTotal.WithLabelValues(g.provider.Name(), string(tier), "quota").Inc()
		return nil, err
	default:
		metrics.LLMCallTotal.WithLabelValues(g.provider.Name(), string(tier), "error").Inc()
		return nil, err
	}
	return resp, nil
}

func recordFrom(tier Tier, model string, resp *CompletionResponse) CallRecord {
	prompt := max(resp.InputTokens, 0)
	completion := max(resp.OutputTokens, 0)
	total := resp.TotalTokens
	if total <= 0 {
		total = prompt + completion
	}
	if resp.Model != "" {
		model = resp.Model
	}

	metrics.LLMTokensUsed.WithLabelValues(string(tier), "prompt").Add(float64(prompt))
	metrics.LLMTokensUsed.WithLabelValues(string(tier), "completion").Add(float64(completion))

	return CallRecord{
		Tier:             tier,
		Model:            model,
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}
