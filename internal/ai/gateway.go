// Package ai wraps the external text-generation service behind a monetary budget.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"fitcoach/backend/internal/config"
	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/repository"
)

var (
	// ErrBudgetExceeded is returned once the recorded spend reached the cap. It is
	// retryable only after the counter is reset or the cap raised.
	ErrBudgetExceeded = errors.New("AI budget exceeded")
	// ErrGenerationTimeout is returned when the provider did not answer within the deadline.
	ErrGenerationTimeout = errors.New("AI generation timed out")
)

// MockedResponse is returned without touching the usage counter when no credential is configured.
const MockedResponse = `{"message":"Mocked AI response because API key is missing."}`

// Completer performs one text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway gates every completion on the budget and records its estimated cost.
type Gateway struct {
	usage     repository.UsageRepository
	completer Completer
	budgetUSD float64
	costPer1K float64
	timeout   time.Duration
	logger    *slog.Logger
}

// NewGateway creates a Gateway. A nil completer selects the mocked no-op path.
func NewGateway(usage repository.UsageRepository, completer Completer, cfg config.AIConfig, logger *slog.Logger) *Gateway {
	return &Gateway{
		usage:     usage,
		completer: completer,
		budgetUSD: cfg.BudgetUSD,
		costPer1K: cfg.CostPer1KTokens,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// EstimateTokens approximates the token count of prompt as ceil(len/4).
func EstimateTokens(prompt string) int64 {
	return int64(math.Ceil(float64(len(prompt)) / 4))
}

// EstimateCost prices tokens at costPer1K per thousand.
func EstimateCost(tokens int64, costPer1K float64) float64 {
	return float64(tokens) / 1000 * costPer1K
}

// Invoke sends prompt to the provider and returns its text.
//
// The estimate is charged before the call, in the same atomic step that checks the
// cap, so concurrent callers cannot both slip under it. A failed call keeps its charge.
func (g *Gateway) Invoke(ctx context.Context, prompt string) (string, error) {
	// 1. Read-only pre-check: no call and no mutation once the cap is reached.
	usage, err := g.usage.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("read AI usage: %w", err)
	}
	if usage.TotalCostUSD >= g.budgetUSD {
		g.logger.WarnContext(ctx, "AI budget exhausted",
			slog.Float64("total_cost_usd", usage.TotalCostUSD), slog.Float64("budget_usd", g.budgetUSD))
		return "", ErrBudgetExceeded
	}

	// 2. No credential: fixed payload, counter untouched.
	if g.completer == nil {
		g.logger.DebugContext(ctx, "AI credential missing, returning mocked response")
		return MockedResponse, nil
	}

	// 3. Reserve the estimated spend.
	tokens := EstimateTokens(prompt)
	cost := EstimateCost(tokens, g.costPer1K)
	updated, err := g.usage.Add(ctx, tokens, cost, g.budgetUSD)
	if err != nil {
		if errors.Is(err, repository.ErrBudgetExceeded) {
			return "", ErrBudgetExceeded
		}
		return "", fmt.Errorf("record AI usage: %w", err)
	}

	// 4. Bounded provider call.
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.completer.Complete(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			g.logger.WarnContext(ctx, "AI generation timed out", slog.Duration("timeout", g.timeout))
			return "", fmt.Errorf("%w after %s", ErrGenerationTimeout, g.timeout)
		}
		return "", fmt.Errorf("AI completion: %w", err)
	}

	g.logger.InfoContext(ctx, "AI generation completed",
		slog.Int64("estimated_tokens", tokens),
		slog.Float64("estimated_cost_usd", cost),
		slog.Float64("total_cost_usd", updated.TotalCostUSD),
		slog.Duration("duration", time.Since(start)))
	return text, nil
}

// UsageReport is the counter together with the remaining budget.
type UsageReport struct {
	domain.AIUsage
	BudgetUSD    float64 `json:"budgetUsd"`
	RemainingUSD float64 `json:"remainingUsd"`
}

// Usage reports cumulative spend against the cap.
func (g *Gateway) Usage(ctx context.Context) (UsageReport, error) {
	usage, err := g.usage.Get(ctx)
	if err != nil {
		return UsageReport{}, fmt.Errorf("read AI usage: %w", err)
	}
	return UsageReport{
		AIUsage:      *usage,
		BudgetUSD:    g.budgetUSD,
		RemainingUSD: math.Max(0, g.budgetUSD-usage.TotalCostUSD),
	}, nil
}

// ResetUsage zeroes the counter, reopening the gate.
func (g *Gateway) ResetUsage(ctx context.Context) error {
	if err := g.usage.Reset(ctx); err != nil {
		return fmt.Errorf("reset AI usage: %w", err)
	}
	g.logger.InfoContext(ctx, "AI usage counter reset")
	return nil
}
