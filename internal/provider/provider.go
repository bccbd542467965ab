package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"cryptobot-signal/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const defaultRatePerSec = 5

// NewLimiter returns the cooperative limiter shared by every call a provider makes.
// There is no unlimited setting: non-positive rates fall back to the default.
func NewLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		perSec = defaultRatePerSec
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}

func waitTurn(ctx context.Context, limiter *rate.Limiter, inst domain.Instrument) error {
	if err := limiter.Wait(ctx); err != nil {
		return domain.NewFailure(domain.KindNetworkFailure, inst, fmt.Errorf("rate limiter: %w", err))
	}
	return nil
}

// classify maps a transport-level error to NetworkFailure and anything else to ProviderError.
func classify(inst domain.Instrument, op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != "" {
		return err
	}

	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr), errors.As(err, &urlErr):
		return domain.NewFailure(domain.KindNetworkFailure, inst, fmt.Errorf("%s: %w", op, err))
	default:
		return domain.NewFailure(domain.KindProviderError, inst, fmt.Errorf("%s: %w", op, err))
	}
}

func providerError(inst domain.Instrument, format string, args ...any) error {
	return domain.NewFailure(domain.KindProviderError, inst, fmt.Errorf(format, args...))
}

func parseDecimals(inst domain.Instrument, values ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, providerError(inst, "malformed number %q: %v", v, err)
		}
		out[i] = d
	}
	return out, nil
}
