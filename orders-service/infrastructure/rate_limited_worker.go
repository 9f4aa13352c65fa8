package infrastructure

import (
	"context"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// RateLimitedWorker throttles outbound stage calls. Waiting counts against the caller's
// deadline, so a saturated limiter surfaces as an unavailable stage.
type RateLimitedWorker struct {
	next    domain.StageWorker
	limiter *rate.Limiter
}

// NewRateLimitedWorker wraps next with a token bucket of perSecond and burst
func NewRateLimitedWorker(next domain.StageWorker, perSecond float64, burst int) *RateLimitedWorker {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedWorker{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (w *RateLimitedWorker) Invoke(ctx context.Context, req domain.StageRequest) (domain.StageReply, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return domain.StageReply{}, errors.Wrap(err, "stage worker rate limit")
	}
	return w.next.Invoke(ctx, req)
}
