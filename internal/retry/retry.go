package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/domain"
)

// Policy retries transient-class store failures with exponential backoff
// plus full jitter. Business failures and permanent store errors are
// returned on the first attempt.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

// None performs a single attempt. Request-path callers use it so business
// errors surface to the caller instead of being retried internally.
var None = Policy{Attempts: 1}

func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !domain.IsTransient(err) || attempt == attempts-1 {
			return err
		}

		wait := p.BaseDelay << attempt
		if p.BaseDelay > 0 {
			wait += time.Duration(rand.Int63n(int64(p.BaseDelay)))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
