package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/nimblebooks/invoicing_backend/config"
)

// AcquireInvoiceTransitionLock serializes workflow transitions per invoice
// across instances. Without redis (tests, single-node dev) it returns a nil
// lock and the database row locks remain the only serialization, which is
// sufficient on a single writer.
func AcquireInvoiceTransitionLock(ctx context.Context, enterpriseId string, invoiceId int) (*redislock.Lock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	key := fmt.Sprintf("invoice-transition:%s:%d", enterpriseId, invoiceId)
	lock, err := locker.Obtain(ctx, key, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err != nil {
		return nil, fmt.Errorf("could not acquire transition lock for invoice %d: %w", invoiceId, err)
	}
	return lock, nil
}

func ReleaseInvoiceTransitionLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	_ = lock.Release(ctx)
}
