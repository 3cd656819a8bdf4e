package datatable

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/lock"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

// withDDLLock 同一数据表的结构变更串行执行，拿不到锁返回 ErrDatatableLocked.
func (s *DatatableService) withDDLLock(ctx context.Context, datatable, operation string, fn func() error) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDDL(operation, err, time.Since(start)) }()

	ttl, retry := s.Locks.Resolve(options.LockDatatableDDL)
	if s.Options.DDLLockTTL > 0 {
		ttl = s.Options.DDLLockTTL
	}
	var rc *storage.RedisCluster
	if s.Locks.Enabled && s.Redis != nil {
		if s.Redis.Up() != nil && s.Locks.RedisDownAction == "fail" {
			metrics.LockAcquire.WithLabelValues(options.LockDatatableDDL, "error").Inc()
			return errors.WithCode(code.ErrRedis, "redis 不可用，无法获取数据表锁")
		}
		rc = s.Redis
	}
	locker := lock.New(rc, s.Locks.KeyPrefix+options.LockDatatableDDL+":"+datatable, ttl)

	if err := backoff.Retry(func() error {
		ok, err := locker.TryAcquire(ctx, 0, 0)
		switch {
		case ok:
			return nil
		case err == nil, stderrors.Is(err, lock.ErrLockAcquisitionFailed):
			return lock.ErrLockAcquisitionFailed
		default:
			return backoff.Permanent(err)
		}
	}, backoff.WithContext(retryPolicy(retry, ttl), ctx)); err != nil {
		if stderrors.Is(err, lock.ErrLockAcquisitionFailed) {
			metrics.LockAcquire.WithLabelValues(options.LockDatatableDDL, "busy").Inc()
			return errors.WithCode(code.ErrDatatableLocked,
				"Datatable `%s` is being modified by another request, try again later.", datatable)
		}
		metrics.LockAcquire.WithLabelValues(options.LockDatatableDDL, "error").Inc()
		return errors.WithCode(code.ErrRedis, "获取数据表锁失败: %v", err)
	}
	metrics.LockAcquire.WithLabelValues(options.LockDatatableDDL, "acquired").Inc()

	defer func() {
		if rerr := locker.Release(context.WithoutCancel(ctx)); rerr != nil {
			log.L(ctx).Warnw("释放数据表锁失败", "datatable", datatable, "error", rerr)
		}
	}()
	return fn()
}

func retryPolicy(retry options.RetryOptions, ttl time.Duration) backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(retry.Interval)
	if retry.BackoffType == "exponential" {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = retry.Interval
		eb.MaxElapsedTime = ttl
		b = eb
	}
	if retry.MaxCount <= 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(b, uint64(retry.MaxCount))
}
