// Package bloomfilter 已注册数据表名称的存在性预判，未命中的名称不必查库.
package bloomfilter

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

const filterType = "datatable"

// Loader 返回全部已注册的数据表名称.
type Loader func(ctx context.Context) ([]string, error)

// NameFilter 只会误报存在，不会漏报；尚未加载完成时一律视为可能存在.
type NameFilter struct {
	mu         sync.RWMutex
	filter     *bloom.BloomFilter
	ready      bool
	lastUpdate time.Time

	opts   *options.BloomFilterOptions
	loader Loader
	stop   chan struct{}
	once   sync.Once
}

func New(opts *options.BloomFilterOptions, loader Loader) *NameFilter {
	if opts == nil {
		opts = options.NewBloomFilterOptions()
	}
	opts.Complete()
	return &NameFilter{
		filter: bloom.NewWithEstimates(opts.Capacity, opts.FalsePositiveRate),
		opts:   opts,
		loader: loader,
		stop:   make(chan struct{}),
	}
}

// Rebuild 从数据库重新加载，整体替换旧过滤器.
func (f *NameFilter) Rebuild(ctx context.Context) error {
	if f == nil || !f.opts.Enabled || f.loader == nil {
		return nil
	}
	names, err := f.loader(ctx)
	if err != nil {
		return err
	}
	capacity := uint(float64(len(names)) * 1.5) // 预留50%的空间
	if capacity < f.opts.Capacity {
		capacity = f.opts.Capacity
	}
	next := bloom.NewWithEstimates(capacity, f.opts.FalsePositiveRate)
	for _, n := range names {
		if n != "" {
			next.AddString(n)
		}
	}

	f.mu.Lock()
	f.filter = next
	f.ready = true
	f.lastUpdate = time.Now()
	f.mu.Unlock()

	metrics.BloomFilterEstimatedSize.WithLabelValues(filterType).Set(float64(next.ApproximatedSize()))
	log.Infof("布隆过滤器 %s 重建完成，数据量: %d", filterType, len(names))
	return nil
}

// Add 新注册的数据表立即加入.
func (f *NameFilter) Add(name string) {
	if f == nil || name == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(name)
}

// MightContain 返回 false 时名称一定未注册.
func (f *NameFilter) MightContain(name string) bool {
	if f == nil || !f.opts.Enabled {
		return true
	}
	f.mu.RLock()
	ready, hit := f.ready, f.filter.TestString(name)
	f.mu.RUnlock()
	if !ready {
		return true
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.BloomFilterChecks.WithLabelValues(filterType, result).Inc()
	return hit
}

// Start 首次加载后按 RebuildInterval 定期重建，删除过的名称随之清除.
func (f *NameFilter) Start(ctx context.Context) {
	if f == nil || !f.opts.Enabled {
		return
	}
	if err := f.Rebuild(ctx); err != nil {
		log.Errorf("加载布隆过滤器 %s 失败: %v", filterType, err)
	}
	interval := f.opts.RebuildInterval
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := f.Rebuild(ctx); err != nil {
					log.Errorf("更新布隆过滤器 %s 失败: %v", filterType, err)
				}
			case <-ctx.Done():
				return
			case <-f.stop:
				log.Info("布隆过滤器更新任务停止")
				return
			}
		}
	}()
}

func (f *NameFilter) Stop() {
	if f == nil {
		return
	}
	f.once.Do(func() { close(f.stop) })
}

// LastUpdate 最近一次重建时间.
func (f *NameFilter) LastUpdate() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastUpdate
}
