// Package runner 在多台主机上并发执行包管理任务
package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/bbq191/sparks-go/internal/pkgmgr"
	"github.com/bbq191/sparks-go/internal/platform"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// OpenFunc 建立到主机的连接
type OpenFunc func(ctx context.Context, host string) (transport.Connection, error)

// Target 任务在单台主机上的执行环境
type Target struct {
	Host    string
	Session *platform.Session
	Manager *pkgmgr.Manager
}

// Task 在单台主机上执行的任务
type Task func(ctx context.Context, target *Target) error

// HostResult 单台主机的执行结果
type HostResult struct {
	Host     string
	Error    error
	Duration time.Duration
}

// Runner 多主机执行器
//
// 连接和会话在 Runner 的生命周期内复用，同一主机的多次 Run 只探测一次平台。
type Runner struct {
	open    OpenFunc
	cache   *platform.Cache
	logger  *logrus.Logger
	workers int
	opts    pkgmgr.Options

	mu    sync.Mutex
	conns map[string]transport.Connection
}

// NewRunner 创建执行器，workers <= 0 时使用默认并发数
func NewRunner(open OpenFunc, cache *platform.Cache, logger *logrus.Logger, workers int) *Runner {
	return &Runner{
		open:    open,
		cache:   cache,
		logger:  logger,
		workers: workers,
		conns:   make(map[string]transport.Connection),
	}
}

// SetBackendOptions 设置每台主机上后端的构造选项
func (r *Runner) SetBackendOptions(opts pkgmgr.Options) {
	r.opts = opts
}

// Run 在每台主机上执行任务
//
// 单台主机失败不影响其他主机，所有失败汇总为 *multierror.Error 返回。
// 出现致命错误（如 PreconditionError）时取消尚未完成的主机。
func (r *Runner) Run(ctx context.Context, hosts []string, task Task) ([]*HostResult, error) {
	hosts = uniqueHosts(hosts)
	workers := WorkerCount(len(hosts), r.workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if len(hosts) > 1 {
		r.logger.Infof("在 %d 台主机上执行，并发数 %d", len(hosts), workers)
	}

	results := make([]*HostResult, len(hosts))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, host := range hosts {
		g.Go(func() error {
			start := time.Now()
			err := r.runOne(ctx, host, task)
			results[i] = &HostResult{Host: host, Error: err, Duration: time.Since(start)}

			if err != nil {
				r.logger.Debugf("[%s] 执行失败: %v", host, err)
				if pkgmgr.IsFatal(err) {
					cancel()
				}
			}
			return nil
		})
	}
	g.Wait()

	var errs *multierror.Error
	for _, result := range results {
		if result.Error != nil {
			errs = multierror.Append(errs, fmt.Errorf("[%s] %w", result.Host, result.Error))
		}
	}

	return results, errs.ErrorOrNil()
}

func (r *Runner) runOne(ctx context.Context, host string, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := r.connect(ctx, host)
	if err != nil {
		return err
	}

	session := r.cache.Session(host, conn)
	manager := pkgmgr.NewManager(session, r.logger)
	manager.InitializeBackends(r.opts)

	return task(ctx, &Target{Host: host, Session: session, Manager: manager})
}

// connect 返回已有连接或新建连接
func (r *Runner) connect(ctx context.Context, host string) (transport.Connection, error) {
	r.mu.Lock()
	conn, ok := r.conns[host]
	r.mu.Unlock()
	if ok {
		return conn, nil
	}

	conn, err := r.open(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("连接 %s 失败: %w", host, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.conns[host]; ok {
		conn.Close()
		return existing, nil
	}
	r.conns[host] = conn
	return conn, nil
}

// Close 关闭全部连接并清除对应会话
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs *multierror.Error
	for host, conn := range r.conns {
		if err := conn.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("关闭 %s 失败: %w", host, err))
		}
		r.cache.Forget(host)
		delete(r.conns, host)
	}
	return errs.ErrorOrNil()
}

// WorkerCount 计算并发数
//
// configured > 0 时使用配置值，否则按 CPU 数的 4 倍估算（任务主要在等待网络）；
// 结果不超过主机数且至少为 1。
func WorkerCount(hostCount, configured int) int {
	workers := configured
	if workers <= 0 {
		workers = runtime.NumCPU() * 4
	}
	if workers > hostCount {
		workers = hostCount
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// uniqueHosts 去除重复主机，保留顺序
func uniqueHosts(hosts []string) []string {
	seen := make(map[string]bool, len(hosts))
	unique := make([]string, 0, len(hosts))
	for _, host := range hosts {
		if seen[host] {
			continue
		}
		seen[host] = true
		unique = append(unique, host)
	}
	return unique
}
