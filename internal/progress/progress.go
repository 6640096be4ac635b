// Package progress 显示批量安装进度并汇总结果
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bbq191/sparks-go/internal/pkgmgr"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Result 单个包在单台主机上的处理结果
type Result struct {
	Host     string
	Package  string
	Backend  string
	Status   pkgmgr.EventType
	Error    error
	Duration time.Duration
}

// Summary 安装总结
type Summary struct {
	Total     int
	Installed int
	Skipped   int
	Failed    int
	Results   []*Result
	Duration  time.Duration
}

// Tracker 实现 pkgmgr.Observer，可被多台主机的安装协程同时调用
type Tracker struct {
	out         io.Writer
	logger      *logrus.Logger
	progressBar *progressbar.ProgressBar

	mu        sync.Mutex
	results   []*Result
	index     map[string]*Result
	total     int
	completed int
}

// NewTracker 创建进度跟踪器，total 为预计处理的包数（主机数 × 包数）
func NewTracker(total int, out io.Writer, logger *logrus.Logger, quiet bool) *Tracker {
	t := &Tracker{
		out:    out,
		logger: logger,
		index:  make(map[string]*Result),
		total:  total,
	}

	// 只在非静默模式时创建进度条
	if !quiet {
		t.progressBar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("📦 安装进度"),
			progressbar.OptionSetWidth(50),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerPadding: "░",
				BarStart:      "▐",
				BarEnd:        "▌",
			}),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("pkg"),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	return t
}

// Notify 处理单个安装事件
func (t *Tracker) Notify(event pkgmgr.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := event.Host + "\x00" + event.Package

	switch event.Type {
	case pkgmgr.EventStart:
		result := &Result{Host: event.Host, Package: event.Package, Backend: event.Backend, Status: pkgmgr.EventStart}
		t.results = append(t.results, result)
		t.index[key] = result
		t.logger.Debugf("[%s] 开始处理 %s", event.Host, event.Package)

	case pkgmgr.EventInstalled, pkgmgr.EventSkipped, pkgmgr.EventFailed:
		result, ok := t.index[key]
		if !ok {
			result = &Result{Host: event.Host, Package: event.Package, Backend: event.Backend}
			t.results = append(t.results, result)
			t.index[key] = result
		}
		result.Status = event.Type
		result.Error = event.Error
		result.Duration = event.Duration

		t.completed++
		t.printStatus(result)
		if t.progressBar != nil {
			t.progressBar.Add(1)
			t.progressBar.Describe(fmt.Sprintf("📦 安装进度 (%d/%d)", t.completed, t.total))
		}
	}
}

// printStatus 调用方需持有锁
func (t *Tracker) printStatus(result *Result) {
	if t.progressBar == nil {
		return
	}

	icon, status := statusLabel(result.Status)
	fmt.Fprintf(t.out, "\r%s [%s] %s (%s)    \n", icon, result.Host, result.Package, status)
}

// Close 结束进度条
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.progressBar != nil {
		t.progressBar.Finish()
	}
}

// Summary 获取安装总结
func (t *Tracker) Summary() *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := &Summary{
		Total:   t.total,
		Results: make([]*Result, 0, len(t.results)),
	}

	for _, result := range t.results {
		copied := *result
		summary.Results = append(summary.Results, &copied)
		summary.Duration += result.Duration

		switch result.Status {
		case pkgmgr.EventInstalled:
			summary.Installed++
		case pkgmgr.EventSkipped:
			summary.Skipped++
		case pkgmgr.EventFailed:
			summary.Failed++
		}
	}

	return summary
}

// PrintSummaryTable 打印总结表格
func (t *Tracker) PrintSummaryTable() {
	summary := t.Summary()

	fmt.Fprintf(t.out, "\n📊 安装结果统计:\n")
	fmt.Fprintf(t.out, "┌─────────────────┬─────────────────────┬──────────┬────────────┬──────────┐\n")
	fmt.Fprintf(t.out, "│ 主机            │ 包名                │ 后端     │ 状态       │ 耗时(秒) │\n")
	fmt.Fprintf(t.out, "├─────────────────┼─────────────────────┼──────────┼────────────┼──────────┤\n")

	for _, result := range summary.Results {
		icon, status := statusLabel(result.Status)
		fmt.Fprintf(t.out, "│ %-15s │ %-19s │ %-8s │ %-10s │ %8.2f │\n",
			truncateString(result.Host, 15),
			truncateString(result.Package, 19),
			result.Backend,
			icon+" "+status,
			result.Duration.Seconds(),
		)
	}

	fmt.Fprintf(t.out, "└─────────────────┴─────────────────────┴──────────┴────────────┴──────────┘\n")
	fmt.Fprintf(t.out, "总计: 安装 %d, 跳过 %d, 失败 %d, 总耗时: %.2f秒\n",
		summary.Installed, summary.Skipped, summary.Failed, summary.Duration.Seconds())
}

func statusLabel(status pkgmgr.EventType) (icon, label string) {
	switch status {
	case pkgmgr.EventInstalled:
		return "✅", "已安装"
	case pkgmgr.EventSkipped:
		return "⏭️", "已跳过"
	case pkgmgr.EventFailed:
		return "❌", "失败"
	default:
		return "🔄", "处理中"
	}
}

// truncateString 截断字符串到指定长度
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
