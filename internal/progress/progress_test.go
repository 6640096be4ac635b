package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bbq191/sparks-go/internal/pkgmgr"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

// TestTracker_Summary 测试事件统计
func TestTracker_Summary(t *testing.T) {
	var out bytes.Buffer
	tracker := NewTracker(3, &out, testLogger(), true)

	events := []pkgmgr.Event{
		{Type: pkgmgr.EventStart, Host: "a", Backend: "apt", Package: "vim"},
		{Type: pkgmgr.EventSkipped, Host: "a", Backend: "apt", Package: "vim", Duration: time.Second},
		{Type: pkgmgr.EventStart, Host: "a", Backend: "apt", Package: "git"},
		{Type: pkgmgr.EventInstalled, Host: "a", Backend: "apt", Package: "git", Duration: 2 * time.Second},
		{Type: pkgmgr.EventStart, Host: "b", Backend: "brew", Package: "git"},
		{Type: pkgmgr.EventFailed, Host: "b", Backend: "brew", Package: "git", Error: errors.New("boom")},
	}
	for _, event := range events {
		tracker.Notify(event)
	}

	summary := tracker.Summary()
	if summary.Installed != 1 || summary.Skipped != 1 || summary.Failed != 1 {
		t.Errorf("统计错误: %+v", summary)
	}

	if len(summary.Results) != 3 {
		t.Fatalf("期望 3 条结果，实际 %d 条", len(summary.Results))
	}

	if summary.Results[2].Host != "b" || summary.Results[2].Error == nil {
		t.Errorf("同名包应该按主机区分: %+v", summary.Results[2])
	}

	if summary.Duration != 3*time.Second {
		t.Errorf("期望总耗时 3 秒，实际 %v", summary.Duration)
	}

	if out.Len() != 0 {
		t.Error("静默模式不应该输出状态行")
	}
}

// TestTracker_PrintSummaryTable 测试总结表格输出
func TestTracker_PrintSummaryTable(t *testing.T) {
	var out bytes.Buffer
	tracker := NewTracker(1, &out, testLogger(), false)

	tracker.Notify(pkgmgr.Event{Type: pkgmgr.EventStart, Host: "duncan", Backend: "apt", Package: "vim"})
	tracker.Notify(pkgmgr.Event{Type: pkgmgr.EventInstalled, Host: "duncan", Backend: "apt", Package: "vim"})
	tracker.Close()
	tracker.PrintSummaryTable()

	output := out.String()
	for _, want := range []string{"duncan", "vim", "已安装", "总计: 安装 1, 跳过 0, 失败 0"} {
		if !strings.Contains(output, want) {
			t.Errorf("输出应该包含 %q", want)
		}
	}
}

// TestTracker_Concurrent 测试并发通知
func TestTracker_Concurrent(t *testing.T) {
	tracker := NewTracker(20, &bytes.Buffer{}, testLogger(), true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			host := string(rune('a' + i))
			tracker.Notify(pkgmgr.Event{Type: pkgmgr.EventStart, Host: host, Package: "vim"})
			tracker.Notify(pkgmgr.Event{Type: pkgmgr.EventInstalled, Host: host, Package: "vim"})
		}(i)
	}
	wg.Wait()

	if summary := tracker.Summary(); summary.Installed != 20 {
		t.Errorf("期望安装 20 个，实际 %d 个", summary.Installed)
	}
}

// TestTruncateString 测试字符串截断
func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("短字符串不应该被截断: %s", got)
	}
	if got := truncateString("a-very-long-package-name", 10); got != "a-very-..." {
		t.Errorf("截断结果错误: %s", got)
	}
}
