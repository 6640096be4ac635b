package platform

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
)

const ubuntuLSB = `Distributor ID:	Ubuntu
Description:	Ubuntu 14.04.1 LTS
Release:	14.04
Codename:	trusty
`

const linuxUname = "Linux\nduncan\n3.13.0-24-generic\n#46-Ubuntu SMP\nx86_64\n"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // 静默日志
	return logger
}

// newUbuntuFake 构造一台 Ubuntu 主机的模拟通道
func newUbuntuFake() *transport.Fake {
	fake := transport.NewFake("duncan")
	fake.On("lsb_release", ubuntuLSB, 0)
	fake.On("uname", linuxUname, 0)
	fake.On("echo", "olive,/home/olive\n", 0)
	fake.On("prl_fs", "", 1)
	return fake
}

// TestDetect_Ubuntu 测试 LSB 主机的探测
func TestDetect_Ubuntu(t *testing.T) {
	var out bytes.Buffer
	detector := NewDetector(newUbuntuFake(), testLogger())
	detector.SetOutput(&out)

	profile, err := detector.Detect(context.Background())
	if err != nil {
		t.Fatalf("探测不应该失败: %v", err)
	}

	if profile.OSFamily != LinuxLSB {
		t.Errorf("期望 LinuxLSB，实际为 %s", profile.OSFamily)
	}

	if profile.Distribution == nil || profile.Distribution.Release != "14.04" || profile.Distribution.Codename != "trusty" {
		t.Errorf("发行版信息解析错误: %+v", profile.Distribution)
	}

	if !profile.IsUbuntu() || !profile.IsDebian() || profile.IsArch() {
		t.Error("Ubuntu 谓词判断错误")
	}

	if profile.Kernel.NodeName != "duncan" || profile.Kernel.Machine != "x86_64" {
		t.Errorf("内核信息解析错误: %+v", profile.Kernel)
	}

	if profile.User != "olive" || profile.Home != "/home/olive" {
		t.Errorf("用户信息解析错误: %s %s", profile.User, profile.Home)
	}

	if profile.IsVM || profile.IsParallels || profile.IsVMware {
		t.Error("不应该检测为虚拟机")
	}

	if profile.MajorRelease() != 14 {
		t.Errorf("期望主版本号 14，实际为 %d", profile.MajorRelease())
	}

	if profile.Tilde("bin", "sublime") != "/home/olive/bin/sublime" {
		t.Errorf("Tilde 结果错误: %s", profile.Tilde("bin", "sublime"))
	}

	if !strings.Contains(out.String(), "duncan") {
		t.Errorf("摘要应该包含主机名，实际为 %q", out.String())
	}
}

// TestDetect_MalformedLSB 测试 LSB 输出无法解析时回退为 OSX
func TestDetect_MalformedLSB(t *testing.T) {
	fake := newUbuntuFake()
	fake.On("lsb_release", "command not found", 127)
	fake.On("uname", "Darwin\nmacbook\n13.0.0\nDarwin Kernel\nx86_64\n", 0)

	detector := NewDetector(fake, testLogger())
	detector.SetSilent(true)

	profile, err := detector.Detect(context.Background())
	if err != nil {
		t.Fatalf("LSB 解析失败不应该是错误: %v", err)
	}

	if profile.OSFamily != OSX {
		t.Errorf("期望 OSX，实际为 %s", profile.OSFamily)
	}

	if profile.Distribution != nil {
		t.Error("OSX 不应该有发行版信息")
	}
}

// TestDetect_Parallels 测试 Parallels 虚拟机检测
func TestDetect_Parallels(t *testing.T) {
	fake := newUbuntuFake()
	fake.On("prl_fs", "none on /media/psf type prl_fs", 0)

	detector := NewDetector(fake, testLogger())
	detector.SetSilent(true)

	profile, err := detector.Detect(context.Background())
	if err != nil {
		t.Fatalf("探测不应该失败: %v", err)
	}

	if !profile.IsParallels || !profile.IsVM {
		t.Error("应该检测为 Parallels 虚拟机")
	}

	if profile.IsVMware {
		t.Error("VMware 检测未实现，应该恒为 false")
	}

	if !strings.Contains(Summary(profile), "Parallels") {
		t.Error("摘要应该标注 Parallels")
	}
}

// TestDetect_BadKernelOutput 测试内核探测输出格式错误
func TestDetect_BadKernelOutput(t *testing.T) {
	fake := newUbuntuFake()
	fake.On("uname", "Linux\n", 0)

	detector := NewDetector(fake, testLogger())
	detector.SetSilent(true)

	_, err := detector.Detect(context.Background())
	if !errors.Is(err, ErrProbe) {
		t.Errorf("期望 ErrProbe，实际为 %v", err)
	}
}

// TestParseLSB 测试 LSB 解析
func TestParseLSB(t *testing.T) {
	if _, err := ParseLSB(""); err == nil {
		t.Error("空输出应该解析失败")
	}

	if _, err := ParseLSB("{'ID': 'Ubuntu'}"); err == nil {
		t.Error("非键值输出应该解析失败")
	}

	if _, err := ParseLSB("Release:\t14.04\n"); err == nil {
		t.Error("缺少 Distributor ID 应该解析失败")
	}

	dist, err := ParseLSB("Distributor ID:\tArch\nRelease:\trolling\n")
	if err != nil {
		t.Fatalf("解析不应该失败: %v", err)
	}
	if !dist.IsArch() || dist.PackageManager() != "pacman" {
		t.Errorf("Arch 判断错误: %+v", dist)
	}
}

// TestSession_ProfileCached 测试会话只探测一次并返回同一实例
func TestSession_ProfileCached(t *testing.T) {
	fake := newUbuntuFake()
	session := NewSession(fake, testLogger())
	session.Detector().SetSilent(true)
	ctx := context.Background()

	first, err := session.Profile(ctx)
	if err != nil {
		t.Fatalf("探测不应该失败: %v", err)
	}

	second, err := session.Profile(ctx)
	if err != nil {
		t.Fatalf("第二次获取不应该失败: %v", err)
	}

	if first != second {
		t.Error("两次调用应该返回同一个实例")
	}

	if count := fake.Count("lsb_release"); count != 1 {
		t.Errorf("期望探测 1 次，实际 %d 次", count)
	}
}

// TestSession_FailureNotCached 测试通道失败时不缓存，下次重试
func TestSession_FailureNotCached(t *testing.T) {
	fake := newUbuntuFake()
	fake.OnError("uname", errors.New("connection refused"))

	session := NewSession(fake, testLogger())
	session.Detector().SetSilent(true)
	ctx := context.Background()

	if _, err := session.Profile(ctx); err == nil {
		t.Fatal("通道失败时应该返回错误")
	}

	// 恢复连接后重新探测
	fake.On("uname", linuxUname, 0)

	profile, err := session.Profile(ctx)
	if err != nil {
		t.Fatalf("重试不应该失败: %v", err)
	}
	if profile.Kernel.NodeName != "duncan" {
		t.Error("重试后应该得到完整信息")
	}

	if count := fake.Count("lsb_release"); count != 2 {
		t.Errorf("期望探测 2 次，实际 %d 次", count)
	}
}

// TestSession_ConcurrentFirstUse 测试并发首次调用共享一次探测
func TestSession_ConcurrentFirstUse(t *testing.T) {
	fake := newUbuntuFake()
	session := NewSession(fake, testLogger())
	session.Detector().SetSilent(true)
	ctx := context.Background()

	var wg sync.WaitGroup
	profiles := make([]*HostProfile, 8)
	for i := range profiles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			profiles[i], _ = session.Profile(ctx)
		}(i)
	}
	wg.Wait()

	for i, p := range profiles {
		if p == nil || p != profiles[0] {
			t.Fatalf("调用 %d 返回了不同的实例", i)
		}
	}

	if count := fake.Count("lsb_release"); count != 1 {
		t.Errorf("期望探测 1 次，实际 %d 次", count)
	}
}

// TestCache_KeyedByHost 测试会话表按主机区分
func TestCache_KeyedByHost(t *testing.T) {
	cache := NewCache(testLogger())

	a := cache.Session("a", transport.NewFake("a"))
	b := cache.Session("b", transport.NewFake("b"))
	again := cache.Session("a", transport.NewFake("a"))
	bob := cache.Session("bob@a", transport.NewFake("a"))

	if a == b {
		t.Error("不同主机应该得到不同会话")
	}
	if a != again {
		t.Error("同一主机应该复用会话")
	}
	if bob == a {
		t.Error("同一别名下的不同用户应该得到不同会话")
	}

	cache.Forget("a")
	if cache.Session("a", transport.NewFake("a")) == a {
		t.Error("Forget 之后应该创建新会话")
	}
}
