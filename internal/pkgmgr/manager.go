package pkgmgr

import (
	"context"
	"fmt"
	"iter"

	"github.com/bbq191/sparks-go/internal/platform"
	"github.com/sirupsen/logrus"
)

// defaultSelection 通用操作的后端选择表
//
// ports 与 pacman 不在表中，只能通过 Use 专门调用。
var defaultSelection = map[platform.OSFamily]string{
	platform.LinuxLSB: "apt",
	platform.OSX:      "brew",
}

var _ Operations = (*Manager)(nil)

// Manager 包管理调度器，绑定一个主机会话
type Manager struct {
	session  *platform.Session
	logger   *logrus.Logger
	backends map[string]Backend
	order    []string // 注册顺序
	table    map[platform.OSFamily]string
}

// NewManager 创建调度器，不注册任何后端
func NewManager(session *platform.Session, logger *logrus.Logger) *Manager {
	table := make(map[platform.OSFamily]string, len(defaultSelection))
	for family, name := range defaultSelection {
		table[family] = name
	}

	return &Manager{
		session:  session,
		logger:   logger,
		backends: make(map[string]Backend),
		table:    table,
	}
}

// Session 返回调度器绑定的会话
func (m *Manager) Session() *platform.Session {
	return m.session
}

// RegisterBackend 注册后端，同名后端会被替换
func (m *Manager) RegisterBackend(backend Backend) {
	if _, exists := m.backends[backend.Name()]; !exists {
		m.order = append(m.order, backend.Name())
	}
	m.backends[backend.Name()] = backend
	m.logger.Debugf("注册包管理后端: %s", backend.Name())
}

// InitializeBackends 注册全部内置后端
func (m *Manager) InitializeBackends(opts Options) {
	t := m.session.Transport()

	m.RegisterBackend(NewApt(t, m.logger, opts))
	m.RegisterBackend(NewBrew(t, m.logger, opts))
	m.RegisterBackend(NewPorts(t, m.logger, opts))
	m.RegisterBackend(NewPacman(t, m.logger, opts))
	m.RegisterBackend(NewPip(t, m.logger, opts))
	m.RegisterBackend(NewNpm(t, m.logger, opts))
	m.RegisterBackend(NewGem(t, m.logger, opts))
}

// SetObserver 为所有内置后端设置安装事件观察者
func (m *Manager) SetObserver(o Observer) {
	for _, backend := range m.backends {
		if b, ok := backend.(interface{ setObserver(Observer) }); ok {
			b.setObserver(o)
		}
	}
}

// Names 按注册顺序返回后端名称
func (m *Manager) Names() []string {
	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// Lookup 按名称查找后端
func (m *Manager) Lookup(name string) (Backend, error) {
	backend, ok := m.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	return backend, nil
}

// Apt 返回 APT 后端，用于软件源管理
func (m *Manager) Apt(ctx context.Context) (*Apt, error) {
	backend, err := m.Use(ctx, "apt")
	if err != nil {
		return nil, err
	}

	apt, ok := backend.(*Apt)
	if !ok {
		return nil, fmt.Errorf("后端 apt 不支持软件源管理")
	}
	return apt, nil
}

// Select 根据主机信息选择通用操作使用的后端
func (m *Manager) Select(profile *platform.HostProfile) (Backend, error) {
	name, ok := m.table[profile.OSFamily]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedPlatform, profile.Host, profile.OSFamily)
	}
	return m.Lookup(name)
}

// Recommended 获取会话主机信息并选择后端
func (m *Manager) Recommended(ctx context.Context) (Backend, error) {
	profile, err := m.session.Profile(ctx)
	if err != nil {
		return nil, err
	}
	return m.Select(profile)
}

// Use 返回指定后端，后端在该主机上不可用时返回 ErrUnsupportedPlatform
func (m *Manager) Use(ctx context.Context, name string) (Backend, error) {
	backend, err := m.Lookup(name)
	if err != nil {
		return nil, err
	}

	profile, err := m.session.Profile(ctx)
	if err != nil {
		return nil, err
	}

	usable, err := backend.Usable(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !usable {
		return nil, fmt.Errorf("%w: %s 在 %s 上不可用", ErrUnsupportedPlatform, name, profile.Host)
	}

	return backend, nil
}

// Available 返回在该主机上可用的后端名称
//
// 出现 PreconditionError 时立即返回该错误。
func (m *Manager) Available(ctx context.Context) ([]string, error) {
	profile, err := m.session.Profile(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]string, 0, len(m.order))
	for _, name := range m.order {
		usable, err := m.backends[name].Usable(ctx, profile)
		if err != nil {
			return nil, err
		}
		if usable {
			available = append(available, name)
		}
	}
	return available, nil
}

// IsInstalled 使用推荐后端检查包是否已安装
func (m *Manager) IsInstalled(ctx context.Context, name string) (bool, error) {
	backend, err := m.Recommended(ctx)
	if err != nil {
		return false, err
	}
	return backend.IsInstalled(ctx, name)
}

// Add 使用推荐后端安装包
func (m *Manager) Add(ctx context.Context, pkgs ...string) (bool, error) {
	backend, err := m.Recommended(ctx)
	if err != nil {
		return false, err
	}
	return backend.Add(ctx, pkgs...)
}

// Remove 使用推荐后端删除包
func (m *Manager) Remove(ctx context.Context, pkgs ...string) error {
	backend, err := m.Recommended(ctx)
	if err != nil {
		return err
	}
	return backend.Remove(ctx, pkgs...)
}

// Update 使用推荐后端刷新包索引
func (m *Manager) Update(ctx context.Context) error {
	backend, err := m.Recommended(ctx)
	if err != nil {
		return err
	}
	return backend.Update(ctx)
}

// Upgrade 使用推荐后端升级全部包
func (m *Manager) Upgrade(ctx context.Context) error {
	backend, err := m.Recommended(ctx)
	if err != nil {
		return err
	}
	return backend.Upgrade(ctx)
}

// Search 使用推荐后端搜索
//
// 选择后端失败时为每个包产出一个携带错误的结果。
func (m *Manager) Search(ctx context.Context, pkgs ...string) iter.Seq[SearchResult] {
	backend, err := m.Recommended(ctx)
	if err != nil {
		names := Normalize(pkgs...)
		return func(yield func(SearchResult) bool) {
			for _, name := range names {
				if !yield(SearchResult{Package: name, Err: err}) {
					return
				}
			}
		}
	}
	return backend.Search(ctx, pkgs...)
}
