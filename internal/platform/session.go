package platform

import (
	"context"
	"sync"

	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Session 绑定一个执行通道，并缓存该主机的 HostProfile
//
// 首次调用 Profile 时执行探测，之后返回同一个实例。探测失败不缓存，
// 下次调用会重新探测。并发的首次调用只触发一次探测。
type Session struct {
	transport transport.Transport
	detector  *Detector
	logger    *logrus.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	profile *HostProfile
}

// NewSession 创建会话
func NewSession(t transport.Transport, logger *logrus.Logger) *Session {
	return &Session{
		transport: t,
		detector:  NewDetector(t, logger),
		logger:    logger,
	}
}

// NewSessionWithProfile 使用已知的主机信息创建会话，不再执行探测
func NewSessionWithProfile(t transport.Transport, profile *HostProfile, logger *logrus.Logger) *Session {
	s := NewSession(t, logger)
	s.profile = profile
	return s
}

// Transport 返回会话的执行通道
func (s *Session) Transport() transport.Transport {
	return s.transport
}

// Detector 返回会话使用的探测器
func (s *Session) Detector() *Detector {
	return s.detector
}

// Profile 返回缓存的主机信息，首次调用时探测
func (s *Session) Profile(ctx context.Context) (*HostProfile, error) {
	if profile := s.cached(); profile != nil {
		return profile, nil
	}

	v, err, _ := s.group.Do(s.transport.Host(), func() (interface{}, error) {
		if profile := s.cached(); profile != nil {
			return profile, nil
		}

		profile, err := s.detector.Detect(ctx)
		if err != nil {
			s.logger.Debugf("[%s] 平台探测失败，不缓存: %v", s.transport.Host(), err)
			return nil, err
		}

		s.mu.Lock()
		s.profile = profile
		s.mu.Unlock()
		return profile, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*HostProfile), nil
}

func (s *Session) cached() *HostProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Cache 以主机标识为键的会话表，用于多主机运行
type Cache struct {
	logger   *logrus.Logger
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewCache 创建会话表
func NewCache(logger *logrus.Logger) *Cache {
	return &Cache{
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Session 返回 host 对应的会话，不存在时以 t 创建
//
// host 是完整的主机标识（含用户名与端口），同一别名下的不同用户对应不同会话。
func (c *Cache) Session(host string, t transport.Transport) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[host]; ok {
		return s
	}

	s := NewSession(t, c.logger)
	c.sessions[host] = s
	return s
}

// Forget 移除主机的会话（连接关闭后调用）
func (c *Cache) Forget(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, host)
}
