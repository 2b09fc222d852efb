package memory

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const (
	defaultLimit           = 2 * 1024 * 1024 * 1024
	defaultMonitorInterval = 30 * time.Second
	longLivedThreshold     = 50
)

// Manager accounts for every Mat created with it as tracker and enforces a
// byte limit on new allocations.
type Manager struct {
	mu           sync.RWMutex
	logger       logger.Logger
	maxMemory    int64
	usedMemory   int64
	allocCount   int64
	deallocCount int64
	activeMats   map[uint64]*MatInfo
	cancel       context.CancelFunc
}

type MatInfo struct {
	ID        uint64
	Tag       string
	Size      int64
	Timestamp time.Time
}

type Stats struct {
	Allocations   int64
	Deallocations int64
	UsedBytes     int64
	ActiveMats    int
}

type Option func(*Manager)

// WithLimit caps the bytes held by live Mats; allocations past it fail.
func WithLimit(bytes int64) Option {
	return func(m *Manager) { m.maxMemory = bytes }
}

// NewManager starts a background monitor that logs statistics until
// Shutdown is called. A zero interval disables the monitor.
func NewManager(log logger.Logger, interval time.Duration, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	manager := &Manager{
		logger:     log,
		maxMemory:  defaultLimit,
		activeMats: make(map[uint64]*MatInfo),
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(manager)
	}

	if interval > 0 {
		go manager.monitorMemory(ctx, interval)
	}
	return manager
}

// NewDefaultManager uses the default monitor interval.
func NewDefaultManager(log logger.Logger) *Manager {
	return NewManager(log, defaultMonitorInterval)
}

// GetMat allocates a tracked Mat, failing when the limit would be exceeded.
func (m *Manager) GetMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	if err := m.reserve(int64(rows*cols*safe.TypeSize(matType)), tag); err != nil {
		return nil, err
	}
	return safe.NewMatWithTracker(rows, cols, matType, m, tag)
}

// FromBytes copies data into a tracked Mat.
func (m *Manager) FromBytes(rows, cols int, matType gocv.MatType, data []byte, tag string) (*safe.Mat, error) {
	if err := m.reserve(int64(len(data)), tag); err != nil {
		return nil, err
	}
	return safe.NewMatFromBytesWithTracker(rows, cols, matType, data, m, tag)
}

// Adopt takes over a Mat produced by gocv, cloning it into a tracked
// wrapper and closing the original.
func (m *Manager) Adopt(mat gocv.Mat, tag string) (*safe.Mat, error) {
	defer mat.Close()
	if err := m.reserve(int64(mat.Rows()*mat.Cols()*safe.TypeSize(mat.Type())), tag); err != nil {
		return nil, err
	}
	return safe.NewMatFromMatWithTracker(mat, m, tag)
}

func (m *Manager) reserve(size int64, tag string) error {
	m.mu.RLock()
	used := m.usedMemory
	m.mu.RUnlock()

	if used+size > m.maxMemory {
		runtime.GC()
		return fmt.Errorf("memory limit exceeded for %s: would use %d bytes, limit is %d",
			tag, used+size, m.maxMemory)
	}
	return nil
}

func (m *Manager) TrackAllocation(id uint64, size int64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usedMemory += size
	m.allocCount++
	m.activeMats[id] = &MatInfo{
		ID:        id,
		Tag:       tag,
		Size:      size,
		Timestamp: time.Now(),
	}
}

func (m *Manager) TrackDeallocation(id uint64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deallocCount++
	if info, exists := m.activeMats[id]; exists {
		m.usedMemory -= info.Size
		delete(m.activeMats, id)
	}
}

// ReleaseMat closes mat; accounting happens through TrackDeallocation.
func (m *Manager) ReleaseMat(mat *safe.Mat) {
	if mat == nil {
		return
	}
	if mat.IsValid() {
		m.logger.Debug("MemoryManager", "Mat released", map[string]interface{}{
			"id":  mat.ID(),
			"tag": mat.Tag(),
		})
	}
	mat.Close()
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Allocations:   m.allocCount,
		Deallocations: m.deallocCount,
		UsedBytes:     m.usedMemory,
		ActiveMats:    len(m.activeMats),
	}
}

func (m *Manager) monitorMemory(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performMonitoringCheck()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) performMonitoringCheck() {
	stats := m.Stats()

	m.logger.Debug("MemoryManager", "memory statistics", map[string]interface{}{
		"allocations":   stats.Allocations,
		"deallocations": stats.Deallocations,
		"used_bytes":    stats.UsedBytes,
		"active_mats":   stats.ActiveMats,
	})

	if stats.ActiveMats > longLivedThreshold {
		m.logOldestMats(5)
	}
	if stats.UsedBytes > m.maxMemory*8/10 {
		runtime.GC()
	}
}

func (m *Manager) logOldestMats(count int) {
	m.mu.RLock()
	infos := make([]MatInfo, 0, len(m.activeMats))
	for _, info := range m.activeMats {
		infos = append(infos, *info)
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.Before(infos[j].Timestamp)
	})

	now := time.Now()
	for i := 0; i < count && i < len(infos); i++ {
		m.logger.Warning("MemoryManager", "long-lived Mat detected", map[string]interface{}{
			"tag":  infos[i].Tag,
			"size": infos[i].Size,
			"age":  now.Sub(infos[i].Timestamp).String(),
		})
	}
}

// Shutdown stops the monitor and reports Mats that were never released.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, info := range m.activeMats {
		m.logger.Warning("MemoryManager", "unreleased Mat at shutdown", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
		})
		delete(m.activeMats, id)
	}
	m.usedMemory = 0
}
