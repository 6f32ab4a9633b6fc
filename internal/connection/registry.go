package connection

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// Registry tracks managers by client name. It is owned by the caller; there
// is no process-wide instance.
type Registry struct {
	logger *slog.Logger

	mu       sync.Mutex
	managers map[string]*Manager
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:   logger,
		managers: make(map[string]*Manager),
	}
}

// Build creates a manager for cfg.Name and starts it if cfg.StartRunning is
// set. A manager already registered under that name is stopped,
// disconnected and replaced. The started loop lives until ctx is cancelled or
// the manager is stopped.
func (r *Registry) Build(ctx context.Context, cfg Config, transport Transport, opts ...Option) (*Manager, error) {
	if cfg.Name == "" {
		return nil, ErrEmptyName
	}

	m := NewManager(cfg, transport, r.logger, opts...)

	r.mu.Lock()
	old := r.managers[cfg.Name]
	r.managers[cfg.Name] = m
	r.mu.Unlock()

	if old != nil {
		r.logger.Info("replacing client", "client", cfg.Name)
		if err := shutdown(ctx, old); err != nil {
			r.logger.Warn("replaced client did not stop cleanly", "client", cfg.Name, "error", err)
		}
	}

	if cfg.StartRunning {
		if err := m.Start(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Get returns the manager registered under name.
func (r *Registry) Get(name string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[name]
	return m, ok
}

// Remove stops, disconnects and forgets the manager registered under name.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	m, ok := r.managers[name]
	delete(r.managers, name)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return shutdown(ctx, m)
}

// Names returns the registered client names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.managers))
	for name := range r.managers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops and disconnects every manager.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	managers := r.managers
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()

	var errs []error
	for _, m := range managers {
		if err := shutdown(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// shutdown waits for the loop to exit before disconnecting so it cannot
// reconnect behind Disconnect.
func shutdown(ctx context.Context, m *Manager) error {
	m.Stop()
	err := m.Wait(ctx)
	m.Disconnect()
	return err
}
