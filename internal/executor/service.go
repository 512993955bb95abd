package executor

import (
	"context"
	"fmt"
	"sync"

	"dbdeck/internal/session"
	"dbdeck/internal/tunnel"
)

// PasswordSource resolves a profile's password when the profile itself does
// not carry one. Backed by the OS keyring in production.
type PasswordSource interface {
	LookupPassword(profileID string) (string, error)
}

type conn struct {
	backend   Backend
	tunnelKey string
}

// Service owns the live database connections for workspaces and the SSH
// tunnels they ride on. It implements session.Executor.
type Service struct {
	mu        sync.Mutex
	conns     map[string]*conn
	tunnels   *tunnel.Registry
	passwords PasswordSource
}

func NewService(tunnels *tunnel.Registry, passwords PasswordSource) *Service {
	return &Service{
		conns:     make(map[string]*conn),
		tunnels:   tunnels,
		passwords: passwords,
	}
}

// EnsureTunnel establishes the SSH tunnel a profile needs, if any. Safe to
// call concurrently for the same tunnel; the registry reuses a live tunnel.
func (s *Service) EnsureTunnel(ctx context.Context, p session.Profile) error {
	key := session.TunnelKey(p)
	if key == "" {
		return nil
	}
	return s.tunnels.Ensure(key, tunnelConfig(p))
}

func tunnelConfig(p session.Profile) tunnel.Config {
	return tunnel.Config{
		Host:       p.SSH.Host,
		Port:       p.SSH.Port,
		User:       p.SSH.User,
		Password:   p.SSH.Password,
		KeyPath:    p.SSH.KeyPath,
		RemoteHost: p.Host,
		RemotePort: p.Port,
	}
}

// Connect opens a backend for the workspace. SSH profiles are dialed through
// the registry's tunnel, with the backend pointed at the local forward port.
func (s *Service) Connect(ctx context.Context, workspaceID string, p session.Profile) error {
	s.mu.Lock()
	if _, ok := s.conns[workspaceID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	cfg := Config{
		Driver:           p.Driver,
		Host:             p.Host,
		Port:             p.Port,
		Database:         p.Database,
		Username:         p.Username,
		Password:         p.Password,
		SSLMode:          p.SSLMode,
		Project:          p.Project,
		Dataset:          p.Dataset,
		CredentialsFile:  p.CredentialsFile,
		BigQueryAuthMode: p.BigQueryAuthMode,
	}
	if cfg.Password == "" && s.passwords != nil {
		if pw, err := s.passwords.LookupPassword(p.ID); err == nil {
			cfg.Password = pw
		}
	}

	tunnelKey := session.TunnelKey(p)
	if tunnelKey != "" {
		tun, err := s.tunnels.Acquire(tunnelKey, tunnelConfig(p))
		if err != nil {
			return fmt.Errorf("ssh tunnel: %w", err)
		}
		cfg.Host = "127.0.0.1"
		cfg.Port = tun.LocalPort()
	}

	backend, err := NewBackend(p.Driver)
	if err != nil {
		if tunnelKey != "" {
			s.tunnels.Release(tunnelKey)
		}
		return err
	}
	if err := backend.Connect(cfg); err != nil {
		if tunnelKey != "" {
			s.tunnels.Release(tunnelKey)
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[workspaceID]; ok {
		// Lost the race to another connect for the same workspace.
		_ = backend.Close()
		if tunnelKey != "" {
			s.tunnels.Release(tunnelKey)
		}
		return nil
	}
	s.conns[workspaceID] = &conn{backend: backend, tunnelKey: tunnelKey}
	return nil
}

// Disconnect closes the workspace's backend and releases its tunnel hold.
func (s *Service) Disconnect(ctx context.Context, workspaceID string) error {
	s.mu.Lock()
	c, ok := s.conns[workspaceID]
	if ok {
		delete(s.conns, workspaceID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	err := c.backend.Close()
	if c.tunnelKey != "" {
		s.tunnels.Release(c.tunnelKey)
	}
	return err
}

func (s *Service) backendFor(workspaceID string) (Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[workspaceID]
	if !ok {
		return nil, fmt.Errorf("workspace %s is not connected", workspaceID)
	}
	return c.backend, nil
}

func (s *Service) ListDatabases(ctx context.Context, workspaceID string) ([]string, error) {
	b, err := s.backendFor(workspaceID)
	if err != nil {
		return nil, err
	}
	return b.ListDatabases()
}

func (s *Service) ListTables(ctx context.Context, workspaceID string) ([]string, error) {
	b, err := s.backendFor(workspaceID)
	if err != nil {
		return nil, err
	}
	return b.ListTables()
}

func (s *Service) TableData(ctx context.Context, workspaceID, table string, limit, offset int64) (QueryResult, error) {
	b, err := s.backendFor(workspaceID)
	if err != nil {
		return QueryResult{}, err
	}
	return b.TableData(table, limit, offset)
}

func (s *Service) TableStructure(ctx context.Context, workspaceID, table string) ([]Column, error) {
	b, err := s.backendFor(workspaceID)
	if err != nil {
		return nil, err
	}
	return b.TableStructure(table)
}

func (s *Service) Query(ctx context.Context, workspaceID, query string) (QueryResult, error) {
	b, err := s.backendFor(workspaceID)
	if err != nil {
		return QueryResult{}, err
	}
	return b.Query(query)
}

// CloseAll tears down every backend and tunnel. Called on shutdown.
func (s *Service) CloseAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[string]*conn)
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.backend.Close()
	}
	s.tunnels.CloseAll()
}
