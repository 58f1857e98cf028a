package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/absmach/fldash/monitor"
	"github.com/absmach/fldash/pkg/auth"
)

var _ monitor.Service = (*MockService)(nil)

// MockService is a mock implementation of the monitor.Service interface
type MockService struct {
	mock.Mock
}

// Login selects a role
func (m *MockService) Login(ctx context.Context, role auth.Role) (auth.Session, monitor.Route, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(auth.Session), args.Get(1).(monitor.Route), args.Error(2)
}

// Logout clears the session
func (m *MockService) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockService) Session(ctx context.Context) auth.Session {
	args := m.Called(ctx)
	return args.Get(0).(auth.Session)
}

// Navigate enters a route
func (m *MockService) Navigate(ctx context.Context, route monitor.Route) (monitor.Route, error) {
	args := m.Called(ctx, route)
	return args.Get(0).(monitor.Route), args.Error(1)
}

func (m *MockService) Current(ctx context.Context) monitor.Route {
	args := m.Called(ctx)
	return args.Get(0).(monitor.Route)
}

// ServerState reads the aggregate view
func (m *MockService) ServerState(ctx context.Context) (monitor.ServerState, error) {
	args := m.Called(ctx)
	return args.Get(0).(monitor.ServerState), args.Error(1)
}

// ClientState reads the single-client view
func (m *MockService) ClientState(ctx context.Context) (monitor.ClientState, error) {
	args := m.Called(ctx)
	return args.Get(0).(monitor.ClientState), args.Error(1)
}

// Shutdown tears down the mounted view
func (m *MockService) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
