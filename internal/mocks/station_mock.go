package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStation is a mock implementation of the services.Station interface
type MockStation struct {
	mock.Mock
}

func (m *MockStation) Begin(ssid, password string) error {
	args := m.Called(ssid, password)
	return args.Error(0)
}

func (m *MockStation) Reconnect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockStation) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockAccessPoint is a mock implementation of the services.AccessPoint interface
type MockAccessPoint struct {
	mock.Mock
}

func (m *MockAccessPoint) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAccessPoint) Stop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
