package mocks

import (
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
)

// MockLight is a mock implementation of the services.Light interface
type MockLight struct {
	mock.Mock
}

func (m *MockLight) Set(on bool) error {
	args := m.Called(on)
	return args.Error(0)
}

// FakeLight records every level written to it.
type FakeLight struct {
	mu     sync.Mutex
	Levels []bool
}

func (f *FakeLight) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Levels = append(f.Levels, on)
	return nil
}

// Last returns the most recent level, false when never written.
func (f *FakeLight) Last() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Levels) == 0 {
		return false
	}
	return f.Levels[len(f.Levels)-1]
}

// FakeButton is a button whose level is set by the test.
type FakeButton struct {
	held atomic.Bool
}

func (f *FakeButton) Press()        { f.held.Store(true) }
func (f *FakeButton) Release()      { f.held.Store(false) }
func (f *FakeButton) Pressed() bool { return f.held.Load() }

// FakeEncoder latches gestures injected by the test, clearing each on read.
type FakeEncoder struct {
	right atomic.Bool
	left  atomic.Bool
	click atomic.Bool
}

func (f *FakeEncoder) TurnRight() { f.right.Store(true) }
func (f *FakeEncoder) TurnLeft()  { f.left.Store(true) }
func (f *FakeEncoder) Click()     { f.click.Store(true) }

func (f *FakeEncoder) IsRight() bool { return f.right.Swap(false) }
func (f *FakeEncoder) IsLeft() bool  { return f.left.Swap(false) }
func (f *FakeEncoder) IsClick() bool { return f.click.Swap(false) }

// Writes returns how many levels were written.
func (f *FakeLight) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Levels)
}
