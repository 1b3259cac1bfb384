package storage

import (
	"io"
	"os"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the blob operations services depend on.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(key string, r io.Reader, limit int64) (int64, error) {
	args := m.Called(key, r, limit)
	if n, ok := args.Get(0).(int64); ok {
		_, _ = io.Copy(io.Discard, r)
		return n, args.Error(1)
	}
	written, _ := io.Copy(io.Discard, r)
	return written, args.Error(1)
}

func (m *MockStorage) Open(key string) (*os.File, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*os.File), args.Error(1)
}

func (m *MockStorage) Remove(keys ...string) error {
	args := m.Called(keys)
	return args.Error(0)
}
