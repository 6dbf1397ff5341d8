package database

import (
	"github.com/stretchr/testify/mock"
)

type MockCharlaRepository struct {
	mock.Mock
}

func (m *MockCharlaRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCharlaRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockCharlaRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}
