package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ClearCart(ctx context.Context, customerID uint) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func TestService_ClearCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo)

		mockRepo.On("ClearCart", ctx, uint(1)).Return(int64(3), nil).Once()

		err := svc.ClearCart(ctx, 1)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Guest", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo)

		assert.NoError(t, svc.ClearCart(ctx, 0))
		mockRepo.AssertNotCalled(t, "ClearCart")
	})

	t.Run("RepoError", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo)

		mockRepo.On("ClearCart", ctx, uint(1)).Return(int64(0), errors.New("db down")).Once()

		err := svc.ClearCart(ctx, 1)
		assert.ErrorIs(t, err, ErrFailedClearCart)
	})
}
