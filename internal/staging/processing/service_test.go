package processing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mdolezal/isdocsync/internal/staging/processing"
)

func TestService_Begin(t *testing.T) {
	recordID := uuid.New()

	type testCase struct {
		name       string
		setupMock  func(m *processing.MockRepository)
		wantNumber int
		wantErr    bool
	}

	tests := []testCase{
		{
			name: "FirstAttempt",
			setupMock: func(m *processing.MockRepository) {
				m.EXPECT().
					LatestAttempt(gomock.Any(), recordID).
					Return(nil, processing.ErrNotFound)
				m.EXPECT().
					CreateAttempt(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, a *processing.Attempt) error {
						a.ID = uuid.New()
						return nil
					})
			},
			wantNumber: 1,
		},
		{
			name: "NumbersPastLatest",
			setupMock: func(m *processing.MockRepository) {
				m.EXPECT().
					LatestAttempt(gomock.Any(), recordID).
					Return(&processing.Attempt{AttemptNumber: 3, Status: processing.StatusFailed}, nil)
				m.EXPECT().
					CreateAttempt(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, a *processing.Attempt) error {
						a.ID = uuid.New()
						return nil
					})
			},
			wantNumber: 4,
		},
		{
			name: "RepoError",
			setupMock: func(m *processing.MockRepository) {
				m.EXPECT().
					LatestAttempt(gomock.Any(), recordID).
					Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := processing.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := processing.NewService(repo)
			got, err := svc.Begin(context.Background(), recordID)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantNumber, got.AttemptNumber)
			assert.Equal(t, processing.StatusPending, got.Status)
			assert.False(t, got.StartedAt.IsZero())
		})
	}
}

func TestService_Complete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	attemptID := uuid.New()

	repo := processing.NewMockRepository(ctrl)
	repo.EXPECT().
		GetAttempt(gomock.Any(), attemptID).
		Return(&processing.Attempt{ID: attemptID, Status: processing.StatusInProgress}, nil)
	repo.EXPECT().
		UpdateAttempt(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *processing.Attempt) error {
			assert.Equal(t, processing.StatusCompleted, a.Status)
			require.NotNil(t, a.CompletedAt)
			assert.Empty(t, a.ErrorMessage)
			return nil
		})

	svc := processing.NewService(repo)
	require.NoError(t, svc.Complete(context.Background(), attemptID))
}

func TestService_Fail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	attemptID := uuid.New()

	repo := processing.NewMockRepository(ctrl)
	repo.EXPECT().
		GetAttempt(gomock.Any(), attemptID).
		Return(&processing.Attempt{ID: attemptID, Status: processing.StatusPending}, nil)
	repo.EXPECT().
		UpdateAttempt(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *processing.Attempt) error {
			assert.Equal(t, processing.StatusFailed, a.Status)
			assert.Equal(t, "malformed xml", a.ErrorMessage)
			return nil
		})

	svc := processing.NewService(repo)
	require.NoError(t, svc.Fail(context.Background(), attemptID, "malformed xml"))
}

func TestService_FinishTerminalAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	attemptID := uuid.New()
	done := time.Now()

	repo := processing.NewMockRepository(ctrl)
	repo.EXPECT().
		GetAttempt(gomock.Any(), attemptID).
		Return(&processing.Attempt{
			ID:          attemptID,
			Status:      processing.StatusCompleted,
			CompletedAt: &done,
		}, nil).
		Times(2)

	svc := processing.NewService(repo)

	assert.ErrorIs(t, svc.Complete(context.Background(), attemptID), processing.ErrFinished)
	assert.ErrorIs(t, svc.Fail(context.Background(), attemptID, "late"), processing.ErrFinished)
}
