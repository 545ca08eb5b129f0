package invoice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mdolezal/isdocsync/internal/invoice"
)

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		inv       *invoice.Invoice
		setupMock func(m *invoice.MockRepository)
		wantErr   bool
	}

	mirrorID := uuid.New()

	tests := []testCase{
		{
			name: "Success",
			inv: &invoice.Invoice{
				UserID:    uuid.New(),
				Direction: invoice.DirectionInbound,
				Number:    "2024-0001",
			},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().
					CreateInvoice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
						inv.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name: "InvalidDirection",
			inv: &invoice.Invoice{
				UserID:    uuid.New(),
				Direction: invoice.Direction("sideways"),
			},
			wantErr: true,
		},
		{
			name: "RepoError",
			inv: &invoice.Invoice{
				UserID:    uuid.New(),
				Direction: invoice.DirectionOutbound,
			},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().
					CreateInvoice(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: true,
		},
		{
			name: "StagingRefsCleared",
			inv: &invoice.Invoice{
				UserID:         uuid.New(),
				Direction:      invoice.DirectionOutbound,
				Source:         invoice.SourceFakturoid,
				MirrorRecordID: &mirrorID,
			},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().
					CreateInvoice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
						assert.Equal(t, invoice.SourceManual, inv.Source)
						assert.Nil(t, inv.MirrorRecordID)
						assert.Nil(t, inv.ParsedRecordID)
						return nil
					})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := invoice.NewService(repo)
			got, err := svc.Create(context.Background(), tt.inv)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, invoice.SourceManual, got.Source)
		})
	}
}

func TestService_List_DefaultsPaging(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()

	repo := invoice.NewMockRepository(ctrl)
	repo.EXPECT().
		ListInvoices(gomock.Any(), invoice.ListFilter{UserID: userID, Page: 1, PageSize: 50}).
		Return(nil, nil)

	svc := invoice.NewService(repo)

	_, err := svc.List(context.Background(), invoice.ListFilter{UserID: userID})
	assert.NoError(t, err)
}
