package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/models"
)

func TestRegistrationRepositoryAllowsOneActiveRow(t *testing.T) {
	db := newCertificateTestDB(t)
	repo := NewRegistrationRepository(db)
	ctx := context.Background()
	event, participant := seedEventAndParticipant(t, db)

	registeredAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first := models.Registration{EventID: event.ID, ParticipantID: participant.ID, Status: models.RegistrationStatusConfirmed, RegisteredAt: registeredAt}
	require.NoError(t, repo.Create(ctx, &first))

	dup := models.Registration{EventID: event.ID, ParticipantID: participant.ID, Status: models.RegistrationStatusConfirmed, RegisteredAt: registeredAt}
	require.ErrorIs(t, repo.Create(ctx, &dup), ErrDuplicateKey)

	require.NoError(t, repo.Cancel(ctx, first.ID, registeredAt.Add(time.Minute)))
	require.ErrorIs(t, repo.Cancel(ctx, first.ID, registeredAt.Add(time.Minute)), gorm.ErrRecordNotFound)

	_, err := repo.GetActive(ctx, event.ID, participant.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	again := models.Registration{EventID: event.ID, ParticipantID: participant.ID, Status: models.RegistrationStatusConfirmed, RegisteredAt: registeredAt.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, &again))

	active, err := repo.GetActive(ctx, event.ID, participant.ID)
	require.NoError(t, err)
	require.Equal(t, again.ID, active.ID)
	require.True(t, active.RegisteredAt.Equal(registeredAt.Add(time.Hour)))
}
