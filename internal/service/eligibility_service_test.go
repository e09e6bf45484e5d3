package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEligibilityGateNotRegistered(t *testing.T) {
	f := newCertificateFixture(t)
	clock := &fixedClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	_, err := f.gate(clock.Now).Check(context.Background(), f.event.ID, f.participant.ID)
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestEligibilityGateCooldown(t *testing.T) {
	f := newCertificateFixture(t)
	registeredAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f.register(t, f.participant.ID, registeredAt)

	cases := []struct {
		name      string
		elapsed   time.Duration
		remaining int
	}{
		{name: "just registered", elapsed: 0, remaining: 10},
		{name: "five minutes", elapsed: 5 * time.Minute, remaining: 5},
		{name: "rounds up", elapsed: 9*time.Minute + 30*time.Second, remaining: 1},
		{name: "one second left", elapsed: 10*time.Minute - time.Second, remaining: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock := &fixedClock{now: registeredAt.Add(tc.elapsed)}
			_, err := f.gate(clock.Now).Check(context.Background(), f.event.ID, f.participant.ID)
			require.ErrorIs(t, err, ErrTooEarly)

			var tooEarly *TooEarlyError
			require.True(t, errors.As(err, &tooEarly))
			require.Equal(t, tc.remaining, tooEarly.RemainingMinutes())
		})
	}

	clock := &fixedClock{now: registeredAt.Add(10 * time.Minute)}
	registration, err := f.gate(clock.Now).Check(context.Background(), f.event.ID, f.participant.ID)
	require.NoError(t, err)
	require.Equal(t, f.participant.ID, registration.ParticipantID)
}

func TestEligibilityGateUsesCurrentRegistration(t *testing.T) {
	f := newCertificateFixture(t)
	first := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	registration := f.register(t, f.participant.ID, first)
	require.NoError(t, f.registrations.Cancel(context.Background(), registration.ID, first.Add(time.Hour)))

	second := first.Add(2 * time.Hour)
	f.register(t, f.participant.ID, second)

	clock := &fixedClock{now: second.Add(3 * time.Minute)}
	_, err := f.gate(clock.Now).Check(context.Background(), f.event.ID, f.participant.ID)

	var tooEarly *TooEarlyError
	require.True(t, errors.As(err, &tooEarly))
	require.Equal(t, 7, tooEarly.RemainingMinutes())
}

func TestEligibilityGateDefaultsCooldown(t *testing.T) {
	gate := NewEligibilityGate(nil, 0).(*eligibilityGate)
	require.Equal(t, DefaultCertificateCooldown, gate.cooldown)
}
