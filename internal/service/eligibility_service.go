package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/repository"
)

// DefaultCertificateCooldown is the wait between registering and requesting a certificate.
const DefaultCertificateCooldown = 10 * time.Minute

// ErrNotRegistered indicates the participant has no confirmed registration for the event.
var ErrNotRegistered = errors.New("participant is not registered for this event")

// ErrTooEarly indicates the cooldown after registration has not elapsed yet.
var ErrTooEarly = errors.New("certificate requested too early")

// TooEarlyError carries the remaining cooldown. errors.Is(err, ErrTooEarly) holds.
type TooEarlyError struct {
	RegisteredAt time.Time
	Remaining    time.Duration
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("certificate available in %d minute(s)", e.RemainingMinutes())
}

// Is matches ErrTooEarly.
func (e *TooEarlyError) Is(target error) bool {
	return target == ErrTooEarly
}

// RemainingMinutes rounds the remaining wait up to whole minutes.
func (e *TooEarlyError) RemainingMinutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

// EligibilityGate decides whether a participant may request a certificate now.
type EligibilityGate interface {
	Check(ctx context.Context, eventID, participantID string) (models.Registration, error)
}

type eligibilityGate struct {
	registrations repository.RegistrationRepository
	cooldown      time.Duration
	now           func() time.Time
}

// NewEligibilityGate constructs the gate. A non-positive cooldown falls back to the default.
func NewEligibilityGate(registrations repository.RegistrationRepository, cooldown time.Duration) EligibilityGate {
	if cooldown <= 0 {
		cooldown = DefaultCertificateCooldown
	}
	return &eligibilityGate{
		registrations: registrations,
		cooldown:      cooldown,
		now:           time.Now,
	}
}

func (g *eligibilityGate) Check(ctx context.Context, eventID, participantID string) (models.Registration, error) {
	registration, err := g.registrations.GetActive(ctx, eventID, participantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Registration{}, ErrNotRegistered
		}
		return models.Registration{}, fmt.Errorf("failed to load registration: %w", err)
	}

	elapsed := g.now().Sub(registration.RegisteredAt)
	if elapsed < g.cooldown {
		return registration, &TooEarlyError{
			RegisteredAt: registration.RegisteredAt,
			Remaining:    g.cooldown - elapsed,
		}
	}

	return registration, nil
}
