package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/internal/dto"
)

const (
	issuedSubjectSuffix  = "certificates.issued"
	renderQueue          = "sigea-certificate-render"
	defaultRenderTimeout = 30 * time.Second
)

// IssuedSubject derives the broker subject for issuance events from a channel base such as "sigea:prod".
func IssuedSubject(channelBase string) string {
	base := strings.Trim(strings.ReplaceAll(strings.TrimSpace(channelBase), ":", "."), ".")
	if base == "" {
		return ""
	}
	return base + "." + issuedSubjectSuffix
}

type messagePublisher interface {
	Publish(subject string, data []byte) error
}

// CertificateEventPublisher announces committed issuances on NATS.
type CertificateEventPublisher struct {
	conn    messagePublisher
	subject string
	logger  zerolog.Logger
}

// NewCertificateEventPublisher returns a publisher that is a no-op when conn is nil.
func NewCertificateEventPublisher(conn *nats.Conn, channelBase string, logger zerolog.Logger) *CertificateEventPublisher {
	publisher := &CertificateEventPublisher{
		subject: IssuedSubject(channelBase),
		logger:  logger.With().Str("component", "certificate_event_publisher").Logger(),
	}
	if conn != nil {
		publisher.conn = conn
	}
	return publisher
}

// PublishIssued serialises the event and publishes it on the issued subject.
func (p *CertificateEventPublisher) PublishIssued(ctx context.Context, event dto.CertificateIssuedEvent) error {
	if p.conn == nil || p.subject == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode issued event: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("failed to publish issued event: %w", err)
	}

	p.logger.Debug().Str("certificate_id", event.CertificateID).Str("subject", p.subject).Msg("issued event published")
	return nil
}

// Renderer renders a single certificate artifact.
type Renderer interface {
	Render(ctx context.Context, certificateID string) (dto.RenderResponse, error)
}

// RenderSubscriber renders certificates as their issuance events arrive.
type RenderSubscriber struct {
	conn     *nats.Conn
	subject  string
	renderer Renderer
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewRenderSubscriber builds a queue subscriber shared by every API replica.
func NewRenderSubscriber(conn *nats.Conn, channelBase string, renderer Renderer, logger zerolog.Logger) *RenderSubscriber {
	return &RenderSubscriber{
		conn:     conn,
		subject:  IssuedSubject(channelBase),
		renderer: renderer,
		timeout:  defaultRenderTimeout,
		logger:   logger.With().Str("component", "certificate_render_subscriber").Logger(),
	}
}

// Start subscribes and drains the subscription once ctx is cancelled.
func (s *RenderSubscriber) Start(ctx context.Context) error {
	if s.conn == nil || s.subject == "" {
		return nil
	}

	sub, err := s.conn.QueueSubscribe(s.subject, renderQueue, func(msg *nats.Msg) {
		s.handle(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain certificate render subscription")
		}
	}()

	s.logger.Info().Str("subject", s.subject).Msg("certificate render subscriber started")
	return nil
}

func (s *RenderSubscriber) handle(ctx context.Context, payload []byte) {
	var event dto.CertificateIssuedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid certificate issued payload")
		return
	}
	if strings.TrimSpace(event.CertificateID) == "" {
		s.logger.Warn().Msg("certificate issued payload without certificate id")
		return
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.renderer.Render(renderCtx, event.CertificateID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// The sweeper picks the certificate up again.
		s.logger.Warn().Err(err).Str("certificate_id", event.CertificateID).Msg("async render failed")
		return
	}

	s.logger.Info().Str("certificate_id", result.CertificateID).Str("artifact", result.ArtifactPath).Msg("certificate rendered")
}
