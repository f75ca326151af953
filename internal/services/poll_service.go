package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/collab-chat-api/internal/constants"
	"github.com/yukikurage/collab-chat-api/internal/metrics"
	"github.com/yukikurage/collab-chat-api/internal/models"
	"github.com/yukikurage/collab-chat-api/internal/repository"
	"go.uber.org/zap"
)

// PollConfig bounds long-poll requests.
type PollConfig struct {
	Interval       time.Duration
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
}

// PollService holds long-poll requests open until a visible message newer
// than the client's cursor exists or the timeout passes. Each waiting poll
// is one goroutine parked in a select.
type PollService struct {
	identity    *IdentityService
	channels    *ChannelService
	channelRepo repository.ChannelRepository
	messageRepo repository.MessageRepository
	notifier    *Notifier
	cfg         PollConfig
	log         *zap.Logger
}

// NewPollService creates a new PollService.
func NewPollService(
	identity *IdentityService,
	channels *ChannelService,
	channelRepo repository.ChannelRepository,
	messageRepo repository.MessageRepository,
	notifier *Notifier,
	cfg PollConfig,
	log *zap.Logger,
) *PollService {
	if cfg.Interval <= 0 {
		cfg.Interval = constants.DefaultPollInterval
	}
	if cfg.MaxTimeout <= 0 || cfg.MaxTimeout > constants.MaxPollTimeout {
		cfg.MaxTimeout = constants.MaxPollTimeout
	}
	if cfg.DefaultTimeout <= 0 || cfg.DefaultTimeout > cfg.MaxTimeout {
		cfg.DefaultTimeout = min(constants.DefaultPollTimeout, cfg.MaxTimeout)
	}
	return &PollService{
		identity:    identity,
		channels:    channels,
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		notifier:    notifier,
		cfg:         cfg,
		log:         log,
	}
}

// PollInput describes one poll request. The token is kept rather than a
// resolved principal so that a revoked session or a tenant switch is seen
// on the next check.
type PollInput struct {
	Token             string
	RequestedTenantID *uint64
	SinceID           uint64
	ChannelID         *uint64
	Timeout           time.Duration
}

// ClampTimeout applies the default and the [1s, max] bounds to a requested
// timeout.
func (s *PollService) ClampTimeout(timeout time.Duration) time.Duration {
	switch {
	case timeout <= 0:
		return s.cfg.DefaultTimeout
	case timeout < time.Second:
		return time.Second
	case timeout > s.cfg.MaxTimeout:
		return s.cfg.MaxTimeout
	}
	return timeout
}

// Poll returns the visible messages with id > SinceID, oldest first, as soon
// as there are any. It returns an empty slice when the timeout passes and
// ctx.Err() when the caller goes away.
func (s *PollService) Poll(ctx context.Context, input PollInput) ([]models.Message, error) {
	metrics.ActivePolls.Inc()
	defer metrics.ActivePolls.Dec()

	p, tenantID, err := s.resolve(ctx, input)
	if err != nil {
		metrics.PollOutcomes.WithLabelValues("error").Inc()
		return nil, err
	}

	// subscribe before the first query so a publish in between is kept
	wake, cancel := s.notifier.Subscribe(tenantID)
	// cancel is replaced when the tenant changes
	defer func() { cancel() }()

	deadline := time.NewTimer(s.ClampTimeout(input.Timeout))
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		messages, err := s.fetch(ctx, p, input)
		if err != nil {
			metrics.PollOutcomes.WithLabelValues("error").Inc()
			return nil, err
		}
		if len(messages) > 0 {
			metrics.PollOutcomes.WithLabelValues("new_data").Inc()
			return messages, nil
		}

		select {
		case <-ctx.Done():
			metrics.PollOutcomes.WithLabelValues("cancelled").Inc()
			return nil, ctx.Err()
		case <-deadline.C:
			metrics.PollOutcomes.WithLabelValues("timeout").Inc()
			return []models.Message{}, nil
		case <-wake:
		case <-ticker.C:
		}

		next, nextTenant, err := s.resolve(ctx, input)
		if err != nil {
			metrics.PollOutcomes.WithLabelValues("error").Inc()
			return nil, err
		}
		if nextTenant != tenantID {
			cancel()
			wake, cancel = s.notifier.Subscribe(nextTenant)
			tenantID = nextTenant
		}
		p = next
	}
}

func (s *PollService) resolve(ctx context.Context, input PollInput) (*Principal, uint64, error) {
	p, err := s.identity.Resolve(ctx, input.Token)
	if err != nil {
		return nil, 0, err
	}
	p = p.WithRequestedTenant(input.RequestedTenantID)

	tenantID, err := p.TenantID()
	if err != nil {
		return nil, 0, err
	}
	return p, tenantID, nil
}

func (s *PollService) fetch(ctx context.Context, p *Principal, input PollInput) ([]models.Message, error) {
	var channelIDs []uint64
	if input.ChannelID != nil {
		if _, _, err := s.channels.Authorize(ctx, p, *input.ChannelID, ActionRead); err != nil {
			return nil, err
		}
		channelIDs = []uint64{*input.ChannelID}
	} else {
		tenantID, err := p.TenantID()
		if err != nil {
			return nil, err
		}
		channelIDs, err = s.channelRepo.ReadableIDs(ctx, tenantID, p.UserID())
		if err != nil {
			return nil, fmt.Errorf("failed to list readable channels: %w", err)
		}
	}

	messages, err := s.messageRepo.ListSince(ctx, channelIDs, input.SinceID, constants.PollBatchSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to poll messages: %w", err)
	}
	return redactAll(messages), nil
}
