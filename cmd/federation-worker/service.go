package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/multierr"

	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

const (
	defaultPollMs = 30000
	maxBackoff    = 5 * time.Minute
	jitterWindow  = 500 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
}

type redisClient interface {
	Ping(context.Context) error
}

type outboxDispatcher interface {
	ProcessOutboxMessages(context.Context) error
}

type inboxIngestor interface {
	ProcessInboxMessages(context.Context) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Redis      redisClient
	Dispatcher outboxDispatcher
	Ingestor   inboxIngestor
}

// Service runs both federation drain loops on a fixed poll interval. A pass
// that errors backs off exponentially with jitter; pending messages are picked
// up again on the next pass.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	redis        redisClient
	dispatcher   outboxDispatcher
	ingestor     inboxIngestor
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Dispatcher == nil {
		return nil, errors.New("outbox dispatcher is required")
	}
	if params.Ingestor == nil {
		return nil, errors.New("inbox ingestor is required")
	}

	pollMs := params.Config.Federation.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		redis:        params.Redis,
		dispatcher:   params.Dispatcher,
		ingestor:     params.Ingestor,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if s.redis != nil {
		if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
			return err
		}
	}
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "federation worker context canceled")
			return ctx.Err()
		default:
		}

		if err := s.processPass(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.logg.Error(ctx, "federation pass error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// processPass runs one outbound and one inbound drain. The ingestor runs even
// when the dispatcher pass fails; the errors are combined.
func (s *Service) processPass(ctx context.Context) error {
	var errs error
	if err := s.dispatcher.ProcessOutboxMessages(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("outbox pass: %w", err))
	}
	if err := s.ingestor.ProcessInboxMessages(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("inbox pass: %w", err))
	}
	return errs
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
