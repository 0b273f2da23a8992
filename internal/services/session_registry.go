package services

import (
	"context"
	"time"

	"sql-helper/internal/logger"
	"sql-helper/internal/metrics"
	"sql-helper/internal/pkg/errors"
	"sql-helper/internal/repository"

	"github.com/sirupsen/logrus"
)

// SessionActiveMarker is the value stored for a live session.
const SessionActiveMarker = "active"

// SessionRegistry tracks which identity has a live session. Entries exist
// only while active; expiry is left to the store's TTL. At most one session
// per identity survives a Create.
//
// Missing arguments make every operation a no-op (false for the queries).
// Validate and IsActive also return false on store errors; Create and the
// removals return the error to the caller.
type SessionRegistry interface {
	Create(ctx context.Context, identity, token string) error
	Validate(ctx context.Context, identity, token string) bool
	Remove(ctx context.Context, identity string) error
	RemoveOne(ctx context.Context, identity, token string) error
	IsActive(ctx context.Context, identity string) bool
}

type sessionRegistry struct {
	repo    repository.SessionRepository
	ttl     time.Duration
	timeout time.Duration
	log     *logrus.Entry
}

func NewSessionRegistry(repo repository.SessionRepository, ttl, timeout time.Duration) SessionRegistry {
	return &sessionRegistry{
		repo:    repo,
		ttl:     ttl,
		timeout: timeout,
		log:     logger.Component("session_registry"),
	}
}

func (s *sessionRegistry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Create is a logged no-op when either argument is empty.
func (s *sessionRegistry) Create(ctx context.Context, identity, token string) error {
	if identity == "" || token == "" {
		s.log.WithField("identity", identity).Warn("session.create_skipped: missing identity or token")
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	evicted, err := s.repo.Replace(ctx, identity, token, SessionActiveMarker, s.ttl)
	if err != nil {
		s.storeFailure("create", identity, err)
		return err
	}

	metrics.SessionEvents.WithLabelValues("created").Inc()
	if evicted > 0 {
		metrics.SessionEvents.WithLabelValues("evicted").Add(float64(evicted))
		s.log.WithFields(logrus.Fields{"identity": identity, "evicted": evicted}).Info("session.evicted")
	}
	s.log.WithField("identity", identity).Info("session.created")
	return nil
}

func (s *sessionRegistry) Validate(ctx context.Context, identity, token string) bool {
	if identity == "" || token == "" {
		metrics.SessionEvents.WithLabelValues("rejected").Inc()
		return false
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	value, ttl, found, err := s.repo.Lookup(ctx, identity, token)
	if err != nil {
		s.storeFailure("validate", identity, err)
		return false
	}
	if !found {
		metrics.SessionEvents.WithLabelValues("rejected").Inc()
		return false
	}

	if value != SessionActiveMarker || ttl <= 0 {
		if err := s.repo.Delete(ctx, identity, token); err != nil {
			s.storeFailure("cleanup", identity, err)
		}
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		s.log.WithFields(logrus.Fields{"identity": identity, "ttl": ttl.String()}).Info("session.stale_removed")
		return false
	}

	metrics.SessionEvents.WithLabelValues("validated").Inc()
	return true
}

func (s *sessionRegistry) Remove(ctx context.Context, identity string) error {
	if identity == "" {
		s.log.Debug(errors.ErrInvalidSessionArgs.Error())
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	removed, err := s.repo.DeleteAll(ctx, identity)
	if err != nil {
		s.storeFailure("remove", identity, err)
		return err
	}

	metrics.SessionEvents.WithLabelValues("removed").Add(float64(removed))
	s.log.WithFields(logrus.Fields{"identity": identity, "removed": removed}).Info("session.removed_all")
	return nil
}

func (s *sessionRegistry) RemoveOne(ctx context.Context, identity, token string) error {
	if identity == "" || token == "" {
		s.log.WithField("identity", identity).Debug(errors.ErrInvalidSessionArgs.Error())
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Delete(ctx, identity, token); err != nil {
		s.storeFailure("remove_one", identity, err)
		return err
	}

	metrics.SessionEvents.WithLabelValues("removed").Inc()
	s.log.WithField("identity", identity).Info("session.removed")
	return nil
}

func (s *sessionRegistry) IsActive(ctx context.Context, identity string) bool {
	if identity == "" {
		return false
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	live, err := s.repo.CountLive(ctx, identity)
	if err != nil {
		s.storeFailure("is_active", identity, err)
		return false
	}
	return live > 0
}

func (s *sessionRegistry) storeFailure(op, identity string, err error) {
	metrics.StoreFailures.WithLabelValues("session", op).Inc()
	s.log.WithFields(logrus.Fields{
		"op":       op,
		"identity": identity,
		"error":    err.Error(),
	}).Error("session.store_failure")
}
