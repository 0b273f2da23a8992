package services

import (
	"context"
	"time"

	"sql-helper/internal/logger"
	"sql-helper/internal/metrics"
	"sql-helper/internal/models"
	"sql-helper/internal/pkg/errors"
	"sql-helper/internal/repository"

	"github.com/sirupsen/logrus"
)

// BucketLayout formats a date bucket: the calendar day without separators.
const BucketLayout = "20060102"

// UsageLedger is the only writer of token usage rows.
type UsageLedger interface {
	Get(ctx context.Context, identity, bucket string) (models.TokenUsage, error)
	Increment(ctx context.Context, identity, bucket string, requestTokens, responseTokens int64) error
	IncrementToday(ctx context.Context, identity string, requestTokens, responseTokens int64) error
	History(ctx context.Context, identity string, days int) ([]models.TokenUsage, error)
	Today() string
	BucketFor(t time.Time) string
	NextReset() time.Time
}

type LedgerOption func(*usageLedger)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *usageLedger) { l.now = now }
}

// WithLocation sets where day boundaries fall. Defaults to time.Local.
func WithLocation(loc *time.Location) LedgerOption {
	return func(l *usageLedger) { l.loc = loc }
}

type usageLedger struct {
	repo repository.TokenUsageRepository
	now  func() time.Time
	loc  *time.Location
}

func NewUsageLedger(repo repository.TokenUsageRepository, opts ...LedgerOption) UsageLedger {
	l := &usageLedger{
		repo: repo,
		now:  time.Now,
		loc:  time.Local,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *usageLedger) BucketFor(t time.Time) string {
	return t.In(l.loc).Format(BucketLayout)
}

func (l *usageLedger) Today() string {
	return l.BucketFor(l.now())
}

// NextReset is the start of the next bucket.
func (l *usageLedger) NextReset() time.Time {
	now := l.now().In(l.loc)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, l.loc)
}

func (l *usageLedger) Get(ctx context.Context, identity, bucket string) (models.TokenUsage, error) {
	if identity == "" || bucket == "" {
		return models.TokenUsage{}, errors.ErrInvalidInput
	}

	usage, err := l.repo.Get(ctx, identity, bucket)
	if err != nil {
		l.storeFailure("get", identity, bucket, err)
		return models.TokenUsage{}, asUnavailable(err, "ledger get")
	}
	return usage, nil
}

func (l *usageLedger) Increment(ctx context.Context, identity, bucket string, requestTokens, responseTokens int64) error {
	if identity == "" || bucket == "" || requestTokens < 0 || responseTokens < 0 {
		return errors.ErrInvalidInput
	}

	if err := l.repo.Increment(ctx, identity, bucket, requestTokens, responseTokens); err != nil {
		l.storeFailure("increment", identity, bucket, err)
		return asUnavailable(err, "ledger increment")
	}

	metrics.TokensRecorded.WithLabelValues("request").Add(float64(requestTokens))
	metrics.TokensRecorded.WithLabelValues("response").Add(float64(responseTokens))
	logger.LogEvent(logrus.InfoLevel, "ledger.incremented", logrus.Fields{
		"identity":        identity,
		"bucket":          bucket,
		"request_tokens":  requestTokens,
		"response_tokens": responseTokens,
	})
	return nil
}

func (l *usageLedger) IncrementToday(ctx context.Context, identity string, requestTokens, responseTokens int64) error {
	return l.Increment(ctx, identity, l.Today(), requestTokens, responseTokens)
}

// History returns up to days buckets ending today, newest first. Days
// without usage are omitted.
func (l *usageLedger) History(ctx context.Context, identity string, days int) ([]models.TokenUsage, error) {
	if identity == "" || days <= 0 {
		return nil, errors.ErrInvalidInput
	}

	today := l.now().In(l.loc)
	from := l.BucketFor(today.AddDate(0, 0, -(days - 1)))
	usages, err := l.repo.ListRange(ctx, identity, from, l.BucketFor(today))
	if err != nil {
		l.storeFailure("history", identity, from, err)
		return nil, asUnavailable(err, "ledger history")
	}
	return usages, nil
}

func (l *usageLedger) storeFailure(op, identity, bucket string, err error) {
	metrics.StoreFailures.WithLabelValues("ledger", op).Inc()
	logger.LogEvent(logrus.ErrorLevel, "ledger.store_failure", logrus.Fields{
		"op":       op,
		"identity": identity,
		"bucket":   bucket,
		"error":    err.Error(),
	})
}

// asUnavailable keeps store failures matchable as ErrStoreUnavailable even
// when a repository returns a bare driver error.
func asUnavailable(err error, message string) error {
	if errors.Is(err, errors.ErrStoreUnavailable) {
		return err
	}
	return errors.Unavailable(err, message)
}
