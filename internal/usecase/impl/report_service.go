package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "console/internal/delivery/context"
	"console/internal/domain/entity"
	domainerrors "console/internal/domain/errors"
	"console/internal/domain/gateway"
	"console/internal/usecase"

	"github.com/pkg/errors"
)

// dateLayouts are tried in order when parsing report bounds. The first is the
// browser datetime-local shape, the rest are what operators paste in.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// reportService implements ReportUsecase. It holds no state between queries;
// every result set fully replaces the previous one at the caller.
type reportService struct {
	backend  gateway.Backend
	sessions usecase.SessionUsecase
	logger   *slog.Logger
}

// NewReportService is the constructor for reportService.
func NewReportService(
	backend gateway.Backend,
	sessions usecase.SessionUsecase,
	logger *slog.Logger,
) usecase.ReportUsecase {
	return &reportService{
		backend:  backend,
		sessions: sessions,
		logger:   logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *reportService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Filter validates the date range locally and runs the report query. An
// empty result is an ordinary outcome, not an error.
func (srv *reportService) Filter(ctx context.Context, input *usecase.FilterInput) ([]entity.Transaction, error) {
	if input == nil || input.From == "" || input.To == "" {
		return nil, errors.WithStack(domainerrors.ErrMissingDateRange)
	}

	from, err := parseReportDate(input.From)
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("unparseable start date"))
	}
	to, err := parseReportDate(input.To)
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("unparseable end date"))
	}
	if from.After(to) {
		return nil, errors.WithStack(domainerrors.ErrInvertedDateRange)
	}

	session, ok := srv.sessions.Current()
	if !ok {
		return nil, errors.WithStack(domainerrors.ErrNotAuthenticated)
	}

	transactions, err := srv.backend.FilterTransactions(ctx, session.Merchant.ID, entity.DateRange{
		From: from,
		To:   to,
	})
	if err != nil {
		var remoteErr *domainerrors.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.Unauthorized() {
			srv.sessions.Invalidate(ctx)
			err = errors.WithStack(domainerrors.ErrSessionInvalidated)
		}
		srv.log(ctx).Warn("Transaction query failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "filter transactions")
	}

	srv.log(ctx).Debug("Transaction query completed",
		slog.Int("count", len(transactions)), slog.Int64("merchant_id", session.Merchant.ID))

	return transactions, nil
}

func parseReportDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}

	return time.Time{}, lastErr
}
