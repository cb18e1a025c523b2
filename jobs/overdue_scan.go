package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// OverdueInvoiceScanJob flags UNPAID and PARTIAL invoices past their due
// date and mails a summary to collections.
type OverdueInvoiceScanJob struct {
	Pool    *pgxpool.Pool
	Client  *Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOverdueInvoiceScanJob initialises the overdue-invoice scan handler.
func NewOverdueInvoiceScanJob(pool *pgxpool.Pool, client *Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueInvoiceScanJob {
	return &OverdueInvoiceScanJob{
		Pool:    pool,
		Client:  client,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type overdueLine struct {
	InvoiceNumber string
	StoreCode     string
	Balance       float64
	DueDate       time.Time
}

// Handle executes the overdue-invoice scan.
func (j *OverdueInvoiceScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.GraceDays < 0 {
		payload.GraceDays = 0
	}

	tracker := j.metrics().Track(TaskInvoiceOverdueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("grace_days", payload.GraceDays))
	start := j.now()
	logger.Info("starting overdue invoice scan")

	cutoff := start.AddDate(0, 0, -payload.GraceDays)
	rows, err := j.Pool.Query(ctx, `SELECT i.invoice_number, s.code, i.balance_amount, i.due_date
FROM invoices i JOIN stores s ON s.id = i.store_id
WHERE i.status IN ('UNPAID', 'PARTIAL') AND i.due_date < $1
ORDER BY i.due_date`, cutoff)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}
	defer rows.Close()

	var (
		lines            []overdueLine
		totalOutstanding float64
	)
	for rows.Next() {
		var l overdueLine
		if err := rows.Scan(&l.InvoiceNumber, &l.StoreCode, &l.Balance, &l.DueDate); err != nil {
			resultErr = err
			return resultErr
		}
		lines = append(lines, l)
		totalOutstanding += l.Balance
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}

	for _, l := range lines {
		logger.Warn("invoice overdue",
			slog.String("invoice", l.InvoiceNumber),
			slog.String("store", l.StoreCode),
			slog.Float64("balance", l.Balance),
			slog.Time("due_date", l.DueDate),
		)
	}
	j.metrics().AddAlerts(TaskInvoiceOverdueScan, "overdue", len(lines))

	if len(lines) > 0 && payload.NotifyEmail != "" && j.Client != nil {
		printer := message.NewPrinter(language.English)
		var body strings.Builder
		body.WriteString("The following invoices are past due:\n\n")
		for _, l := range lines {
			fmt.Fprintf(&body, "- %s (store %s): %s outstanding, due %s\n",
				l.InvoiceNumber, l.StoreCode,
				printer.Sprintf("%v", number.Decimal(l.Balance, number.MaxFractionDigits(2), number.MinFractionDigits(2))),
				l.DueDate.Format("2006-01-02"))
		}
		fmt.Fprintf(&body, "\nTotal outstanding: %s\n",
			printer.Sprintf("%v", number.Decimal(totalOutstanding, number.MaxFractionDigits(2), number.MinFractionDigits(2))))
		_, err := j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      payload.NotifyEmail,
			Subject: fmt.Sprintf("Overdue invoices: %d open", len(lines)),
			Body:    body.String(),
		})
		if err != nil {
			logger.Warn("enqueue alert email", slog.Any("error", err))
		}
	}

	logger.Info("completed overdue invoice scan",
		slog.Int("flagged", len(lines)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *OverdueInvoiceScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoiceOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskInvoiceOverdueScan))
}

func (j *OverdueInvoiceScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *OverdueInvoiceScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
