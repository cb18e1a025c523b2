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

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// LowStockScanJob walks raw materials and raises an alert email for every
// active material at or below its minimum level.
type LowStockScanJob struct {
	Pool    *pgxpool.Pool
	Client  *Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob initialises the low-stock scan handler.
func NewLowStockScanJob(pool *pgxpool.Pool, client *Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Pool: pool, Client: client, Logger: logger, Metrics: metrics}
}

type lowStockLine struct {
	Code         string
	Name         string
	Unit         string
	CurrentStock float64
	MinStock     float64
}

// Handle executes the low-stock scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskInventoryLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	logger.Info("starting low stock scan")

	rows, err := j.Pool.Query(ctx, `SELECT code, name, unit, current_stock, min_stock
FROM raw_materials WHERE is_active AND current_stock <= min_stock ORDER BY code`)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}
	defer rows.Close()

	var lines []lowStockLine
	for rows.Next() {
		var l lowStockLine
		if err := rows.Scan(&l.Code, &l.Name, &l.Unit, &l.CurrentStock, &l.MinStock); err != nil {
			resultErr = err
			return resultErr
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}

	for _, l := range lines {
		logger.Warn("raw material below minimum stock",
			slog.String("code", l.Code),
			slog.Float64("current", l.CurrentStock),
			slog.Float64("min", l.MinStock),
		)
	}
	j.metrics().AddAlerts(TaskInventoryLowStockScan, "low_stock", len(lines))

	if len(lines) > 0 && payload.NotifyEmail != "" && j.Client != nil {
		var body strings.Builder
		body.WriteString("The following raw materials are at or below their minimum stock level:\n\n")
		for _, l := range lines {
			fmt.Fprintf(&body, "- %s (%s): %.2f %s on hand, minimum %.2f\n", l.Name, l.Code, l.CurrentStock, l.Unit, l.MinStock)
		}
		_, err := j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      payload.NotifyEmail,
			Subject: fmt.Sprintf("Low stock alert: %d materials", len(lines)),
			Body:    body.String(),
		})
		if err != nil {
			logger.Warn("enqueue alert email", slog.Any("error", err))
		}
	}

	logger.Info("completed low stock scan",
		slog.Int("flagged", len(lines)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskInventoryLowStockScan))
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
