package worker

import (
	"context"
	"time"

	"careTracker/internal/logger"

	"go.uber.org/zap"
)

const DefaultInterval = 5 * time.Minute
const DefaultBatchSize = 100

// ReminderSender рассылает напоминания по просроченным задачам
type ReminderSender interface {
	SendReminders(ctx context.Context, limit int) (int, error)
}

type ReminderWorker struct {
	sender    ReminderSender
	interval  time.Duration
	batchSize int
}

// NewReminderWorker: nil или неположительные значения заменяются значениями по умолчанию
func NewReminderWorker(sender ReminderSender, interval *time.Duration, batchSize *int) *ReminderWorker {
	intervalToSet := DefaultInterval
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}

	batchToSet := DefaultBatchSize
	if batchSize != nil && *batchSize > 0 {
		batchToSet = *batchSize
	}

	return &ReminderWorker{
		sender:    sender,
		interval:  intervalToSet,
		batchSize: batchToSet,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Запуск рассылки напоминаний",
		zap.Duration("interval", w.interval),
		zap.Int("batch_size", w.batchSize),
	)

	for {
		select {
		case <-ticker.C:
			logger.Debug("Worker: Проверка просроченных задач", zap.Time("started_at", time.Now()))
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Рассылка напоминаний останавливается")
			return
		}
	}
}

// Check выполняет один проход и возвращает число отправленных напоминаний
func (w *ReminderWorker) Check(ctx context.Context) int {
	start := time.Now()

	sent, err := w.sender.SendReminders(ctx, w.batchSize)
	if err != nil {
		logger.Warn("Worker: Ошибка рассылки напоминаний", zap.Error(err), zap.Int("sent", sent))
		return sent
	}

	if sent > 0 {
		logger.Info("Worker: Завершение проверки задач",
			zap.Duration("ms", time.Since(start)),
			zap.Int("reminded", sent),
		)
	}
	return sent
}
