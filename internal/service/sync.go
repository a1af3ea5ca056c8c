package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/smartpark-system/internal/model"
	"github.com/mmeshcher/smartpark-system/internal/registry"
)

// StartSync запускает два независимых фоновых цикла сверки с удалённым
// сервисом: занятость зон и журнал платежей. Первый тик выполняется сразу,
// далее по фиксированному интервалу до отмены контекста. Ошибка получения
// логируется и проглатывается, следующий тик повторяет запрос безусловно —
// других политик повтора в системе нет.
func (s *Service) StartSync(ctx context.Context) {
	if s.remote == nil {
		return
	}

	go s.runSyncLoop(ctx, s.syncZones)
	go s.runSyncLoop(ctx, s.syncPayments)
}

func (s *Service) runSyncLoop(ctx context.Context, tick func(ctx context.Context)) {
	tick(ctx)

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// syncZones перезаписывает поля занятости локальных зон данными удалённого
// сервиса. Удалённая запись авторитетна: оптимистичные локальные изменения
// перекрываются на ближайшем тике.
func (s *Service) syncZones(ctx context.Context) {
	zones, err := s.remote.Zones(ctx)
	if err != nil {
		s.logger.Warn("zone sync failed", zap.Error(err))
		return
	}

	deltas := make([]registry.ZoneDelta, 0, len(zones))
	for _, z := range zones {
		deltas = append(deltas, registry.ZoneDelta{
			ID:     z.ID,
			Free:   z.FreeSlots,
			Total:  z.TotalSlots,
			Status: model.SpotStatus(z.Status),
		})
	}
	s.registry.UpsertFromRemote(deltas)
}

// syncPayments заменяет локальный журнал платежей удалённым целиком.
func (s *Service) syncPayments(ctx context.Context) {
	payments, err := s.remote.Payments(ctx)
	if err != nil {
		s.logger.Warn("payment sync failed", zap.Error(err))
		return
	}
	s.registry.ReplacePayments(payments)
}
