package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/smartpark-system/internal/model"
)

// LockSpot блокирует рекомендованную зону за пользователем.
//
// Локальная занятость уменьшается синхронно, до завершения сетевого вызова:
// UI видит место занятым сразу. Запрос резервирования уходит по принципу
// «отправил и забыл», сетевая ошибка не откатывает оптимистичную запись —
// следующий тик синхронизатора в любом случае принесёт авторитетное состояние.
func (s *Service) LockSpot(user string) error {
	if user == "" {
		return ErrUserRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.FlowRecommended || s.recommended == nil {
		return ErrWrongState
	}

	if err := s.registry.ApplyLock(s.recommended.ID); err != nil {
		return err
	}
	if updated, err := s.registry.Get(s.recommended.ID); err == nil {
		s.recommended = &updated
	}

	s.lockedBy = user
	s.state = model.FlowLocked
	s.lockDeadline = time.Now().Add(s.lockTTL)
	s.lockTimer = time.AfterFunc(s.lockTTL, s.expireLock)

	s.reserveRemote(user, s.recommended.ID)
	s.notifyFlowLocked()
	return nil
}

// expireLock срабатывает, когда бронь истекла до начала навигации.
func (s *Service) expireLock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.FlowLocked {
		return
	}

	s.logger.Info("reservation expired", zap.Int64("zone_id", s.recommended.ID))
	s.resetLocked("reservation expired")
}

// reserveRemote отправляет запрос резервирования, игнорируя результат.
func (s *Service) reserveRemote(user string, zoneID int64) {
	if s.remote == nil {
		return
	}
	go func() {
		if err := s.remote.Reserve(context.Background(), user, zoneID); err != nil {
			s.logger.Warn("reserve call failed",
				zap.Int64("zone_id", zoneID), zap.String("user", user), zap.Error(err))
		}
	}()
}

// releaseRemote отправляет запрос освобождения под той же дисциплиной.
// Локальная занятость не увеличивается: место выглядит занятым, пока
// синхронизатор не докажет обратное.
func (s *Service) releaseRemote(user string, zoneID int64) {
	if s.remote == nil {
		return
	}
	go func() {
		if err := s.remote.Release(context.Background(), user, zoneID); err != nil {
			s.logger.Warn("release call failed",
				zap.Int64("zone_id", zoneID), zap.String("user", user), zap.Error(err))
		}
	}()
}
