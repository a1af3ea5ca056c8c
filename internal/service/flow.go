package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/smartpark-system/internal/model"
	"github.com/mmeshcher/smartpark-system/internal/resolver"
)

// FlowSnapshot — наблюдаемое состояние сценария для UI и подписчиков.
type FlowSnapshot struct {
	State       model.FlowState     `json:"state"`
	Destination *model.Coordinate   `json:"destination,omitempty"`
	Recommended *model.Spot         `json:"recommended_spot,omitempty"`
	SecondsLeft int                 `json:"seconds_left"`
	HasPaid     bool                `json:"has_paid"`
	ModalOpen   bool                `json:"payment_modal_open"`
	Pending     model.PendingAction `json:"pending_action"`
	Notice      string              `json:"notice,omitempty"`
}

// Snapshot возвращает текущее состояние сценария.
func (s *Service) Snapshot() FlowSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() FlowSnapshot {
	snap := FlowSnapshot{
		State:     s.state,
		HasPaid:   s.hasPaid,
		ModalOpen: s.modalOpen,
		Pending:   s.pending,
		Notice:    s.notice,
	}
	if s.destination != nil {
		d := *s.destination
		snap.Destination = &d
	}
	if s.recommended != nil {
		r := *s.recommended
		snap.Recommended = &r
	}
	if s.state == model.FlowLocked {
		left := int(time.Until(s.lockDeadline).Seconds())
		if left < 0 {
			left = 0
		}
		snap.SecondsLeft = left
	}
	return snap
}

// RequestParking начинает сценарий поиска парковки у точки назначения.
// forcedID, отличный от нуля, задаёт явный выбор зоны пользователем. Запрос
// премиум-зоны без оплаты не продвигает сценарий: действие откладывается в
// платёжном шлюзе до подтверждения или отмены оплаты.
func (s *Service) RequestParking(dest model.Coordinate, forcedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.FlowIdle {
		return ErrWrongState
	}

	if forcedID != 0 && s.requiresPaymentLocked(forcedID) {
		s.beginGatedLocked(model.PendingAction{
			Kind:        model.PendingRequest,
			Destination: dest,
			SpotID:      forcedID,
		})
		return nil
	}

	s.startSearchLocked(dest, forcedID)
	return nil
}

// startSearchLocked переводит сценарий в SEARCHING и планирует подбор зоны
// после имитационной задержки.
func (s *Service) startSearchLocked(dest model.Coordinate, forcedID int64) {
	d := dest
	s.state = model.FlowSearching
	s.destination = &d
	s.recommended = nil
	s.notice = ""
	s.searchGen++
	gen := s.searchGen
	s.searchTimer = time.AfterFunc(s.searchDelay, func() {
		s.resolve(dest, forcedID, gen)
	})
	s.notifyFlowLocked()
}

func (s *Service) resolve(dest model.Coordinate, forcedID int64, gen uint64) {
	spots := s.registry.List()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Сценарий могли сбросить и начать заново, пока шёл подбор. Несовпадение
	// поколения означает, что таймер принадлежит уже отменённому поиску.
	if s.state != model.FlowSearching || gen != s.searchGen {
		return
	}

	best, ok := resolver.Nearest(spots, dest, forcedID)
	if !ok {
		s.logger.Warn("no free zones for destination",
			zap.Float64("lat", dest.Lat), zap.Float64("lng", dest.Lng))
		s.state = model.FlowIdle
		s.destination = nil
		s.notice = "no free parking zones available"
		s.notifyFlowLocked()
		return
	}

	s.recommended = &best
	s.state = model.FlowRecommended
	s.notifyFlowLocked()
}

// StartNavigation переводит сценарий из LOCKED в NAVIGATING и гасит таймер
// брони. Премиум-зона повторно проверяется платёжным шлюзом: сценарий мог
// дойти до рекомендации до того, как оплата стала обязательной.
func (s *Service) StartNavigation() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.FlowLocked || s.recommended == nil {
		return ErrWrongState
	}

	if s.requiresPaymentLocked(s.recommended.ID) {
		s.beginGatedLocked(model.PendingAction{Kind: model.PendingNavigate})
		return nil
	}

	if s.lockTimer != nil {
		s.lockTimer.Stop()
		s.lockTimer = nil
	}
	s.state = model.FlowNavigating
	s.notifyFlowLocked()
	return nil
}

// CompleteParking фиксирует факт парковки. Реестр не изменяется: оптимистичная
// запись произошла при блокировке.
func (s *Service) CompleteParking() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.FlowNavigating {
		return ErrWrongState
	}

	s.state = model.FlowParked
	s.notifyFlowLocked()
	return nil
}

// ResetFlow возвращает сценарий в IDLE. Если бронь удерживается, удалённому
// сервису отправляется запрос освобождения.
func (s *Service) ResetFlow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked("")
}

// VacateSpot освобождает занятое место и завершает сценарий. Синоним сброса
// из состояния PARKED.
func (s *Service) VacateSpot() {
	s.ResetFlow()
}

// resetLocked — единственный путь выхода в IDLE: явный сброс, освобождение
// места и истечение брони сходятся здесь, поэтому освобождение отправляется
// не более одного раза.
func (s *Service) resetLocked(notice string) {
	held := s.lockedBy != "" && s.recommended != nil &&
		(s.state == model.FlowLocked || s.state == model.FlowNavigating || s.state == model.FlowParked)
	if held {
		s.releaseRemote(s.lockedBy, s.recommended.ID)
	}

	s.stopTimersLocked()
	s.state = model.FlowIdle
	s.destination = nil
	s.recommended = nil
	s.lockedBy = ""
	s.hasPaid = false
	s.modalOpen = false
	s.pending = model.PendingAction{}
	s.notice = notice
	s.notifyFlowLocked()
}
