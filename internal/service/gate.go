package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/smartpark-system/internal/model"
	"github.com/mmeshcher/smartpark-system/internal/validation"
)

// RequiresPayment сообщает, требует ли зона оплаты в текущем сценарии.
func (s *Service) RequiresPayment(spotID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requiresPaymentLocked(spotID)
}

func (s *Service) requiresPaymentLocked(spotID int64) bool {
	if s.hasPaid {
		return false
	}
	spot, err := s.registry.Get(spotID)
	if err != nil {
		return false
	}
	return spot.Restricted
}

// beginGatedLocked откладывает действие до подтверждения оплаты и открывает
// платёжное окно. Одновременно хранится не более одного отложенного действия:
// повторный запрос замещает предыдущий (последний побеждает) — известное
// ограничение, очередь не ведётся.
func (s *Service) beginGatedLocked(action model.PendingAction) {
	s.pending = action
	s.modalOpen = true
	s.notifyFlowLocked()
}

// CompletePayment подтверждает оплату премиум-доступа.
//
// Форма проверяется до любого изменения состояния. Успешная оплата помечает
// сценарий оплаченным, закрывает окно, добавляет запись в локальный журнал,
// передаёт её удалённому реестру и ровно один раз воспроизводит отложенное
// действие с исходными аргументами.
func (s *Service) CompletePayment(user string, card model.Card) (model.Payment, error) {
	if err := validation.CardFields(card.Name, card.Number, card.Expiry, card.CVV, time.Now()); err != nil {
		return model.Payment{}, err
	}

	s.mu.Lock()

	s.hasPaid = true
	s.modalOpen = false

	payer := user
	if payer == "" {
		payer = card.Name
	}

	zone, amount := s.paidZoneLocked()
	payment := model.Payment{
		ID:        "PAY-" + uuid.NewString(),
		Zone:      zone,
		Amount:    amount,
		User:      payer,
		Timestamp: time.Now(),
		Status:    "Completed",
	}
	s.registry.AddPayment(payment)
	s.sendPaymentRemote(payment)

	pending := s.pending
	s.pending = model.PendingAction{}
	s.notifyFlowLocked()
	s.mu.Unlock()

	switch pending.Kind {
	case model.PendingRequest:
		if err := s.RequestParking(pending.Destination, pending.SpotID); err != nil {
			s.logger.Warn("replay of gated request failed", zap.Error(err))
		}
	case model.PendingNavigate:
		if err := s.StartNavigation(); err != nil {
			s.logger.Warn("replay of gated navigation failed", zap.Error(err))
		}
	}

	return payment, nil
}

// paidZoneLocked определяет зону и сумму оплачиваемого доступа: зона из
// отложенного запроса, иначе рекомендованная, иначе премиум-зона реестра.
func (s *Service) paidZoneLocked() (string, float64) {
	if s.pending.Kind == model.PendingRequest && s.pending.SpotID != 0 {
		if spot, err := s.registry.Get(s.pending.SpotID); err == nil {
			return spot.Name, spot.Price
		}
	}
	if s.recommended != nil {
		return s.recommended.Name, s.recommended.Price
	}
	for _, spot := range s.registry.List() {
		if spot.Restricted {
			return spot.Name, spot.Price
		}
	}
	return "", 0
}

// CancelPayment закрывает платёжное окно и отбрасывает отложенное действие
// без выполнения.
func (s *Service) CancelPayment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modalOpen = false
	s.pending = model.PendingAction{}
	s.notifyFlowLocked()
}

// sendPaymentRemote передаёт запись об оплате удалённому реестру, игнорируя
// результат: локальная запись всё равно будет вытеснена ближайшим тиком
// синхронизации журнала.
func (s *Service) sendPaymentRemote(p model.Payment) {
	if s.remote == nil {
		return
	}
	go func() {
		if err := s.remote.SendPayment(context.Background(), p); err != nil {
			s.logger.Warn("payment upload failed", zap.String("payment_id", p.ID), zap.Error(err))
		}
	}()
}
