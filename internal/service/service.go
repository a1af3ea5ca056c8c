// Package service реализует бизнес-логику сервиса смартпарк: сценарий
// бронирования, платёжный шлюз премиум-зон, менеджер блокировок и
// синхронизацию с удалённым сервисом доступности.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/smartpark-system/internal/model"
	"github.com/mmeshcher/smartpark-system/internal/registry"
	"github.com/mmeshcher/smartpark-system/internal/remote"
)

// Ошибки уровня сценария.
var (
	// ErrWrongState возвращается, когда действие недопустимо в текущем состоянии сценария.
	ErrWrongState = errors.New("action not allowed in current flow state")
	// ErrUserRequired возвращается, когда действие требует аутентифицированного пользователя.
	ErrUserRequired = errors.New("authenticated user required")
	// ErrInvalidCredentials возвращается при неверной паре логин-пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Интервалы сценария по умолчанию.
const (
	defaultSearchDelay  = 1500 * time.Millisecond
	defaultLockTTL      = 300 * time.Second
	defaultSyncInterval = 2 * time.Second
)

// Registry описывает контракт реестра зон, используемый сервисом.
type Registry interface {
	List() []model.Spot
	Get(id int64) (model.Spot, error)
	Add(data registry.SpotData) model.Spot
	Remove(id int64) error
	UpsertFromRemote(deltas []registry.ZoneDelta)
	ApplyLock(id int64) error
	AddPayment(p model.Payment)
	ReplacePayments(payments []model.Payment)
	Payments() []model.Payment
	UserByLogin(login string) (model.User, error)
	CreateUser(login string, passwordHash []byte) error
}

// Remote описывает контракт удалённого сервиса доступности.
type Remote interface {
	Zones(ctx context.Context) ([]remote.Zone, error)
	Payments(ctx context.Context) ([]model.Payment, error)
	Reserve(ctx context.Context, user string, zoneID int64) error
	Release(ctx context.Context, user string, zoneID int64) error
	SendPayment(ctx context.Context, p model.Payment) error
}

// Service содержит бизнес-логику сервиса смартпарк. Состояние сценария и
// платёжного шлюза принадлежит сервису целиком, один сценарий на процесс.
type Service struct {
	registry Registry
	remote   Remote
	logger   *zap.Logger

	searchDelay  time.Duration
	lockTTL      time.Duration
	syncInterval time.Duration

	mu           sync.Mutex
	state        model.FlowState
	destination  *model.Coordinate
	recommended  *model.Spot
	lockedBy     string
	lockDeadline time.Time
	lockTimer    *time.Timer
	searchTimer  *time.Timer
	searchGen    uint64
	notice       string

	hasPaid   bool
	modalOpen bool
	pending   model.PendingAction

	flowSubs []func(FlowSnapshot)
}

// NewService создаёт сервис с указанным реестром и клиентом удалённого сервиса.
// remote может быть nil, тогда сетевые вызовы пропускаются и состояние остаётся
// локально-оптимистичным.
func NewService(reg Registry, rem Remote, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:     reg,
		remote:       rem,
		logger:       logger,
		searchDelay:  defaultSearchDelay,
		lockTTL:      defaultLockTTL,
		syncInterval: defaultSyncInterval,
		state:        model.FlowIdle,
	}
}

// Close останавливает таймеры сценария.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
	return nil
}

func (s *Service) stopTimersLocked() {
	if s.lockTimer != nil {
		s.lockTimer.Stop()
		s.lockTimer = nil
	}
	if s.searchTimer != nil {
		s.searchTimer.Stop()
		s.searchTimer = nil
	}
}

// SubscribeFlow регистрирует подписчика, уведомляемого о каждом переходе сценария.
func (s *Service) SubscribeFlow(fn func(FlowSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowSubs = append(s.flowSubs, fn)
}

// notifyFlowLocked вызывается под мьютексом после каждого изменения сценария.
// Подписчики не должны обращаться к сервису из обработчика.
func (s *Service) notifyFlowLocked() {
	if len(s.flowSubs) == 0 {
		return
	}
	snapshot := s.snapshotLocked()
	for _, fn := range s.flowSubs {
		fn(snapshot)
	}
}

// RegisterUser регистрирует нового пользователя с ролью покупателя.
func (s *Service) RegisterUser(login, password string) error {
	return s.registry.CreateUser(login, hashPassword(login, password))
}

// AuthenticateUser проверяет логин и пароль и возвращает роль пользователя.
func (s *Service) AuthenticateUser(login, password string) (string, error) {
	u, err := s.registry.UserByLogin(login)
	if err != nil {
		return "", err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return u.Role, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// Zones возвращает список зон реестра.
func (s *Service) Zones() []model.Spot {
	return s.registry.List()
}

// AddZone создаёт новую зону по административному запросу.
func (s *Service) AddZone(data registry.SpotData) model.Spot {
	return s.registry.Add(data)
}

// DeleteZone удаляет зону. Защищённая зона не удаляется.
func (s *Service) DeleteZone(id int64) error {
	return s.registry.Remove(id)
}

// Payments возвращает локальный журнал платежей.
func (s *Service) Payments() []model.Payment {
	return s.registry.Payments()
}
