// Package registry содержит хранилище парковочных зон и платежей в памяти процесса.
//
// Реестр — единственный владелец записей о зонах. Его изменяют три источника:
// административные операции добавления и удаления, оптимистичная запись
// менеджера блокировок и перезапись полей занятости синхронизатором. Каждая
// запись заменяет поля затронутой зоны целиком, последняя запись побеждает.
package registry

import (
	"crypto/sha256"
	"errors"
	"sync"
	"time"

	"github.com/mmeshcher/smartpark-system/internal/model"
)

// ErrZoneProtected возвращается при попытке удалить неудаляемую зону с живой камерой.
var (
	ErrZoneProtected = errors.New("zone is protected and cannot be deleted")
	// ErrZoneNotFound возвращается, если зона с указанным идентификатором отсутствует.
	ErrZoneNotFound = errors.New("zone not found")
	// ErrUserExists возвращается при попытке создать пользователя с занятым логином.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
)

// protectedZoneID — зона живой камеры, её нельзя удалить.
const protectedZoneID int64 = 1

// restrictedZoneID — премиум-зона, доступ к которой требует оплаты.
const restrictedZoneID int64 = 3

// ZoneDelta содержит поля занятости зоны, полученные от удалённого сервиса.
type ZoneDelta struct {
	ID     int64
	Free   int
	Total  int
	Status model.SpotStatus
}

// SpotData содержит поля новой зоны при административном добавлении.
type SpotData struct {
	Name  string
	Lat   float64
	Lng   float64
	Total int
	Price float64
}

// Subscriber получает полный список зон при каждом изменении реестра.
type Subscriber func(spots []model.Spot)

// Registry хранит зоны, платежи и пользователей в памяти процесса.
type Registry struct {
	mu          sync.Mutex
	spots       []model.Spot
	payments    []model.Payment
	users       map[string]model.User
	subscribers []Subscriber
}

// New создаёт реестр, заполненный стартовым набором зон и учётных записей.
func New() *Registry {
	r := &Registry{
		spots: seedSpots(),
		users: make(map[string]model.User),
	}
	for _, u := range seedUsers() {
		r.users[u.Login] = u
	}
	return r
}

func seedSpots() []model.Spot {
	seeds := []model.Spot{
		{ID: 1, Name: "Zone 1 - City Center Garage", Lat: 0.015, Lng: 0.015, Total: 50, Price: 5},
		{ID: 2, Name: "Zone 2 - Parking Lot", Lat: -0.045, Lng: -0.045, Total: 30, Price: 8},
		{ID: 3, Name: "Tech Park Zone A", Lat: 0.090, Lng: 0.020, Total: 100, Price: 4, Restricted: true},
		{ID: 4, Name: "Riverside Walk", Lat: -0.020, Lng: 0.095, Total: 20, Price: 6},
		{ID: 5, Name: "Central Hospital P1", Lat: 0.100, Lng: -0.030, Total: 40, Price: 3},
		{ID: 6, Name: "Retail Hub Parking", Lat: -0.090, Lng: -0.050, Total: 60, Price: 7},
		{ID: 7, Name: "Green Plaza", Lat: 0.050, Lng: -0.090, Total: 25, Price: 4},
		{ID: 8, Name: "Station Side", Lat: -0.100, Lng: 0.040, Total: 15, Price: 9},
	}
	for i := range seeds {
		seeds[i].Free = seeds[i].Total
		seeds[i].Status = model.SpotStatusAvailable
	}
	return seeds
}

func seedUsers() []model.User {
	now := time.Now()
	return []model.User{
		{Login: "admin", PasswordHash: hashPassword("admin", "admin"), Role: model.RoleAdmin, CreatedAt: now},
		{Login: "user", PasswordHash: hashPassword("user", "user"), Role: model.RoleCustomer, CreatedAt: now},
		{Login: "user2", PasswordHash: hashPassword("user2", "user2"), Role: model.RoleCustomer, CreatedAt: now},
	}
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// RestrictedZoneID возвращает идентификатор премиум-зоны.
func (r *Registry) RestrictedZoneID() int64 {
	return restrictedZoneID
}

// Subscribe регистрирует подписчика, синхронно уведомляемого о каждом изменении зон.
func (r *Registry) Subscribe(fn Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// notifyLocked вызывает подписчиков до возврата из мутирующей операции.
// Вызывается под мьютексом, копия списка зон у каждого подписчика своя.
func (r *Registry) notifyLocked() {
	for _, fn := range r.subscribers {
		fn(r.snapshotLocked())
	}
}

func (r *Registry) snapshotLocked() []model.Spot {
	out := make([]model.Spot, len(r.spots))
	copy(out, r.spots)
	return out
}

// List возвращает копию списка всех зон.
func (r *Registry) List() []model.Spot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Get возвращает зону по идентификатору.
func (r *Registry) Get(id int64) (model.Spot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spots {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Spot{}, ErrZoneNotFound
}

// Add создаёт новую зону со свежим идентификатором и полной вместимостью.
func (r *Registry) Add(data SpotData) model.Spot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var maxID int64
	for _, s := range r.spots {
		if s.ID > maxID {
			maxID = s.ID
		}
	}

	spot := model.Spot{
		ID:     maxID + 1,
		Name:   data.Name,
		Lat:    data.Lat,
		Lng:    data.Lng,
		Total:  data.Total,
		Free:   data.Total,
		Status: model.SpotStatusAvailable,
		Price:  data.Price,
	}
	r.spots = append(r.spots, spot)
	r.notifyLocked()
	return spot
}

// Remove удаляет зону. Защищённая зона не удаляется, операция возвращает
// ErrZoneProtected без изменения реестра.
func (r *Registry) Remove(id int64) error {
	if id == protectedZoneID {
		return ErrZoneProtected
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.spots {
		if s.ID == id {
			r.spots = append(r.spots[:i], r.spots[i+1:]...)
			r.notifyLocked()
			return nil
		}
	}
	return ErrZoneNotFound
}

// UpsertFromRemote перезаписывает поля занятости зон данными удалённого сервиса.
// Локальные зоны без удалённого аналога не трогаются, неизвестные удалённые
// идентификаторы игнорируются.
func (r *Registry) UpsertFromRemote(deltas []ZoneDelta) {
	if len(deltas) == 0 {
		return
	}

	byID := make(map[int64]ZoneDelta, len(deltas))
	for _, d := range deltas {
		byID[d.ID] = d
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for i := range r.spots {
		d, ok := byID[r.spots[i].ID]
		if !ok {
			continue
		}
		r.spots[i].Free = d.Free
		r.spots[i].Total = d.Total
		r.spots[i].Status = d.Status
		changed = true
	}
	if changed {
		r.notifyLocked()
	}
}

// ApplyLock выполняет оптимистичную запись блокировки: уменьшает число свободных
// мест на единицу и пересчитывает статус. Следующий тик синхронизатора перекроет
// результат авторитетными данными.
func (r *Registry) ApplyLock(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.spots {
		if r.spots[i].ID != id {
			continue
		}
		if r.spots[i].Free > 0 {
			r.spots[i].Free--
		}
		r.spots[i].Status = model.StatusFor(r.spots[i].Free)
		r.notifyLocked()
		return nil
	}
	return ErrZoneNotFound
}

// AddPayment добавляет запись об оплате в локальный журнал.
func (r *Registry) AddPayment(p model.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, p)
}

// ReplacePayments заменяет локальный журнал платежей целиком данными удалённого
// реестра. Оптимистично добавленные записи вытесняются, как только удалённая
// сторона их отразит.
func (r *Registry) ReplacePayments(payments []model.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = make([]model.Payment, len(payments))
	copy(r.payments, payments)
}

// Payments возвращает копию локального журнала платежей.
func (r *Registry) Payments() []model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Payment, len(r.payments))
	copy(out, r.payments)
	return out
}

// UserByLogin возвращает учётную запись по логину.
func (r *Registry) UserByLogin(login string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[login]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

// CreateUser регистрирует нового пользователя с ролью покупателя.
func (r *Registry) CreateUser(login string, passwordHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[login]; ok {
		return ErrUserExists
	}
	r.users[login] = model.User{
		Login:        login,
		PasswordHash: passwordHash,
		Role:         model.RoleCustomer,
		CreatedAt:    time.Now(),
	}
	return nil
}

// HashPassword возвращает хеш пароля в формате, принятом при посеве учётных записей.
func HashPassword(login, password string) []byte {
	return hashPassword(login, password)
}
