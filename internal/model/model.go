// Package model содержит доменные сущности сервиса смартпарк.
package model

import "time"

// SpotStatus описывает степень заполненности парковочной зоны.
type SpotStatus string

const (
	SpotStatusAvailable SpotStatus = "available"
	SpotStatusFilling   SpotStatus = "filling"
	SpotStatusFull      SpotStatus = "full"
)

// fillingThreshold — число свободных мест, ниже которого зона считается заполняющейся.
const fillingThreshold = 5

// StatusFor вычисляет статус зоны по количеству свободных мест.
func StatusFor(free int) SpotStatus {
	switch {
	case free <= 0:
		return SpotStatusFull
	case free < fillingThreshold:
		return SpotStatusFilling
	default:
		return SpotStatusAvailable
	}
}

// Coordinate задаёт географическую точку.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Spot описывает парковочную зону: вместимость, занятость и тариф.
type Spot struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	Total      int        `json:"total"`
	Free       int        `json:"free"`
	Status     SpotStatus `json:"status"`
	Price      float64    `json:"price"`
	Restricted bool       `json:"restricted"`
}

// FlowState описывает состояние активного сценария бронирования.
type FlowState string

const (
	FlowIdle        FlowState = "IDLE"
	FlowSearching   FlowState = "SEARCHING"
	FlowRecommended FlowState = "RECOMMENDED"
	FlowLocked      FlowState = "LOCKED"
	FlowNavigating  FlowState = "NAVIGATING"
	FlowParked      FlowState = "PARKED"
)

// PendingKind различает виды отложенных действий платёжного шлюза.
type PendingKind string

const (
	PendingNone     PendingKind = ""
	PendingRequest  PendingKind = "request"
	PendingNavigate PendingKind = "navigate"
)

// PendingAction хранит отложенное действие вместе с исходными аргументами.
// Представлено структурой с тегом, а не замыканием, чтобы состояние шлюза
// оставалось наблюдаемым в тестах и через API.
type PendingAction struct {
	Kind        PendingKind `json:"kind"`
	Destination Coordinate  `json:"destination"`
	SpotID      int64       `json:"spot_id,omitempty"`
}

// Payment описывает запись об оплате доступа к премиум-зоне.
type Payment struct {
	ID        string    `json:"id"`
	Zone      string    `json:"zone"`
	Amount    float64   `json:"amount"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// Роли пользователей.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// User представляет учётную запись пользователя сервиса.
type User struct {
	Login        string
	PasswordHash []byte
	Role         string
	CreatedAt    time.Time
}

// Card содержит поля платёжной формы премиум-доступа.
type Card struct {
	Name   string `json:"card_name"`
	Number string `json:"card_number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}
