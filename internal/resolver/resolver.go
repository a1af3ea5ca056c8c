// Package resolver содержит выбор оптимальной парковочной зоны для точки назначения.
package resolver

import (
	"math"

	"github.com/mmeshcher/smartpark-system/internal/model"
)

// Nearest выбирает зону для поездки к точке назначения.
//
// Если forcedID указан и присутствует в списке, зона возвращается независимо от
// статуса: явный выбор пользователя перекрывает автоматический рейтинг. Иначе
// берётся ближайшая по евклидову расстоянию незаполненная зона, при равенстве
// побеждает первая по порядку. Расстояние — эвристика, маршрутное время для
// отображения считает внешний навигационный сервис и на выбор не влияет.
func Nearest(spots []model.Spot, dest model.Coordinate, forcedID int64) (model.Spot, bool) {
	if forcedID != 0 {
		for _, s := range spots {
			if s.ID == forcedID {
				return s, true
			}
		}
	}

	found := false
	var best model.Spot
	bestDist := math.MaxFloat64

	for _, s := range spots {
		if s.Status == model.SpotStatusFull {
			continue
		}
		d := distance(s, dest)
		if d < bestDist {
			best = s
			bestDist = d
			found = true
		}
	}

	return best, found
}

func distance(s model.Spot, dest model.Coordinate) float64 {
	dLat := s.Lat - dest.Lat
	dLng := s.Lng - dest.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}
