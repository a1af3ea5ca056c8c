package resolver

import (
	"testing"

	"github.com/mmeshcher/smartpark-system/internal/model"
)

func spot(id int64, lat, lng float64, status model.SpotStatus) model.Spot {
	return model.Spot{ID: id, Lat: lat, Lng: lng, Status: status}
}

func TestNearest_PicksClosestNonFull(t *testing.T) {
	spots := []model.Spot{
		spot(1, 0.10, 0.10, model.SpotStatusAvailable),
		spot(2, 0.01, 0.01, model.SpotStatusFull),
		spot(3, 0.02, 0.02, model.SpotStatusFilling),
	}

	best, ok := Nearest(spots, model.Coordinate{Lat: 0, Lng: 0}, 0)
	if !ok {
		t.Fatalf("expected a recommendation")
	}
	if best.ID != 3 {
		t.Fatalf("best = %d, want 3 (closest non-full)", best.ID)
	}
}

func TestNearest_NeverReturnsFull(t *testing.T) {
	spots := []model.Spot{
		spot(1, 0, 0, model.SpotStatusFull),
		spot(2, 5, 5, model.SpotStatusFull),
	}

	if _, ok := Nearest(spots, model.Coordinate{}, 0); ok {
		t.Fatalf("all zones full, expected no recommendation")
	}
}

func TestNearest_TieBreaksByInputOrder(t *testing.T) {
	spots := []model.Spot{
		spot(7, 0.01, 0, model.SpotStatusAvailable),
		spot(8, -0.01, 0, model.SpotStatusAvailable),
	}

	best, ok := Nearest(spots, model.Coordinate{}, 0)
	if !ok || best.ID != 7 {
		t.Fatalf("equidistant tie must keep first in order, got %d", best.ID)
	}
}

func TestNearest_ForcedIDOverridesRanking(t *testing.T) {
	spots := []model.Spot{
		spot(1, 0, 0, model.SpotStatusAvailable),
		spot(2, 9, 9, model.SpotStatusFull),
	}

	best, ok := Nearest(spots, model.Coordinate{}, 2)
	if !ok {
		t.Fatalf("forced id present, expected match")
	}
	if best.ID != 2 {
		t.Fatalf("forced choice must win even on a full zone, got %d", best.ID)
	}
}

func TestNearest_ForcedIDMissingFallsBack(t *testing.T) {
	spots := []model.Spot{
		spot(1, 0.03, 0.03, model.SpotStatusAvailable),
	}

	best, ok := Nearest(spots, model.Coordinate{}, 42)
	if !ok || best.ID != 1 {
		t.Fatalf("missing forced id must fall back to ranking, got %+v ok=%v", best, ok)
	}
}

func TestNearest_EmptyList(t *testing.T) {
	if _, ok := Nearest(nil, model.Coordinate{}, 0); ok {
		t.Fatalf("empty list must not recommend")
	}
}
