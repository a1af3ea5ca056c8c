package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/smartpark-system/internal/model"
	"github.com/mmeshcher/smartpark-system/internal/remote"
)

func TestStartSync_OverwritesZones(t *testing.T) {
	rem := &fakeRemote{
		zones: []remote.Zone{
			{ID: 1, FreeSlots: 2, TotalSlots: 50, Status: "filling"},
			{ID: 777, FreeSlots: 9, TotalSlots: 9, Status: "available"},
		},
	}
	svc, reg := newTestService(t, rem)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.StartSync(ctx)

	waitCond(t, "zone overwrite", func() bool {
		zone, err := reg.Get(1)
		return err == nil && zone.Free == 2 && zone.Status == model.SpotStatusFilling
	})

	// Неизвестный удалённый идентификатор не создаёт локальную зону.
	if _, err := reg.Get(777); err == nil {
		t.Fatalf("unknown remote zone must be ignored")
	}

	// Зоны без удалённого аналога не трогаются.
	zone4, _ := reg.Get(4)
	if zone4.Free != zone4.Total {
		t.Fatalf("unmatched zone must stay untouched: %+v", zone4)
	}
}

func TestStartSync_ReplacesPaymentLedger(t *testing.T) {
	rem := &fakeRemote{
		payments: []model.Payment{
			{ID: "PAY-r1", Zone: "Tech Park Zone A", Amount: 4, Status: "Completed"},
		},
	}
	svc, reg := newTestService(t, rem)
	reg.AddPayment(model.Payment{ID: "PAY-local"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.StartSync(ctx)

	waitCond(t, "ledger replace", func() bool {
		ledger := reg.Payments()
		return len(ledger) == 1 && ledger[0].ID == "PAY-r1"
	})
}

func TestStartSync_FailureDoesNotStopLoop(t *testing.T) {
	rem := &fakeRemote{zonesErr: errors.New("connection refused")}
	svc, _ := newTestService(t, rem)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.StartSync(ctx)

	// Ошибка проглатывается, следующий тик повторяет запрос.
	waitCond(t, "repeated fetch attempts", func() bool {
		rem.mu.Lock()
		defer rem.mu.Unlock()
		return rem.zonesHit >= 3
	})
}

func TestStartSync_StopsOnCancel(t *testing.T) {
	rem := &fakeRemote{}
	svc, _ := newTestService(t, rem)

	ctx, cancel := context.WithCancel(context.Background())
	svc.StartSync(ctx)

	waitCond(t, "first ticks", func() bool {
		rem.mu.Lock()
		defer rem.mu.Unlock()
		return rem.zonesHit >= 1 && rem.payHit >= 1
	})

	cancel()

	// Даём циклам увидеть отмену, затем счётчики должны замереть.
	time.Sleep(20 * time.Millisecond)
	rem.mu.Lock()
	after := rem.zonesHit
	rem.mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	rem.mu.Lock()
	final := rem.zonesHit
	rem.mu.Unlock()

	if final != after {
		t.Fatalf("sync loop kept ticking after cancel: %d -> %d", after, final)
	}
}

func TestStartSync_NoRemoteConfigured(t *testing.T) {
	svc, _ := newTestService(t, nil)

	// Без клиента циклы не стартуют и не паникуют.
	svc.StartSync(context.Background())
}
