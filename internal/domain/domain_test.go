package domain

import (
	"testing"
	"time"
)

func TestDefaultSlotPolicies(t *testing.T) {
	policies := DefaultSlotPolicies()

	tests := []struct {
		slot     AdSlot
		points   int64
		cooldown bool
	}{
		{SlotMain, 4, true},
		{SlotSide, 2, true},
		{SlotLow, 1, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.slot), func(t *testing.T) {
			p, ok := policies[tt.slot]
			if !ok {
				t.Fatalf("no policy for slot %q", tt.slot)
			}
			if p.Points != tt.points {
				t.Errorf("Points = %d, want %d", p.Points, tt.points)
			}
			if p.Cooldown != tt.cooldown {
				t.Errorf("Cooldown = %v, want %v", p.Cooldown, tt.cooldown)
			}
		})
	}
}

func TestAdSlotValid(t *testing.T) {
	for _, s := range []AdSlot{SlotMain, SlotSide, SlotLow} {
		if !s.Valid() {
			t.Errorf("slot %q should be valid", s)
		}
	}
	if AdSlot("banner").Valid() {
		t.Error("unknown slot should not be valid")
	}
}

func TestRewardStateInFlight(t *testing.T) {
	inFlight := []RewardState{StateAwaitingAd, StateAdCompleted, StateCrediting}
	settled := []RewardState{StateIdle, StateCredited, StateFailed}

	for _, s := range inFlight {
		if !s.InFlight() {
			t.Errorf("%s should be in flight", s)
		}
	}
	for _, s := range settled {
		if s.InFlight() {
			t.Errorf("%s should not be in flight", s)
		}
	}
}

func TestBalanceAddNeg(t *testing.T) {
	b := Balance{Normal: 10, Gold: 3}
	delta := Balance{Normal: 4}

	got := b.Add(delta)
	if got.Normal != 14 || got.Gold != 3 {
		t.Errorf("Add = %+v, want {14 3}", got)
	}

	// Rollback symmetry: applying the inverse restores the original.
	back := got.Add(delta.Neg())
	if back != b {
		t.Errorf("Add(Neg) = %+v, want %+v", back, b)
	}
}

func TestMemoryBalance(t *testing.T) {
	m := NewMemoryBalance(Balance{Normal: 10})

	if got := m.Apply(Balance{Normal: 4}); got.Normal != 14 {
		t.Errorf("Apply = %+v, want Normal 14", got)
	}

	m.Set(Balance{Normal: 20, Gold: 10})
	if got := m.Get(); got.Normal != 20 || got.Gold != 10 {
		t.Errorf("Get = %+v, want {20 10}", got)
	}
}

func TestDefaultTaskCatalog(t *testing.T) {
	catalog := DefaultTaskCatalog()
	if len(catalog) == 0 {
		t.Fatal("catalog should not be empty")
	}

	seen := make(map[string]bool)
	for _, task := range catalog {
		if task.ID == "" {
			t.Error("task with empty id")
		}
		if seen[task.ID] {
			t.Errorf("duplicate task id %q", task.ID)
		}
		seen[task.ID] = true
		if task.Status != TaskIdle {
			t.Errorf("task %s status = %q, want idle", task.ID, task.Status)
		}
		if task.Points <= 0 {
			t.Errorf("task %s has non-positive points", task.ID)
		}
	}
}

func TestInviteLink(t *testing.T) {
	tests := []struct {
		name string
		tid  string
		want string
	}{
		{"with id", "12345", "https://t.me/ADS_Cd_bot/ADS?startapp=12345"},
		{"without id", "", "https://t.me/ADS_Cd_bot/ADS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InviteLink("ADS_Cd_bot", "ADS", tt.tid)
			if got != tt.want {
				t.Errorf("InviteLink = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSystemClock(t *testing.T) {
	var c Clock = SystemClock{}
	before := time.Now()
	now := c.Now()
	if now.Before(before.Add(-time.Second)) {
		t.Error("SystemClock.Now too far in the past")
	}
}
