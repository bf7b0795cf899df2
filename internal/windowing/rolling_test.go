package windowing

import (
	"testing"
	"time"
)

func TestRolling_SingleTickZeroChange(t *testing.T) {
	r := NewRolling()
	ts := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	dip, spike := r.Update("u1", "NSE:1", 10, 100, ts)
	if dip != 0 || spike != 0 {
		t.Fatalf("single tick: got dip=%v spike=%v, want 0, 0", dip, spike)
	}
}

func TestRolling_WithinWindowDipAndSpike(t *testing.T) {
	r := NewRolling()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	r.Update("u1", "NSE:1", 10, 100, base)
	r.Update("u1", "NSE:1", 10, 120, base.Add(1*time.Minute))
	dip, _ := r.Update("u1", "NSE:1", 10, 90, base.Add(2*time.Minute))

	// high so far = 120, current price = 90 -> dip = (120-90)/120*100 = 25
	wantDip := 25.0
	if dip != wantDip {
		t.Errorf("dip = %v, want %v", dip, wantDip)
	}
}

func TestRolling_ExpiresOldPoints(t *testing.T) {
	r := NewRolling()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	r.Update("u1", "NSE:1", 5, 200, base) // high point, window = 5 minutes
	// 6 minutes later, the 200 tick should have aged out of the window
	dip, _ := r.Update("u1", "NSE:1", 5, 100, base.Add(6*time.Minute))
	if dip != 0 {
		t.Errorf("dip = %v, want 0 (aged-out high should not count)", dip)
	}
}

func TestRolling_IndependentByWindowLength(t *testing.T) {
	r := NewRolling()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	r.Update("u1", "NSE:1", 5, 100, base)
	r.Update("u1", "NSE:1", 15, 100, base)

	r.Update("u1", "NSE:1", 5, 200, base.Add(1*time.Minute))
	r.Update("u1", "NSE:1", 15, 200, base.Add(1*time.Minute))

	// both windows still hold the 200 high at 4 minutes in
	dip5, _ := r.Update("u1", "NSE:1", 5, 150, base.Add(4*time.Minute))
	dip15, _ := r.Update("u1", "NSE:1", 15, 150, base.Add(4*time.Minute))
	if dip5 != dip15 {
		t.Errorf("dip5=%v dip15=%v should match before either window expires", dip5, dip15)
	}

	// at +7 minutes the 5-minute window has dropped the 200 high, 15-minute hasn't
	dip5b, _ := r.Update("u1", "NSE:1", 5, 150, base.Add(7*time.Minute))
	dip15b, _ := r.Update("u1", "NSE:1", 15, 150, base.Add(7*time.Minute))
	if dip5b != 0 {
		t.Errorf("5-minute window dip = %v, want 0 after expiry", dip5b)
	}
	if dip15b == 0 {
		t.Errorf("15-minute window dip should still be non-zero at +7m")
	}
}

func TestRolling_IndependentByUser(t *testing.T) {
	r := NewRolling()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	// Two users, same instrument, same window length: seed a high peak
	// only for u1.
	r.Update("u1", "NSE:1", 10, 500, base)
	r.Update("u2", "NSE:1", 10, 100, base)

	dip1, _ := r.Update("u1", "NSE:1", 10, 100, base.Add(1*time.Minute))
	dip2, _ := r.Update("u2", "NSE:1", 10, 100, base.Add(1*time.Minute))

	if dip1 == 0 {
		t.Errorf("u1 dip = %v, want non-zero against its own 500 peak", dip1)
	}
	if dip2 != 0 {
		t.Errorf("u2 dip = %v, want 0 — u2 never saw a 500 peak and must not share u1's bucket", dip2)
	}
}

func TestRolling_InvalidateOnlyAffectsThatUser(t *testing.T) {
	r := NewRolling()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	r.Update("u1", "NSE:1", 10, 500, base)
	r.Update("u2", "NSE:1", 10, 500, base)

	// u1 changes window length; only u1's bucket is invalidated.
	r.Invalidate("u1", "NSE:1", 10)

	dip1, _ := r.Update("u1", "NSE:1", 10, 100, base.Add(1*time.Minute))
	dip2, _ := r.Update("u2", "NSE:1", 10, 100, base.Add(1*time.Minute))

	if dip1 != 0 {
		t.Errorf("u1 dip = %v, want 0 after its own bucket was invalidated (reseeds)", dip1)
	}
	if dip2 == 0 {
		t.Errorf("u2 dip = %v, want non-zero — u2's bucket must survive u1's invalidation", dip2)
	}
}

func TestRolling_Invalidate(t *testing.T) {
	r := NewRolling()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	r.Update("u1", "NSE:1", 10, 200, base)
	r.Invalidate("u1", "NSE:1", 10)
	if _, ok := r.state[rollingKey{"u1", "NSE:1", 10}]; ok {
		t.Errorf("state should be cleared after Invalidate")
	}
}

func TestRolling_InvalidateToken(t *testing.T) {
	r := NewRolling()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	r.Update("u1", "NSE:1", 5, 100, base)
	r.Update("u2", "NSE:1", 15, 100, base)
	r.InvalidateToken("NSE:1")
	if len(r.state) != 0 {
		t.Errorf("InvalidateToken should clear all window buckets for the token, across every user")
	}
}
