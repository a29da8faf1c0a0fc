package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casaverde/rewards-api/internal/app"
	"github.com/casaverde/rewards-api/internal/clock"
	"github.com/casaverde/rewards-api/internal/domain"
	"github.com/casaverde/rewards-api/internal/ledger"
	"github.com/casaverde/rewards-api/internal/metrics"
	"github.com/casaverde/rewards-api/internal/storage/postgres"
	"github.com/casaverde/rewards-api/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func TestReservationLifecycle_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	allocRepo := postgres.NewAllocationRepository(pool)
	redemptionRepo := postgres.NewRedemptionRepository(pool)

	ledgerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reference":"ledger-ref-1"}`))
	}))
	defer ledgerSrv.Close()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := metrics.New(prometheus.NewRegistry())
	logger := zerolog.Nop()

	reservationSvc := app.NewReservationService(allocRepo, clock.NewFixed(now), logger, m)
	redemptionSvc := app.NewRedemptionService(
		reservationSvc,
		ledger.NewClient(ledgerSrv.URL),
		redemptionRepo,
		clock.NewFixed(now),
		logger,
		m,
	)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	unitID := testutil.InsertAllocation(t, ctx, pool, "A-101", 3, 3)

	mux := http.NewServeMux()
	mux.Handle("/reservations", HandleCreateReservation(reservationSvc))
	mux.Handle("/internal/reservations/verify", HandleVerifyReservation(reservationSvc))
	mux.Handle("/redemptions", HandleRedeem(redemptionSvc))

	// Agent A claims the slot for five minutes.
	body := []byte(`{"unit_id":"` + unitID + `","agent_id":"agent-a","buyer_ref":"LER-1234","duration_minutes":5}`)
	req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created createReservationResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !created.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("expected expires_at %v, got %v", now.Add(5*time.Minute), created.ExpiresAt)
	}

	// Agent B loses and learns who holds the slot.
	bodyB := []byte(`{"unit_id":"` + unitID + `","agent_id":"agent-b","buyer_ref":"LER-9999"}`)
	reqB := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewBuffer(bodyB))
	recB := httptest.NewRecorder()
	mux.ServeHTTP(recB, reqB)

	if recB.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", recB.Code)
	}
	var conflict errorResponse
	if err := json.NewDecoder(recB.Body).Decode(&conflict); err != nil {
		t.Fatalf("decode conflict: %v", err)
	}
	if conflict.HeldBy != "agent-a" {
		t.Fatalf("expected held_by agent-a, got %q", conflict.HeldBy)
	}

	// The holder verifies before committing.
	verifyReq := httptest.NewRequest(http.MethodGet, "/internal/reservations/verify?unit_id="+unitID+"&agent_id=agent-a", nil)
	verifyRec := httptest.NewRecorder()
	mux.ServeHTTP(verifyRec, verifyReq)

	if verifyRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", verifyRec.Code)
	}
	var verified verifyReservationResponse
	if err := json.NewDecoder(verifyRec.Body).Decode(&verified); err != nil {
		t.Fatalf("decode verify: %v", err)
	}
	if !verified.OK || verified.RemainingStock != 3 {
		t.Fatalf("expected ok with stock 3, got %+v", verified)
	}

	// And redeems.
	redeemBody := []byte(`{"unit_id":"` + unitID + `","agent_id":"agent-a","buyer_ref":"LER-1234"}`)
	redeemReq := httptest.NewRequest(http.MethodPost, "/redemptions", bytes.NewBuffer(redeemBody))
	redeemRec := httptest.NewRecorder()
	mux.ServeHTTP(redeemRec, redeemReq)

	if redeemRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", redeemRec.Code, redeemRec.Body.String())
	}
	var redeemed redeemResponse
	if err := json.NewDecoder(redeemRec.Body).Decode(&redeemed); err != nil {
		t.Fatalf("decode redeem: %v", err)
	}
	if redeemed.LedgerRef != "ledger-ref-1" {
		t.Fatalf("expected ledger-ref-1, got %q", redeemed.LedgerRef)
	}
	if redeemed.RemainingStock != 3 {
		t.Fatalf("expected verify-time stock 3, got %d", redeemed.RemainingStock)
	}

	a, err := allocRepo.Get(ctx, unitID)
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	if a.RemainingStock != 2 {
		t.Fatalf("expected stock decremented to 2, got %d", a.RemainingStock)
	}
	if a.ReleasedStatus != domain.StatusAvailable {
		t.Fatalf("expected Available, got %s", a.ReleasedStatus)
	}
	if a.ReservedBy != nil {
		t.Fatalf("expected lease cleared after finalize")
	}

	receipts, err := redemptionRepo.ListByAgent(ctx, "agent-a", 10)
	if err != nil {
		t.Fatalf("list receipts: %v", err)
	}
	if len(receipts) != 1 || receipts[0].ID != redeemed.RedemptionID {
		t.Fatalf("expected one receipt for the attempt, got %+v", receipts)
	}
}

func TestRedeemLastUnit_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	allocRepo := postgres.NewAllocationRepository(pool)
	redemptionRepo := postgres.NewRedemptionRepository(pool)

	ledgerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reference":"ledger-ref-2"}`))
	}))
	defer ledgerSrv.Close()

	now := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	m := metrics.New(prometheus.NewRegistry())
	logger := zerolog.Nop()

	reservationSvc := app.NewReservationService(allocRepo, clock.NewFixed(now), logger, m)
	redemptionSvc := app.NewRedemptionService(
		reservationSvc,
		ledger.NewClient(ledgerSrv.URL),
		redemptionRepo,
		clock.NewFixed(now),
		logger,
		m,
	)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	unitID := testutil.InsertAllocation(t, ctx, pool, "A-201", 1, 1)
	testutil.SetLease(t, ctx, pool, unitID, "agent-a", "LER-1234", now, now.Add(5*time.Minute))

	redeemBody := []byte(`{"unit_id":"` + unitID + `","agent_id":"agent-a","buyer_ref":"LER-1234"}`)
	req := httptest.NewRequest(http.MethodPost, "/redemptions", bytes.NewBuffer(redeemBody))
	rec := httptest.NewRecorder()
	HandleRedeem(redemptionSvc).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	a, err := allocRepo.Get(ctx, unitID)
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	if a.RemainingStock != 0 {
		t.Fatalf("expected stock 0, got %d", a.RemainingStock)
	}
	if a.ReleasedStatus != domain.StatusNotReleased {
		t.Fatalf("expected Not Released, got %s", a.ReleasedStatus)
	}

	// The slot is gone; a fresh attempt fails closed.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/redemptions", bytes.NewBuffer(redeemBody))
	HandleRedeem(redemptionSvc).ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusConflict {
		t.Fatalf("expected status 409 after stock exhausted, got %d", rec2.Code)
	}
}

func TestResumeAfterExpiry_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	allocRepo := postgres.NewAllocationRepository(pool)

	now := time.Date(2025, 3, 1, 16, 0, 0, 0, time.UTC)
	m := metrics.New(prometheus.NewRegistry())
	reservationSvc := app.NewReservationService(allocRepo, clock.NewFixed(now), zerolog.Nop(), m)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	unitID := testutil.InsertAllocation(t, ctx, pool, "A-301", 1, 1)

	// The agent held the slot, left for the payment provider, and came
	// back after the lease lapsed.
	testutil.SetLease(t, ctx, pool, unitID, "agent-a", "LER-1234", now.Add(-20*time.Minute), now.Add(-5*time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/reservations/resume?unit_id="+unitID+"&buyer_ref=LER-1234&agent_id=agent-a", nil)
	rec := httptest.NewRecorder()
	HandleResumeReservation(reservationSvc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resumed resumeReservationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resumed); err != nil {
		t.Fatalf("decode resume: %v", err)
	}
	if !resumed.ExpiresAt.Equal(now.Add(reservationSvc.DefaultTTL())) {
		t.Fatalf("expected fresh default-TTL expiry, got %v", resumed.ExpiresAt)
	}

	a, err := allocRepo.Get(ctx, unitID)
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	if a.ReservedBy == nil || *a.ReservedBy != "agent-a" {
		t.Fatalf("expected lease re-claimed by agent-a, got %+v", a.ReservedBy)
	}
	if a.ReservationExpiresAt == nil || !a.ReservationExpiresAt.Equal(now.Add(reservationSvc.DefaultTTL())) {
		t.Fatalf("expected refreshed expiry, got %+v", a.ReservationExpiresAt)
	}
}
