package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edroute/edroute/internal/domain/audit"
	"github.com/edroute/edroute/internal/domain/directory"
	"github.com/edroute/edroute/internal/domain/encounter"
)

// mockRepo is an in-memory Repository with the same atomicity guarantees
// as the conditional-update SQL implementation.
type mockRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*HospitalRequest
}

func newMockRepo() *mockRepo {
	return &mockRepo{requests: make(map[uuid.UUID]*HospitalRequest)}
}

func (m *mockRepo) Create(_ context.Context, r *HospitalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.requests {
		if existing.EncounterID == r.EncounterID && existing.HospitalID == r.HospitalID && !existing.Status.Terminal() {
			return &DuplicateRequestError{EncounterID: r.EncounterID, HospitalID: r.HospitalID}
		}
	}
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*HospitalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) Transition(_ context.Context, id uuid.UUID, to Status, reason *string) (*HospitalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status.Terminal() {
		return nil, &InvalidTransitionError{RequestID: id, Status: r.Status}
	}
	now := time.Now().UTC()
	r.Status = to
	r.RespondedAt = &now
	if reason != nil {
		r.Reason = reason
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) ListByEncounter(_ context.Context, encounterID uuid.UUID) ([]*HospitalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*HospitalRequest
	for _, r := range m.requests {
		if r.EncounterID == encounterID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) CountActive(_ context.Context, encounterID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, r := range m.requests {
		if r.EncounterID == encounterID && (r.Status == StatusPending || r.Status == StatusAccepted) {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*HospitalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*HospitalRequest
	for _, r := range m.requests {
		if r.Status == StatusPending && r.ExpiresAt.Before(now) && len(out) < limit {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockEncounters struct {
	mu         sync.Mutex
	encounters map[uuid.UUID]*encounter.Encounter
	getErr     error
}

func (m *mockEncounters) GetEncounter(_ context.Context, id uuid.UUID) (*encounter.Encounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.encounters[id]
	if !ok {
		return nil, encounter.ErrNotFound
	}
	return e, nil
}

func (m *mockEncounters) MarkPlaced(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.encounters[id]
	if !ok {
		return encounter.ErrNotFound
	}
	e.Status = encounter.StatusPlaced
	return nil
}

type mockHospitals struct {
	hospitals map[uuid.UUID]*directory.Hospital
}

func (m *mockHospitals) GetHospital(_ context.Context, id uuid.UUID) (*directory.Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return h, nil
}

type mockSink struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (m *mockSink) Append(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []uuid.UUID
}

func (n *recordingNotifier) NeedsRecommendation(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, id)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	encs     *mockEncounters
	sink     *mockSink
	notifier *recordingNotifier
	encID    uuid.UUID
	hospID   uuid.UUID
	hospID2  uuid.UUID
}

func newFixture(urgency encounter.Urgency) *fixture {
	encID := uuid.New()
	hospID := uuid.New()
	hospID2 := uuid.New()
	encs := &mockEncounters{encounters: map[uuid.UUID]*encounter.Encounter{
		encID: {ID: encID, PatientID: "p-1", Urgency: urgency, Status: encounter.StatusOpen},
	}}
	hosps := &mockHospitals{hospitals: map[uuid.UUID]*directory.Hospital{
		hospID:  {ID: hospID, Name: "Alpha"},
		hospID2: {ID: hospID2, Name: "Beta"},
	}}
	repo := newMockRepo()
	sink := &mockSink{}
	notifier := &recordingNotifier{}
	svc := NewService(repo, encs, hosps, sink, notifier, 15*time.Minute, zerolog.Nop())
	return &fixture{svc: svc, repo: repo, encs: encs, sink: sink, notifier: notifier,
		encID: encID, hospID: hospID, hospID2: hospID2}
}

func TestOpen(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	req, err := f.svc.Open(context.Background(), f.encID, f.hospID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", req.Status)
	}
	if !req.ExpiresAt.After(req.CreatedAt) {
		t.Error("expected expires_at after created_at")
	}
	if f.sink.count() != 1 {
		t.Errorf("expected 1 audit entry, got %d", f.sink.count())
	}
}

func TestOpen_DuplicateWhilePending(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	if _, err := f.svc.Open(context.Background(), f.encID, f.hospID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.svc.Open(context.Background(), f.encID, f.hospID)
	var dup *DuplicateRequestError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateRequestError, got %v", err)
	}
}

func TestOpen_AllowedAfterTerminal(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	req, err := f.svc.Open(context.Background(), f.encID, f.hospID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Reject(context.Background(), req.ID, "full"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Open(context.Background(), f.encID, f.hospID); err != nil {
		t.Errorf("expected reopen after terminal state, got %v", err)
	}
}

func TestOpen_UnknownIDs(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	if _, err := f.svc.Open(context.Background(), uuid.New(), f.hospID); !errors.Is(err, encounter.ErrNotFound) {
		t.Errorf("expected encounter not found, got %v", err)
	}
	if _, err := f.svc.Open(context.Background(), f.encID, uuid.New()); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("expected hospital not found, got %v", err)
	}
}

func TestAccept(t *testing.T) {
	f := newFixture(encounter.UrgencyUrgent)
	req, _ := f.svc.Open(context.Background(), f.encID, f.hospID)

	accepted, err := f.svc.Accept(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Errorf("expected ACCEPTED, got %s", accepted.Status)
	}
	if accepted.RespondedAt == nil {
		t.Error("expected responded_at to be set")
	}
	if f.encs.encounters[f.encID].Status != encounter.StatusPlaced {
		t.Error("expected encounter marked placed")
	}
}

func TestAccept_AlreadyTerminal(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	req, _ := f.svc.Open(context.Background(), f.encID, f.hospID)
	if _, err := f.svc.Accept(context.Background(), req.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.svc.Accept(context.Background(), req.ID)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestAccept_LeavesOtherRequestsOpen(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	first, _ := f.svc.Open(context.Background(), f.encID, f.hospID)
	second, _ := f.svc.Open(context.Background(), f.encID, f.hospID2)

	if _, err := f.svc.Accept(context.Background(), first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other, _ := f.svc.GetRequest(context.Background(), second.ID)
	if other.Status != StatusPending {
		t.Errorf("expected second request still PENDING, got %s", other.Status)
	}
}

func TestReject(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	req, _ := f.svc.Open(context.Background(), f.encID, f.hospID)

	rejected, err := f.svc.Reject(context.Background(), req.ID, "at capacity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Errorf("expected REJECTED, got %s", rejected.Status)
	}
	if rejected.Reason == nil || *rejected.Reason != "at capacity" {
		t.Errorf("expected reason recorded, got %v", rejected.Reason)
	}
}

func TestReject_EmptyReason(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	req, _ := f.svc.Open(context.Background(), f.encID, f.hospID)

	_, err := f.svc.Reject(context.Background(), req.ID, "  ")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReject_CriticalEncounterForbidden(t *testing.T) {
	f := newFixture(encounter.UrgencyCritical)
	req, _ := f.svc.Open(context.Background(), f.encID, f.hospID)

	_, err := f.svc.Reject(context.Background(), req.ID, "no beds")
	var rna *RejectionNotAllowedError
	if !errors.As(err, &rna) {
		t.Fatalf("expected RejectionNotAllowedError, got %v", err)
	}
	unchanged, _ := f.svc.GetRequest(context.Background(), req.ID)
	if unchanged.Status != StatusPending {
		t.Errorf("expected request to remain PENDING, got %s", unchanged.Status)
	}
}

func TestReject_FailsWhenGuardUnverifiable(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	req, _ := f.svc.Open(context.Background(), f.encID, f.hospID)

	f.encs.mu.Lock()
	f.encs.getErr = errors.New("store down")
	f.encs.mu.Unlock()

	if _, err := f.svc.Reject(context.Background(), req.ID, "full"); err == nil {
		t.Fatal("expected error when policy cannot be verified")
	}
	f.encs.mu.Lock()
	f.encs.getErr = nil
	f.encs.mu.Unlock()

	unchanged, _ := f.svc.GetRequest(context.Background(), req.ID)
	if unchanged.Status != StatusPending {
		t.Errorf("expected request to remain PENDING, got %s", unchanged.Status)
	}
}

func TestNeedsRecommendation_OnLastRejection(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	first, _ := f.svc.Open(context.Background(), f.encID, f.hospID)
	second, _ := f.svc.Open(context.Background(), f.encID, f.hospID2)

	if _, err := f.svc.Reject(context.Background(), first.ID, "full"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.notifier.count() != 0 {
		t.Fatalf("expected no event while one request is live, got %d", f.notifier.count())
	}

	if _, err := f.svc.Reject(context.Background(), second.ID, "full"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.notifier.count() != 1 {
		t.Errorf("expected exactly one event, got %d", f.notifier.count())
	}
	if f.notifier.events[0] != f.encID {
		t.Errorf("expected event for encounter %s, got %s", f.encID, f.notifier.events[0])
	}
}

func TestNeedsRecommendation_CriticalExpiry(t *testing.T) {
	f := newFixture(encounter.UrgencyCritical)
	req, _ := f.svc.Open(context.Background(), f.encID, f.hospID)

	if _, err := f.svc.Expire(context.Background(), req.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.notifier.count() != 1 {
		t.Errorf("expected one event for the abandoned critical encounter, got %d", f.notifier.count())
	}
}

func TestNeedsRecommendation_SuppressedWhenPlaced(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	first, _ := f.svc.Open(context.Background(), f.encID, f.hospID)
	second, _ := f.svc.Open(context.Background(), f.encID, f.hospID2)

	if _, err := f.svc.Accept(context.Background(), first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Requests are terminal one way or another, but the encounter is placed.
	if _, err := f.svc.Expire(context.Background(), second.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.notifier.count() != 0 {
		t.Errorf("expected no event for a placed encounter, got %d", f.notifier.count())
	}
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	past := time.Now().UTC().Add(-time.Minute)

	overdue := &HospitalRequest{
		ID: uuid.New(), EncounterID: f.encID, HospitalID: f.hospID,
		Status: StatusPending, CreatedAt: past.Add(-time.Hour), ExpiresAt: past,
	}
	if err := f.repo.Create(context.Background(), overdue); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	live, _ := f.svc.Open(context.Background(), f.encID, f.hospID2)

	n, err := f.svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired, got %d", n)
	}
	got, _ := f.svc.GetRequest(context.Background(), overdue.ID)
	if got.Status != StatusExpired {
		t.Errorf("expected EXPIRED, got %s", got.Status)
	}
	untouched, _ := f.svc.GetRequest(context.Background(), live.ID)
	if untouched.Status != StatusPending {
		t.Errorf("expected live request untouched, got %s", untouched.Status)
	}

	// The sweep is idempotent.
	n, err = f.svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected second sweep to expire nothing, got %d", n)
	}
}

func TestConcurrentTransitions_OneWinner(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	req, _ := f.svc.Open(context.Background(), f.encID, f.hospID)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(context.Background(), req.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		var ite *InvalidTransitionError
		if errors.As(err, &ite) {
			losses++
		} else {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != callers-1 {
		t.Errorf("expected 1 winner and %d losers, got %d/%d", callers-1, wins, losses)
	}
}

func TestTransitionAuditTrail(t *testing.T) {
	f := newFixture(encounter.UrgencyNormal)
	req, _ := f.svc.Open(context.Background(), f.encID, f.hospID)
	if _, err := f.svc.Reject(context.Background(), req.ID, "diverted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.sink.count() != 2 {
		t.Fatalf("expected 2 audit entries, got %d", f.sink.count())
	}
	last := f.sink.entries[1]
	if last.Action != audit.ActionWrite || last.Resource != "hospital-request" {
		t.Errorf("unexpected audit entry: %+v", last)
	}
	if last.Details["new_status"] != "REJECTED" || last.Details["old_status"] != "PENDING" {
		t.Errorf("expected status change recorded, got %v", last.Details)
	}
	if last.Details["reason"] != "diverted" {
		t.Errorf("expected reason recorded, got %v", last.Details["reason"])
	}
}
