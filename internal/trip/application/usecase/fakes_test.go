package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testLogger() *logger.Logger {
	return logger.NewLoggerWithWriters("trip-service-test", logger.LevelError, io.Discard, io.Discard)
}

// memTripRepo хранит рейсы в памяти. Mutate сериализован одним мьютексом
// и работает с копией, как транзакция с откатом.
type memTripRepo struct {
	mu    sync.Mutex
	trips map[string]*domain.Trip
}

func newMemTripRepo(trips ...*domain.Trip) *memTripRepo {
	r := &memTripRepo{trips: map[string]*domain.Trip{}}
	for _, t := range trips {
		r.trips[t.ID] = cloneTrip(t)
	}
	return r
}

func cloneTrip(t *domain.Trip) *domain.Trip {
	c := *t
	c.MilestoneHistory = append([]domain.MilestoneEvent(nil), t.MilestoneHistory...)
	return &c
}

func (r *memTripRepo) Create(_ context.Context, trip *domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.trips {
		if t.RequestID == trip.RequestID {
			return domain.ErrDuplicateTrip
		}
	}
	r.trips[trip.ID] = cloneTrip(trip)
	return nil
}

func (r *memTripRepo) FindByID(_ context.Context, tripID string) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[tripID]
	if !ok {
		return nil, domain.ErrTripNotFound
	}
	return cloneTrip(t), nil
}

func (r *memTripRepo) FindByRequestID(_ context.Context, requestID string) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.trips {
		if t.RequestID == requestID {
			return cloneTrip(t), nil
		}
	}
	return nil, domain.ErrTripNotFound
}

func (r *memTripRepo) ListByParticipant(_ context.Context, filter out.TripFilter) ([]*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Trip
	for _, t := range r.trips {
		if t.ParticipantID(filter.Role) != filter.UserID {
			continue
		}
		if filter.Category != "" && domain.Categorize(t) != filter.Category {
			continue
		}
		res = append(res, cloneTrip(t))
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if filter.Limit > 0 && len(res) > filter.Limit {
		res = res[:filter.Limit]
	}
	return res, nil
}

func (r *memTripRepo) CountByCategory(_ context.Context, role domain.Role, userID string) (map[domain.Category]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[domain.Category]int{}
	for _, t := range r.trips {
		if t.ParticipantID(role) == userID {
			counts[domain.Categorize(t)]++
		}
	}
	return counts, nil
}

func (r *memTripRepo) Mutate(_ context.Context, tripID string, fn out.MutateFunc) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[tripID]
	if !ok {
		return nil, domain.ErrTripNotFound
	}
	working := cloneTrip(t)
	if err := fn(working); err != nil {
		return nil, err
	}
	r.trips[tripID] = working
	return cloneTrip(working), nil
}

type publishedEvent struct {
	Type string
	Data out.TripEventData
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishTripEvent(_ context.Context, eventType string, data out.TripEventData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
	return p.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[string][]out.TripNotification
}

func (n *fakeNotifier) NotifyUser(_ context.Context, userID string, notification out.TripNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string][]out.TripNotification{}
	}
	n.sent[userID] = append(n.sent[userID], notification)
	return nil
}

type fakeRecorder struct {
	mu          sync.Mutex
	transitions []domain.Milestone
	rejections  []string
	statuses    []domain.TripStatus
}

func (r *fakeRecorder) RecordTransition(m domain.Milestone, _ domain.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, m)
}

func (r *fakeRecorder) RecordRejection(operation, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejections = append(r.rejections, operation+":"+reason)
}

func (r *fakeRecorder) RecordStatusChange(status domain.TripStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

// seededTrip — рейс, прошедший первые n этапов с шагом 30 минут до testNow.
func seededTrip(n int, status domain.TripStatus) *domain.Trip {
	start := testNow.Add(-time.Duration(n) * 30 * time.Minute)
	trip := &domain.Trip{
		ID:             "trip-1",
		Status:         status,
		RequestID:      "req-1",
		MineID:         "mine-1",
		MineOwnerID:    "mine-owner-1",
		TruckOwnerID:   "truck-owner-1",
		DriverID:       "driver-1",
		TruckID:        "truck-1",
		DeliveryMethod: domain.DeliveryMethodPickup,
		CreatedAt:      start,
		UpdatedAt:      start,
	}
	for i := 0; i < n; i++ {
		trip.MilestoneHistory = append(trip.MilestoneHistory, domain.MilestoneEvent{
			Status:    domain.Sequence[i],
			Timestamp: start.Add(time.Duration(i) * 30 * time.Minute),
		})
	}
	return trip
}

type harness struct {
	repo      *memTripRepo
	publisher *fakePublisher
	notifier  *fakeNotifier
	recorder  *fakeRecorder
}

func newHarness(trips ...*domain.Trip) *harness {
	return &harness{
		repo:      newMemTripRepo(trips...),
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		recorder:  &fakeRecorder{},
	}
}

func (h *harness) advance() *AdvanceMilestoneService {
	s := NewAdvanceMilestoneService(h.repo, h.publisher, h.notifier, h.recorder, testLogger())
	s.now = fixedClock
	return s
}

func (h *harness) verify() *VerifyMilestoneService {
	s := NewVerifyMilestoneService(h.repo, h.publisher, h.notifier, h.recorder, testLogger())
	s.now = fixedClock
	return s
}

func (h *harness) reportIssue() *ReportIssueService {
	s := NewReportIssueService(h.repo, h.publisher, h.notifier, h.recorder, testLogger())
	s.now = fixedClock
	return s
}

func (h *harness) cancel() *CancelTripService {
	s := NewCancelTripService(h.repo, h.publisher, h.notifier, h.recorder, testLogger())
	s.now = fixedClock
	return s
}

func (h *harness) create() *CreateTripService {
	s := NewCreateTripService(h.repo, h.publisher, h.notifier, h.recorder, testLogger())
	s.now = fixedClock
	return s
}
