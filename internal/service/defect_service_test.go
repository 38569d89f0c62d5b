package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/defect-tracker/internal/domain"
	"github.com/spec-kit/defect-tracker/internal/events"
	"github.com/spec-kit/defect-tracker/internal/repository"
	apperrors "github.com/spec-kit/defect-tracker/pkg/util"
)

// fakeDefectStore mimics the Postgres store: UpdateWithLock serializes
// callers and commits the defect plus staged history atomically.
type fakeDefectStore struct {
	mu         sync.Mutex
	defects    map[string]*domain.Defect
	history    []domain.DefectHistory
	saveErr    error
	historyErr error
	calls      int
}

func newFakeDefectStore(seed ...*domain.Defect) *fakeDefectStore {
	store := &fakeDefectStore{defects: map[string]*domain.Defect{}}
	for _, defect := range seed {
		copied := *defect
		store.defects[defect.ID] = &copied
	}
	return store
}

func (s *fakeDefectStore) UpdateWithLock(ctx context.Context, defectID string, fn func(ctx context.Context, tx repository.DefectTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	stored, ok := s.defects[defectID]
	if !ok {
		return pgx.ErrNoRows
	}

	working := *stored
	tx := &fakeDefectTx{store: s, defect: &working}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	// commit
	s.defects[defectID] = &working
	s.history = append(s.history, tx.staged...)
	return nil
}

func (s *fakeDefectStore) get(id string) domain.Defect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.defects[id]
}

func (s *fakeDefectStore) historyFor(id string) []domain.DefectHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.DefectHistory
	for _, entry := range s.history {
		if entry.DefectID == id {
			result = append(result, entry)
		}
	}
	return result
}

type fakeDefectTx struct {
	store  *fakeDefectStore
	defect *domain.Defect
	staged []domain.DefectHistory
	saved  bool
}

func (t *fakeDefectTx) Defect() *domain.Defect { return t.defect }

func (t *fakeDefectTx) Save(ctx context.Context, defect *domain.Defect) error {
	if t.store.saveErr != nil {
		return t.store.saveErr
	}
	defect.UpdatedAt = time.Now()
	t.saved = true
	return nil
}

func (t *fakeDefectTx) AppendHistory(ctx context.Context, entry *domain.DefectHistory) error {
	if t.store.historyErr != nil {
		return t.store.historyErr
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	t.staged = append(t.staged, *entry)
	return nil
}

type capturingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *capturingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *capturingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func seedDefect() *domain.Defect {
	due := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Defect{
		ID:          uuid.NewString(),
		ProjectID:   uuid.NewString(),
		Title:       "Crack in foundation wall",
		Description: "Hairline crack on level B1",
		Priority:    domain.PriorityMedium,
		StatusID:    1,
		AssigneeID:  strPtr("user-engineer"),
		DueDate:     &due,
		ReporterID:  "user-reporter",
		CreatedAt:   time.Now().Add(-time.Hour),
		UpdatedAt:   time.Now().Add(-time.Hour),
	}
}

func newServiceWithStore(store *fakeDefectStore, dispatcher events.Dispatcher) *DefectService {
	return NewDefectService(DefectDependencies{
		Store:      store,
		Dispatcher: dispatcher,
	})
}

func TestUpdateDefect_RecordsEntryPerChangedField(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	svc := newServiceWithStore(store, nil)

	newDue := "2025-11-15"
	patch := DefectPatch{
		Title:    StringPatch{Set: true, Value: strPtr("Crack in foundation wall, widening")},
		Priority: StringPatch{Set: true, Value: strPtr("High")},
		DueDate:  DatePatch{Set: true, Value: mustDate(t, newDue)},
	}

	updated, changes, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.Equal(t, "Crack in foundation wall, widening", updated.Title)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)

	history := store.historyFor(defect.ID)
	require.Len(t, history, 3)

	byField := map[string]domain.DefectHistory{}
	for _, entry := range history {
		byField[entry.Field] = entry
		assert.Equal(t, "actor-1", entry.ActorID)
	}

	title := byField["title"]
	require.NotNil(t, title.OldValue)
	assert.Equal(t, "Crack in foundation wall", *title.OldValue)
	require.NotNil(t, title.NewValue)
	assert.Equal(t, "Crack in foundation wall, widening", *title.NewValue)

	priority := byField["priority"]
	assert.Equal(t, "Medium", *priority.OldValue)
	assert.Equal(t, "High", *priority.NewValue)

	due := byField["due_date"]
	assert.Equal(t, "2025-10-01", *due.OldValue)
	assert.Equal(t, "2025-11-15", *due.NewValue)
}

func TestUpdateDefect_NoOpWritesNothing(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	dispatcher := &capturingDispatcher{}
	svc := newServiceWithStore(store, dispatcher)

	// same values as stored
	patch := DefectPatch{
		Title:    StringPatch{Set: true, Value: strPtr("Crack in foundation wall")},
		Priority: StringPatch{Set: true, Value: strPtr("Medium")},
		StatusID: IntPatch{Set: true, Value: intPtr(1)},
	}

	before := store.get(defect.ID)
	updated, changes, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Empty(t, store.historyFor(defect.ID))
	assert.Equal(t, before.UpdatedAt, updated.UpdatedAt)
	assert.Empty(t, dispatcher.events)

	// repeating the exact same call stays a no-op
	_, changes, err = svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Empty(t, store.historyFor(defect.ID))
}

func TestUpdateDefect_UnsuppliedFieldsUntouched(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	svc := newServiceWithStore(store, nil)

	patch := DefectPatch{
		StatusID: IntPatch{Set: true, Value: intPtr(2)},
	}

	_, changes, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "status_id", changes[0].Field)

	after := store.get(defect.ID)
	assert.Equal(t, defect.Title, after.Title)
	assert.Equal(t, defect.Description, after.Description)
	assert.Equal(t, defect.Priority, after.Priority)
	assert.Equal(t, defect.AssigneeID, after.AssigneeID)
	assert.Equal(t, 2, after.StatusID)

	history := store.historyFor(defect.ID)
	require.Len(t, history, 1)
	assert.Equal(t, "1", *history[0].OldValue)
	assert.Equal(t, "2", *history[0].NewValue)
}

func TestUpdateDefect_ExplicitNullClearsField(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	svc := newServiceWithStore(store, nil)

	patch := DefectPatch{
		AssigneeID:  StringPatch{Set: true, Value: nil},
		Description: StringPatch{Set: true, Value: nil},
		DueDate:     DatePatch{Set: true, Value: nil},
	}

	_, changes, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	after := store.get(defect.ID)
	assert.Nil(t, after.AssigneeID)
	assert.Empty(t, after.Description)
	assert.Nil(t, after.DueDate)

	byField := map[string]domain.DefectHistory{}
	for _, entry := range store.historyFor(defect.ID) {
		byField[entry.Field] = entry
	}
	assignee := byField["assignee_id"]
	require.NotNil(t, assignee.OldValue)
	assert.Equal(t, "user-engineer", *assignee.OldValue)
	assert.Nil(t, assignee.NewValue)

	description := byField["description"]
	assert.Equal(t, "Hairline crack on level B1", *description.OldValue)
	assert.Nil(t, description.NewValue)
}

func TestUpdateDefect_EmptyTitleRejectedBeforeTransaction(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	svc := newServiceWithStore(store, nil)

	for _, title := range []*string{nil, strPtr(""), strPtr("   ")} {
		patch := DefectPatch{Title: StringPatch{Set: true, Value: title}}
		_, _, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	}
	assert.Zero(t, store.calls, "validation failures must not open a transaction")
}

func TestUpdateDefect_UnknownPriorityRejected(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	svc := newServiceWithStore(store, nil)

	patch := DefectPatch{Priority: StringPatch{Set: true, Value: strPtr("Urgent")}}
	_, _, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	assert.Zero(t, store.calls)
}

func TestUpdateDefect_MissingDefectNotFound(t *testing.T) {
	store := newFakeDefectStore()
	svc := newServiceWithStore(store, nil)

	patch := DefectPatch{Title: StringPatch{Set: true, Value: strPtr("anything")}}
	_, _, err := svc.UpdateDefect(context.Background(), "actor-1", uuid.NewString(), patch)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestUpdateDefect_HistoryFailureRollsBackEverything(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	store.historyErr = errors.New("history insert failed")
	svc := newServiceWithStore(store, nil)

	patch := DefectPatch{Title: StringPatch{Set: true, Value: strPtr("New title")}}
	_, _, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.Error(t, err)

	after := store.get(defect.ID)
	assert.Equal(t, "Crack in foundation wall", after.Title, "defect row must roll back with the failed history write")
	assert.Empty(t, store.historyFor(defect.ID))
}

func TestUpdateDefect_SaveFailureWritesNoHistory(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	store.saveErr = errors.New("update failed")
	svc := newServiceWithStore(store, nil)

	patch := DefectPatch{Priority: StringPatch{Set: true, Value: strPtr("Critical")}}
	_, _, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.Error(t, err)
	assert.Empty(t, store.historyFor(defect.ID))
	assert.Equal(t, domain.PriorityMedium, store.get(defect.ID).Priority)
}

func TestUpdateDefect_ConcurrentDisjointUpdatesBothLand(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	svc := newServiceWithStore(store, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		patch := DefectPatch{StatusID: IntPatch{Set: true, Value: intPtr(3)}}
		_, _, err := svc.UpdateDefect(context.Background(), "actor-a", defect.ID, patch)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		patch := DefectPatch{AssigneeID: StringPatch{Set: true, Value: strPtr("user-other")}}
		_, _, err := svc.UpdateDefect(context.Background(), "actor-b", defect.ID, patch)
		assert.NoError(t, err)
	}()
	wg.Wait()

	after := store.get(defect.ID)
	assert.Equal(t, 3, after.StatusID)
	require.NotNil(t, after.AssigneeID)
	assert.Equal(t, "user-other", *after.AssigneeID)
	assert.Len(t, store.historyFor(defect.ID), 2)
}

func TestUpdateDefect_PublishesEventWithChanges(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	dispatcher := &capturingDispatcher{}
	svc := newServiceWithStore(store, dispatcher)

	patch := DefectPatch{Priority: StringPatch{Set: true, Value: strPtr("Critical")}}
	_, _, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.NoError(t, err)

	require.Len(t, dispatcher.events, 1)
	event := dispatcher.events[0]
	assert.Equal(t, events.EventDefectUpdated, event.Type)
	assert.Equal(t, defect.ID, event.DefectID)
	assert.Equal(t, "actor-1", event.ActorID)

	payload, ok := event.Payload.(events.DefectUpdatedPayload)
	require.True(t, ok)
	require.Len(t, payload.Changes, 1)
	assert.Equal(t, "priority", payload.Changes[0].Field)
}

func TestUpdateDefect_TitleWhitespaceTrimmedForDiff(t *testing.T) {
	defect := seedDefect()
	store := newFakeDefectStore(defect)
	svc := newServiceWithStore(store, nil)

	// same title with surrounding whitespace is not a change
	patch := DefectPatch{Title: StringPatch{Set: true, Value: strPtr("  Crack in foundation wall  ")}}
	_, changes, err := svc.UpdateDefect(context.Background(), "actor-1", defect.ID, patch)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Empty(t, store.historyFor(defect.ID))
}

func mustDate(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return &parsed
}
