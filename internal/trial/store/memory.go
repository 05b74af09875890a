package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"trialsearch/internal/trial/models"
)

// Memory is an in-memory persistence gateway with the same unit-of-work
// semantics as the Postgres implementation. It backs engine and service
// tests; writes staged in a unit of work become visible only on Commit.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*memRecord
}

// memRecord is one committed trial aggregate keyed by NCT ID.
type memRecord struct {
	trial          models.Trial
	identification *models.Identification
	status         *models.Status
	description    *models.Description
	conditions     []models.Condition
	keywords       []models.Keyword
	interventions  []models.Intervention
	locations      []models.Location
	sponsors       []models.Sponsor
	search         *models.SearchDocument
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*memRecord)}
}

func (s *Memory) Close() error { return nil }

func (s *Memory) FindTrial(_ context.Context, nctID string) (*models.Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[nctID]
	if !ok {
		return nil, ErrNotFound
	}
	t := rec.trial
	return &t, nil
}

func (s *Memory) Begin(context.Context) (UnitOfWork, error) {
	return &memUnitOfWork{store: s, staged: &memRecord{}}, nil
}

// TrialCount reports committed trials. Test helper.
func (s *Memory) TrialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// SearchDocumentCount reports committed search documents. Test helper.
func (s *Memory) SearchDocumentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if rec.search != nil {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the committed aggregate for one trial, or nil
// when absent. Test helper.
func (s *Memory) Snapshot(nctID string) *models.Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[nctID]
	if !ok {
		return nil
	}
	agg := &models.Aggregate{
		Trial:          rec.trial,
		Identification: rec.identification,
		Status:         rec.status,
		Description:    rec.description,
		Conditions:     append([]models.Condition(nil), rec.conditions...),
		Keywords:       append([]models.Keyword(nil), rec.keywords...),
		Interventions:  append([]models.Intervention(nil), rec.interventions...),
		Locations:      append([]models.Location(nil), rec.locations...),
		Sponsors:       append([]models.Sponsor(nil), rec.sponsors...),
	}
	if rec.search != nil {
		sd := *rec.search
		agg.Search = sd
	}
	return agg
}

type memUnitOfWork struct {
	store   *Memory
	staged  *memRecord
	deleted []string
	done    bool
}

func (u *memUnitOfWork) FindTrial(ctx context.Context, nctID string) (*models.Trial, error) {
	if u.staged.trial.NCTID == nctID && u.staged.trial.ID != 0 {
		t := u.staged.trial
		return &t, nil
	}
	for _, gone := range u.deleted {
		if gone == nctID {
			return nil, ErrNotFound
		}
	}
	return u.store.FindTrial(ctx, nctID)
}

func (u *memUnitOfWork) nextID() int64 {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.nextID++
	return u.store.nextID
}

func (u *memUnitOfWork) InsertTrial(_ context.Context, t *models.Trial) error {
	now := time.Now().UTC()
	t.ID = u.nextID()
	t.CreatedAt = now
	t.UpdatedAt = now
	u.staged.trial = *t
	return nil
}

func (u *memUnitOfWork) InsertIdentification(_ context.Context, row *models.Identification) error {
	row.ID = u.nextID()
	copied := *row
	u.staged.identification = &copied
	return nil
}

func (u *memUnitOfWork) InsertStatus(_ context.Context, row *models.Status) error {
	row.ID = u.nextID()
	copied := *row
	u.staged.status = &copied
	return nil
}

func (u *memUnitOfWork) InsertDescription(_ context.Context, row *models.Description) error {
	row.ID = u.nextID()
	copied := *row
	u.staged.description = &copied
	return nil
}

func (u *memUnitOfWork) InsertConditions(_ context.Context, rows []models.Condition) error {
	for i := range rows {
		rows[i].ID = u.nextID()
	}
	u.staged.conditions = append(u.staged.conditions, rows...)
	return nil
}

func (u *memUnitOfWork) InsertKeywords(_ context.Context, rows []models.Keyword) error {
	for i := range rows {
		rows[i].ID = u.nextID()
	}
	u.staged.keywords = append(u.staged.keywords, rows...)
	return nil
}

func (u *memUnitOfWork) InsertInterventions(_ context.Context, rows []models.Intervention) error {
	for i := range rows {
		rows[i].ID = u.nextID()
	}
	u.staged.interventions = append(u.staged.interventions, rows...)
	return nil
}

func (u *memUnitOfWork) InsertLocations(_ context.Context, rows []models.Location) error {
	for i := range rows {
		rows[i].ID = u.nextID()
	}
	u.staged.locations = append(u.staged.locations, rows...)
	return nil
}

func (u *memUnitOfWork) InsertSponsors(_ context.Context, rows []models.Sponsor) error {
	for i := range rows {
		rows[i].ID = u.nextID()
	}
	u.staged.sponsors = append(u.staged.sponsors, rows...)
	return nil
}

func (u *memUnitOfWork) InsertSearchDocument(_ context.Context, row *models.SearchDocument) error {
	row.ID = u.nextID()
	row.LastUpdated = time.Now().UTC()
	copied := *row
	u.staged.search = &copied
	return nil
}

func (u *memUnitOfWork) DeleteChildren(_ context.Context, trialID int64) error {
	// Children live with their record; removal happens with DeleteTrial at
	// commit. Nothing separate to stage here.
	return nil
}

func (u *memUnitOfWork) DeleteTrial(_ context.Context, nctID string) error {
	u.deleted = append(u.deleted, nctID)
	return nil
}

// BuildSearchTokens lowercases and deduplicates terms, a stand-in payload
// with the same null-on-empty contract as the Postgres tokenizer.
func (u *memUnitOfWork) BuildSearchTokens(_ context.Context, text string) (*string, error) {
	if text == "" {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:()")
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		tokens = append(tokens, word)
	}
	payload := strings.Join(tokens, " ")
	return &payload, nil
}

func (u *memUnitOfWork) Commit() error {
	if u.done {
		return nil
	}
	u.done = true
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	for _, nctID := range u.deleted {
		delete(u.store.records, nctID)
	}
	if u.staged.trial.ID != 0 {
		u.store.records[u.staged.trial.NCTID] = u.staged
	}
	return nil
}

func (u *memUnitOfWork) Rollback() error {
	u.done = true
	return nil
}
