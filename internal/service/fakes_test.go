package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/models"
	"github.com/wilheimcosta/adwrng2/internal/repository"

	"github.com/google/uuid"
)

// memRepo is an in-memory IAlertRepository with the same dedup rule as the
// partial unique index of the real stores.
type memRepo struct {
	mu      sync.Mutex
	records []*models.AlertRecord
	seq     int

	skipFind    bool
	findErr     error
	insertErrOn int
	insertErr   error
	expireErr   error

	findCalls   int
	insertCalls int
}

var memEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func (m *memRepo) FindActive(ctx context.Context, icao, alertType, content string) (*models.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.skipFind {
		return nil, nil
	}
	if rec := m.activeLocked(icao, alertType, content); rec != nil {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) activeLocked(icao, alertType, content string) *models.AlertRecord {
	for _, r := range m.records {
		if r.Status == models.StatusActive && r.ICAO == icao && r.AlertType == alertType && r.Content == content {
			return r
		}
	}
	return nil
}

func (m *memRepo) Insert(ctx context.Context, alert *models.AlertRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCalls++
	if m.insertErrOn > 0 && m.insertCalls == m.insertErrOn {
		return m.insertErr
	}
	if m.activeLocked(alert.ICAO, alert.AlertType, alert.Content) != nil {
		return repository.ErrAlreadyActive
	}

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.Status == "" {
		alert.Status = models.StatusActive
	}
	m.seq++
	alert.CreatedAt = memEpoch.Add(time.Duration(m.seq) * time.Second)
	alert.UpdatedAt = alert.CreatedAt

	cp := *alert
	m.records = append(m.records, &cp)
	return nil
}

// seed stores a record as is, bypassing the dedup rule.
func (m *memRepo) seed(rec models.AlertRecord) *models.AlertRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.seq++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = memEpoch.Add(time.Duration(m.seq) * time.Second)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	m.records = append(m.records, &rec)
	return &rec
}

func (m *memRepo) ExpireOutOfWindow(ctx context.Context, icaos []string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.expireErr != nil {
		return 0, m.expireErr
	}

	var n int64
	for _, r := range m.records {
		if r.Status != models.StatusActive || !matchesICAO(r.ICAO, icaos) {
			continue
		}
		if (r.ValidUntil != nil && r.ValidUntil.Before(now)) || (r.ValidFrom != nil && r.ValidFrom.After(now)) {
			r.Status = models.StatusExpired
			r.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *memRepo) QueryRecent(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.snapshotLocked()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) ListActive(ctx context.Context, icaos []string) ([]models.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.AlertRecord{}
	for _, r := range m.records {
		if r.Status == models.StatusActive && matchesICAO(r.ICAO, icaos) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ArchiveExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var n int64
	for _, r := range m.records {
		if r.Status == models.StatusExpired && r.UpdatedAt.Before(cutoff) {
			r.Status = models.StatusArchived
			n++
		}
	}
	return n, nil
}

func (m *memRepo) GetStatistics(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := map[string]int{}
	for _, r := range m.records {
		if r.Status == models.StatusActive {
			stats[string(r.Severity)]++
		}
	}
	return stats, nil
}

func (m *memRepo) snapshotLocked() []models.AlertRecord {
	out := make([]models.AlertRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out
}

func (m *memRepo) all() []models.AlertRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *memRepo) countStatus(status models.AlertStatus) int {
	n := 0
	for _, r := range m.all() {
		if r.Status == status {
			n++
		}
	}
	return n
}

func matchesICAO(icao string, icaos []string) bool {
	if len(icaos) == 0 {
		return true
	}
	for _, c := range icaos {
		if c == icao {
			return true
		}
	}
	return false
}

type fakeSource struct {
	mu        sync.Mutex
	warnings  map[string][]models.RawWarning
	statuses  map[string]*models.AerodromeStatus
	failICAOs map[string]error
	calls     int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		warnings:  map[string][]models.RawWarning{},
		statuses:  map[string]*models.AerodromeStatus{},
		failICAOs: map[string]error{},
	}
}

func (f *fakeSource) FetchWarnings(ctx context.Context, icao string) ([]models.RawWarning, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if err := f.failICAOs[icao]; err != nil {
		return nil, err
	}
	return append([]models.RawWarning(nil), f.warnings[icao]...), nil
}

func (f *fakeSource) FetchStatus(ctx context.Context, icao string) (*models.AerodromeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failICAOs[icao]; err != nil {
		return nil, err
	}
	st, ok := f.statuses[icao]
	if !ok {
		return nil, errors.New("no status")
	}
	cp := *st
	return &cp, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []*models.AlertEvent
}

func (n *recordingNotifier) Publish(ctx context.Context, event *models.AlertEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type memFavorites struct {
	mu      sync.Mutex
	favs    map[string]models.FavoriteAerodrome
	listErr error
}

func newMemFavorites(codes ...string) *memFavorites {
	m := &memFavorites{favs: map[string]models.FavoriteAerodrome{}}
	for _, c := range codes {
		m.favs[c] = models.FavoriteAerodrome{ICAO: c, CreatedAt: memEpoch}
	}
	return m
}

func (m *memFavorites) List(ctx context.Context) ([]models.FavoriteAerodrome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.FavoriteAerodrome, 0, len(m.favs))
	for _, f := range m.favs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ICAO < out[j].ICAO })
	return out, nil
}

func (m *memFavorites) Upsert(ctx context.Context, fav *models.FavoriteAerodrome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.favs[fav.ICAO]; ok {
		fav.CreatedAt = existing.CreatedAt
	} else {
		fav.CreatedAt = memEpoch
	}
	m.favs[fav.ICAO] = *fav
	return nil
}

func (m *memFavorites) Delete(ctx context.Context, icao string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.favs[icao]; !ok {
		return false, nil
	}
	delete(m.favs, icao)
	return true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
