package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/servicios/internal/common"
	"github.com/dmitrijs2005/servicios/internal/dbx"
	"github.com/dmitrijs2005/servicios/internal/logging"
	"github.com/dmitrijs2005/servicios/internal/server/models"
	"github.com/dmitrijs2005/servicios/internal/server/repositories/indexevents"
	"github.com/dmitrijs2005/servicios/internal/server/repositories/servicios"
	"github.com/google/uuid"
)

// -------- test fakes --------

type fakeServiciosRepo struct {
	mu     sync.Mutex
	rows   map[int64]models.Servicio
	nextID int64

	saveErr error
	findErr error
	delErr  error
}

func newFakeServiciosRepo() *fakeServiciosRepo {
	return &fakeServiciosRepo{rows: map[int64]models.Servicio{}}
}

func (f *fakeServiciosRepo) Save(ctx context.Context, s *models.Servicio) (*models.Servicio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	out := *s
	if out.ID == nil {
		f.nextID++
		id := f.nextID
		out.ID = &id
	} else if *out.ID > f.nextID {
		f.nextID = *out.ID
	}
	f.rows[*out.ID] = out
	return &out, nil
}

func (f *fakeServiciosRepo) FindAll(ctx context.Context) ([]models.Servicio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]models.Servicio, 0, len(f.rows))
	for _, s := range f.rows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out, nil
}

func (f *fakeServiciosRepo) FindByID(ctx context.Context, id int64) (*models.Servicio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	s, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (f *fakeServiciosRepo) DeleteByID(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.rows, id)
	return nil
}

type fakeEventsRepo struct {
	mu     sync.Mutex
	events map[string]*models.IndexEvent
	order  []string

	enqueueErr error
	fetchErr   error
}

func newFakeEventsRepo() *fakeEventsRepo {
	return &fakeEventsRepo{events: map[string]*models.IndexEvent{}}
}

func (f *fakeEventsRepo) Enqueue(ctx context.Context, e *models.IndexEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	cp := *e
	cp.CreatedAt = time.Now()
	f.events[e.ID] = &cp
	f.order = append(f.order, e.ID)
	return nil
}

func (f *fakeEventsRepo) FetchPending(ctx context.Context, limit int, maxAttempts int) ([]*models.IndexEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []*models.IndexEvent
	for _, id := range f.order {
		e := f.events[id]
		if e == nil || e.ProcessedAt != nil || e.Attempts >= maxAttempts {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEventsRepo) MarkProcessed(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok {
		now := time.Now()
		e.ProcessedAt = &now
	}
	return nil
}

func (f *fakeEventsRepo) MarkFailed(ctx context.Context, id string, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok {
		e.Attempts++
		e.LastError = cause
	}
	return nil
}

func (f *fakeEventsRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, e := range f.events {
		if e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(f.events, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeEventsRepo) pending() []*models.IndexEvent {
	out, _ := f.FetchPending(context.Background(), 1000, 1<<30)
	return out
}

type fakeRepoManager struct {
	s *fakeServiciosRepo
	e *fakeEventsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{s: newFakeServiciosRepo(), e: newFakeEventsRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *fakeRepoManager) Servicios(db dbx.DBTX) servicios.Repository      { return m.s }
func (m *fakeRepoManager) IndexEvents(db dbx.DBTX) indexevents.Repository { return m.e }

// fakeIndex is an in-memory search index; Search matches a case-insensitive
// substring of the name, or everything for "*".
type fakeIndex struct {
	mu   sync.Mutex
	docs map[int64]models.Servicio

	saveErr     error
	deleteErr   error
	searchErr   error
	recreated   int
	saveCalls   int
	deleteCalls int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[int64]models.Servicio{}}
}

func (f *fakeIndex) Save(ctx context.Context, s *models.Servicio) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.docs[*s.ID] = *s
	return nil
}

func (f *fakeIndex) DeleteByID(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, query string) ([]models.Servicio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := []models.Servicio{}
	for _, s := range f.docs {
		if query == "*" || strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out, nil
}

type recreatingIndex struct{ *fakeIndex }

func (r recreatingIndex) Recreate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recreated++
	r.docs = map[int64]models.Servicio{}
	return nil
}

var errBoom = errors.New("boom")

func discardLogger() logging.Logger {
	return logging.NewJSONLogger(io.Discard, "debug")
}

// newMockDB returns a sqlmock DB that tolerates any number of
// transactions; the fakes never touch the connection itself.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	mock.MatchExpectationsInOrder(true)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func ptrID(v int64) *int64 { return &v }

// gatedIndex holds the next armed Save or DeleteByID until release is closed,
// so a test can interleave another write with an in-flight index call.
type gatedIndex struct {
	*fakeIndex

	gateMu     sync.Mutex
	gateSave   bool
	gateDelete bool
	entered    chan struct{}
	release    chan struct{}
}

func newGatedIndex() *gatedIndex {
	return &gatedIndex{
		fakeIndex: newFakeIndex(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (g *gatedIndex) wait(armed *bool) {
	g.gateMu.Lock()
	hold := *armed
	*armed = false
	g.gateMu.Unlock()
	if hold {
		close(g.entered)
		<-g.release
	}
}

func (g *gatedIndex) Save(ctx context.Context, s *models.Servicio) error {
	g.wait(&g.gateSave)
	return g.fakeIndex.Save(ctx, s)
}

func (g *gatedIndex) DeleteByID(ctx context.Context, id int64) error {
	g.wait(&g.gateDelete)
	return g.fakeIndex.DeleteByID(ctx, id)
}
