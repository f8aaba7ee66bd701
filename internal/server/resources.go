package server

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/dataprovider"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

// UniqueField is checked for duplicates within a resource.
const UniqueField = "name"

// Resources is an in-memory record store keyed by resource name and id.
type Resources struct {
	mu      sync.RWMutex
	records map[string]map[string]dataprovider.Record
}

// NewResources returns an empty store.
func NewResources() *Resources {
	return &Resources{records: make(map[string]map[string]dataprovider.Record)}
}

func (s *Resources) duplicate(resource, id string, rec dataprovider.Record) bool {
	v, ok := rec[UniqueField]
	if !ok {
		return false
	}
	for other, existing := range s.records[resource] {
		if other != id && fmt.Sprint(existing[UniqueField]) == fmt.Sprint(v) {
			return true
		}
	}
	return false
}

// Create stores rec under a new id.
func (s *Resources) Create(resource string, rec dataprovider.Record) (dataprovider.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duplicate(resource, "", rec) {
		return nil, errDuplicate
	}
	out := rec.Clone()
	id := uuid.NewString()
	out["id"] = id
	out["created_at"] = time.Now().UTC().Format(time.RFC3339)

	table, ok := s.records[resource]
	if !ok {
		table = make(map[string]dataprovider.Record)
		s.records[resource] = table
	}
	table[id] = out
	return out.Clone(), nil
}

// Update replaces the fields of an existing record; id and created_at are kept.
func (s *Resources) Update(resource, id string, rec dataprovider.Record) (dataprovider.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[resource][id]
	if !ok {
		return nil, errNotFound
	}
	if s.duplicate(resource, id, rec) {
		return nil, errDuplicate
	}
	out := rec.Clone()
	out["id"] = id
	out["created_at"] = existing["created_at"]
	out["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	s.records[resource][id] = out
	return out.Clone(), nil
}

// Get returns one record.
func (s *Resources) Get(resource, id string) (dataprovider.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[resource][id]
	if !ok {
		return nil, errNotFound
	}
	return rec.Clone(), nil
}

// List returns every record of resource ordered by id.
func (s *Resources) List(resource string) []dataprovider.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dataprovider.Record, 0, len(s.records[resource]))
	for _, rec := range s.records[resource] {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (s *Server) resourceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, errDuplicate):
		writeJSON(w, http.StatusConflict, map[string]any{
			"message": "duplicate",
			"errors":  map[string]any{UniqueField: "already exists"},
		})
	default:
		s.log.Error("Resource operation failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) decodeRecord(w http.ResponseWriter, r *http.Request) (dataprovider.Record, bool) {
	var rec dataprovider.Record
	if err := decodeJSON(r, &rec); err != nil || rec == nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	delete(rec, "id")
	return rec, true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records := s.resources.List(chi.URLParam(r, "resource"))
	writeJSON(w, http.StatusOK, map[string]any{"data": records, "total": len(records)})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}
	out, err := s.resources.Create(chi.URLParam(r, "resource"), rec)
	if err != nil {
		s.resourceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	out, err := s.resources.Get(chi.URLParam(r, "resource"), chi.URLParam(r, "id"))
	if err != nil {
		s.resourceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}
	out, err := s.resources.Update(chi.URLParam(r, "resource"), chi.URLParam(r, "id"), rec)
	if err != nil {
		s.resourceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}
