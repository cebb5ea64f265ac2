package bank

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/faria/mony-api/internal/db"
	"github.com/faria/mony-api/internal/utils"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type writeMode int

const (
	modeCreate writeMode = iota
	modeReplace
	modePatch
)

// write carries what an apply func needs to know about the request.
type write struct {
	Mode  writeMode
	Actor string
}

// need reports a missing required field on create and full update.
func need[V any](field string, v *V, wr write) error {
	if v == nil && wr.Mode != modePatch {
		return invalid(field, CodeRequired, "this field is required")
	}
	return nil
}

// resource serves list/detail CRUD for model T from input payload I.
type resource[T any, I any] struct {
	Order   string
	Preload []string
	Filters []filter
	// Apply validates in and copies it onto m.
	Apply func(tx *gorm.DB, in *I, m *T, wr write) error
	// After runs in the same transaction once m is saved.
	After func(tx *gorm.DB, in *I, m *T, wr write) error
	// Scope restricts every query, list and detail.
	Scope func(q *gorm.DB) *gorm.DB
}

func (rs resource[T, I]) query() *gorm.DB {
	q := db.DB
	for _, p := range rs.Preload {
		q = q.Preload(p, func(q *gorm.DB) *gorm.DB { return q.Order("id") })
	}
	if rs.Scope != nil {
		q = rs.Scope(q)
	}
	return q
}

func (rs resource[T, I]) mount(r chi.Router, path string) {
	r.Get(path, rs.List)
	r.Post(path, rs.Create)
	r.Get(path+"/{id}", rs.Get)
	r.Put(path+"/{id}", rs.Replace)
	r.Patch(path+"/{id}", rs.Patch)
	r.Delete(path+"/{id}", rs.Delete)
}

func (rs resource[T, I]) List(w http.ResponseWriter, r *http.Request) {
	items := []T{}
	q, ok := applyFilters(rs.query().WithContext(r.Context()).Model(new(T)), r.URL.Query(), rs.Filters)
	if !ok {
		writeJSON(w, http.StatusOK, items)
		return
	}
	if rs.Order != "" {
		q = q.Order(rs.Order)
	}
	if err := q.Find(&items).Error; err != nil {
		writeError(w, fmt.Errorf("list: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rs resource[T, I]) load(q *gorm.DB, id uint) (*T, error) {
	m := new(T)
	if err := q.First(m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (rs resource[T, I]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := rs.load(rs.query().WithContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func actor(r *http.Request) string {
	username, _ := utils.GetUsernameFromContext(r.Context())
	return username
}

func (rs resource[T, I]) Create(w http.ResponseWriter, r *http.Request) {
	in := new(I)
	if err := decodeJSON(w, r, in); err != nil {
		writeError(w, err)
		return
	}
	wr := write{Mode: modeCreate, Actor: actor(r)}

	m := new(T)
	err := db.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := rs.Apply(tx, in, m, wr); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return err
		}
		if rs.After != nil {
			return rs.After(tx, in, m, wr)
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	rs.respondFresh(w, r, m, http.StatusCreated)
}

func (rs resource[T, I]) Replace(w http.ResponseWriter, r *http.Request) {
	rs.update(w, r, modeReplace)
}

func (rs resource[T, I]) Patch(w http.ResponseWriter, r *http.Request) {
	rs.update(w, r, modePatch)
}

func (rs resource[T, I]) update(w http.ResponseWriter, r *http.Request, mode writeMode) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	in := new(I)
	if err := decodeJSON(w, r, in); err != nil {
		writeError(w, err)
		return
	}
	wr := write{Mode: mode, Actor: actor(r)}

	var m *T
	err = db.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		scoped := tx
		if rs.Scope != nil {
			scoped = rs.Scope(tx)
		}
		if m, err = rs.load(scoped, id); err != nil {
			return err
		}
		if err := rs.Apply(tx, in, m, wr); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return err
		}
		if rs.After != nil {
			return rs.After(tx, in, m, wr)
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	rs.respondFresh(w, r, m, http.StatusOK)
}

// respondFresh re-reads m so the response carries preloaded children.
func (rs resource[T, I]) respondFresh(w http.ResponseWriter, r *http.Request, m *T, status int) {
	if err := rs.query().WithContext(r.Context()).First(m).Error; err != nil {
		writeError(w, fmt.Errorf("reload: %w", err))
		return
	}
	writeJSON(w, status, m)
}

func (rs resource[T, I]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := db.DB.WithContext(r.Context())
	if rs.Scope != nil {
		if _, err := rs.load(rs.Scope(q), id); err != nil {
			writeError(w, err)
			return
		}
	}
	res := q.Delete(new(T), id)
	if res.Error != nil {
		writeError(w, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeError(w, ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
