package bank

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// filter narrows a list query from its URL parameters. ok is false when a
// parameter value cannot be parsed, in which case the list is empty.
type filter func(q *gorm.DB, params url.Values) (out *gorm.DB, ok bool)

func applyFilters(q *gorm.DB, params url.Values, filters []filter) (*gorm.DB, bool) {
	for _, f := range filters {
		var ok bool
		if q, ok = f(q, params); !ok {
			return q, false
		}
	}
	return q, true
}

func parseUint(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return uint(n), err == nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

// parseIDs splits a comma-separated id list.
func parseIDs(s string) ([]uint, bool) {
	parts := lo.Filter(strings.Split(s, ","), func(p string, _ int) bool { return strings.TrimSpace(p) != "" })
	if len(parts) == 0 {
		return nil, false
	}
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		id, ok := parseUint(p)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return lo.Uniq(ids), true
}

func param(params url.Values, name string) (string, bool) {
	if !params.Has(name) {
		return "", false
	}
	return params.Get(name), true
}

func idExact(name, column string) filter {
	return func(q *gorm.DB, params url.Values) (*gorm.DB, bool) {
		v, set := param(params, name)
		if !set || v == "" {
			return q, true
		}
		id, ok := parseUint(v)
		if !ok {
			return q, false
		}
		return q.Where(column+" = ?", id), true
	}
}

func boolExact(name, column string) filter {
	return func(q *gorm.DB, params url.Values) (*gorm.DB, bool) {
		v, set := param(params, name)
		if !set || v == "" {
			return q, true
		}
		b, ok := parseBool(v)
		if !ok {
			return q, false
		}
		return q.Where(column+" = ?", b), true
	}
}

func textExact(name, column string) filter {
	return func(q *gorm.DB, params url.Values) (*gorm.DB, bool) {
		v, set := param(params, name)
		if !set || v == "" {
			return q, true
		}
		return q.Where(column+" = ?", v), true
	}
}

func textIExact(name, column string) filter {
	return func(q *gorm.DB, params url.Values) (*gorm.DB, bool) {
		v, set := param(params, name)
		if !set || v == "" {
			return q, true
		}
		return q.Where("LOWER("+column+") = ?", strings.ToLower(v)), true
	}
}

func textIContains(name, column string) filter {
	return func(q *gorm.DB, params url.Values) (*gorm.DB, bool) {
		v, set := param(params, name)
		if !set || v == "" {
			return q, true
		}
		return q.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(v)+"%"), true
	}
}

// dateRange adds name_from (inclusive) and name_to (inclusive) bounds.
func dateRange(name, column string) filter {
	return func(q *gorm.DB, params url.Values) (*gorm.DB, bool) {
		if v, set := param(params, name+"_from"); set && v != "" {
			t, ok := parseDate(v)
			if !ok {
				return q, false
			}
			q = q.Where(column+" >= ?", t)
		}
		if v, set := param(params, name+"_to"); set && v != "" {
			t, ok := parseDate(v)
			if !ok {
				return q, false
			}
			q = q.Where(column+" <= ?", t)
		}
		return q, true
	}
}

// idIn matches rows whose id appears in sub for any of the given ids.
// sub builds the subquery selecting owner ids from a link table.
func idIn(name string, sub func(q *gorm.DB, ids []uint) *gorm.DB) filter {
	return func(q *gorm.DB, params url.Values) (*gorm.DB, bool) {
		v, set := param(params, name)
		if !set || v == "" {
			return q, true
		}
		ids, ok := parseIDs(v)
		if !ok {
			return q, false
		}
		return q.Where("id IN (?)", sub(q.Session(&gorm.Session{NewDB: true}), ids)), true
	}
}

// linkSubquery selects ownerCol from a many2many join table.
func linkSubquery(joinTable, ownerCol, targetCol string) func(q *gorm.DB, ids []uint) *gorm.DB {
	return func(q *gorm.DB, ids []uint) *gorm.DB {
		return q.Table(q.NamingStrategy.JoinTableName(joinTable)).
			Select(ownerCol).
			Where(targetCol+" IN ?", ids)
	}
}
