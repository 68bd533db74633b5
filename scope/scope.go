// Package scope provides reusable query fragments for generated query
// factories:
//
//	query.Posts(db).Scopes(scope.Eq("user_id", u.ID), scope.Paginate(2, 20)...).All(ctx)
package scope

import "strings"

// Applier is implemented by query builders to receive scope fragments.
// It lives here rather than in orm so that orm can import scope.
type Applier interface {
	ApplyWhere(clause string, args []any)
	ApplyOrderBy(clause string)
	ApplyLimit(n int)
	ApplyOffset(n int)
	ApplySelect(columns string)
}

type kind uint8

const (
	kindWhere kind = iota + 1
	kindOrderBy
	kindLimit
	kindOffset
	kindSelect
)

// Scope is a single query fragment. The zero Scope applies nothing.
// Scopes are immutable and safe to share between goroutines.
type Scope struct {
	kind   kind
	clause string
	args   []any
	n      int
}

// Apply hands the fragment to a.
func (s Scope) Apply(a Applier) {
	switch s.kind {
	case kindWhere:
		a.ApplyWhere(s.clause, s.args)
	case kindOrderBy:
		a.ApplyOrderBy(s.clause)
	case kindLimit:
		a.ApplyLimit(s.n)
	case kindOffset:
		a.ApplyOffset(s.n)
	case kindSelect:
		a.ApplySelect(s.clause)
	}
}

// Where adds a raw WHERE fragment; fragments are ANDed together.
//
//	scope.Where("name = ? AND id > ?", "alice", 10)
func Where(clause string, args ...any) Scope {
	return Scope{kind: kindWhere, clause: clause, args: args}
}

// Eq adds "column = ?".
func Eq(column string, value any) Scope {
	return Where(column+" = ?", value)
}

// IsNull adds "column IS NULL", e.g. for posts whose optional reviewer
// was cleared by ON DELETE SET NULL.
func IsNull(column string) Scope {
	return Where(column + " IS NULL")
}

// In adds "column IN (?, ...)", one placeholder per value. An empty slice
// matches nothing.
//
//	scope.In("user_id", []int{1, 2, 3})
func In[T any](column string, values []T) Scope {
	if len(values) == 0 {
		return Where("1 = 0")
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return Where(column+" IN ("+strings.Repeat("?, ", len(values)-1)+"?)", args...)
}

// OrderBy appends an ORDER BY term.
//
//	scope.OrderBy("id DESC")
func OrderBy(clause string) Scope {
	return Scope{kind: kindOrderBy, clause: clause}
}

// Limit sets the LIMIT.
func Limit(n int) Scope {
	return Scope{kind: kindLimit, n: n}
}

// Offset sets the OFFSET.
func Offset(n int) Scope {
	return Scope{kind: kindOffset, n: n}
}

// Paginate returns LIMIT/OFFSET scopes for a 1-based page. Pages below 1
// are treated as the first page.
func Paginate(page, perPage int) Scopes {
	if page < 1 {
		page = 1
	}
	return Combine(Limit(perPage), Offset((page-1)*perPage))
}

// Select overrides the selected column list.
//
//	scope.Select("id", "name")
func Select(columns ...string) Scope {
	return Scope{kind: kindSelect, clause: strings.Join(columns, ", ")}
}

// Scopes is an ordered set of Scope values.
//
//	var s scope.Scopes
//	if ownerID != 0 {
//		s = s.Append(scope.Eq("user_id", ownerID))
//	}
//	query.Posts(db).Scopes(s...).All(ctx)
type Scopes []Scope

// Append returns a new Scopes with scopes added; ss is not modified.
func (ss Scopes) Append(scopes ...Scope) Scopes {
	return append(append(Scopes(nil), ss...), scopes...)
}

// Merge returns the concatenation of ss and other; neither is modified.
func (ss Scopes) Merge(other Scopes) Scopes {
	return ss.Append(other...)
}

// Combine builds a Scopes from the given scopes.
func Combine(scopes ...Scope) Scopes {
	return Scopes(scopes)
}
