package orm

import (
	"context"
	"fmt"
	"strings"
)

// JoinPair holds a source–target pair read from an implicit many-to-many
// join table.
type JoinPair[S, T comparable] struct {
	Source S
	Target T
}

// JoinTable names an implicit many-to-many join table and its two key
// columns, seen from the source side.
type JoinTable struct {
	Table     string
	SourceCol string
	TargetCol string
}

// QueryJoinTable reads (SourceCol, TargetCol) rows from jt where SourceCol
// IN (sourceIDs).
func QueryJoinTable[S, T comparable](
	ctx context.Context, db Querier, jt JoinTable, sourceIDs []S,
) ([]JoinPair[S, T], error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}

	d := db.dialect()
	qi := d.QuoteIdent

	args := make([]any, len(sourceIDs))
	for i, id := range sourceIDs {
		args[i] = id
	}

	query := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s IN (%s)",
		qi(jt.SourceCol), qi(jt.TargetCol), qi(jt.Table), qi(jt.SourceCol),
		placeholders(len(sourceIDs)),
	)
	query = rewritePlaceholders(d, query)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	defer func() { _ = rows.Close() }()

	var pairs []JoinPair[S, T]
	for rows.Next() {
		var p JoinPair[S, T]
		if err := rows.Scan(&p.Source, &p.Target); err != nil {
			return nil, err //nolint:wrapcheck // pass through
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err() //nolint:wrapcheck // pass through
}

// Link inserts one join row per target, connecting source to each of them.
func Link[S, T comparable](ctx context.Context, db Querier, jt JoinTable, source S, targets ...T) error {
	if len(targets) == 0 {
		return nil
	}

	d := db.dialect()
	qi := d.QuoteIdent

	rows := make([]string, len(targets))
	args := make([]any, 0, 2*len(targets))
	for i, target := range targets {
		rows[i] = "(?, ?)"
		args = append(args, source, target)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES %s",
		qi(jt.Table), qi(jt.SourceCol), qi(jt.TargetCol), strings.Join(rows, ", "),
	)
	query = rewritePlaceholders(d, query)

	_, err := db.ExecContext(ctx, query, args...)
	return err //nolint:wrapcheck // pass through
}

// Unlink deletes the join rows between source and the given targets.
// With no targets every row of source is deleted.
func Unlink[S, T comparable](ctx context.Context, db Querier, jt JoinTable, source S, targets ...T) error {
	d := db.dialect()
	qi := d.QuoteIdent

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", qi(jt.Table), qi(jt.SourceCol))
	args := []any{source}
	if len(targets) > 0 {
		query += fmt.Sprintf(" AND %s IN (%s)", qi(jt.TargetCol), placeholders(len(targets)))
		for _, t := range targets {
			args = append(args, t)
		}
	}
	query = rewritePlaceholders(d, query)

	_, err := db.ExecContext(ctx, query, args...)
	return err //nolint:wrapcheck // pass through
}

// UniqueTargets extracts deduplicated target values from a slice of JoinPair.
func UniqueTargets[S, T comparable](pairs []JoinPair[S, T]) []T {
	seen := make(map[T]struct{}, len(pairs))
	result := make([]T, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := seen[p.Target]; !ok {
			seen[p.Target] = struct{}{}
			result = append(result, p.Target)
		}
	}
	return result
}

// GroupBySource groups JoinPair values by source key into a map[S][]T.
func GroupBySource[S, T comparable](pairs []JoinPair[S, T]) map[S][]T {
	m := make(map[S][]T)
	for _, p := range pairs {
		m[p.Source] = append(m[p.Source], p.Target)
	}
	return m
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ", ")
}

// rewritePlaceholders converts ? to dialect-specific placeholders ($1, $2, …).
func rewritePlaceholders(d Dialect, query string) string {
	if _, ok := d.(mysqlDialect); ok {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	idx := 1
	for i := range len(query) {
		if query[i] == '?' {
			b.WriteString(d.Placeholder(idx))
			idx++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
