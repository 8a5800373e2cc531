package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Tuning is one cached autotune result.
type Tuning struct {
	// ID identifies the operator build that recorded the row.
	ID       string
	Operator string
	// SpecHash digests the update equations; a changed stencil never
	// reuses a stale shape.
	SpecHash string
	// Extents are the resolved dimension sizes the winner was measured at.
	Extents map[string]int
	// Blocks is the winning block shape.
	Blocks  map[string]int
	Seconds float64
}

// Put records a tuning, replacing any previous winner for the same
// operator, equations and extents.
func (s *Store) Put(ctx context.Context, t Tuning) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tunings (id, operator, spec_hash, extents, blocks, seconds)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(operator, spec_hash, extents) DO UPDATE SET
			id = excluded.id,
			blocks = excluded.blocks,
			seconds = excluded.seconds,
			created_at = datetime('now')
	`,
		t.ID, t.Operator, t.SpecHash, canonical(t.Extents), canonical(t.Blocks), t.Seconds,
	)
	if err != nil {
		return fmt.Errorf("recording tuning for %s: %w", t.Operator, err)
	}
	return nil
}

// Get returns the cached block shape for the given key, or ok=false when
// the problem has never been tuned.
func (s *Store) Get(ctx context.Context, operator, specHash string, extents map[string]int) (map[string]int, bool, error) {
	var blocks string
	err := s.db.QueryRowContext(ctx, `
		SELECT blocks FROM tunings
		WHERE operator = ? AND spec_hash = ? AND extents = ?
	`, operator, specHash, canonical(extents)).Scan(&blocks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading tuning for %s: %w", operator, err)
	}
	shape, err := parseCanonical(blocks)
	if err != nil {
		return nil, false, fmt.Errorf("reading tuning for %s: %w", operator, err)
	}
	return shape, true, nil
}

// canonical encodes an int map as "name=value;..." with names sorted, so
// equal maps always produce equal keys.
func canonical(m map[string]int) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(m[name]))
	}
	return b.String()
}

func parseCanonical(s string) (map[string]int, error) {
	out := make(map[string]int)
	if s == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ";") {
		name, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("malformed cache entry %q", part)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("malformed cache entry %q: %w", part, err)
		}
		out[name] = n
	}
	return out, nil
}
