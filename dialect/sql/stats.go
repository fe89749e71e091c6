package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/syssam/relgraph/dialect"
)

// Stats counts the statements run through an instrumented connection, by
// statement kind. A graph call usually runs several kinds: identifier
// selects, batched inserts, sequence draws, association deletes.
type Stats struct {
	mu    sync.Mutex
	kinds map[string]*KindStats
}

// KindStats are the counters of one statement kind.
type KindStats struct {
	Statements int64
	Errors     int64
	Slow       int64
	Duration   time.Duration
}

// NewStats returns empty statistics.
func NewStats() *Stats {
	return &Stats{kinds: make(map[string]*KindStats)}
}

func (s *Stats) record(kind string, d time.Duration, slow bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.kinds[kind]
	if !ok {
		k = &KindStats{}
		s.kinds[kind] = k
	}
	k.Statements++
	k.Duration += d
	if slow {
		k.Slow++
	}
	if err != nil {
		k.Errors++
	}
}

// Snapshot returns a copy of the counters, keyed by statement kind.
func (s *Stats) Snapshot() map[string]KindStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]KindStats, len(s.kinds))
	for kind, k := range s.kinds {
		out[kind] = *k
	}
	return out
}

// Total sums the counters of every kind.
func (s *Stats) Total() KindStats {
	var t KindStats
	for _, k := range s.Snapshot() {
		t.Statements += k.Statements
		t.Errors += k.Errors
		t.Slow += k.Slow
		t.Duration += k.Duration
	}
	return t
}

// Reset clears the counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = make(map[string]*KindStats)
}

// String formats the statement counts by kind, followed by the totals.
//
//	DELETE=2 INSERT=5 SELECT=1 errors=0 slow=0 duration=3ms
func (s *Stats) String() string {
	snap := s.Snapshot()
	kinds := make([]string, 0, len(snap))
	for kind := range snap {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	var sb strings.Builder
	for _, kind := range kinds {
		fmt.Fprintf(&sb, "%s=%d ", kind, snap[kind].Statements)
	}
	t := s.Total()
	fmt.Fprintf(&sb, "errors=%d slow=%d duration=%s", t.Errors, t.Slow, t.Duration)
	return sb.String()
}

// Kind returns the leading keyword of a statement, upper-cased.
func Kind(query string) string {
	query = strings.TrimLeftFunc(query, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
	end := strings.IndexFunc(query, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		end = len(query)
	}
	return strings.ToUpper(query[:end])
}

// SlowHook is called with the statements that exceed the slow threshold.
type SlowHook func(ctx context.Context, query string, args any, d time.Duration)

// InstrumentOption configures Instrument.
type InstrumentOption func(*instrument)

// WithStats records the statements into s.
func WithStats(s *Stats) InstrumentOption {
	return func(in *instrument) { in.stats = s }
}

// WithStatementLog logs every statement, with its kind and arguments, at
// the given level.
func WithStatementLog(logger *slog.Logger, level slog.Level) InstrumentOption {
	return func(in *instrument) { in.logger, in.level = logger, level }
}

// WithSlowThreshold marks the statements running longer than d as slow and
// passes them to hook, if not nil.
func WithSlowThreshold(d time.Duration, hook SlowHook) InstrumentOption {
	return func(in *instrument) { in.slow, in.hook = d, hook }
}

type instrument struct {
	stats  *Stats
	logger *slog.Logger
	level  slog.Level
	slow   time.Duration
	hook   SlowHook
}

func (in *instrument) run(ctx context.Context, query string, args any, fn func() error) error {
	kind := Kind(query)
	if in.logger != nil {
		in.logger.Log(ctx, in.level, "sql", "op", kind, "query", query, "args", args)
	}
	start := time.Now()
	err := fn()
	d := time.Since(start)
	slow := in.slow > 0 && d > in.slow
	if in.stats != nil {
		in.stats.record(kind, d, slow, err)
	}
	if slow && in.hook != nil {
		in.hook(ctx, query, args, d)
	}
	return err
}

func (in *instrument) event(ctx context.Context, msg string) {
	if in.logger != nil {
		in.logger.Log(ctx, in.level, msg)
	}
}

// Instrument wraps conn so that its statements are counted and logged as
// the options say. A dialect.Driver is returned as an *InstrumentedDriver,
// whose transactions are instrumented too.
func Instrument(conn dialect.ExecQuerier, opts ...InstrumentOption) dialect.ExecQuerier {
	in := &instrument{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(in)
	}
	if drv, ok := conn.(dialect.Driver); ok {
		return &InstrumentedDriver{Driver: drv, in: in}
	}
	return &instrumentedConn{ExecQuerier: conn, in: in}
}

// InstrumentedDriver is a dialect.Driver whose statements are counted and
// logged.
type InstrumentedDriver struct {
	dialect.Driver
	in *instrument
}

// Query implements dialect.ExecQuerier.
func (d *InstrumentedDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.in.run(ctx, query, args, func() error { return d.Driver.Query(ctx, query, args, v) })
}

// Exec implements dialect.ExecQuerier.
func (d *InstrumentedDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.in.run(ctx, query, args, func() error { return d.Driver.Exec(ctx, query, args, v) })
}

// Tx implements dialect.Driver.
func (d *InstrumentedDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.in.event(ctx, "begin")
	return &instrumentedTx{Tx: tx, in: d.in}, nil
}

type instrumentedTx struct {
	dialect.Tx
	in *instrument
}

func (tx *instrumentedTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.in.run(ctx, query, args, func() error { return tx.Tx.Query(ctx, query, args, v) })
}

func (tx *instrumentedTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.in.run(ctx, query, args, func() error { return tx.Tx.Exec(ctx, query, args, v) })
}

func (tx *instrumentedTx) Commit() error {
	tx.in.event(context.Background(), "commit")
	return tx.Tx.Commit()
}

func (tx *instrumentedTx) Rollback() error {
	tx.in.event(context.Background(), "rollback")
	return tx.Tx.Rollback()
}

type instrumentedConn struct {
	dialect.ExecQuerier
	in *instrument
}

func (c *instrumentedConn) Query(ctx context.Context, query string, args, v any) error {
	return c.in.run(ctx, query, args, func() error { return c.ExecQuerier.Query(ctx, query, args, v) })
}

func (c *instrumentedConn) Exec(ctx context.Context, query string, args, v any) error {
	return c.in.run(ctx, query, args, func() error { return c.ExecQuerier.Exec(ctx, query, args, v) })
}

var (
	_ dialect.Driver      = (*InstrumentedDriver)(nil)
	_ dialect.Tx          = (*instrumentedTx)(nil)
	_ dialect.ExecQuerier = (*instrumentedConn)(nil)
)
