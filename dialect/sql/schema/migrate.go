package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/schema"
	"github.com/syssam/relgraph/schema/field"
)

// MigrateOption configures Create and Drop.
type MigrateOption func(*migrateConfig)

type migrateConfig struct {
	cfg    *relgraph.Config
	force  bool
	logger *slog.Logger
}

// WithConfig sets the configuration used for default sequence names.
func WithConfig(cfg *relgraph.Config) MigrateOption {
	return func(c *migrateConfig) { c.cfg = cfg }
}

// Force makes Drop log failing statements and continue, for tables that
// do not exist.
func Force() MigrateOption {
	return func(c *migrateConfig) { c.force = true }
}

// WithLogger sets the logger of forced drops. Default is slog.Default().
func WithLogger(logger *slog.Logger) MigrateOption {
	return func(c *migrateConfig) { c.logger = logger }
}

func newMigrateConfig(opts []MigrateOption) *migrateConfig {
	c := &migrateConfig{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// CreateSQL returns the statements creating the tables and sequences of p.
func CreateSQL(d dialect.Dialect, p schema.Provider, opts ...MigrateOption) ([]string, error) {
	c := newMigrateConfig(opts)
	tables, err := Tables(p, c.cfg)
	if err != nil {
		return nil, err
	}
	var stmts []string
	for _, t := range tables {
		if t.Sequence != "" {
			s, ok := d.CreateSequenceSQL(t.Sequence)
			if !ok {
				return nil, &relgraph.CapabilityError{Dialect: d.Name(), Feature: "sequences"}
			}
			stmts = append(stmts, s)
		}
		defs := make([]dialect.ColumnDef, len(t.Columns))
		for i, col := range t.Columns {
			defs[i] = dialect.ColumnDef{
				Name:          col.Name,
				Type:          d.SQLType(&field.Column{Type: col.Type, Size: col.Size}),
				Nullable:      col.Nullable,
				PrimaryKey:    len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == col,
				AutoIncrement: col.AutoIncrement,
			}
		}
		stmts = append(stmts, d.CreateTableSQL(t.QualifiedName(), defs))
	}
	return stmts, nil
}

// DropSQL returns the statements dropping the tables of p, association
// tables first.
func DropSQL(d dialect.Dialect, p schema.Provider, opts ...MigrateOption) ([]string, error) {
	c := newMigrateConfig(opts)
	tables, err := Tables(p, c.cfg)
	if err != nil {
		return nil, err
	}
	var stmts []string
	for i := len(tables) - 1; i >= 0; i-- {
		stmts = append(stmts, d.DropTableSQL(tables[i].QualifiedName()))
	}
	return stmts, nil
}

// Create creates the tables and sequences of p.
func Create(ctx context.Context, drv dialect.ExecQuerier, d dialect.Dialect, p schema.Provider, opts ...MigrateOption) error {
	stmts, err := CreateSQL(d, p, opts...)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if err := drv.Exec(ctx, s, []any{}, nil); err != nil {
			return &relgraph.ExecutionError{Op: "CREATE", SQL: s, Err: err}
		}
	}
	return nil
}

// Drop drops the tables of p. With Force, failing statements are logged
// and the remaining ones still run; their errors are not returned.
func Drop(ctx context.Context, drv dialect.ExecQuerier, d dialect.Dialect, p schema.Provider, opts ...MigrateOption) error {
	c := newMigrateConfig(opts)
	stmts, err := DropSQL(d, p, opts...)
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range stmts {
		err := drv.Exec(ctx, s, []any{}, nil)
		switch {
		case err == nil:
		case c.force:
			c.logger.WarnContext(ctx, "drop failed", "sql", s, "error", err)
		default:
			errs = append(errs, &relgraph.ExecutionError{Op: "DROP", SQL: s, Err: err})
		}
	}
	if err := relgraph.NewAggregateError(errs...); err != nil {
		return fmt.Errorf("schema: drop: %w", err)
	}
	return nil
}
