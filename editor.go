package main

import (
	"context"
	"errors"
	"fmt"
)

// SchemaEditor pairs a dialect with a live catalog. Alterations the dialect
// cannot express in place are produced by describing the live table and
// rebuilding it when the dialect supports that.
type SchemaEditor struct {
	dialect Dialect
	q       Querier
}

func NewSchemaEditor(d Dialect, q Querier) *SchemaEditor {
	return &SchemaEditor{dialect: d, q: q}
}

func (e *SchemaEditor) Dialect() Dialect { return e.dialect }

func (e *SchemaEditor) Tables(ctx context.Context) ([]string, error) {
	return e.dialect.Tables(ctx, e.q)
}

func (e *SchemaEditor) Describe(ctx context.Context, table string) (*TableSchema, error) {
	return e.dialect.Describe(ctx, e.q, table)
}

// ShowCreateTable renders the statements that would recreate table as it
// currently exists.
func (e *SchemaEditor) ShowCreateTable(ctx context.Context, table string) ([]string, error) {
	t, err := e.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	return t.ToSQL(e)
}

func (e *SchemaEditor) AddColumn(ctx context.Context, table string, c Column) ([]string, error) {
	stmts, err := e.dialect.AddColumnSQL(table, c)
	return e.orRebuild(ctx, table, stmts, err, func(t *TableSchema) error {
		return t.AddColumn(c)
	})
}

func (e *SchemaEditor) ChangeColumn(ctx context.Context, table string, c Column) ([]string, error) {
	stmts, err := e.dialect.ChangeColumnSQL(table, c)
	return e.orRebuild(ctx, table, stmts, err, func(t *TableSchema) error {
		return t.ReplaceColumn(c.Name, c)
	})
}

func (e *SchemaEditor) RemoveColumn(ctx context.Context, table, column string) ([]string, error) {
	stmts, err := e.dialect.RemoveColumnSQL(table, column)
	return e.orRebuild(ctx, table, stmts, err, func(t *TableSchema) error {
		return t.RemoveColumn(column)
	})
}

func (e *SchemaEditor) AddForeignKey(ctx context.Context, table string, fk Constraint) ([]string, error) {
	fk.Kind = ConstraintForeign
	stmts, err := e.dialect.AddForeignKeySQL(table, fk)
	return e.orRebuild(ctx, table, stmts, err, func(t *TableSchema) error {
		return t.AddConstraint(fk)
	})
}

func (e *SchemaEditor) RemoveForeignKey(ctx context.Context, table, name string) ([]string, error) {
	stmts, err := e.dialect.RemoveForeignKeySQL(table, name)
	return e.orRebuild(ctx, table, stmts, err, func(t *TableSchema) error {
		return t.RemoveConstraint(name)
	})
}

// RenameIndex falls back to dropping the index and creating it again under
// the new name.
func (e *SchemaEditor) RenameIndex(ctx context.Context, table, from, to string) ([]string, error) {
	stmts, err := e.dialect.RenameIndexSQL(table, from, to)
	if !errors.Is(err, ErrUnsupported) {
		return stmts, err
	}

	t, err := e.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	i := t.indexIndex(from)
	if i < 0 {
		return nil, fmt.Errorf("rename index on %s: %w", table, invalidSchema("unknown index %s", from))
	}
	idx := t.indexes[i]
	idx.Name = to
	create, err := e.dialect.AddIndexSQL(table, idx)
	if err != nil {
		return nil, err
	}
	return []string{e.dialect.RemoveIndexSQL(table, from), create}, nil
}

// orRebuild returns stmts unless the dialect reported ErrUnsupported, in which
// case the live table is described, edited by apply, and rebuilt.
func (e *SchemaEditor) orRebuild(ctx context.Context, table string, stmts []string, err error, apply func(*TableSchema) error) ([]string, error) {
	if !errors.Is(err, ErrUnsupported) {
		return stmts, err
	}
	rb, ok := e.dialect.(tableRebuilder)
	if !ok {
		return nil, err
	}

	current, derr := e.Describe(ctx, table)
	if derr != nil {
		return nil, fmt.Errorf("rebuild %s: %w", table, derr)
	}
	desired := current.clone()
	if aerr := apply(desired); aerr != nil {
		return nil, fmt.Errorf("rebuild %s: %w", table, aerr)
	}
	rebuild, rerr := rb.RebuildTableSQL(current, desired)
	if rerr != nil {
		return nil, fmt.Errorf("rebuild %s: %w", table, rerr)
	}

	out := make([]string, 0, len(rebuild)+2)
	out = append(out, e.dialect.DisableForeignKeySQL())
	out = append(out, rebuild...)
	out = append(out, e.dialect.EnableForeignKeySQL())
	return out, nil
}
