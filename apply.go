package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// statementBatch is the ordered statement list produced from one input file.
type statementBatch struct {
	source string
	stmts  []string
}

// loadStatementBatches renders each .toml descriptor for r's dialect and
// splits each .sql file into statements.
func loadStatementBatches(r DialectResolver, paths []string) ([]statementBatch, error) {
	batches := make([]statementBatch, 0, len(paths))
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".sql":
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", p, err)
			}
			batches = append(batches, statementBatch{source: p, stmts: splitStatements(string(data))})
		case ".toml":
			t, err := loadTableDescriptor(p)
			if err != nil {
				return nil, err
			}
			stmts, err := t.ToSQL(r)
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", p, err)
			}
			batches = append(batches, statementBatch{source: p, stmts: stmts})
		default:
			return nil, fmt.Errorf("%s: unsupported file type (want .toml or .sql)", p)
		}
	}
	return batches, nil
}

// statementExecutor runs a single DDL statement.
type statementExecutor interface {
	execStatement(ctx context.Context, stmt string) error
}

type sqlConnExecutor struct{ conn *sql.Conn }

func (e sqlConnExecutor) execStatement(ctx context.Context, stmt string) error {
	_, err := e.conn.ExecContext(ctx, stmt)
	return err
}

type pgxTxExecutor struct{ tx pgx.Tx }

func (e pgxTxExecutor) execStatement(ctx context.Context, stmt string) error {
	_, err := e.tx.Exec(ctx, stmt)
	return err
}

// execBatches runs every statement in order and stops at the first failure.
// With disableFKs the batches are bracketed by the dialect's foreign key toggles.
func execBatches(ctx context.Context, exec statementExecutor, d Dialect, batches []statementBatch, disableFKs bool) error {
	if disableFKs {
		if err := exec.execStatement(ctx, d.DisableForeignKeySQL()); err != nil {
			return fmt.Errorf("disable foreign keys: %w", err)
		}
	}
	for _, b := range batches {
		log.Printf("  %s: %d statements", b.source, len(b.stmts))
		for i, stmt := range b.stmts {
			if err := exec.execStatement(ctx, stmt); err != nil {
				return fmt.Errorf("%s: statement %d: %w\nSQL: %s", b.source, i+1, err, stmt)
			}
		}
	}
	if disableFKs {
		if err := exec.execStatement(ctx, d.EnableForeignKeySQL()); err != nil {
			return fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	return nil
}

// applyBatches executes batches on conn. PostgreSQL DDL is transactional, so
// with cfg.Transactional the whole run commits or rolls back as one unit.
// Other engines run on a single pinned connection so session settings stick.
func applyBatches(ctx context.Context, conn *Connection, cfg ApplyConfig, batches []statementBatch) error {
	if conn.dialect.Name() == "postgres" && cfg.Transactional {
		pool, err := pgxpool.New(ctx, conn.dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			return execBatches(ctx, pgxTxExecutor{tx: tx}, conn.dialect, batches, cfg.DisableForeignKeys)
		})
	}

	c, err := conn.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer c.Close()
	return execBatches(ctx, sqlConnExecutor{conn: c}, conn.dialect, batches, cfg.DisableForeignKeys)
}

// splitStatements splits SQL text on semicolons, ignoring empty entries and
// semicolons inside quotes, comments and dollar-quoted blocks. Single quotes,
// double quotes and MySQL backticks are all honoured.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	var quote byte // active quote character, 0 when outside quotes
	inLineComment := false
	blockCommentDepth := 0
	dollarTag := ""

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		switch {
		case inLineComment:
			current.WriteByte(c)
			if c == '\n' {
				inLineComment = false
			}
			continue

		case blockCommentDepth > 0:
			current.WriteByte(c)
			if c == '/' && i+1 < len(sql) && sql[i+1] == '*' {
				current.WriteByte(sql[i+1])
				i++
				blockCommentDepth++
			} else if c == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				current.WriteByte(sql[i+1])
				i++
				blockCommentDepth--
			}
			continue

		case quote != 0:
			current.WriteByte(c)
			if c == quote {
				// doubled quote is an escaped quote
				if i+1 < len(sql) && sql[i+1] == quote {
					current.WriteByte(sql[i+1])
					i++
				} else {
					quote = 0
				}
			}
			continue

		case dollarTag != "":
			if strings.HasPrefix(sql[i:], dollarTag) {
				current.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""
				continue
			}
			current.WriteByte(c)
			continue
		}

		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			current.WriteString("--")
			i++
			inLineComment = true
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			current.WriteString("/*")
			i++
			blockCommentDepth = 1
		case c == '\'' || c == '"' || c == '`':
			current.WriteByte(c)
			quote = c
		case c == '$':
			if tag, ok := parseDollarTag(sql, i); ok {
				current.WriteString(tag)
				i += len(tag) - 1
				dollarTag = tag
				continue
			}
			current.WriteByte(c)
		case c == ';':
			flush()
		default:
			current.WriteByte(c)
		}
	}

	// trailing statement without semicolon
	flush()
	return stmts
}

// parseDollarTag recognises $$ and $tag$ openers at sql[i].
func parseDollarTag(sql string, i int) (string, bool) {
	if i >= len(sql) || sql[i] != '$' {
		return "", false
	}
	if i+1 < len(sql) && sql[i+1] == '$' {
		return "$$", true
	}

	j := i + 1
	if j >= len(sql) || !isDollarTagStart(sql[j]) {
		return "", false
	}
	for j < len(sql) && isDollarTagChar(sql[j]) {
		j++
	}
	if j < len(sql) && sql[j] == '$' {
		return sql[i : j+1], true
	}
	return "", false
}

func isDollarTagStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDollarTagChar(c byte) bool {
	return isDollarTagStart(c) || (c >= '0' && c <= '9')
}
