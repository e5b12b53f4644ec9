package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// SQLite executes scripts and statements against a SQLite database through
// the provided Querier. Passing the execution context as the Querier makes
// every operation participate in the invocation's transaction discipline.
type SQLite struct {
	q Querier
}

// NewSQLite returns a SQLite backend over q.
func NewSQLite(q Querier) *SQLite {
	return &SQLite{q: q}
}

// ExecScript reads the file at path, splits it into statements, and
// executes them in order. Empty statements are skipped. A "GO" batch
// separator on its own line is treated as a statement boundary so scripts
// written for batch-oriented tooling keep working.
func (s *SQLite) ExecScript(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Op: "exec script", Detail: path, Err: err}
	}

	for _, stmt := range SplitStatements(string(data)) {
		if _, err := s.q.ExecContext(ctx, stmt); err != nil {
			return &Error{Op: "exec script", Detail: path, Err: err}
		}
	}
	return nil
}

// ExecStatement runs one statement. Queries return their rows with all
// columns rendered as strings; statements without result sets return nil.
func (s *SQLite) ExecStatement(ctx context.Context, stmt string, args ...any) ([][]string, error) {
	trimmed := strings.TrimSpace(stmt)
	if !returnsRows(trimmed) {
		if _, err := s.q.ExecContext(ctx, stmt, args...); err != nil {
			return nil, &Error{Op: "exec statement", Detail: trimmed, Err: err}
		}
		return nil, nil
	}

	rows, err := s.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &Error{Op: "exec statement", Detail: trimmed, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &Error{Op: "exec statement", Detail: trimmed, Err: err}
	}

	var out [][]string
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &Error{Op: "exec statement", Detail: trimmed, Err: err}
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "exec statement", Detail: trimmed, Err: err}
	}
	return out, nil
}

// ObjectExists checks sqlite_master for an object of the given kind.
// The schema argument is accepted for interface compatibility; SQLite has
// a single namespace per database file and ignores it.
func (s *SQLite) ObjectExists(ctx context.Context, schema, name, kind string) (bool, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "table", "view", "index", "trigger":
	default:
		return false, &Error{Op: "object exists", Detail: name,
			Err: fmt.Errorf("unsupported object kind %q", kind)}
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT 1 FROM sqlite_master WHERE type = ? AND name = ?`, kind, name)
	if err != nil {
		return false, &Error{Op: "object exists", Detail: name, Err: err}
	}
	defer rows.Close()

	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, &Error{Op: "object exists", Detail: name, Err: err}
	}
	return exists, nil
}

// SplitStatements breaks script text into individual statements on
// semicolons, honoring line comments, block comments, and quoted strings.
// Lines consisting solely of "GO" (any case) also terminate a statement.
func SplitStatements(script string) []string {
	var stmts []string
	var cur strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(cur.String())
		cur.Reset()
		if stmt != "" && lastMeaningfulByte(stmt) != 0 {
			stmts = append(stmts, stmt)
		}
	}

	for _, line := range strings.Split(script, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), "GO") {
			flush()
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')

		if endsStatement(cur.String()) {
			flush()
		}
	}
	flush()
	return stmts
}

// endsStatement reports whether the accumulated text ends with a
// semicolon outside strings and comments.
func endsStatement(text string) bool {
	return lastMeaningfulByte(text) == ';'
}

// lastMeaningfulByte returns the final byte of text that is not
// whitespace and not inside a string literal or comment, or 0 when there
// is none.
func lastMeaningfulByte(text string) byte {
	inSingle, inLine, inBlock := false, false, false
	lastMeaningful := byte(0)

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inLine:
			if c == '\n' {
				inLine = false
			}
		case inBlock:
			if c == '*' && i+1 < len(text) && text[i+1] == '/' {
				inBlock = false
				i++
			}
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		default:
			switch {
			case c == '-' && i+1 < len(text) && text[i+1] == '-':
				inLine = true
				i++
			case c == '/' && i+1 < len(text) && text[i+1] == '*':
				inBlock = true
				i++
			case c == '\'':
				inSingle = true
				lastMeaningful = c
			case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			default:
				lastMeaningful = c
			}
		}
	}
	return lastMeaningful
}

func returnsRows(stmt string) bool {
	upper := strings.ToUpper(stmt)
	return strings.HasPrefix(upper, "SELECT") ||
		strings.HasPrefix(upper, "WITH") ||
		strings.HasPrefix(upper, "PRAGMA") ||
		strings.HasPrefix(upper, "EXPLAIN")
}
