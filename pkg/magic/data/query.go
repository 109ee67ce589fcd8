package data

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sambeau/magic/pkg/magic/lambda"
)

type runFunc func(ctx context.Context, q querier, sqlText string, args []any, n *lambda.Node) error

// query reads the statement and its @ parameters, then runs it on the current target.
func query(run runFunc) dataFunc {
	return func(c call, n *lambda.Node) error {
		q, driver, err := target(c.s, n)
		if err != nil {
			return err
		}
		sqlText, err := lambda.GetEx[string](n)
		if err != nil {
			return err
		}
		params, err := parameters(n)
		if err != nil {
			return err
		}
		sqlText, args := bind(driver, sqlText, params)
		return run(c.ctx, q, sqlText, args, n)
	}
}

type param struct {
	name  string
	value any
}

func parameters(n *lambda.Node) ([]param, error) {
	var params []param
	for _, c := range n.Children() {
		name, ok := strings.CutPrefix(c.Name, "@")
		if !ok {
			continue
		}
		v, err := lambda.Evaluate(c)
		if err != nil {
			return nil, err
		}
		params = append(params, param{name: name, value: sqlValue(v)})
	}
	return params, nil
}

// sqlValue maps lambda values without a database/sql representation.
func sqlValue(v any) any {
	switch t := v.(type) {
	case lambda.Char:
		return string(rune(t))
	case time.Duration:
		return t.Milliseconds()
	case *lambda.Node, *lambda.Expression:
		_, text, err := lambda.ToString(t)
		if err != nil {
			return nil
		}
		return text
	}
	return v
}

// bind rewrites @name placeholders as positional ones: $n for postgres, ?
// for sqlite and mysql. Placeholders inside quoted literals are left alone, as
// are @names with no matching parameter.
func bind(driver, sqlText string, params []param) (string, []any) {
	if len(params) == 0 {
		return sqlText, nil
	}
	values := make(map[string]any, len(params))
	for _, p := range params {
		values[p.name] = p.value
	}
	positions := make(map[string]int)
	var args []any
	var sb strings.Builder
	var quote byte

	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '@':
			j := i + 1
			for j < len(sqlText) && isIdentChar(sqlText[j]) {
				j++
			}
			name := sqlText[i+1 : j]
			v, ok := values[name]
			if !ok || name == "" {
				break
			}
			if driver == DriverPostgres {
				pos, seen := positions[name]
				if !seen {
					args = append(args, v)
					pos = len(args)
					positions[name] = pos
				}
				sb.WriteString("$" + strconv.Itoa(pos))
			} else {
				args = append(args, v)
				sb.WriteByte('?')
			}
			i = j - 1
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String(), args
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

func selectRows(ctx context.Context, q querier, sqlText string, args []any, n *lambda.Node) error {
	rows, err := scan(ctx, q, sqlText, args, 0)
	if err != nil {
		return err
	}
	n.Value = nil
	n.Clear()
	n.Add(rows...)
	return nil
}

func selectScalar(ctx context.Context, q querier, sqlText string, args []any, n *lambda.Node) error {
	rows, err := scan(ctx, q, sqlText, args, 1)
	if err != nil {
		return err
	}
	n.Value = nil
	n.Clear()
	if len(rows) > 0 && rows[0].Count() > 0 {
		n.Value = rows[0].First().Value
	}
	return nil
}

func execute(ctx context.Context, q querier, sqlText string, args []any, n *lambda.Node) error {
	res, err := q.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return dbError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	n.Value = affected
	n.Clear()
	return nil
}

// scan reads up to limit rows (all when limit is 0) as unnamed nodes whose
// children are the columns.
func scan(ctx context.Context, q querier, sqlText string, args []any, limit int) ([]*lambda.Node, error) {
	rows, err := q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, dbError(err)
	}

	var out []*lambda.Node
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, dbError(err)
		}
		row := lambda.New("", nil)
		for i, col := range columns {
			row.Add(lambda.New(col, columnValue(values[i])))
		}
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return out, nil
}

// columnValue maps driver values onto the lambda type vocabulary.
func columnValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int:
		return int64(t)
	case time.Time:
		return t.UTC().Truncate(time.Millisecond)
	}
	return v
}
