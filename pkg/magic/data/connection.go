package data

import (
	"context"
	"database/sql"
	"errors"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// connection is one pinned database connection, returned to the pool when
// its scope ends.
type connection struct {
	conn   *sql.Conn
	driver string
}

func (c *connection) Close() error {
	return c.conn.Close()
}

// transaction rolls back when its scope ends unless it was committed or
// rolled back explicitly.
type transaction struct {
	tx    *sql.Tx
	owner *connection
	state string
}

func (t *transaction) Close() error {
	if t.state != "" {
		return nil
	}
	t.state = "rolled back"
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return dbError(err)
	}
	return nil
}

// querier is satisfied by both *sql.Conn and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (d *Databases) connect(c call, n *lambda.Node) error {
	name, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	db, cfg, err := d.Open(c.ctx, name)
	if err != nil {
		return err
	}
	conn, err := db.Conn(c.ctx)
	if err != nil {
		return dbError(err)
	}
	return c.scope(ConnectionKey, &connection{conn: conn, driver: cfg.Driver}, func() error {
		return c.eval(n)
	})
}

func currentConnection(s *signals.Signaler, n *lambda.Node) (*connection, error) {
	conn, ok := signals.Peek[*connection](s, ConnectionKey)
	if !ok {
		return nil, perrors.New("STATE-0002", map[string]any{"Slot": n.Name, "Scope": "data.connect"})
	}
	return conn, nil
}

// target picks the open transaction of the current connection, if any, or
// the connection itself.
func target(s *signals.Signaler, n *lambda.Node) (querier, string, error) {
	conn, err := currentConnection(s, n)
	if err != nil {
		return nil, "", err
	}
	if tx, ok := signals.Peek[*transaction](s, TransactionKey); ok && tx.owner == conn && tx.state == "" {
		return tx.tx, conn.driver, nil
	}
	return conn.conn, conn.driver, nil
}

func beginTransaction(c call, n *lambda.Node) error {
	conn, err := currentConnection(c.s, n)
	if err != nil {
		return err
	}
	tx, err := conn.conn.BeginTx(c.ctx, nil)
	if err != nil {
		return dbError(err)
	}
	return c.scope(TransactionKey, &transaction{tx: tx, owner: conn}, func() error {
		return c.eval(n)
	})
}

func finishTransaction(commit bool) dataFunc {
	return func(c call, n *lambda.Node) error {
		t, ok := signals.Peek[*transaction](c.s, TransactionKey)
		if !ok {
			return perrors.New("STATE-0002", map[string]any{"Slot": n.Name, "Scope": "data.transaction.create"})
		}
		if t.state != "" {
			return perrors.New("STATE-0003", map[string]any{"State": t.state})
		}
		if commit {
			t.state = "committed"
			if err := t.tx.Commit(); err != nil {
				return dbError(err)
			}
			return nil
		}
		t.state = "rolled back"
		if err := t.tx.Rollback(); err != nil {
			return dbError(err)
		}
		return nil
	}
}
