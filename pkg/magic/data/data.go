// Package data provides database slots over database/sql.
//
//	data.connect:main
//	   data.execute:"insert into people (name) values (@name)"
//	      @name:Ada
//	   data.select:"select name from people"
//
// data.connect pins one connection for the duration of its children. Every
// data slot inside it runs on that connection, or on the innermost open
// transaction when data.transaction.create is in effect. Children whose names
// start with @ are bound as query parameters.
package data

import (
	"context"
	"database/sql"
	"strings"
	"time"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// Scope keys pushed by data.connect and data.transaction.create.
const (
	ConnectionKey  = "data.connection"
	TransactionKey = "data.transaction"
)

// Connection names a driver and its data source.
type Connection struct {
	Driver string
	DSN    string
}

// Options configures the data slots.
type Options struct {
	// Default is the connection used when data.connect has no value.
	Default     string
	Connections map[string]Connection
	CacheSize   int
	CacheTTL    time.Duration
}

// Databases resolves connection names to pooled handles and provides the data slots.
type Databases struct {
	opts  Options
	cache *connectionCache[*sql.DB]
}

// New creates a Databases. Close releases every pooled handle.
func New(opts Options) *Databases {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 100
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	return &Databases{
		opts: opts,
		cache: newConnectionCache[*sql.DB](
			opts.CacheSize,
			opts.CacheTTL,
			func(db *sql.DB) error { return db.Ping() },
			func(db *sql.DB) error { return db.Close() },
		),
	}
}

// Close closes every cached database.
func (d *Databases) Close() error {
	return d.cache.close()
}

// resolve maps a connection name, or a literal "driver:dsn", to a Connection.
func (d *Databases) resolve(name string) (Connection, error) {
	if name == "" {
		name = d.opts.Default
	}
	if c, ok := d.opts.Connections[name]; ok {
		return c, nil
	}
	if driver, dsn, ok := strings.Cut(name, ":"); ok && knownDriver(driver) {
		return Connection{Driver: driver, DSN: dsn}, nil
	}
	return Connection{}, perrors.New("DB-0001", map[string]any{"Name": name})
}

// Open returns the pooled handle for a connection name.
func (d *Databases) Open(ctx context.Context, name string) (*sql.DB, Connection, error) {
	c, err := d.resolve(name)
	if err != nil {
		return nil, c, err
	}
	key := c.Driver + ":" + c.DSN
	if db, ok := d.cache.get(key); ok {
		return db, c, nil
	}

	db, err := sql.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, c, dbError(err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, c, dbError(err)
	}
	d.cache.put(key, db)
	return db, c, nil
}

func dbError(err error) error {
	return perrors.New("DB-0002", map[string]any{"Error": err.Error()})
}

// call carries the mode a data slot was invoked in.
type call struct {
	ctx   context.Context
	async bool
	s     *signals.Signaler
}

// eval executes the children of n in the caller's mode.
func (c call) eval(n *lambda.Node) error {
	if n.Count() == 0 {
		return nil
	}
	if c.async {
		return c.s.SignalAsync(c.ctx, "wait.eval", n)
	}
	return c.s.Signal("eval", n)
}

// scope pushes value around body in the caller's mode.
func (c call) scope(key string, value any, body func() error) error {
	if c.async {
		return c.s.ScopeAsync(c.ctx, key, value, func(context.Context) error { return body() })
	}
	return c.s.Scope(key, value, body)
}

type dataFunc func(c call, n *lambda.Node) error

func entry(name, description string, fn dataFunc) signals.Entry {
	return signals.Entry{
		Name:        name,
		Description: description,
		Sync: func(s *signals.Signaler, n *lambda.Node) error {
			return fn(call{ctx: context.Background(), s: s}, n)
		},
		Async: func(ctx context.Context, s *signals.Signaler, n *lambda.Node) error {
			return fn(call{ctx: ctx, async: true, s: s}, n)
		},
	}
}

// Entries returns the data slots.
func (d *Databases) Entries() []signals.Entry {
	return []signals.Entry{
		entry("data.connect", "Runs its children on a connection to the named database", d.connect),
		entry("data.select", "Rows returned by the query, one child per row", query(selectRows)),
		entry("data.scalar", "First column of the first row returned by the query", query(selectScalar)),
		entry("data.execute", "Executes a statement and returns the number of affected rows", query(execute)),
		entry("data.transaction.create", "Runs its children inside a transaction", beginTransaction),
		entry("data.transaction.commit", "Commits the current transaction", finishTransaction(true)),
		entry("data.transaction.rollback", "Rolls back the current transaction", finishTransaction(false)),
	}
}
