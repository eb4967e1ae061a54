package database

import (
	"context"
	"database/sql/driver"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	busyBaseDelay = 50 * time.Millisecond
	busyMaxDelay  = 2 * time.Second
)

// busyMessages are the fragments SQLite drivers put in errors for a lock held
// by another connection. Both drivers behind sqliteshim use the same wording.
var busyMessages = []string{
	"database is locked",
	"database table is locked",
	"SQLITE_BUSY",
	"SQLITE_LOCKED",
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, fragment := range busyMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// busyRetrier reruns a statement that failed with a busy error, backing off
// exponentially with up to 25% jitter.
type busyRetrier struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func (r busyRetrier) do(ctx context.Context, fn func() error) error {
	delay := r.baseDelay
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !isBusyError(err) || attempt >= r.maxRetries {
			return err
		}

		wait := delay + rand.N(delay/4+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay = min(delay*2, r.maxDelay)
	}
}

// contextConn is the part of a driver connection that database/sql uses when
// it is available. Both sqliteshim drivers implement all of it.
type contextConn interface {
	driver.Conn
	driver.ConnBeginTx
	driver.ConnPrepareContext
	driver.ExecerContext
	driver.QueryerContext
}

// retryConnector hands out connections whose writes, reads and transaction
// starts are retried while another connection holds the SQLite lock.
type retryConnector struct {
	driver.Connector
	retrier busyRetrier
}

func newRetryConnector(connector driver.Connector, maxRetries int) *retryConnector {
	return &retryConnector{
		Connector: connector,
		retrier: busyRetrier{
			maxRetries: maxRetries,
			baseDelay:  busyBaseDelay,
			maxDelay:   busyMaxDelay,
		},
	}
}

func (rc *retryConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := rc.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	cc, ok := conn.(contextConn)
	if !ok {
		conn.Close()
		return nil, errors.Errorf("sqlite driver connection %T does not support contexts", conn)
	}
	return &retryConn{contextConn: cc, retrier: rc.retrier}, nil
}

type retryConn struct {
	contextConn
	retrier busyRetrier
}

func (c *retryConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	var tx driver.Tx
	err := c.retrier.do(ctx, func() error {
		var err error
		tx, err = c.contextConn.BeginTx(ctx, opts)
		return err
	})
	return tx, err
}

func (c *retryConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	var result driver.Result
	err := c.retrier.do(ctx, func() error {
		var err error
		result, err = c.contextConn.ExecContext(ctx, query, args)
		return err
	})
	return result, err
}

func (c *retryConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	var rows driver.Rows
	err := c.retrier.do(ctx, func() error {
		var err error
		rows, err = c.contextConn.QueryContext(ctx, query, args)
		return err
	})
	return rows, err
}
