package repository

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned by every store when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a write collides with a unique key.
var ErrDuplicate = errors.New("duplicate record")

// QueryObserver receives the duration of store operations.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// Instrumentation is embedded by stores that report operation timings.
type Instrumentation struct {
	observer QueryObserver
}

// Instrument attaches the observer notified after each store operation.
func (i *Instrumentation) Instrument(observer QueryObserver) {
	i.observer = observer
}

// Observe reports the time elapsed since start under label.
func (i *Instrumentation) Observe(label string, start time.Time) {
	if i == nil || i.observer == nil {
		return
	}
	i.observer.ObserveDBQuery(label, time.Since(start))
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
