package sheet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"tinbox/internal/model"
	"tinbox/internal/store"
)

var ErrNotInitialized = errors.New("sheet is missing its header row; run initialize first")

// table is one open view of a spreadsheet. Row numbers are 1-based and
// row 1 is the header.
type table interface {
	EnsureLayout(ctx context.Context) error
	Rows(ctx context.Context) ([][]string, error)
	SetRow(ctx context.Context, row int, values []interface{}) error
	DeleteRow(ctx context.Context, row int) error
	NextID(ctx context.Context) (int64, bool, error)
	SetNextID(ctx context.Context, id int64) error
}

// backend opens a table for the duration of fn. Writes are committed only
// if fn succeeds, where the backend supports it.
type backend interface {
	Session(ctx context.Context, write bool, fn func(t table) error) error
}

// Locker serializes read-modify-write cycles on one sheet.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// MutexLocker is a process-local Locker.
type MutexLocker struct {
	mu sync.Mutex
}

func (l *MutexLocker) Lock(ctx context.Context, _ string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	return l.mu.Unlock, nil
}

// Store is a RecordStore over a spreadsheet backend.
type Store struct {
	backend backend
	locker  Locker
	lockKey string
}

var _ store.RecordStore = (*Store)(nil)

func newStore(b backend, locker Locker, lockKey string) *Store {
	if locker == nil {
		locker = &MutexLocker{}
	}
	return &Store{backend: b, locker: locker, lockKey: "tinbox:sheet:lock:" + lockKey}
}

func (s *Store) Initialize(ctx context.Context) error {
	return s.mutate(ctx, func(t table) error {
		return t.EnsureLayout(ctx)
	})
}

func (s *Store) Add(ctx context.Context, fields model.DonationFields) (int64, error) {
	var id int64
	err := s.mutate(ctx, func(t table) error {
		rows, err := t.Rows(ctx)
		if err != nil {
			return err
		}
		if !headerPresent(rows) {
			return ErrNotInitialized
		}

		records := decodeRows(rows)
		next, ok, err := t.NextID(ctx)
		if err != nil {
			return err
		}
		if floor := maxID(records) + 1; !ok || next < floor {
			next = floor
		}

		// Advance the counter before writing the row: a failed row write
		// burns an id instead of risking its reuse.
		if err := t.SetNextID(ctx, next+1); err != nil {
			return err
		}

		donation := model.NewDonation(fields)
		donation.ID = next
		if err := t.SetRow(ctx, len(rows)+1, EncodeRow(*donation)); err != nil {
			return err
		}
		id = next
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append donation row: %w", err)
	}
	return id, nil
}

func (s *Store) List(ctx context.Context) ([]model.Donation, error) {
	var out []model.Donation
	err := s.backend.Session(ctx, false, func(t table) error {
		rows, err := t.Rows(ctx)
		if err != nil {
			return err
		}
		for _, r := range decodeRows(rows) {
			out = append(out, r.donation)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read donation rows: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*model.Donation, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) Update(ctx context.Context, id int64, fields model.DonationFields) error {
	err := s.mutate(ctx, func(t table) error {
		row, err := findRow(ctx, t, id)
		if err != nil {
			return err
		}
		if row == 0 {
			return store.ErrNotFound
		}

		donation := model.NewDonation(fields)
		donation.ID = id
		return t.SetRow(ctx, row, EncodeRow(*donation))
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update donation row %d: %w", id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	err := s.mutate(ctx, func(t table) error {
		row, err := findRow(ctx, t, id)
		if err != nil || row == 0 {
			return err
		}
		return t.DeleteRow(ctx, row)
	})
	if err != nil {
		return fmt.Errorf("delete donation row %d: %w", id, err)
	}
	return nil
}

func (s *Store) mutate(ctx context.Context, fn func(t table) error) error {
	unlock, err := s.locker.Lock(ctx, s.lockKey)
	if err != nil {
		return fmt.Errorf("lock sheet: %w", err)
	}
	defer unlock()
	return s.backend.Session(ctx, true, fn)
}

// findRow returns the row holding id, or 0 when there is none.
func findRow(ctx context.Context, t table, id int64) (int, error) {
	rows, err := t.Rows(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range decodeRows(rows) {
		if r.donation.ID == id {
			return r.row, nil
		}
	}
	return 0, nil
}

func parseNextID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
