package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"tinbox/internal/guard"
	"tinbox/internal/infrastructure/database"
	"tinbox/internal/model"
	"tinbox/internal/pending"
	"tinbox/internal/repository"
	"tinbox/internal/store"
)

const testSecret = "s3cret"

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRepo(t *testing.T) *repository.DonationRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	repo := repository.NewDonationRepository(db)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func newTestService(t *testing.T, st store.RecordStore) (*DonationService, *pending.MemoryStore) {
	t.Helper()
	g, err := guard.New(testSecret)
	require.NoError(t, err)
	p := pending.NewMemoryStore()
	return NewDonationService(st, g, p, time.Minute, quietLogger()), p
}

func seed(t *testing.T, st store.RecordStore, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := st.Add(context.Background(), model.DonationFields{StoreName: name, Location: "Souq", Collected: model.CollectedNo})
		require.NoError(t, err)
	}
}

var errBackend = errors.New("backend unavailable")

// flakyStore wraps a RecordStore and fails the operations switched on.
type flakyStore struct {
	store.RecordStore
	failList   bool
	failDelete bool
	failAdd    bool
	calls      int
}

func (f *flakyStore) Add(ctx context.Context, fields model.DonationFields) (int64, error) {
	f.calls++
	if f.failAdd {
		return 0, errBackend
	}
	return f.RecordStore.Add(ctx, fields)
}

func (f *flakyStore) List(ctx context.Context) ([]model.Donation, error) {
	if f.failList {
		return nil, errBackend
	}
	return f.RecordStore.List(ctx)
}

func (f *flakyStore) Update(ctx context.Context, id int64, fields model.DonationFields) error {
	f.calls++
	return f.RecordStore.Update(ctx, id, fields)
}

func (f *flakyStore) Delete(ctx context.Context, id int64) error {
	f.calls++
	if f.failDelete {
		return errBackend
	}
	return f.RecordStore.Delete(ctx, id)
}
