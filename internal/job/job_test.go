package job

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinbox/internal/infrastructure/database"
	"tinbox/internal/infrastructure/mq"
	"tinbox/internal/model"
	"tinbox/internal/pending"
	"tinbox/internal/repository"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newOutboxRepo(t *testing.T) *repository.OutboxRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:job_%s?mode=memory&cache=shared", name), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(&model.OutboxMessage{}))
	return repository.NewOutboxRepository(db)
}

func enqueue(t *testing.T, repo *repository.OutboxRepository, key string, retries int) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), nil, &model.OutboxMessage{
		MessageKey: key,
		Topic:      "donation-events",
		Payload:    `{"type":"DONATION_CREATED"}`,
		Status:     model.OutboxStatusPending,
		RetryCount: retries,
	}))
}

type senderFunc func(topic, key, value string) error

func (f senderFunc) SendMessage(topic, key, value string) error {
	return f(topic, key, value)
}

func TestOutboxSender_RemovesSentMessages(t *testing.T) {
	repo := newOutboxRepo(t)
	ctx := context.Background()
	enqueue(t, repo, "EVT1", 0)
	enqueue(t, repo, "EVT2", 0)

	producer := mocks.NewSyncProducer(t, mq.ProducerConfig())
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	s := NewOutboxSender(repo, mq.NewPublisher(producer), time.Second, 3, quietLogger())
	s.processPendingMessages(ctx)

	n, err := repo.CountByStatus(ctx, model.OutboxStatusPending)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, producer.Close())
}

func TestOutboxSender_RetriesThenFails(t *testing.T) {
	repo := newOutboxRepo(t)
	ctx := context.Background()
	enqueue(t, repo, "EVT1", 0)

	var keys []string
	s := NewOutboxSender(repo, senderFunc(func(_, key, _ string) error {
		keys = append(keys, key)
		return sarama.ErrOutOfBrokers
	}), time.Second, 2, quietLogger())

	s.processPendingMessages(ctx)
	msgs, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, msgs[0].RetryCount)

	s.processPendingMessages(ctx)
	n, err := repo.CountByStatus(ctx, model.OutboxStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// failed messages are no longer picked up
	s.processPendingMessages(ctx)
	assert.Equal(t, []string{"EVT1", "EVT1"}, keys)
}

func TestOutboxSender_StartStops(t *testing.T) {
	repo := newOutboxRepo(t)
	sent := make(chan string, 1)
	enqueue(t, repo, "EVT1", 0)

	s := NewOutboxSender(repo, senderFunc(func(_, key, _ string) error {
		select {
		case sent <- key:
		default:
		}
		return nil
	}), 10*time.Millisecond, 3, quietLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	select {
	case key := <-sent:
		assert.Equal(t, "EVT1", key)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not relayed")
	}

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sender did not stop")
	}
}

func TestPendingSweeper_RemovesExpired(t *testing.T) {
	store := pending.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, pending.Confirmation{Token: "old", DonationID: 1, ExpiresAt: time.Now().Add(-time.Second)}))
	require.NoError(t, store.Put(ctx, pending.Confirmation{Token: "new", DonationID: 2, ExpiresAt: time.Now().Add(time.Hour)}))

	j := NewPendingSweeper(store, time.Minute, quietLogger())
	j.sweep()

	assert.Equal(t, 1, store.Len())
	_, err := store.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestPendingSweeper_StopsOnContext(t *testing.T) {
	j := NewPendingSweeper(pending.NewMemoryStore(), time.Millisecond, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not exit")
	}
}
