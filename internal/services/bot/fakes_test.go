package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/tier"
	"github.com/magabrotheeeer/premium-gate-bot/internal/metrics"
	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
	"github.com/magabrotheeeer/premium-gate-bot/internal/storage"
)

const (
	testAdminID   = int64(1001)
	testUserID    = int64(42)
	testReceiptID = "9b2f3c1e-8a61-4f4e-9d4b-2f1e0c7a5b11"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

// memRepo хранилище в памяти с теми же правилами, что и PostgreSQL.
type memRepo struct {
	mu       sync.Mutex
	users    map[int64]models.User
	subs     map[int64]models.Subscription
	receipts map[string]models.Receipt
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:    map[int64]models.User{},
		subs:     map[int64]models.Subscription{},
		receipts: map[string]models.Receipt{},
	}
}

func (r *memRepo) GetOrCreateUser(_ context.Context, u models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[u.ID]
	if !ok {
		stored = models.User{ID: u.ID, CreatedAt: testNow}
	}
	if u.FullName != "" {
		stored.FullName = u.FullName
	}
	if u.Username != "" {
		stored.Username = u.Username
	}
	r.users[u.ID] = stored
	return &stored, nil
}

func (r *memRepo) AddSubscription(_ context.Context, sub models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.UserID] = sub
	return nil
}

func (r *memRepo) RemoveSubscription(_ context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[userID]; !ok {
		return 0, nil
	}
	delete(r.subs, userID)
	return 1, nil
}

func (r *memRepo) ListSubscribers(_ context.Context) ([]*models.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Subscriber
	for id, sub := range r.subs {
		u := r.users[id]
		out = append(out, &models.Subscriber{
			UserID: id, Username: u.Username, FullName: u.FullName, Tier: sub.Tier, ExpireDate: sub.ExpireDate,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *memRepo) CreateReceipt(_ context.Context, rc models.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts[rc.ID] = rc
	return nil
}

func (r *memRepo) GetReceipt(_ context.Context, id string) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.receipts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &rc, nil
}

func (r *memRepo) LatestSubmittedReceipt(_ context.Context, userID int64) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.Receipt
	for _, rc := range r.receipts {
		if rc.UserID != userID || rc.Status != models.ReceiptSubmitted {
			continue
		}
		if latest == nil || rc.CreatedAt.After(latest.CreatedAt) {
			c := rc
			latest = &c
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest, nil
}

func (r *memRepo) ReviewReceipt(_ context.Context, id string, status models.ReceiptStatus, reviewedAt time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.receipts[id]
	if !ok || rc.Status != models.ReceiptSubmitted {
		return 0, nil
	}
	rc.Status = status
	rc.ReviewedAt = &reviewedAt
	r.receipts[id] = rc
	return 1, nil
}

type memSelections struct {
	mu   sync.Mutex
	data map[int64]string
}

func newMemSelections() *memSelections {
	return &memSelections{data: map[int64]string{}}
}

func (m *memSelections) SaveSelection(_ context.Context, userID int64, t string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = t
	return nil
}

func (m *memSelections) Selection(_ context.Context, userID int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.data[userID]
	return t, ok, nil
}

func (m *memSelections) ClearSelection(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	return nil
}

// outgoing одно исходящее сообщение.
type outgoing struct {
	ChatID    int64
	Kind      string // text, menu, review, receipt
	Text      string
	Buttons   []string
	ReceiptID string
	FileURL   string
}

// recordingMessenger запоминает исходящие сообщения. Ошибку sendErr
// возвращает SendText.
type recordingMessenger struct {
	mu        sync.Mutex
	sent      []outgoing
	callbacks []string
	sendErr   error
}

func (m *recordingMessenger) add(s outgoing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
}

func (m *recordingMessenger) SendText(_ context.Context, chatID int64, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.add(outgoing{ChatID: chatID, Kind: "text", Text: text})
	return nil
}

func (m *recordingMessenger) SendMenu(_ context.Context, chatID int64, text string, buttons []string) error {
	m.add(outgoing{ChatID: chatID, Kind: "menu", Text: text, Buttons: buttons})
	return nil
}

func (m *recordingMessenger) SendReviewRequest(_ context.Context, chatID int64, text, receiptID string) error {
	m.add(outgoing{ChatID: chatID, Kind: "review", Text: text, ReceiptID: receiptID})
	return nil
}

func (m *recordingMessenger) SendReceipt(_ context.Context, chatID int64, r models.Receipt, fileURL string) error {
	m.add(outgoing{ChatID: chatID, Kind: "receipt", ReceiptID: r.ID, FileURL: fileURL})
	return nil
}

func (m *recordingMessenger) FileURL(_ context.Context, fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (m *recordingMessenger) AnswerCallback(_ context.Context, callbackID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callbackID)
	return nil
}

// to возвращает сообщения, отправленные в чат chatID.
func (m *recordingMessenger) to(chatID int64) []outgoing {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outgoing
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (m *recordingMessenger) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

type ChannelMock struct{ mock.Mock }

func (m *ChannelMock) IsMember(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelMock) Grant(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *ChannelMock) Revoke(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type testEnv struct {
	svc        *Service
	repo       *memRepo
	selections *memSelections
	messenger  *recordingMessenger
	channel    *ChannelMock
	metrics    *metrics.Metrics
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:       newMemRepo(),
		selections: newMemSelections(),
		messenger:  &recordingMessenger{},
		channel:    new(ChannelMock),
		metrics:    metrics.New(prometheus.NewRegistry()),
	}
	env.svc = NewService(env.repo, env.selections, env.messenger, env.channel,
		Settings{AdminID: testAdminID, Card: "8600 0000 0000 0000", CardOwner: "Test Owner", Tiers: tier.Default},
		env.metrics, newNoopLogger())
	env.svc.now = func() time.Time { return testNow }
	env.svc.newID = func() string { return testReceiptID }
	t.Cleanup(func() { env.channel.AssertExpectations(t) })
	return env
}

func textEvent(sender int64, text string) models.Event {
	return models.Event{SenderID: sender, FullName: "Ali Valiyev", Username: "ali", Kind: models.EventText, Text: text}
}

func commandEvent(sender int64, command, args string) models.Event {
	ev := textEvent(sender, "/"+command+" "+args)
	ev.Command = command
	ev.Args = args
	return ev
}

func photoEvent(sender int64, fileID string) models.Event {
	return models.Event{SenderID: sender, FullName: "Ali Valiyev", Username: "ali", Kind: models.EventPhoto, FileID: fileID}
}

func callbackEvent(sender int64, data string) models.Event {
	return models.Event{SenderID: sender, Kind: models.EventCallback, Text: data, CallbackID: "cb-" + data}
}
