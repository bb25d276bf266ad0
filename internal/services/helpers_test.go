package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"rental-service/internal/config"
	"rental-service/internal/database/minio"
	"rental-service/internal/event"
	"rental-service/internal/metrics"
	"rental-service/internal/models"
	"rental-service/internal/repository"
	"rental-service/internal/security"
	"rental-service/internal/testutil"
)

type sentMail struct {
	To, Title, Body string
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]bool
}

func (m *fakeMailer) Send(to, _, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[to] {
		return errors.New("smtp: mailbox unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Title: title, Body: body})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []event.NotificationEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, evt event.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (b *fakeBlobs) UploadFile(_ context.Context, bucket, object string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[bucket+"/"+object] = data
	return nil
}

func (b *fakeBlobs) GetFile(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[bucket+"/"+object]
	if !ok {
		return nil, minio.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlobs) DeleteFile(_ context.Context, bucket, object string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, bucket+"/"+object)
	return nil
}

func (b *fakeBlobs) GetPresignedURL(_ context.Context, bucket, object string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + bucket + "/" + object + "?sig=test", nil
}

func (b *fakeBlobs) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// harness wires every service over one throwaway database.
type harness struct {
	t   *testing.T
	ctx context.Context
	db  *sqlx.DB
	now time.Time

	userRepo         *repository.UserRepository
	apartmentRepo    *repository.ApartmentRepository
	billingRepo      *repository.BillingRepository
	notificationRepo *repository.NotificationRepository

	mailer    *fakeMailer
	publisher *fakePublisher
	blobs     *fakeBlobs
	metrics   *metrics.Metrics

	users         *UserService
	notifications *NotificationService
	files         *FileService
	apartments    *ApartmentService
	contracts     *ContractService
	billings      *BillingService
	payments      *PaymentService
	bids          *BidService
	sweep         *SweepService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	h := &harness{
		t:         t,
		ctx:       context.Background(),
		db:        db,
		now:       time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC),
		mailer:    &fakeMailer{failTo: map[string]bool{}},
		publisher: &fakePublisher{},
		blobs:     newFakeBlobs(),
		metrics:   metrics.New(),
	}

	h.userRepo = repository.NewUserRepository(db)
	h.apartmentRepo = repository.NewApartmentRepository(db)
	h.billingRepo = repository.NewBillingRepository(db)
	h.notificationRepo = repository.NewNotificationRepository(db)
	contractRepo := repository.NewContractRepository(db)

	cipher, err := security.NewFieldCipher("test-pii-key")
	require.NoError(t, err)

	h.users = NewUserService(h.userRepo,
		NewSessionService(repository.NewMemorySessionRepository(time.Hour)),
		NewJWTService("test-secret", time.Hour),
		cipher,
		config.AuthConfig{MaxLoginAttempts: 3, LockoutDuration: 15 * time.Minute})
	h.notifications = NewNotificationService(h.notificationRepo, h.userRepo, h.mailer, h.publisher, h.metrics)
	h.files = NewFileService(repository.NewFileRepository(db), h.blobs,
		config.UploadConfig{MaxImageMB: 1, MaxPDFMB: 1, MaxVideoMB: 1, MaxDocMB: 1}, time.Minute)
	h.apartments = NewApartmentService(db, h.apartmentRepo, h.userRepo, contractRepo, h.files)
	h.contracts = NewContractService(db, contractRepo, h.apartmentRepo, h.notifications)
	h.billings = NewBillingService(db, h.billingRepo, contractRepo, h.apartmentRepo, h.notifications, h.metrics)
	h.payments = NewPaymentService(db, repository.NewPaymentRepository(db), h.billingRepo, h.userRepo, h.notifications, h.metrics)
	h.bids = NewBidService(db, repository.NewBidRepository(db), h.apartmentRepo, h.apartments, h.notifications)
	h.sweep = NewSweepService(h.billingRepo, repository.NewReminderRepository(db), h.notifications, nil, time.Minute, h.metrics)

	clock := func() time.Time { return h.now }
	h.notifications.now = clock
	h.files.now = clock
	h.apartments.now = clock
	h.contracts.now = clock
	h.billings.now = clock
	h.payments.now = clock
	h.bids.now = clock
	h.sweep.now = clock
	return h
}

func (h *harness) user(role models.UserRole) models.Actor {
	h.t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "unused",
		FullName:     "Test " + string(role),
		Role:         role,
		Status:       models.UserActive,
		Balance:      decimal.Zero,
		CreatedAt:    h.now.Unix(),
		UpdatedAt:    h.now.Unix(),
	}
	require.NoError(h.t, h.userRepo.Create(h.ctx, u))
	return u.Actor()
}

// apartment lists rent 1000 with 200 of utilities, optionally with tenants.
func (h *harness) apartment(owner models.Actor, tenants ...models.Actor) *models.Apartment {
	h.t.Helper()
	apt, err := h.apartments.Create(h.ctx, owner, models.CreateApartmentRequest{
		Title:   "Flat " + uuid.NewString()[:4],
		Address: "1 Main St",
		Rent:    decimal.NewFromInt(1000),
		Utilities: models.Utilities{
			Water:       decimal.NewFromInt(80),
			Electricity: decimal.NewFromInt(120),
		},
	}, nil)
	require.NoError(h.t, err)
	for _, tenant := range tenants {
		apt, err = h.apartments.AddTenant(h.ctx, owner, apt.ID, tenant.UserID)
		require.NoError(h.t, err)
	}
	return apt
}

func (h *harness) notificationsOf(userID string, kind models.NotificationType) []models.Notification {
	h.t.Helper()
	items, _, err := h.notificationRepo.ListByUser(h.ctx, userID, false, 100, 0)
	require.NoError(h.t, err)
	var out []models.Notification
	for _, n := range items {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

func (h *harness) balanceOf(userID string) string {
	h.t.Helper()
	u, err := h.userRepo.GetByID(h.ctx, userID)
	require.NoError(h.t, err)
	return u.Balance.StringFixed(2)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
