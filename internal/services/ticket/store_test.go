package ticket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-wallet/internal/services/storage"
	"ticket-wallet/internal/status"
	"ticket-wallet/models"
)

const testKey = "shreddr-tickets:device-1"

// flakyStorage wraps MemoryStorage and fails on demand.
type flakyStorage struct {
	*storage.MemoryStorage
	mu         sync.Mutex
	failReads  bool
	failWrites bool
}

func (f *flakyStorage) Read(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()
	if fail {
		return "", false, errors.New("storage offline")
	}
	return f.MemoryStorage.Read(ctx, key)
}

func (f *flakyStorage) Update(ctx context.Context, key string, fn storage.UpdateFunc) (string, error) {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return "", errors.New("quota exceeded")
	}
	return f.MemoryStorage.Update(ctx, key, fn)
}

func testTicket(id, eventID string) models.SignedTicket {
	return models.SignedTicket{
		Payload: models.TicketPayload{
			EventID:     eventID,
			EventName:   "Neon Nights",
			EventDate:   "2025-04-01T20:00:00.000Z",
			TicketID:    id,
			PurchasedAt: "2025-03-14T18:30:00.000Z",
			OwnerWallet: "wallet-1",
		},
		Signature: "sig-" + id,
		PublicKey: "wallet-1",
	}
}

func TestStore_EmptyLookups(t *testing.T) {
	s := NewStore(storage.NewMemoryStorage(), testKey)
	require.False(t, s.Load(context.Background()).Degraded)

	_, ok := s.GetByTicketID("TKT-1-2")
	assert.False(t, ok)
	assert.Empty(t, s.GetByEventID("evt-1"))
	assert.NotNil(t, s.GetByEventID("evt-1"))
	assert.Empty(t, s.All())
}

func TestStore_AddAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryStorage(), testKey)

	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))
	require.NoError(t, s.Add(ctx, testTicket("T2", "evt-2")))
	require.NoError(t, s.Add(ctx, testTicket("T3", "evt-1")))

	got, ok := s.GetByTicketID("T2")
	require.True(t, ok)
	assert.Equal(t, "evt-2", got.Payload.EventID)

	byEvent := s.GetByEventID("evt-1")
	require.Len(t, byEvent, 2)
	assert.Equal(t, "T1", byEvent[0].Payload.TicketID)
	assert.Equal(t, "T3", byEvent[1].Payload.TicketID)
	assert.Len(t, s.All(), 3)
}

func TestStore_Add_RejectsEmptyID(t *testing.T) {
	s := NewStore(storage.NewMemoryStorage(), testKey)

	err := s.Add(context.Background(), testTicket("", "evt-1"))

	assert.ErrorIs(t, err, status.ErrInvalidPayload)
}

func TestStore_DuplicateAdd_FirstWins(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryStorage(), testKey)

	first := testTicket("T1", "evt-1")
	second := testTicket("T1", "evt-2")
	require.NoError(t, s.Add(ctx, first))
	require.NoError(t, s.Add(ctx, second))

	got, ok := s.GetByTicketID("T1")
	require.True(t, ok)
	assert.Equal(t, "evt-1", got.Payload.EventID)
	assert.Len(t, s.All(), 2)
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()

	s := NewStore(st, testKey)
	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))
	require.NoError(t, s.Add(ctx, testTicket("T2", "evt-1")))

	reloaded := NewStore(st, testKey)
	result := reloaded.Load(ctx)

	assert.False(t, result.Degraded)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, s.All(), reloaded.All())
}

func TestStore_Redeem_Idempotent(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2025, 4, 1, 19, 45, 0, 0, time.UTC)
	clock := first
	s := NewStore(storage.NewMemoryStorage(), testKey, WithStoreClock(func() time.Time { return clock }))

	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))

	r1, err := s.Redeem(ctx, "T1")
	require.NoError(t, err)
	assert.False(t, r1.AlreadyRedeemed)
	assert.True(t, r1.Ticket.Redeemed)
	require.NotNil(t, r1.Ticket.RedeemedAt)
	assert.Equal(t, first, *r1.Ticket.RedeemedAt)

	clock = first.Add(10 * time.Minute)
	r2, err := s.Redeem(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, r2.AlreadyRedeemed)
	assert.Equal(t, first, *r2.Ticket.RedeemedAt)

	stored, _ := s.GetByTicketID("T1")
	assert.Equal(t, first, *stored.RedeemedAt)
}

func TestStore_Redeem_NotFound(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	s := NewStore(st, testKey)
	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))

	_, err := s.Redeem(ctx, "missing")

	assert.ErrorIs(t, err, status.ErrTicketNotFound)
	assert.False(t, errors.Is(err, status.ErrStorageFailure))
	got, _ := s.GetByTicketID("T1")
	assert.False(t, got.Redeemed)
}

func TestStore_Redeem_PersistsRedemption(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	s := NewStore(st, testKey)
	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))
	_, err := s.Redeem(ctx, "T1")
	require.NoError(t, err)

	reloaded := NewStore(st, testKey)
	reloaded.Load(ctx)

	got, ok := reloaded.GetByTicketID("T1")
	require.True(t, ok)
	assert.True(t, got.Redeemed)
	assert.NotNil(t, got.RedeemedAt)
}

func TestStore_RedeemCode_SeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	scanner := NewStore(st, testKey)
	scanner.Load(ctx)

	wallet := NewStore(st, testKey)
	require.NoError(t, wallet.Add(ctx, testTicket("T1", "evt-1")))
	_, cached := scanner.GetByTicketID("T1")
	require.False(t, cached)

	got, err := scanner.RedeemCode(ctx, testTicket("T1", "evt-1").Code())
	require.NoError(t, err)
	assert.False(t, got.AlreadyRedeemed)
	assert.True(t, got.Ticket.Redeemed)

	stored, ok := scanner.GetByTicketID("T1")
	require.True(t, ok)
	assert.True(t, stored.Redeemed)
}

func TestStore_RedeemCode_SignatureMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryStorage(), testKey)
	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))

	code := testTicket("T1", "evt-1").Code()
	code.Signature = "forged"
	_, err := s.RedeemCode(ctx, code)

	assert.ErrorIs(t, err, status.ErrTicketNotFound)
	got, _ := s.GetByTicketID("T1")
	assert.False(t, got.Redeemed)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	s := NewStore(st, testKey)
	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))

	require.NoError(t, s.Clear(ctx))

	assert.Empty(t, s.All())
	raw, found, err := st.Read(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", raw)
}

func TestStore_Load_CorruptDataDegrades(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	require.NoError(t, st.Write(ctx, testKey, "{not json"))

	s := NewStore(st, testKey)
	result := s.Load(ctx)

	assert.True(t, result.Degraded)
	assert.ErrorIs(t, result.Err, status.ErrStorageFailure)
	assert.Empty(t, s.All())

	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))
	assert.Len(t, s.All(), 1)
}

func TestStore_Load_ReadFailureDegrades(t *testing.T) {
	st := &flakyStorage{MemoryStorage: storage.NewMemoryStorage(), failReads: true}

	result := NewStore(st, testKey).Load(context.Background())

	assert.True(t, result.Degraded)
	assert.Contains(t, result.Err.Error(), "storage offline")
}

func TestStore_WriteFailure_LeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	st := &flakyStorage{MemoryStorage: storage.NewMemoryStorage()}
	s := NewStore(st, testKey)
	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))

	st.failWrites = true
	err := s.Add(ctx, testTicket("T2", "evt-1"))

	assert.ErrorIs(t, err, status.ErrStorageFailure)
	assert.Len(t, s.All(), 1)
	_, ok := s.GetByTicketID("T2")
	assert.False(t, ok)
}

func TestStore_MergesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()

	tabA := NewStore(st, testKey)
	tabB := NewStore(st, testKey)
	tabA.Load(ctx)
	tabB.Load(ctx)

	require.NoError(t, tabA.Add(ctx, testTicket("A1", "evt-1")))
	require.NoError(t, tabB.Add(ctx, testTicket("B1", "evt-1")))

	fresh := NewStore(st, testKey)
	fresh.Load(ctx)
	assert.Len(t, fresh.All(), 2)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryStorage(), testKey)
	require.NoError(t, s.Add(ctx, testTicket("T1", "evt-1")))

	all := s.All()
	all[0].Payload.EventName = "changed"

	got, _ := s.GetByTicketID("T1")
	assert.Equal(t, "Neon Nights", got.Payload.EventName)
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "shreddr-tickets:device-1", StorageKey("shreddr", "device-1"))
}
