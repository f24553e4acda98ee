package referral

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boostbuddy/boostline/internal/clock"
)

type fakeStore struct {
	byCode    map[string]*Record
	getErr    error
	insertErr error
}

func newFakeStore(records ...Record) *fakeStore {
	s := &fakeStore{byCode: map[string]*Record{}}
	for i := range records {
		r := records[i]
		s.byCode[r.Code] = &r
	}
	return s
}

func (s *fakeStore) GetByCode(_ context.Context, code string) (Record, error) {
	if s.getErr != nil {
		return Record{}, s.getErr
	}
	r, ok := s.byCode[code]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *r, nil
}

func (s *fakeStore) GetByReferrer(_ context.Context, address string) (Record, error) {
	for _, r := range s.byCode {
		if r.ReferrerAddress == address {
			return *r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *fakeStore) Insert(_ context.Context, record Record) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.byCode[record.Code] = &record
	return nil
}

func (s *fakeStore) AddReferredUser(_ context.Context, code string, user ReferredUser) error {
	r, ok := s.byCode[code]
	if !ok {
		return ErrNotFound
	}
	r.ReferredUsers = append(r.ReferredUsers, user)
	return nil
}

func (s *fakeStore) IncrementPoints(_ context.Context, code string) error {
	r, ok := s.byCode[code]
	if !ok {
		return ErrNotFound
	}
	r.Points++
	return nil
}

type fakeCampaigns struct {
	active bool
	err    error
}

func (f *fakeCampaigns) IsActive(context.Context, string) (bool, error) { return f.active, f.err }

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(_ context.Context, address, text string) error {
	f.sent = append(f.sent, address+": "+text)
	return nil
}

func newTestService(store Store, notifier Notifier) *Service {
	civil, _ := clock.NewCivil("UTC")
	return NewService(slog.Default(), store, &fakeCampaigns{active: true}, notifier, civil, "15551304374", "QTMR")
}

func TestExtractCodes(t *testing.T) {
	tests := []struct {
		name         string
		message      string
		wantCampaign string
		wantCode     string
	}{
		{"exact wrapper", "(Referral code: _ABCD-ABCDEF_)", "ABCD", "ABCDEF"},
		{"embedded in text", "hey! (Referral code: _QTMR-ZZYYXX_) thanks", "QTMR", "ZZYYXX"},
		{"plain text", "Hi, how are you?", "", ""},
		{"lowercase tokens rejected", "(Referral code: _abcd-abcdef_)", "", ""},
		{"missing underscores", "(Referral code: ABCD-ABCDEF)", "", ""},
		{"wrong token lengths", "(Referral code: _ABC-ABCDE_)", "", ""},
		{"first match wins", "(Referral code: _AAAA-AAAAAA_) (Referral code: _BBBB-BBBBBB_)", "AAAA", "AAAAAA"},
		{"empty string", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			campaign, code := ExtractCodes(tt.message)
			assert.Equal(t, tt.wantCampaign, campaign)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestGenerateCode(t *testing.T) {
	code := GenerateCode(CodeLength)
	require.Len(t, code, CodeLength)
	for _, r := range code {
		assert.True(t, r >= 'A' && r <= 'Z', "unexpected rune %q", r)
	}
	assert.Equal(t, ErrorCode, GenerateCode(0))
}

func TestIsAlreadyCreditedFailClosed(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	// Unknown code: credited.
	assert.True(t, svc.IsAlreadyCredited(context.Background(), "9230", "NOSUCH"))

	// Store error: credited.
	broken := newFakeStore()
	broken.getErr = errors.New("store down")
	svc = newTestService(broken, nil)
	assert.True(t, svc.IsAlreadyCredited(context.Background(), "9230", "ABCDEF"))

	// Malformed stored record (lowercase code fails validation): credited.
	svc = newTestService(newFakeStore(Record{Code: "abcdef", ReferrerAddress: "1"}), nil)
	assert.True(t, svc.IsAlreadyCredited(context.Background(), "9230", "abcdef"))
}

func TestCreditingIsIdempotent(t *testing.T) {
	record := Record{
		Code:            "ABCDEF",
		ReferrerAddress: "923001111111",
		ReferredUsers:   []ReferredUser{{Address: "923002222222", Timestamp: "2025-01-01 10:00:00"}},
		Points:          1,
	}
	store := newFakeStore(record)
	svc := newTestService(store, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, svc.IsAlreadyCredited(ctx, "923002222222", "ABCDEF"))
	}
	got, err := store.GetByCode(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Points)
	assert.Len(t, got.ReferredUsers, 1)
}

func TestCreditAppendsAndIncrementsOnce(t *testing.T) {
	store := newFakeStore(Record{Code: "ABCDEF", ReferrerAddress: "923001111111"})
	svc := newTestService(store, nil)
	ctx := context.Background()

	require.False(t, svc.IsAlreadyCredited(ctx, "923003333333", "ABCDEF"))
	require.NoError(t, svc.Credit(ctx, "ABCDEF", "923003333333"))

	got, err := store.GetByCode(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Points)
	require.Len(t, got.ReferredUsers, 1)
	assert.Equal(t, "923003333333", got.ReferredUsers[0].Address)
	assert.NotEmpty(t, got.ReferredUsers[0].Timestamp)

	// Second pass must be a no-op.
	assert.True(t, svc.IsAlreadyCredited(ctx, "923003333333", "ABCDEF"))
	got, _ = store.GetByCode(ctx, "ABCDEF")
	assert.Equal(t, 1, got.Points)
}

func TestWorkflowCreditsReferrerAndMintsOwnCode(t *testing.T) {
	store := newFakeStore(Record{Code: "ABCDEF", ReferrerAddress: "923001111111"})
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)
	ctx := context.Background()

	reply, err := svc.Workflow(ctx, "(Referral code: _QTMR-ABCDEF_)", "923004444444", ReferrerContext{Name: "Ayan"})
	require.NoError(t, err)

	referrerRecord, _ := store.GetByCode(ctx, "ABCDEF")
	assert.Equal(t, 1, referrerRecord.Points)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "923001111111")

	// The sender got their own record and invitation.
	own, err := store.GetByReferrer(ctx, "923004444444")
	require.NoError(t, err)
	assert.Equal(t, "Ayan", own.ReferrerName)
	assert.Equal(t, 0, own.Points)
	assert.Contains(t, reply, "wa.me")
	assert.Contains(t, reply, own.Code)
}

func TestWorkflowInvalidInboundCodeStillReturnsInvitation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})

	reply, err := svc.Workflow(context.Background(), "(Referral code: _QTMR-NOSUCH_)", "923005555555", ReferrerContext{})
	require.NoError(t, err)
	assert.True(t, strings.Contains(reply, "wa.me"))

	own, err := store.GetByReferrer(context.Background(), "923005555555")
	require.NoError(t, err)
	assert.Empty(t, own.ReferredUsers)
}

func TestWorkflowReusesExistingRecord(t *testing.T) {
	store := newFakeStore(Record{Code: "ZZZZZZ", ReferrerAddress: "923006666666"})
	svc := newTestService(store, nil)

	reply, err := svc.Workflow(context.Background(), "no codes here", "923006666666", ReferrerContext{})
	require.NoError(t, err)
	assert.Contains(t, reply, "ZZZZZZ")
	assert.Len(t, store.byCode, 1)
}
