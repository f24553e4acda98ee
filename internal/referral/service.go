package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/boostbuddy/boostline/internal/clock"
)

// CodeLength is the referral token length.
const CodeLength = 6

// ErrorCode is the sentinel returned when token generation fails; callers
// must log it and skip crediting rather than persist it.
const ErrorCode = "ERROR"

const creditNotification = "✅ Your referral count has been incremented!"

// Service implements the referral ledger workflow.
type Service struct {
	store     Store
	campaigns CampaignChecker
	notifier  Notifier
	civil     *clock.Civil
	validate  *validator.Validate
	logger    *slog.Logger

	// botNumber and defaultCampaign feed the invitation deep link.
	botNumber       string
	defaultCampaign string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a referral Service.
func NewService(log *slog.Logger, store Store, campaigns CampaignChecker, notifier Notifier, civil *clock.Civil, botNumber, defaultCampaign string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:           store,
		campaigns:       campaigns,
		notifier:        notifier,
		civil:           civil,
		validate:        validator.New(),
		logger:          log.With(slog.String("service", "referral")),
		botNumber:       botNumber,
		defaultCampaign: defaultCampaign,
		locks:           map[string]*sync.Mutex{},
	}
}

// codeLock serializes crediting per referral code. The stored check-then-write
// is not atomic on its own; this closes the window inside one process.
func (s *Service) codeLock(code string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[code]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[code] = lock
	}
	return lock
}

// GenerateCode returns a random token of length uppercase letters.
func GenerateCode(length int) string {
	if length <= 0 {
		return ErrorCode
	}
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	token := make([]byte, length)
	for i := range token {
		token[i] = letters[rand.Intn(len(letters))]
	}
	return string(token)
}

// IsAlreadyCredited reports whether address has been credited against code.
// Fail-closed: a missing record, a store error, or a record that fails
// schema validation all count as already credited.
func (s *Service) IsAlreadyCredited(ctx context.Context, address, code string) bool {
	record, err := s.store.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("credit check: unknown referral code", slog.String("code", code))
		return true
	}
	if err != nil {
		s.logger.Error("credit check failed, treating as credited",
			slog.String("code", code), slog.Any("error", err))
		return true
	}
	if err := s.validate.Struct(record); err != nil {
		s.logger.Error("credit check: stored referral record invalid, treating as credited",
			slog.String("code", code), slog.Any("error", err))
		return true
	}
	for _, user := range record.ReferredUsers {
		if user.Address == address {
			return true
		}
	}
	return false
}

// Credit appends address to the code's referred list and adds exactly one
// point. Callers must gate on IsAlreadyCredited first.
func (s *Service) Credit(ctx context.Context, code, address string) error {
	if err := s.store.AddReferredUser(ctx, code, ReferredUser{
		Address:   address,
		Timestamp: s.civil.Now(),
	}); err != nil {
		return fmt.Errorf("add referred user: %w", err)
	}
	if err := s.store.IncrementPoints(ctx, code); err != nil {
		return fmt.Errorf("increment points: %w", err)
	}
	s.logger.Info("referral credited", slog.String("code", code), slog.String("address", address))
	return nil
}

// Workflow handles one referral-path message: credit the inbound code if it
// is fresh, then make sure the sender has a code of their own and return the
// invitation text. Credit-side failures are logged and never block the
// invitation.
func (s *Service) Workflow(ctx context.Context, message, address string, referrer ReferrerContext) (string, error) {
	campaignCode, referralCode := ExtractCodes(message)
	s.logger.Info("referral workflow",
		slog.String("address", address),
		slog.String("campaign", campaignCode),
		slog.String("code", referralCode))

	if campaignCode == "" {
		s.logger.Warn("missing campaign code", slog.String("address", address))
	}
	s.checkCampaign(ctx, campaignCode)

	if referralCode == "" {
		s.logger.Warn("missing referral code", slog.String("address", address))
	} else {
		s.creditIfFresh(ctx, referralCode, address)
	}

	record, err := s.store.GetByReferrer(ctx, address)
	if err == nil {
		return s.invitation(record.Code), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("referrer lookup %s: %w", address, err)
	}

	newCode := GenerateCode(CodeLength)
	if newCode == ErrorCode {
		return "", fmt.Errorf("referral code generation failed for %s", address)
	}
	newRecord := Record{
		Code:            newCode,
		ReferrerAddress: address,
		ReferrerName:    referrer.Name,
		ReferrerEmail:   referrer.Email,
		Points:          0,
		CampaignID:      campaignCode,
		ReferredUsers:   []ReferredUser{},
	}
	if err := s.store.Insert(ctx, newRecord); err != nil {
		return "", fmt.Errorf("insert referral for %s: %w", address, err)
	}
	s.logger.Info("new referral record created",
		slog.String("address", address), slog.String("code", newCode))
	return s.invitation(newCode), nil
}

func (s *Service) checkCampaign(ctx context.Context, campaignCode string) {
	if s.campaigns == nil {
		return
	}
	active, err := s.campaigns.IsActive(ctx, campaignCode)
	if err != nil {
		s.logger.Warn("campaign status check failed", slog.String("campaign", campaignCode), slog.Any("error", err))
		return
	}
	if !active {
		s.logger.Warn("campaign not active or invalid", slog.String("campaign", campaignCode))
	}
}

func (s *Service) creditIfFresh(ctx context.Context, code, address string) {
	lock := s.codeLock(code)
	lock.Lock()
	defer lock.Unlock()

	if s.IsAlreadyCredited(ctx, address, code) {
		s.logger.Warn("already credited with this code",
			slog.String("code", code), slog.String("address", address))
		return
	}
	if err := s.Credit(ctx, code, address); err != nil {
		s.logger.Error("crediting failed", slog.String("code", code), slog.Any("error", err))
		return
	}
	s.notifyReferrer(ctx, code)
}

func (s *Service) notifyReferrer(ctx context.Context, code string) {
	if s.notifier == nil {
		return
	}
	record, err := s.store.GetByCode(ctx, code)
	if err != nil {
		s.logger.Warn("referrer lookup for notification failed", slog.String("code", code), slog.Any("error", err))
		return
	}
	if strings.TrimSpace(record.ReferrerAddress) == "" {
		return
	}
	if err := s.notifier.Send(ctx, record.ReferrerAddress, creditNotification); err != nil {
		s.logger.Warn("referrer notification failed",
			slog.String("address", record.ReferrerAddress), slog.Any("error", err))
	}
}

// Invite returns the invitation text for an address, minting a record first
// if the address has never referred anyone.
func (s *Service) Invite(ctx context.Context, address string, referrer ReferrerContext) (string, error) {
	record, err := s.store.GetByReferrer(ctx, address)
	if err == nil {
		return s.invitation(record.Code), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	return s.Workflow(ctx, "", address, referrer)
}

func (s *Service) invitation(code string) string {
	shareText := fmt.Sprintf(
		"👋 Hi! I'm inviting you to try *Boost Buddy WhatsApp Bot* 🚀 "+
			"It's super useful and easy to use.  \n"+
			"Here's your referral code: (Referral code: _%s-%s_) 🎉  \n"+
			"👉 Just send this code to get started!",
		s.defaultCampaign, code,
	)
	link := fmt.Sprintf("https://wa.me/%s/?text=%s", s.botNumber, url.QueryEscape(shareText))
	return fmt.Sprintf(
		"🎉 Thank you for being part of Boost Buddy! 🎉\n\n"+
			"Share this exclusive referral code with your friends and family:\n\n"+
			"🔑 %s\n\n"+
			"Every time they shop using your code, you both get amazing rewards! 🛍️✨\n"+
			"Start sharing now and enjoy great savings together! 💸",
		link,
	)
}
