// Package bot orchestrates one inbound WhatsApp message end to end: history
// and dashboard logging, customer resolution, escalation gating, and the
// referral-or-agent reply path.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/boostbuddy/boostline/internal/agent"
	"github.com/boostbuddy/boostline/internal/broadcast"
	"github.com/boostbuddy/boostline/internal/clock"
	"github.com/boostbuddy/boostline/internal/customer"
	"github.com/boostbuddy/boostline/internal/history"
	"github.com/boostbuddy/boostline/internal/intent"
	"github.com/boostbuddy/boostline/internal/referral"
	"github.com/boostbuddy/boostline/internal/whatsapp"
)

// recentLimit bounds how much history feeds the routing and reply prompts.
const recentLimit = 20

// Resolver yields the canonical profile for an address.
type Resolver interface {
	Resolve(ctx context.Context, address string) (customer.Profile, error)
}

// Gateway is the messaging channel the bot receives from and replies through.
type Gateway interface {
	Receive(ctx context.Context, delivery whatsapp.Delivery, isVoice bool) (whatsapp.Inbound, error)
	Send(ctx context.Context, to, body string) error
}

// Referrals is the referral ledger surface the orchestrator drives.
type Referrals interface {
	Workflow(ctx context.Context, message, address string, referrer referral.ReferrerContext) (string, error)
	Invite(ctx context.Context, address string, referrer referral.ReferrerContext) (string, error)
}

// Router classifies one message into a handler decision.
type Router interface {
	Classify(ctx context.Context, message string, profile customer.Profile, recent []history.Message) (intent.Decision, error)
}

// Bot wires the message-processing collaborators together.
type Bot struct {
	gateway   Gateway
	resolver  Resolver
	customers customer.Store
	history   history.Store
	hub       *broadcast.Hub
	referrals Referrals
	router    Router
	agents    agent.Registry
	civil     *clock.Civil
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the orchestrator.
func New(
	log *slog.Logger,
	gateway Gateway,
	resolver Resolver,
	customers customer.Store,
	hist history.Store,
	hub *broadcast.Hub,
	referrals Referrals,
	router Router,
	agents agent.Registry,
	civil *clock.Civil,
) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		gateway:   gateway,
		resolver:  resolver,
		customers: customers,
		history:   hist,
		hub:       hub,
		referrals: referrals,
		router:    router,
		agents:    agents,
		civil:     civil,
		logger:    log.With(slog.String("service", "bot")),
		locks:     make(map[string]*sync.Mutex),
	}
}

// addressLock serializes processing per customer address so interleaved
// deliveries cannot reorder one conversation's log.
func (b *Bot) addressLock(address string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[address]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[address] = lock
	}
	return lock
}

// ProcessInbound handles one webhook delivery. Failures are logged and the
// message is dropped; the webhook has already been acknowledged.
func (b *Bot) ProcessInbound(ctx context.Context, delivery whatsapp.Delivery, isVoice bool) {
	in, err := b.gateway.Receive(ctx, delivery, isVoice)
	if errors.Is(err, whatsapp.ErrNoMessage) {
		b.logger.Debug("delivery without message, ignoring")
		return
	}
	if err != nil {
		b.logger.Error("receive failed, dropping message", slog.Any("error", err))
		return
	}

	lock := b.addressLock(in.Sender)
	lock.Lock()
	defer lock.Unlock()

	if err := b.process(ctx, in); err != nil {
		b.logger.Error("message processing failed, dropping message",
			slog.String("address", in.Sender), slog.Any("error", err))
	}
}

func (b *Bot) process(ctx context.Context, in whatsapp.Inbound) error {
	address := in.Sender

	// History is read before the inbound message is appended so prompts
	// see only prior turns.
	recent, err := b.history.Recent(ctx, address, recentLimit)
	if err != nil {
		b.logger.Warn("history read failed, continuing without context",
			slog.String("address", address), slog.Any("error", err))
		recent = nil
	}

	b.record(ctx, address, history.Message{
		Timestamp: b.civil.Now(),
		Content:   in.Content,
		Kind:      history.ClassifyKind(in.Content, in.Voice),
		Sender:    history.SenderCustomer,
	})

	profile, err := b.resolver.Resolve(ctx, address)
	if err != nil {
		return fmt.Errorf("resolve customer: %w", err)
	}

	if profile.Escalated {
		// TODO: notify the dashboard that an escalated customer wrote in.
		b.logger.Info("customer escalated, skipping automated reply",
			slog.String("address", address))
		return nil
	}

	response, err := b.respond(ctx, in.Content, profile, recent)
	if err != nil {
		return err
	}

	b.record(ctx, address, history.Message{
		Timestamp: b.civil.Now(),
		Content:   response,
		Kind:      history.KindText,
		Sender:    history.SenderAgent,
	})

	if err := b.gateway.Send(ctx, address, response); err != nil {
		b.logger.Error("outbound send failed",
			slog.String("address", address), slog.Any("error", err))
	}
	return nil
}

// respond picks the referral path when the message carries a referral block,
// otherwise routes to a conversational handler.
func (b *Bot) respond(ctx context.Context, message string, profile customer.Profile, recent []history.Message) (string, error) {
	if campaignCode, _ := referral.ExtractCodes(message); campaignCode != "" {
		return b.referrals.Workflow(ctx, message, profile.Address, referral.ReferrerContext{
			Name:  profile.Name,
			Email: profile.Email,
		})
	}

	decision, err := b.router.Classify(ctx, message, profile, recent)
	if err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}
	b.persistPersonalInfo(ctx, profile.Address, decision)

	handler, ok := b.agents[decision.Handler]
	if !ok {
		return "", fmt.Errorf("no agent registered for handler %q", decision.Handler)
	}
	response, err := handler.Reply(ctx, message, agent.Context{Profile: profile, Recent: recent})
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", decision.Handler, err)
	}
	return response, nil
}

// persistPersonalInfo stores routing-extracted profile fields, best effort.
func (b *Bot) persistPersonalInfo(ctx context.Context, address string, decision intent.Decision) {
	if !decision.HasPersonalInfo() {
		return
	}
	patch := customer.Patch{
		Name:          decision.Name,
		Email:         decision.Email,
		PostalAddress: decision.Address,
		Socials:       decision.Socials,
		Interests:     decision.Interests,
	}
	if _, err := b.customers.Update(ctx, address, patch); err != nil {
		b.logger.Warn("personal info update failed",
			slog.String("address", address), slog.Any("error", err))
	}
}

// record appends to history and mirrors the message to dashboard
// subscribers. Both are best effort and never alter control flow.
func (b *Bot) record(ctx context.Context, address string, msg history.Message) {
	if err := b.history.Append(ctx, address, msg); err != nil {
		b.logger.Warn("history append failed",
			slog.String("address", address), slog.Any("error", err))
	}
	b.hub.Publish(address, msg)
}

// RecentHistory returns a newest-first page of the conversation log.
func (b *Bot) RecentHistory(ctx context.Context, address string, page, pageSize int) ([]history.Message, error) {
	return b.history.Page(ctx, address, page, pageSize)
}

// Addresses lists every conversation with at least one message.
func (b *Bot) Addresses(ctx context.Context) ([]string, error) {
	return b.history.Addresses(ctx)
}

// SendOutbound delivers a message composed outside the automated flow, such
// as a dashboard representative reply, logging and broadcasting it first.
func (b *Bot) SendOutbound(ctx context.Context, address, content string, sender history.Sender) error {
	lock := b.addressLock(address)
	lock.Lock()
	defer lock.Unlock()

	b.record(ctx, address, history.Message{
		Timestamp: b.civil.Now(),
		Content:   content,
		Kind:      history.ClassifyKind(content, false),
		Sender:    sender,
	})
	if err := b.gateway.Send(ctx, address, content); err != nil {
		return fmt.Errorf("send to %s: %w", address, err)
	}
	return nil
}

// ReferralInvite sends the customer's invitation message on demand.
func (b *Bot) ReferralInvite(ctx context.Context, address string) error {
	profile, err := b.resolver.Resolve(ctx, address)
	if err != nil {
		return fmt.Errorf("resolve customer: %w", err)
	}
	invitation, err := b.referrals.Invite(ctx, address, referral.ReferrerContext{
		Name:  profile.Name,
		Email: profile.Email,
	})
	if err != nil {
		return fmt.Errorf("invite %s: %w", address, err)
	}
	return b.SendOutbound(ctx, address, invitation, history.SenderAgent)
}
