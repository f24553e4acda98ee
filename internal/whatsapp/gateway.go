package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/boostbuddy/boostline/internal/config"
)

// Transcriber converts an audio stream to text. Satisfied by *llm.Client.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Gateway talks to the WhatsApp Cloud API for a single business number.
type Gateway struct {
	phoneNumberID string
	accessToken   string
	verifyToken   string
	graphBase     string
	transcriber   Transcriber
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewGateway creates a Gateway from config.
func NewGateway(log *slog.Logger, cfg config.WhatsAppConfig, transcriber Transcriber) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	graphBase := strings.TrimRight(cfg.GraphAPIBase, "/")
	if graphBase == "" {
		graphBase = config.DefaultGraphAPIBase
	}
	return &Gateway{
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		verifyToken:   cfg.VerifyToken,
		graphBase:     graphBase,
		transcriber:   transcriber,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		logger:        log.With(slog.String("service", "whatsapp")),
	}
}

// VerifyToken returns the webhook subscription token for the Meta handshake.
func (g *Gateway) VerifyToken() string {
	return g.verifyToken
}

// Receive normalizes one webhook delivery into an Inbound message. Voice
// notes are transcribed; other media becomes a markdown reference pointing
// at the Graph media URL. Deliveries without a message (status callbacks)
// return ErrNoMessage.
func (g *Gateway) Receive(ctx context.Context, delivery Delivery, isVoice bool) (Inbound, error) {
	msg, ok := delivery.firstMessage()
	if !ok || msg.From == "" {
		return Inbound{}, ErrNoMessage
	}

	if isVoice {
		return g.receiveVoice(ctx, msg)
	}

	switch msg.Type {
	case "text":
		if msg.Text == nil || msg.Text.Body == "" {
			return Inbound{}, ErrNoMessage
		}
		g.logger.Info("text message received", slog.String("from", msg.From))
		return Inbound{Sender: msg.From, Content: msg.Text.Body}, nil
	case "image", "document", "video", "audio":
		content, err := g.mediaReference(ctx, msg)
		if err != nil {
			return Inbound{}, err
		}
		return Inbound{Sender: msg.From, Content: content}, nil
	default:
		g.logger.Warn("unknown message type", slog.String("from", msg.From), slog.String("type", msg.Type))
		return Inbound{Sender: msg.From, Content: fmt.Sprintf("[%s MESSAGE]", strings.ToUpper(msg.Type))}, nil
	}
}

func (g *Gateway) receiveVoice(ctx context.Context, msg message) (Inbound, error) {
	if msg.Audio == nil {
		return Inbound{}, fmt.Errorf("voice message from %s has no audio payload", msg.From)
	}
	url, err := g.mediaURL(ctx, msg.Audio.ID)
	if err != nil {
		return Inbound{}, fmt.Errorf("resolve voice media: %w", err)
	}
	audio, err := g.download(ctx, url)
	if err != nil {
		return Inbound{}, fmt.Errorf("download voice media: %w", err)
	}
	transcript, err := g.transcriber.Transcribe(ctx, "voice-"+msg.Audio.ID+".ogg", bytes.NewReader(audio))
	if err != nil {
		return Inbound{}, fmt.Errorf("transcribe voice media: %w", err)
	}
	g.logger.Info("voice message transcribed", slog.String("from", msg.From))
	return Inbound{Sender: msg.From, Content: transcript, Voice: true}, nil
}

func (g *Gateway) mediaReference(ctx context.Context, msg message) (string, error) {
	var m *media
	switch msg.Type {
	case "image":
		m = msg.Image
	case "audio":
		m = msg.Audio
	case "video":
		m = msg.Video
	case "document":
		m = msg.Document
	}
	if m == nil {
		return "", fmt.Errorf("%s message from %s has no media payload", msg.Type, msg.From)
	}
	url, err := g.mediaURL(ctx, m.ID)
	if err != nil {
		g.logger.Error("media url lookup failed", slog.String("from", msg.From), slog.Any("error", err))
		return fmt.Sprintf("[%s MESSAGE - Download Failed]", strings.ToUpper(msg.Type)), nil
	}

	switch msg.Type {
	case "image":
		caption := m.Caption
		if caption == "" {
			caption = "Image"
		}
		return fmt.Sprintf("![%s](%s)", caption, url), nil
	case "audio":
		return fmt.Sprintf("[Audio Message](%s)", url), nil
	default:
		label := m.Caption
		if label == "" {
			label = m.Filename
		}
		if label == "" {
			label = strings.ToUpper(msg.Type[:1]) + msg.Type[1:]
		}
		return fmt.Sprintf("[%s](%s)", label, url), nil
	}
}

// mediaURL resolves a media ID to its short-lived download URL.
func (g *Gateway) mediaURL(ctx context.Context, mediaID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.graphBase+"/"+mediaID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("media lookup status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode media lookup: %w", err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("media %s has no download url", mediaID)
	}
	return payload.URL, nil
}

func (g *Gateway) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
