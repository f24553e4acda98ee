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
)

type outboundText struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type outboundLink struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type outboundMessage struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *outboundText `json:"text,omitempty"`
	Image            *outboundLink `json:"image,omitempty"`
	Audio            *outboundLink `json:"audio,omitempty"`
	Document         *outboundLink `json:"document,omitempty"`
}

// Send delivers a text message with link previews enabled.
func (g *Gateway) Send(ctx context.Context, to, body string) error {
	return g.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &outboundText{Body: body, PreviewURL: true},
	})
}

// SendImage delivers an image by URL with an optional caption.
func (g *Gateway) SendImage(ctx context.Context, to, link, caption string) error {
	return g.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "image",
		Image:            &outboundLink{Link: link, Caption: caption},
	})
}

// SendAudio delivers an audio file by URL.
func (g *Gateway) SendAudio(ctx context.Context, to, link string) error {
	return g.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "audio",
		Audio:            &outboundLink{Link: link},
	})
}

// SendDocument delivers a document by URL with an optional caption.
func (g *Gateway) SendDocument(ctx context.Context, to, link, caption string) error {
	return g.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "document",
		Document:         &outboundLink{Link: link, Caption: caption},
	})
}

func (g *Gateway) post(ctx context.Context, msg outboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode outbound message: %w", err)
	}
	url := fmt.Sprintf("%s/%s/messages", g.graphBase, g.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Type, msg.To, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send %s to %s: status %d: %s", msg.Type, msg.To, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	g.logger.Debug("message sent", slog.String("to", msg.To), slog.String("type", msg.Type))
	return nil
}
