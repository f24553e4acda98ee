// Package whatsapp is the Cloud API gateway: it parses webhook deliveries
// into plain inbound messages and sends replies through the Graph API.
package whatsapp

import "errors"

// ErrNoMessage is returned when a webhook delivery carries no customer
// message (status updates, empty batches).
var ErrNoMessage = errors.New("whatsapp: delivery contains no message")

// Inbound is one customer message normalized to text. Media arrives as a
// markdown reference; Voice marks content produced by transcription.
type Inbound struct {
	Sender  string
	Content string
	Voice   bool
}

// Webhook payload shapes, trimmed to the fields the gateway reads.

type Delivery struct {
	Entry []entry `json:"entry"`
}

type entry struct {
	Changes []change `json:"changes"`
}

type change struct {
	Value value `json:"value"`
}

type value struct {
	Messages []message `json:"messages"`
}

type message struct {
	From     string `json:"from"`
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Image    *media `json:"image,omitempty"`
	Audio    *media `json:"audio,omitempty"`
	Video    *media `json:"video,omitempty"`
	Document *media `json:"document,omitempty"`
}

type text struct {
	Body string `json:"body"`
}

type media struct {
	ID       string `json:"id"`
	Caption  string `json:"caption"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
	Voice    bool   `json:"voice"`
}

// VoiceDelivery reports whether the first message in the delivery is an
// audio or voice note, which the webhook route uses to pick the voice path.
func (d Delivery) VoiceDelivery() bool {
	msg, ok := d.firstMessage()
	if !ok {
		return false
	}
	return msg.Type == "audio" || msg.Type == "voice"
}

func (d Delivery) firstMessage() (message, bool) {
	for _, e := range d.Entry {
		for _, c := range e.Changes {
			if len(c.Value.Messages) > 0 {
				return c.Value.Messages[0], true
			}
		}
	}
	return message{}, false
}
