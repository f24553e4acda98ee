package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boostbuddy/boostline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	text string
	err  error
	got  []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, audio io.Reader) (string, error) {
	f.got, _ = io.ReadAll(audio)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func textDelivery(from, body string) Delivery {
	return Delivery{Entry: []entry{{Changes: []change{{Value: value{Messages: []message{{
		From: from,
		Type: "text",
		Text: &text{Body: body},
	}}}}}}}}
}

func mediaDelivery(from, kind string, m media) Delivery {
	msg := message{From: from, Type: kind}
	switch kind {
	case "image":
		msg.Image = &m
	case "audio":
		msg.Audio = &m
	case "document":
		msg.Document = &m
	case "video":
		msg.Video = &m
	}
	return Delivery{Entry: []entry{{Changes: []change{{Value: value{Messages: []message{msg}}}}}}}
}

func newTestGateway(t *testing.T, handler http.Handler, transcriber Transcriber) (*Gateway, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	gw := NewGateway(nil, config.WhatsAppConfig{
		PhoneNumberID: "100200300",
		AccessToken:   "token",
		VerifyToken:   "verify-me",
		GraphAPIBase:  server.URL,
	}, transcriber)
	return gw, server
}

func TestReceiveText(t *testing.T) {
	gw, _ := newTestGateway(t, http.NotFoundHandler(), nil)

	in, err := gw.Receive(context.Background(), textDelivery("923001234567", "Hi there"), false)
	require.NoError(t, err)
	assert.Equal(t, "923001234567", in.Sender)
	assert.Equal(t, "Hi there", in.Content)
	assert.False(t, in.Voice)
}

func TestReceiveStatusDelivery(t *testing.T) {
	gw, _ := newTestGateway(t, http.NotFoundHandler(), nil)

	_, err := gw.Receive(context.Background(), Delivery{}, false)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestReceiveImageBecomesMarkdown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/img.jpg"})
	})
	gw, _ := newTestGateway(t, mux, nil)

	in, err := gw.Receive(context.Background(), mediaDelivery("92300", "image", media{ID: "media-1", Caption: "receipt"}), false)
	require.NoError(t, err)
	assert.Equal(t, "![receipt](https://cdn.example.com/img.jpg)", in.Content)
}

func TestReceiveDocumentUsesFilename(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/price-list.pdf"})
	})
	gw, _ := newTestGateway(t, mux, nil)

	in, err := gw.Receive(context.Background(), mediaDelivery("92300", "document", media{ID: "media-2", Filename: "price-list.pdf"}), false)
	require.NoError(t, err)
	assert.Equal(t, "[price-list.pdf](https://cdn.example.com/price-list.pdf)", in.Content)
}

func TestReceiveMediaLookupFailureDegrades(t *testing.T) {
	gw, _ := newTestGateway(t, http.NotFoundHandler(), nil)

	in, err := gw.Receive(context.Background(), mediaDelivery("92300", "image", media{ID: "gone"}), false)
	require.NoError(t, err)
	assert.Equal(t, "[IMAGE MESSAGE - Download Failed]", in.Content)
}

func TestReceiveVoiceTranscribes(t *testing.T) {
	transcriber := &fakeTranscriber{text: "please send my referral code"}
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/voice-9", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": server.URL + "/blob"})
	})
	mux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		fmt.Fprint(w, "OGGDATA")
	})
	gw, srv := newTestGateway(t, mux, transcriber)
	server = srv

	in, err := gw.Receive(context.Background(), mediaDelivery("92300", "audio", media{ID: "voice-9", Voice: true}), true)
	require.NoError(t, err)
	assert.Equal(t, "please send my referral code", in.Content)
	assert.True(t, in.Voice)
	assert.Equal(t, []byte("OGGDATA"), transcriber.got)
}

func TestReceiveVoiceTranscriptionFailure(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("whisper down")}
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/voice-9", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": server.URL + "/blob"})
	})
	mux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OGGDATA")
	})
	gw, srv := newTestGateway(t, mux, transcriber)
	server = srv

	_, err := gw.Receive(context.Background(), mediaDelivery("92300", "audio", media{ID: "voice-9"}), true)
	assert.Error(t, err)
}

func TestVoiceDelivery(t *testing.T) {
	assert.True(t, mediaDelivery("92300", "audio", media{ID: "a"}).VoiceDelivery())
	assert.False(t, textDelivery("92300", "hi").VoiceDelivery())
	assert.False(t, Delivery{}.VoiceDelivery())
}

func TestSendPostsGraphMessage(t *testing.T) {
	var got outboundMessage
	mux := http.NewServeMux()
	mux.HandleFunc("/100200300/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})
	gw, _ := newTestGateway(t, mux, nil)

	require.NoError(t, gw.Send(context.Background(), "923001234567", "✅ Your referral count has been incremented!"))
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "923001234567", got.To)
	assert.Equal(t, "text", got.Type)
	require.NotNil(t, got.Text)
	assert.True(t, got.Text.PreviewURL)
}

func TestSendSurfacesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/100200300/messages", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid recipient"}`, http.StatusBadRequest)
	})
	gw, _ := newTestGateway(t, mux, nil)

	err := gw.Send(context.Background(), "bad", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
