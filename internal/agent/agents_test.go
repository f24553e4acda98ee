package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/boostbuddy/boostline/internal/customer"
	"github.com/boostbuddy/boostline/internal/history"
	"github.com/boostbuddy/boostline/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply    string
	err      error
	lastUser string
}

func (f *fakeModel) Chat(_ context.Context, req llm.Request) (llm.Result, error) {
	if f.err != nil {
		return llm.Result{}, f.err
	}
	for _, m := range req.Messages {
		if m.Role == "user" {
			f.lastUser = m.Content
		}
	}
	return llm.Result{Content: f.reply}, nil
}

type fakeSearcher struct {
	passages string
	err      error
	calls    int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) (string, error) {
	f.calls++
	return f.passages, f.err
}

func testConv() Context {
	return Context{
		Profile: customer.Profile{Address: "923001234567", Name: "Sana", Kind: customer.KindConsumer},
		Recent: []history.Message{
			{Content: "Hi", Kind: history.KindText, Sender: history.SenderCustomer},
		},
	}
}

func TestGreetingReply(t *testing.T) {
	model := &fakeModel{reply: "  Hello Sana! How can I help?  "}
	a := NewGreeting(nil, model)

	reply, err := a.Reply(context.Background(), "Hi there", testConv())
	require.NoError(t, err)
	assert.Equal(t, "Hello Sana! How can I help?", reply)
	assert.Contains(t, model.lastUser, "name: Sana")
	assert.Contains(t, model.lastUser, "Hi there")
	assert.NotContains(t, model.lastUser, "COMPANY_KNOWLEDGE")
}

func TestSupportReplyIncludesPassages(t *testing.T) {
	model := &fakeModel{reply: "Our cans are 250ml."}
	searcher := &fakeSearcher{passages: "Can size: 250ml."}
	a := NewConsumerSupport(nil, model, searcher)

	reply, err := a.Reply(context.Background(), "How big are the cans?", testConv())
	require.NoError(t, err)
	assert.Equal(t, "Our cans are 250ml.", reply)
	assert.Equal(t, 1, searcher.calls)
	assert.Contains(t, model.lastUser, "Can size: 250ml.")
}

func TestSupportReplyDegradesWhenSearchFails(t *testing.T) {
	model := &fakeModel{reply: "Let me check that for you."}
	searcher := &fakeSearcher{err: errors.New("qdrant down")}
	a := NewBusinessSupport(nil, model, searcher)

	reply, err := a.Reply(context.Background(), "Wholesale pricing?", testConv())
	require.NoError(t, err)
	assert.Equal(t, "Let me check that for you.", reply)
	assert.NotContains(t, model.lastUser, "COMPANY_KNOWLEDGE")
}

func TestSupportReplyModelFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("rate limited")}
	a := NewConsumerSupport(nil, model, &fakeSearcher{})

	_, err := a.Reply(context.Background(), "hello", testConv())
	assert.Error(t, err)
}

func TestEmptyModelReplyIsAnError(t *testing.T) {
	model := &fakeModel{reply: "   "}
	a := NewGreeting(nil, model)

	_, err := a.Reply(context.Background(), "Hi", testConv())
	assert.Error(t, err)
}

func TestRegistryCoversAllHandlers(t *testing.T) {
	g := NewGreeting(nil, &fakeModel{reply: "hi"})
	c := NewConsumerSupport(nil, &fakeModel{reply: "hi"}, nil)
	b := NewBusinessSupport(nil, &fakeModel{reply: "hi"}, nil)

	reg := NewRegistry(g, c, b)
	require.Len(t, reg, 3)
	for handler, a := range reg {
		assert.NotNil(t, a, "handler %s", handler)
	}
}
