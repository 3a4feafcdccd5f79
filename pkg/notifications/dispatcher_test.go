package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/clientbill/pkg/clients"
)

type fakeChannel struct {
	name     string
	mu       sync.Mutex
	sent     []*Message
	failures int
	err      error
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("gateway unavailable")
	}
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) messages() []*Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Message(nil), c.sent...)
}

type staticContacts map[int64]*clients.Client

func (s staticContacts) GetClient(ctx context.Context, orgID, id int64) (*clients.Client, error) {
	c, ok := s[id]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return c, nil
}

var contacts = staticContacts{
	7: {ID: 7, Name: "Ana", Email: "ana@example.com", Phone: "+5511999990000"},
	8: {ID: 8, Name: "Bruno"},
}

func newTestDispatcher(t *testing.T, email, whatsapp Channel) *Dispatcher {
	t.Helper()
	d := NewDispatcher(context.Background(), contacts, DispatcherOptions{
		Email:    email,
		WhatsApp: whatsapp,
		Retry:    RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		Workers:  2,
	})
	t.Cleanup(func() { d.Shutdown(time.Second) })
	return d
}

func TestDispatcher_DeliverBothChannels(t *testing.T) {
	email := &fakeChannel{name: "email"}
	whatsapp := &fakeChannel{name: "whatsapp", failures: 2}
	d := newTestDispatcher(t, email, whatsapp)

	clientID := int64(7)
	err := d.Deliver(context.Background(), 1, &Notification{
		ID: 1, Title: "Fatura vencida", Message: "Pague até sexta.", ClientID: &clientID,
		SendEmail: true, SendWhatsApp: true,
	})
	require.NoError(t, err)

	require.Len(t, email.messages(), 1)
	assert.Equal(t, "ana@example.com", email.messages()[0].To)
	assert.Equal(t, "Olá, Ana.\n\nPague até sexta.", email.messages()[0].Body)
	require.Len(t, whatsapp.messages(), 1)
	assert.Equal(t, "+5511999990000", whatsapp.messages()[0].To)
}

func TestDispatcher_DeliverGivesUp(t *testing.T) {
	email := &fakeChannel{name: "email", failures: 10}
	d := newTestDispatcher(t, email, nil)

	clientID := int64(7)
	err := d.Deliver(context.Background(), 1, &Notification{ID: 2, Title: "x", ClientID: &clientID, SendEmail: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email delivery failed")
	assert.Empty(t, email.messages())
}

func TestDispatcher_SkipsMissingContactOrChannel(t *testing.T) {
	email := &fakeChannel{name: "email"}
	d := newTestDispatcher(t, email, nil)

	bruno := int64(8)
	require.NoError(t, d.Deliver(context.Background(), 1, &Notification{ClientID: &bruno, SendEmail: true}))
	require.NoError(t, d.Deliver(context.Background(), 1, &Notification{SendEmail: true}))

	ana := int64(7)
	require.NoError(t, d.Deliver(context.Background(), 1, &Notification{ClientID: &ana, SendWhatsApp: true}))
	assert.Empty(t, email.messages())

	unknown := int64(99)
	err := d.Deliver(context.Background(), 1, &Notification{ClientID: &unknown, SendEmail: true})
	assert.ErrorIs(t, err, clients.ErrNotFound)
}

func TestDispatcher_DispatchIsAsync(t *testing.T) {
	email := &fakeChannel{name: "email"}
	d := NewDispatcher(context.Background(), contacts, DispatcherOptions{Email: email})

	clientID := int64(7)
	d.Dispatch(1, &Notification{ID: 3, Title: "Fatura paga", ClientID: &clientID, SendEmail: true})

	require.NoError(t, d.Shutdown(time.Second))
	assert.Len(t, email.messages(), 1)
}

func TestDispatcher_Disabled(t *testing.T) {
	d := newTestDispatcher(t, nil, nil)
	assert.False(t, d.Enabled())

	clientID := int64(7)
	d.Dispatch(1, &Notification{ClientID: &clientID, SendEmail: true})
}
