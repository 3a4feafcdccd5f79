package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailChannel_Send(t *testing.T) {
	var got resendEmail
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer server.Close()

	ch := NewEmailChannel(server.URL+"/", "re_test", "financeiro@example.com", server.Client())
	err := ch.Send(context.Background(), &Message{To: "ana@example.com", Subject: "Fatura vencida", Body: "Olá"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, "financeiro@example.com", got.From)
	assert.Equal(t, []string{"ana@example.com"}, got.To)
	assert.Equal(t, "Fatura vencida", got.Subject)
	assert.Equal(t, "email", ch.Name())
}

func TestEmailChannel_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		permanent bool
	}{
		{http.StatusUnprocessableEntity, true},
		{http.StatusUnauthorized, true},
		{http.StatusTooManyRequests, false},
		{http.StatusBadGateway, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			ch := NewEmailChannel(server.URL, "key", "from@example.com", server.Client())
			err := ch.Send(context.Background(), &Message{To: "x@example.com"})
			require.Error(t, err)
			assert.Equal(t, tt.permanent, IsPermanent(err))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestWhatsAppChannel_Send(t *testing.T) {
	var got whatsAppMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer wa_token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	ch := NewWhatsAppChannel(server.URL+"/send", "wa_token", server.Client())
	err := ch.Send(context.Background(), &Message{To: "+55 (11) 98765-4321", Subject: "Parcela em atraso", Body: "Valor: 250.00"})
	require.NoError(t, err)

	assert.Equal(t, "+5511987654321", got.To)
	assert.Equal(t, "*Parcela em atraso*\nValor: 250.00", got.Message)
}

func TestNewChannels(t *testing.T) {
	email, whatsapp := NewChannels(ChannelConfig{})
	assert.Nil(t, email)
	assert.Nil(t, whatsapp)

	email, whatsapp = NewChannels(ChannelConfig{ResendAPIKey: "k", WhatsAppURL: "http://gateway"})
	assert.NotNil(t, email)
	assert.NotNil(t, whatsapp)
}
