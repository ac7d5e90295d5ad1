package brevo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got sendBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "brevo-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<msg-1@smtp-relay>"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "brevo-key", APIURL: srv.URL, FromEmail: "shop@example.com", FromName: "Shop"}, srv.Client())
	id, err := c.Send(context.Background(), Message{
		ToEmail:     "buyer@example.com",
		ToName:      "Buyer",
		Subject:     "Your guide",
		HTML:        "<p>hi</p>",
		Attachments: []Attachment{{Name: "Guide.pdf", Content: []byte("%PDF-1.3")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "<msg-1@smtp-relay>", id)

	assert.Equal(t, "shop@example.com", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "buyer@example.com", got.To[0].Email)
	require.Len(t, got.Attachment, 1)
	pdf, err := base64.StdEncoding.DecodeString(got.Attachment[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(pdf))
}

func TestSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "bad", APIURL: srv.URL}, srv.Client())
	_, err := c.Send(context.Background(), Message{ToEmail: "buyer@example.com"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
