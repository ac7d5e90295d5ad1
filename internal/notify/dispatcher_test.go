package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/vastore/internal/brevo"
	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/guide"
)

type fakeMailer struct {
	sent []brevo.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg brevo.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

func str(s string) *string { return &s }

func TestRenderHTMLEscapesAndListsEveryListing(t *testing.T) {
	order := domain.Order{ID: uuid.New(), Contact: domain.Contact{FullName: `<script>alert(1)</script>`}}
	listings := []domain.Listing{
		{Name: "Ana & Co", ContactEmail: str("ana@example.com"), ContactTelegram: str("@ana")},
		{Name: "Ben"},
	}

	html, err := RenderHTML(order, listings)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "Ana &amp; Co")
	assert.Contains(t, html, "ana@example.com")
	assert.Contains(t, html, "Ben")
	assert.Equal(t, 4, strings.Count(html, "—"), "three blanks for Ben, one for Ana")
}

func TestSendAttachesGuide(t *testing.T) {
	m := &fakeMailer{}
	d := NewDispatcher(m, nil)

	order := domain.Order{
		ID:      uuid.New(),
		Contact: domain.Contact{Email: "buyer@example.com", FullName: "Buyer"},
		Items:   []domain.OrderItem{{ListingID: uuid.New(), Name: "Ana", Price: decimal.NewFromInt(99)}},
	}

	id, err := d.Send(context.Background(), order, []domain.Listing{{Name: "Ana"}})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	require.Len(t, m.sent, 1)
	msg := m.sent[0]
	assert.Equal(t, "buyer@example.com", msg.ToEmail)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, guide.FileName, msg.Attachments[0].Name)
	assert.True(t, bytes.HasPrefix(msg.Attachments[0].Content, []byte("%PDF")))
}

func TestSendPropagatesProviderError(t *testing.T) {
	d := NewDispatcher(&fakeMailer{err: errors.New("provider down")}, nil)
	order := domain.Order{ID: uuid.New(), Contact: domain.Contact{Email: "buyer@example.com"}}

	_, err := d.Send(context.Background(), order, nil)
	assert.Error(t, err)
}
