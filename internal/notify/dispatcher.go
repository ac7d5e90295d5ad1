// Package notify sends the post-purchase email with the buyer's assistant
// contacts and the onboarding guide.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/kirinyoku/vastore/internal/brevo"
	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/guide"
)

const Subject = "Your virtual assistant contacts and getting-started guide"

// Mailer delivers one message and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, msg brevo.Message) (string, error)
}

type Dispatcher struct {
	mailer Mailer
	log    *slog.Logger
}

func NewDispatcher(mailer Mailer, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{mailer: mailer, log: log}
}

type contactView struct {
	Name     string
	Email    string
	Telegram string
	Phone    string
}

type emailView struct {
	FullName string
	OrderID  string
	Contacts []contactView
}

var emailTmpl = template.Must(template.New("guide").Parse(`<!doctype html>
<html>
<body style="font-family:Arial,Helvetica,sans-serif;color:#111">
<p>Hi {{if .FullName}}{{.FullName}}{{else}}there{{end}},</p>
<p>Thank you for your order <strong>{{.OrderID}}</strong>. Below are the contact details of your assistant{{if gt (len .Contacts) 1}}s{{end}}. The attached guide covers your first week together.</p>
{{range .Contacts}}
<table style="border-collapse:collapse;margin:12px 0">
<tr><td style="padding:2px 8px"><strong>Name</strong></td><td style="padding:2px 8px">{{.Name}}</td></tr>
<tr><td style="padding:2px 8px">Email</td><td style="padding:2px 8px">{{.Email}}</td></tr>
<tr><td style="padding:2px 8px">Telegram</td><td style="padding:2px 8px">{{.Telegram}}</td></tr>
<tr><td style="padding:2px 8px">Phone</td><td style="padding:2px 8px">{{.Phone}}</td></tr>
</table>
{{end}}
<p>Reply to this email if anything is missing.</p>
</body>
</html>`))

// RenderHTML builds the escaped email body. Every listing gets a block and
// missing contact fields show as an em dash.
func RenderHTML(order domain.Order, listings []domain.Listing) (string, error) {
	view := emailView{
		FullName: strings.TrimSpace(order.FullName),
		OrderID:  order.ID.String(),
	}
	for _, l := range listings {
		view.Contacts = append(view.Contacts, contactView{
			Name:     orDash(&l.Name),
			Email:    orDash(l.ContactEmail),
			Telegram: orDash(l.ContactTelegram),
			Phone:    orDash(l.ContactPhone),
		})
	}

	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func orDash(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "—"
	}
	return strings.TrimSpace(*s)
}

// Send renders the guide and email for order and delivers them to the
// order's email. listings are the purchased listings in snapshot order.
func (d *Dispatcher) Send(ctx context.Context, order domain.Order, listings []domain.Listing) (string, error) {
	const op = "notify.Dispatcher.Send"

	if strings.TrimSpace(order.Email) == "" {
		return "", fmt.Errorf("%s: order has no email", op)
	}

	html, err := RenderHTML(order, listings)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	items := make([]guide.Item, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, guide.Item{Name: it.Name, Price: it.Price})
	}

	pdf, err := guide.Build(guide.Data{
		OrderID:  order.ID.String(),
		FullName: order.FullName,
		Items:    items,
	})
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	id, err := d.mailer.Send(ctx, brevo.Message{
		ToEmail:     order.Email,
		ToName:      order.FullName,
		Subject:     Subject,
		HTML:        html,
		Attachments: []brevo.Attachment{{Name: guide.FileName, Content: pdf}},
	})
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	d.log.InfoContext(ctx, "guide email sent",
		slog.String("order_id", order.ID.String()),
		slog.String("message_id", id),
		slog.Int("listings", len(listings)),
	)

	return id, nil
}
