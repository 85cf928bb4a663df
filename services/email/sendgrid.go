package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/lectern/core"
)

const sendTimeout = 10 * time.Second

// mailer is the part of the SendGrid client the service relies on.
type mailer interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// sendgridService delivers account notifications through the SendGrid v3 API.
type sendgridService struct {
	client   mailer
	from     *sgmail.Email
	category string
	logger   core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	return &sendgridService{
		client:   sendgrid.NewSendClient(conf.SendgridAPIKey),
		from:     toSendgrid(conf.DefaultFromEmail),
		category: conf.AppName,
		logger:   logger,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := svc.deliver(msg); err != nil {
				svc.logger.Error("delivering email", err, map[string]interface{}{"subject": msg.Subject})
			}
		}(msg)
	}
}

// deliver renders msg and hands it to SendGrid. Messages without recipients or content are dropped.
func (svc *sendgridService) deliver(msg *core.EmailMessage) error {
	if err := msg.Render(); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	res, err := svc.client.SendWithContext(ctx, svc.build(msg))
	if err != nil {
		return errors.Wrap(err, "calling sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid replied %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// build gives every To address its own personalization so recipients never see each other.
// Copies ride along with the first one.
func (svc *sendgridService) build(msg *core.EmailMessage) *sgmail.SGMailV3 {
	subject := fmt.Sprintf("[%s] %s", svc.category, msg.Subject)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.SetReplyTo(svc.from)
	m.AddCategories(svc.category)
	for i, to := range msg.To {
		p := sgmail.NewPersonalization()
		p.Subject = subject
		p.AddTos(toSendgrid(to))
		if i == 0 {
			p.AddCCs(toSendgridList(msg.Cc)...)
			p.AddBCCs(toSendgridList(msg.Bcc)...)
		}
		m.AddPersonalizations(p)
	}
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	return m
}

func toSendgrid(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func toSendgridList(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, a := range addrs {
		emails = append(emails, toSendgrid(a))
	}
	return emails
}
