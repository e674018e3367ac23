package notify

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// SESConfig holds the sender identity for transactional clinic mail.
type SESConfig struct {
	FromEmail string
	FromName  string
	ReplyTo   string
}

// SESSender delivers notifications through AWS SES.
type SESSender struct {
	client *sesv2.Client
	from   string
	reply  []string
	logger *logging.Logger
}

// NewSESSender wraps an sesv2 client. A nil client yields a nil sender so
// callers fall back to the stub.
func NewSESSender(client *sesv2.Client, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "BrightSmile Dental"
	}
	from := (&mail.Address{Name: cfg.FromName, Address: cfg.FromEmail}).String()
	var reply []string
	if cfg.ReplyTo != "" {
		reply = []string{cfg.ReplyTo}
	}
	return &SESSender{
		client: client,
		from:   from,
		reply:  reply,
		logger: logger.With("component", "notify"),
	}
}

// Send delivers one message. Recipient validation happens upstream in the
// notification service; an SES rejection surfaces as an error for the
// caller's best-effort handling.
func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		ReplyToAddresses: s.reply,
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content:          simpleContent(msg),
	})
	if err != nil {
		s.logger.Error("email send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: send via SES: %w", err)
	}
	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "message_id", aws.ToString(out.MessageId))
	return nil
}

// simpleContent builds the SES content block, attaching whichever of the
// text and HTML bodies are present.
func simpleContent(msg EmailMessage) *types.EmailContent {
	utf8 := func(data string) *types.Content {
		return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
	}
	body := &types.Body{}
	if msg.Body != "" {
		body.Text = utf8(msg.Body)
	}
	if msg.HTML != "" {
		body.Html = utf8(msg.HTML)
	}
	return &types.EmailContent{
		Simple: &types.Message{
			Subject: utf8(msg.Subject),
			Body:    body,
		},
	}
}

var _ EmailSender = (*SESSender)(nil)
