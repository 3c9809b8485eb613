// Package mail sends transactional email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/util"
)

var ErrNoRecipient = errors.New("message has no recipient")

// Message is a rendered email ready to send.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SESAPI is the subset of the SES v2 client used by SES.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends email through Amazon SES v2.
type SES struct {
	client SESAPI
	from   string
}

type SESConfig struct {
	FromEmail string
	FromName  string
}

func NewSES(client SESAPI, cfg SESConfig) (*SES, error) {
	if cfg.FromEmail == "" {
		return nil, errors.New("from email is required")
	}
	from := (&mail.Address{Name: cfg.FromName, Address: cfg.FromEmail}).String()
	return &SES{client: client, from: from}, nil
}

// NewSESFromOptions builds an SES sender with its own AWS client.
func NewSESFromOptions(ctx context.Context, awsOpts util.AWSOptions, endpointURL string, cfg SESConfig) (*SES, error) {
	awsCfg, err := util.LoadAWSConfig(ctx, awsOpts)
	if err != nil {
		return nil, err
	}

	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
	})

	return NewSES(client, cfg)
}

func (s *SES) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	body := &types.Body{}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info().
		Str("to", util.MaskEmail(msg.To)).
		Str("message_id", aws.ToString(out.MessageId)).
		Msg("Email sent")

	return nil
}

// LogMailer writes messages to the log instead of sending them. Used in development.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("Email (not sent)")
	return nil
}
