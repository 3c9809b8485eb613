package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/jokko/internal/logger"
	"github.com/wolfeidau/jokko/internal/mail"
	"github.com/wolfeidau/jokko/internal/util"
)

type TestEmailCmd struct {
	To       string   `help:"recipient address" required:""`
	From     string   `help:"sender address" required:"" env:"JOKKO_SES_FROM_EMAIL"`
	FromName string   `help:"sender display name" default:"Jokko" env:"JOKKO_SES_FROM_NAME"`
	BaseURL  string   `help:"base URL used in the sample reset link" default:"http://localhost:8080" env:"JOKKO_BASE_URL"`
	SES      AWSFlags `embed:"" prefix:"ses-" envprefix:"JOKKO_SES_"`
}

// Run sends the password reset email with a dummy token so the rendering and the
// SES configuration can be checked together.
func (c *TestEmailCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	mailer, err := mail.NewSESFromOptions(ctx, c.SES.Options(), c.SES.EndpointURL, mail.SESConfig{
		FromEmail: c.From,
		FromName:  c.FromName,
	})
	if err != nil {
		return err
	}

	msg, err := sendTestEmail(ctx, mailer, c.To, c.BaseURL)
	if err != nil {
		return err
	}

	log.Info().Str("to", util.MaskEmail(msg.To)).Str("subject", msg.Subject).Msg("Test email sent")
	return nil
}

func sendTestEmail(ctx context.Context, mailer mail.Mailer, to, baseURL string) (mail.Message, error) {
	msg, err := mail.RenderPasswordReset(to, mail.PasswordResetData{
		UserName:  "Test User",
		ResetLink: baseURL + "/reset-password?token=test-" + time.Now().UTC().Format("20060102T150405"),
		ExpiresIn: "1 hour",
	})
	if err != nil {
		return msg, fmt.Errorf("failed to render email: %w", err)
	}

	if err := mailer.Send(ctx, msg); err != nil {
		return msg, fmt.Errorf("failed to send email: %w", err)
	}

	return msg, nil
}
