package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrz1836/postmark"
	"github.com/sethvargo/go-retry"
)

// PostmarkSender delivers messages through Postmark's transactional API.
type PostmarkSender struct {
	client  *postmark.Client
	from    string
	replyTo string
	backoff func() retry.Backoff
}

// NewPostmarkSender validates cfg and builds the sender.
func NewPostmarkSender(cfg Config) (*PostmarkSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is required", ErrInvalidConfig)
	}
	if err := cfg.validateAddresses(); err != nil {
		return nil, err
	}

	attempts := cfg.SendRetries
	return &PostmarkSender{
		client:  postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:    cfg.SenderEmail,
		replyTo: cfg.SupportEmail,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(attempts, retry.NewExponential(200*time.Millisecond))
		},
	}, nil
}

// SendEmail sends an untracked message. Transport failures are retried;
// messages Postmark rejects are not.
func (p *PostmarkSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	msg := postmark.Email{
		From:       p.from,
		ReplyTo:    p.replyTo,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TrackOpens: false,
		TrackLinks: "None",
	}

	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		resp, err := p.client.SendEmail(ctx, msg)
		if resp.ErrorCode != 0 {
			return fmt.Errorf("postmark rejected message: %d %s", resp.ErrorCode, resp.Message)
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}
