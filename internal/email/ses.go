package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

var _ SESAPI = (*sesv2.Client)(nil)

type sesSender struct {
	client   SESAPI
	fromAddr string
	fromName string
}

// NewSESSender returns a Sender that delivers email through Amazon SES.
func NewSESSender(client SESAPI, fromAddr, fromName string) Sender {
	return &sesSender{client: client, fromAddr: fromAddr, fromName: fromName}
}

// NewSESSenderFromDefaultConfig builds an SES client from the default AWS
// credential chain. region overrides AWS_REGION when non-empty.
func NewSESSenderFromDefaultConfig(ctx context.Context, region, fromAddr, fromName string) (Sender, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: failed to get aws config: %w", err)
	}
	return NewSESSender(sesv2.NewFromConfig(cfg), fromAddr, fromName), nil
}

// Send delivers m as a simple SES message and returns the SES message id.
func (s *sesSender) Send(ctx context.Context, m Message) (string, error) {
	if m.To == "" {
		return "", ErrNoRecipient
	}

	body := &types.Body{
		Html: &types.Content{Data: aws.String(m.HTML), Charset: aws.String("UTF-8")},
	}
	if m.Text != "" {
		body.Text = &types.Content{Data: aws.String(m.Text), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(formatFrom(s.fromName, s.fromAddr)),
		Destination:      &types.Destination{ToAddresses: []string{m.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(m.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
	if m.ReplyTo != "" {
		input.ReplyToAddresses = []string{m.ReplyTo}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("email: ses send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
