package emailsvc

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
)

const sesTimeout = 10 * time.Second

// SESAPI is the part of the SES client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type sesService struct {
	client     SESAPI
	from       string
	subjPrefix string
	tmpls      *core.EmailTemplates
	logger     core.Logger
}

var _ core.EmailService = (*sesService)(nil)

func NewSESService(ctx context.Context, conf *core.Config, tmpls *core.EmailTemplates, logger core.Logger) (core.EmailService, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(conf.Email.AWSRegion))
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}
	return newSESService(ses.NewFromConfig(awsCfg), conf, tmpls, logger), nil
}

func newSESService(client SESAPI, conf *core.Config, tmpls *core.EmailTemplates, logger core.Logger) *sesService {
	from := conf.DefaultFromEmail()
	return &sesService{
		client:     client,
		from:       from.String(),
		subjPrefix: subjectPrefix(conf),
		tmpls:      tmpls,
		logger:     logger,
	}
}

func (svc *sesService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), sesTimeout)
			defer cancel()
			if err := svc.sendMessage(ctx, msg); err != nil {
				svc.logger.Error("sending email", err)
			}
		}()
	}
}

func (svc *sesService) sendMessage(ctx context.Context, msg *core.EmailMessage) error {
	if err := svc.tmpls.Render(msg); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}
	_, err := svc.client.SendEmail(ctx, svc.prepare(*msg))
	return errors.Wrap(err, "ses")
}

func (svc *sesService) prepare(msg core.EmailMessage) *ses.SendEmailInput {
	body := &types.Body{Text: &types.Content{Data: aws.String(msg.TextContent), Charset: aws.String("UTF-8")}}
	if msg.HTMLContent != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLContent), Charset: aws.String("UTF-8")}
	}
	return &ses.SendEmailInput{
		Source: aws.String(svc.from),
		Destination: &types.Destination{
			ToAddresses:  addresses(msg.To),
			CcAddresses:  addresses(msg.Cc),
			BccAddresses: addresses(msg.Bcc),
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(svc.subjPrefix + msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	}
}
