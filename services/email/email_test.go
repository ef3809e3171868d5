package emailsvc

import (
	"bytes"
	"context"
	"net/mail"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qazmun/mun/assets"
	"github.com/qazmun/mun/core"
	logsvc "github.com/qazmun/mun/services/logger"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:         "MUN",
		TestMode:        true,
		FrontendBaseURL: "http://front.test",
		Email:           core.EmailConfig{From: "MUN <noreply@mun.test>"},
	}
}

func parseTemplates(t *testing.T, conf *core.Config) *core.EmailTemplates {
	t.Helper()
	tmpls, err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf)
	require.NoError(t, err)
	return tmpls
}

func placementMsg() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Ali", Address: "ali@test.kz"}},
		Subject:      "Your committee at MUN Astana",
		TemplateName: "placement",
		TemplateData: map[string]interface{}{
			"FullName":       "Ali",
			"CommitteeName":  "Security Council",
			"ConferenceName": "MUN Astana",
			"Country":        "France",
		},
	}
}

func TestConsoleServiceMock(t *testing.T) {
	conf := testConfig()
	svc := NewConsoleServiceMock(conf, parseTemplates(t, conf), logsvc.NewNop())

	svc.SendMessages(placementMsg(), &core.EmailMessage{Subject: "nobody"})

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "You have been placed in Security Council at MUN Astana.")
	assert.Contains(t, sent[0].TextContent, "You will represent: France.")
	assert.Contains(t, sent[0].TextContent, "http://front.test")
	assert.Contains(t, sent[0].HTMLContent, "<strong>France</strong>")

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestConsoleService_format(t *testing.T) {
	conf := testConfig()
	var out bytes.Buffer
	svc := &consoleService{
		from:       conf.DefaultFromEmail(),
		subjPrefix: subjectPrefix(conf),
		tmpls:      parseTemplates(t, conf),
		logger:     logsvc.NewNop(),
		out:        &out,
	}

	assert.True(t, svc.sendMessage(placementMsg()))
	assert.Contains(t, out.String(), `From: "MUN" <noreply@mun.test>`)
	assert.Contains(t, out.String(), "Subject: [MUN] Your committee at MUN Astana")
	assert.Contains(t, out.String(), `To: "Ali" <ali@test.kz>`)
	assert.NotContains(t, out.String(), "CC:")
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{MessageId: aws.String("m1")}, f.err
}

func TestSESService_sendMessage(t *testing.T) {
	conf := testConfig()
	tmpls := parseTemplates(t, conf)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		client := new(fakeSES)
		svc := newSESService(client, conf, tmpls, logsvc.NewNop())

		require.NoError(t, svc.sendMessage(ctx, placementMsg()))
		require.NotNil(t, client.input)
		assert.Equal(t, `"MUN" <noreply@mun.test>`, aws.ToString(client.input.Source))
		assert.Equal(t, []string{`"Ali" <ali@test.kz>`}, client.input.Destination.ToAddresses)
		assert.Empty(t, client.input.Destination.CcAddresses)
		assert.Equal(t, "[MUN] Your committee at MUN Astana", aws.ToString(client.input.Message.Subject.Data))
		assert.Contains(t, aws.ToString(client.input.Message.Body.Text.Data), "Security Council")
		assert.NotNil(t, client.input.Message.Body.Html)
	})

	t.Run("no recipients", func(t *testing.T) {
		client := new(fakeSES)
		svc := newSESService(client, conf, tmpls, logsvc.NewNop())
		require.NoError(t, svc.sendMessage(ctx, &core.EmailMessage{BodyStr: "hi"}))
		assert.Nil(t, client.input)
	})

	t.Run("client error", func(t *testing.T) {
		client := &fakeSES{err: errors.New("throttled")}
		svc := newSESService(client, conf, tmpls, logsvc.NewNop())
		assert.EqualError(t, svc.sendMessage(ctx, placementMsg()), "ses: throttled")
	})
}

func TestSendgridService_prepare(t *testing.T) {
	conf := testConfig()
	svc := NewSendgridService(conf, nil, logsvc.NewNop()).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Ali", Address: "ali@test.kz"}},
		Subject:     "hello",
		TextContent: "text",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[MUN] hello", m.Personalizations[0].Subject)
	assert.Equal(t, "ali@test.kz", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "noreply@mun.test", m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
