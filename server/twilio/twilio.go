package twilio

import (
	"fmt"

	"github.com/Tanishq-j/CareFever/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ClientWrapper sends SMS through the configured Twilio messaging
// service.
type ClientWrapper struct {
	client *twilio.RestClient
	config shared.TwilioConfig
}

func NewClient(config shared.TwilioConfig) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{client: client, config: config}
}

func (cw *ClientWrapper) SendMessage(to, msg string) error {
	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return err
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return fmt.Errorf("twilio message to %v failed: %v", to, *resp.ErrorMessage)
	}

	return nil
}
