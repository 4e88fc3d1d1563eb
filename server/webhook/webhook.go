// Package webhook verifies signed user-lifecycle events sent by the
// identity provider(Clerk). Deliveries are authenticated with the svix
// SDK against the shared 'whsec_' signing secret.
package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// Headers are the provider-supplied signature headers on a delivery.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// HeadersFromMap pulls the svix headers out of an http header getter.
func HeadersFromMap(get func(string) string) Headers {
	return Headers{
		ID:        get("svix-id"),
		Timestamp: get("svix-timestamp"),
		Signature: get("svix-signature"),
	}
}

func (h Headers) httpHeader() http.Header {
	header := http.Header{}
	header.Set("svix-id", h.ID)
	header.Set("svix-timestamp", h.Timestamp)
	header.Set("svix-signature", h.Signature)

	return header
}

// Event is a verified user-lifecycle notification.
type Event struct {
	Type string   `json:"type"`
	Data UserData `json:"data"`
}

type UserData struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	ImageURL       string         `json:"image_url"`
	CreatedAt      int64          `json:"created_at"`
	UpdatedAt      int64          `json:"updated_at"`
}

type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail returns the first listed address, or "" when none exist.
func (d UserData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}

// Verifier checks deliveries against the shared signing secret.
type Verifier struct {
	wh *svix.Webhook
}

func NewVerifier(signingSecret string) (*Verifier, error) {
	wh, err := svix.NewWebhook(signingSecret)
	if err != nil {
		return nil, fmt.Errorf("malformed webhook signing secret: %v", err)
	}

	return &Verifier{wh: wh}, nil
}

// Verify authenticates a raw delivery & returns the parsed event. The
// SDK enforces the scheme's timestamp tolerance and accepts any of the
// rotated signature candidates. On any failure the caller must treat
// the payload as untrusted and apply no mutation.
func (v *Verifier) Verify(payload []byte, headers Headers) (*Event, error) {
	if err := v.wh.Verify(payload, headers.httpHeader()); err != nil {
		return nil, err
	}

	event := Event{}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("malformed event payload: %v", err)
	}

	return &event, nil
}
