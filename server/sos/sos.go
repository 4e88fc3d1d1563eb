// Package sos texts a user's emergency contacts when they raise an
// alert.
package sos

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tanishq-j/CareFever/server/account"
	"github.com/Tanishq-j/CareFever/server/contacts"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNoContacts is returned when an alert is raised before any
// emergency contacts are on file.
var ErrNoContacts = errors.New("no emergency contacts on file")

// Messenger delivers a single text message. The production
// implementation is the twilio client wrapper.
type Messenger interface {
	SendMessage(to, msg string) error
}

type Dispatcher struct {
	accounts    *account.Service
	contactList *contacts.Service
	messenger   Messenger
	logg        *zap.SugaredLogger
}

func NewDispatcher(
	accounts *account.Service,
	contactList *contacts.Service,
	messenger Messenger,
	logg *zap.SugaredLogger,
) *Dispatcher {
	return &Dispatcher{
		accounts:    accounts,
		contactList: contactList,
		messenger:   messenger,
		logg:        logg,
	}
}

// SendAlert texts every emergency contact of the user. A delivery
// failure to one contact doesn't stop the rest; the call only fails
// when no message could be sent at all. Returns the number of contacts
// reached.
func (d *Dispatcher) SendAlert(ctx context.Context, userID, note string) (int, error) {
	user, err := d.accounts.Get(ctx, userID)
	if err != nil {
		return 0, err
	}

	contactList, err := d.contactList.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(contactList) == 0 {
		return 0, ErrNoContacts
	}

	msg := alertMessage(user, note)

	sent := 0
	for _, contact := range contactList {
		if err := d.messenger.SendMessage(contact.Phone, msg); err != nil {
			d.logg.Errorf("unable to reach %v(%v): %v", contact.Name, contact.Phone, err)
			continue
		}
		sent++
	}

	if sent == 0 {
		return 0, fmt.Errorf("unable to reach any of the %v emergency contacts", len(contactList))
	}

	return sent, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func alertMessage(user map[string]interface{}, note string) string {
	name := displayName(user)
	location := lastKnownLocation(user)

	var builder strings.Builder
	fmt.Fprintf(&builder, "CareFever SOS: %v may need urgent help.", name)
	if location != "" {
		fmt.Fprintf(&builder, " Last known location: %v.", location)
	}
	if strings.TrimSpace(note) != "" {
		fmt.Fprintf(&builder, " Note: %v", strings.TrimSpace(note))
	}

	return builder.String()
}

func displayName(user map[string]interface{}) string {
	if sosInfo, ok := user["sosInfo"].(map[string]interface{}); ok {
		if name, ok := sosInfo["name"].(string); ok && name != "" {
			return name
		}
	}

	firstName, _ := user["firstName"].(string)
	lastName, _ := user["lastName"].(string)
	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" {
		return "A CareFever user"
	}

	return name
}

func lastKnownLocation(user map[string]interface{}) string {
	if sosInfo, ok := user["sosInfo"].(map[string]interface{}); ok {
		if location, ok := sosInfo["lastLocation"].(string); ok && location != "" {
			return location
		}
	}

	location, _ := user["currentLocation"].(string)
	return location
}
