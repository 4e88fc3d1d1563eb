package sos

import (
	"context"
	"fmt"
	"testing"

	"github.com/Tanishq-j/CareFever/server/account"
	"github.com/Tanishq-j/CareFever/server/contacts"
	"github.com/Tanishq-j/CareFever/server/docstore"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeMessenger struct {
	sent    map[string]string
	failFor map[string]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{sent: map[string]string{}, failFor: map[string]bool{}}
}

func (m *fakeMessenger) SendMessage(to, msg string) error {
	if m.failFor[to] {
		return fmt.Errorf("delivery failed")
	}
	m.sent[to] = msg
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *docstore.Store, *fakeMessenger) {
	t.Helper()

	store := docstore.NewTestStore(t)
	messenger := newFakeMessenger()
	accounts := account.NewService(store)
	dispatcher := NewDispatcher(accounts, contacts.NewService(store), messenger, zap.NewNop().Sugar())

	return dispatcher, store, messenger
}

func seedUser(t *testing.T, store *docstore.Store, userID string) {
	t.Helper()

	err := store.Set(context.Background(), account.UsersCollection, userID, map[string]interface{}{
		"firstName": "Mike",
		"lastName":  "Ross",
		"sosInfo": map[string]interface{}{
			"name":         "Mike Ross",
			"lastLocation": "43.65, -79.38",
		},
	}, false)
	assert.Nil(t, err)
}

func TestSendAlertTextsEveryContact(t *testing.T) {
	dispatcher, store, messenger := newTestDispatcher(t)
	ctx := context.Background()

	seedUser(t, store, "u1")
	err := contacts.NewService(store).Save(ctx, "u1", []contacts.Contact{
		{Name: "Harvey", Phone: "555-1000", Relation: "Friend"},
		{Name: "Donna", Phone: "555-2000", Relation: "Friend"},
	})
	assert.Nil(t, err)

	sent, err := dispatcher.SendAlert(ctx, "u1", "fever spiking")
	assert.Nil(t, err)
	assert.Equal(t, 2, sent)

	msg := messenger.sent["555-1000"]
	assert.Contains(t, msg, "Mike Ross")
	assert.Contains(t, msg, "43.65, -79.38")
	assert.Contains(t, msg, "fever spiking")
}

func TestSendAlertSurvivesPartialDeliveryFailure(t *testing.T) {
	dispatcher, store, messenger := newTestDispatcher(t)
	ctx := context.Background()

	seedUser(t, store, "u1")
	err := contacts.NewService(store).Save(ctx, "u1", []contacts.Contact{
		{Name: "Harvey", Phone: "555-1000", Relation: "Friend"},
		{Name: "Donna", Phone: "555-2000", Relation: "Friend"},
	})
	assert.Nil(t, err)

	messenger.failFor["555-1000"] = true

	sent, err := dispatcher.SendAlert(ctx, "u1", "")
	assert.Nil(t, err)
	assert.Equal(t, 1, sent)
}

func TestSendAlertFailsWhenNobodyReachable(t *testing.T) {
	dispatcher, store, messenger := newTestDispatcher(t)
	ctx := context.Background()

	seedUser(t, store, "u1")
	err := contacts.NewService(store).Save(ctx, "u1", []contacts.Contact{
		{Name: "Harvey", Phone: "555-1000", Relation: "Friend"},
	})
	assert.Nil(t, err)

	messenger.failFor["555-1000"] = true

	_, err = dispatcher.SendAlert(ctx, "u1", "")
	assert.NotNil(t, err)
}

func TestSendAlertWithoutContacts(t *testing.T) {
	dispatcher, store, _ := newTestDispatcher(t)

	seedUser(t, store, "u1")

	_, err := dispatcher.SendAlert(context.Background(), "u1", "")
	assert.ErrorIs(t, err, ErrNoContacts)
}

func TestSendAlertForUnknownUser(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t)

	_, err := dispatcher.SendAlert(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, account.ErrNotFound)
}
