package account

import (
	"context"
	"testing"

	"github.com/Tanishq-j/CareFever/server/docstore"
	"github.com/Tanishq-j/CareFever/server/webhook"
	"github.com/stretchr/testify/assert"
)

func createdEvent(id, email, firstName string) *webhook.Event {
	return &webhook.Event{
		Type: webhook.UserCreated,
		Data: webhook.UserData{
			ID:             id,
			EmailAddresses: []webhook.EmailAddress{{EmailAddress: email}},
			FirstName:      firstName,
			CreatedAt:      1700000000000,
		},
	}
}

func TestApplyIdentityEventUserCreated(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))
	ctx := context.Background()

	assert.Nil(t, service.ApplyIdentityEvent(ctx, createdEvent("u1", "mike@pearson.com", "Mike")))

	user, err := service.Get(ctx, "u1")
	assert.Nil(t, err)
	assert.Equal(t, "mike@pearson.com", user["email"])
	assert.Equal(t, "Mike", user["firstName"])
	assert.Equal(t, "u1", user["clerkUserId"])
	assert.Equal(t, "", user["lastName"], "absent names default to empty string")
}

func TestApplyIdentityEventIsReplaySafe(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))
	ctx := context.Background()

	event := createdEvent("u1", "mike@pearson.com", "Mike")
	assert.Nil(t, service.ApplyIdentityEvent(ctx, event))
	assert.Nil(t, service.ApplyIdentityEvent(ctx, event), "replayed delivery should converge, not fail")

	user, err := service.Get(ctx, "u1")
	assert.Nil(t, err)
	assert.Equal(t, "Mike", user["firstName"])
}

func TestApplyIdentityEventUserUpdated(t *testing.T) {
	store := docstore.NewTestStore(t)
	service := NewService(store)
	ctx := context.Background()

	assert.Nil(t, service.ApplyIdentityEvent(ctx, createdEvent("u1", "mike@pearson.com", "Mike")))
	assert.Nil(t, service.UpdatePersonalInfo(ctx, "u1", PersonalInfo{Phone: "555-1000"}))

	err := service.ApplyIdentityEvent(ctx, &webhook.Event{
		Type: webhook.UserUpdated,
		Data: webhook.UserData{
			ID:             "u1",
			EmailAddresses: []webhook.EmailAddress{{EmailAddress: "mike@specter.com"}},
			FirstName:      "Mike",
			LastName:       "Ross",
			UpdatedAt:      1700000001000,
		},
	})
	assert.Nil(t, err)

	user, err := service.Get(ctx, "u1")
	assert.Nil(t, err)
	assert.Equal(t, "mike@specter.com", user["email"])
	assert.Equal(t, "Ross", user["lastName"])
	assert.Equal(t, "555-1000", user["phone"], "identity merge should not clobber personal info")
}

func TestApplyIdentityEventUserUpdatedForMissingUser(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))

	err := service.ApplyIdentityEvent(context.Background(), &webhook.Event{
		Type: webhook.UserUpdated,
		Data: webhook.UserData{ID: "ghost"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyIdentityEventUserDeletedCascades(t *testing.T) {
	store := docstore.NewTestStore(t)
	service := NewService(store)
	ctx := context.Background()

	assert.Nil(t, service.ApplyIdentityEvent(ctx, createdEvent("u1", "mike@pearson.com", "Mike")))
	assert.Nil(t, store.Set(ctx, ContactsCollection("u1"), store.NewID(), map[string]interface{}{"name": "A"}, false))
	assert.Nil(t, store.Set(ctx, RecordsCollection("u1"), store.NewID(), map[string]interface{}{"feverSeverity": "mild"}, false))

	err := service.ApplyIdentityEvent(ctx, &webhook.Event{
		Type: webhook.UserDeleted,
		Data: webhook.UserData{ID: "u1"},
	})
	assert.Nil(t, err)

	_, err = service.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	contacts, err := store.List(ctx, ContactsCollection("u1"), docstore.ListOptions{})
	assert.Nil(t, err)
	assert.Empty(t, contacts, "contacts should be removed with the user")

	records, err := store.List(ctx, RecordsCollection("u1"), docstore.ListOptions{})
	assert.Nil(t, err)
	assert.Empty(t, records, "past records should be removed with the user")
}

func TestUpdatePersonalInfo(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))
	ctx := context.Background()

	assert.Nil(t, service.ApplyIdentityEvent(ctx, createdEvent("u1", "mike@pearson.com", "Mike")))

	err := service.UpdatePersonalInfo(ctx, "u1", PersonalInfo{
		Phone:           "555-1000",
		Age:             "30",
		Address:         "1 Main St",
		CurrentLocation: "X",
	})
	assert.Nil(t, err)

	user, err := service.Get(ctx, "u1")
	assert.Nil(t, err)
	assert.Equal(t, "555-1000", user["phone"])
	assert.Equal(t, "30", user["age"])
	assert.Equal(t, "1 Main St", user["address"])
	assert.Equal(t, "X", user["currentLocation"])
	assert.Equal(t, true, user["personalInfoCompleted"])
	assert.Equal(t, "mike@pearson.com", user["email"], "merge should leave identity fields untouched")
}

func TestUpdateSOSInfo(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))
	ctx := context.Background()

	assert.Nil(t, service.ApplyIdentityEvent(ctx, createdEvent("u1", "mike@pearson.com", "Mike")))

	err := service.UpdateSOSInfo(ctx, "u1", SOSInfo{Name: "Mike Ross", Age: 30, LastLocation: "43.65, -79.38"})
	assert.Nil(t, err)

	user, err := service.Get(ctx, "u1")
	assert.Nil(t, err)

	sosInfo, ok := user["sosInfo"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "Mike Ross", sosInfo["name"])
	assert.Equal(t, "43.65, -79.38", sosInfo["lastLocation"])
}

func TestUpdateSOSInfoRejectsBadAge(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))

	for _, age := range []int{0, -1, 151} {
		err := service.UpdateSOSInfo(context.Background(), "u1", SOSInfo{Name: "Mike", Age: age})
		assert.ErrorIs(t, err, ErrInvalid)
	}
}
