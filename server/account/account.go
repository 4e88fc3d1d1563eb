// Package account is the user-record service: one document per
// identity-provider user, kept in sync by webhook events and merge-updated
// by the personal-info & SOS endpoints.
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/Tanishq-j/CareFever/server/docstore"
	"github.com/Tanishq-j/CareFever/server/webhook"
	"github.com/pkg/errors"
)

const UsersCollection = "users"

// ErrNotFound is returned when the addressed user document is absent.
var ErrNotFound = docstore.ErrNotFound

// ErrInvalid marks a rejected payload(400-class).
var ErrInvalid = errors.New("invalid account payload")

// ContactsCollection is the per-user emergency-contacts sub-collection.
func ContactsCollection(userID string) string {
	return fmt.Sprintf("%v/%v/emergency-contacts", UsersCollection, userID)
}

// RecordsCollection is the per-user past-records sub-collection.
func RecordsCollection(userID string) string {
	return fmt.Sprintf("%v/%v/past-records", UsersCollection, userID)
}

type PersonalInfo struct {
	Phone           string `json:"phone"`
	Age             string `json:"age"`
	Address         string `json:"address"`
	CurrentLocation string `json:"currentLocation"`
}

type SOSInfo struct {
	Name         string `json:"name"`
	Age          int    `json:"age"`
	LastLocation string `json:"lastLocation"`
}

type Service struct {
	store *docstore.Store
}

func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

// ApplyIdentityEvent applies a verified user-lifecycle event. Replayed
// deliveries converge on the same end state: create is a set, update a
// merge & delete removes whatever is left.
func (s *Service) ApplyIdentityEvent(ctx context.Context, event *webhook.Event) error {
	data := event.Data

	switch event.Type {
	case webhook.UserCreated:
		return s.store.Set(ctx, UsersCollection, data.ID, map[string]interface{}{
			"email":       data.PrimaryEmail(),
			"firstName":   data.FirstName,
			"lastName":    data.LastName,
			"clerkUserId": data.ID,
			"imageUrl":    data.ImageURL,
			"createdAt":   data.CreatedAt,
		}, false)

	case webhook.UserUpdated:
		return s.store.Update(ctx, UsersCollection, data.ID, map[string]interface{}{
			"email":     data.PrimaryEmail(),
			"firstName": data.FirstName,
			"lastName":  data.LastName,
			"imageUrl":  data.ImageURL,
			"updatedAt": data.UpdatedAt,
		})

	case webhook.UserDeleted:
		return s.deleteUserAndSubCollections(ctx, data.ID)
	}

	return fmt.Errorf("unhandled event type: %v", event.Type)
}

// Get returns the full stored user document.
func (s *Service) Get(ctx context.Context, userID string) (map[string]interface{}, error) {
	doc, err := s.store.Get(ctx, UsersCollection, userID)
	if err != nil {
		return nil, err
	}

	return doc.Data, nil
}

// UpdatePersonalInfo merges the given fields into the user document and
// marks personal info as completed. Identity fields & sub-collections are
// untouched(merge write).
func (s *Service) UpdatePersonalInfo(ctx context.Context, userID string, info PersonalInfo) error {
	return s.store.Set(ctx, UsersCollection, userID, map[string]interface{}{
		"phone":                 info.Phone,
		"age":                   info.Age,
		"address":               info.Address,
		"currentLocation":       info.CurrentLocation,
		"personalInfoCompleted": true,
		"updatedAt":             time.Now().UTC().Format(time.RFC3339),
	}, true)
}

// UpdateSOSInfo merges the sosInfo object into the user document.
func (s *Service) UpdateSOSInfo(ctx context.Context, userID string, info SOSInfo) error {
	if info.Name == "" {
		return errors.Wrap(ErrInvalid, "sos name is required")
	}
	if info.Age < 1 || info.Age > 150 {
		return errors.Wrap(ErrInvalid, "sos age must be between 1 and 150")
	}

	return s.store.Set(ctx, UsersCollection, userID, map[string]interface{}{
		"sosInfo": map[string]interface{}{
			"name":         info.Name,
			"age":          info.Age,
			"lastLocation": info.LastLocation,
		},
		"updatedAt": time.Now().UTC().Format(time.RFC3339),
	}, true)
}

// deleteUserAndSubCollections removes the user document together with its
// emergency contacts & past records in one batch, so a deleted user
// leaves nothing behind.
func (s *Service) deleteUserAndSubCollections(ctx context.Context, userID string) error {
	batch := s.store.Batch()
	batch.Delete(UsersCollection, userID)

	for _, collection := range []string{ContactsCollection(userID), RecordsCollection(userID)} {
		docs, err := s.store.List(ctx, collection, docstore.ListOptions{})
		if err != nil {
			return err
		}
		for _, doc := range docs {
			batch.Delete(collection, doc.ID)
		}
	}

	return batch.Commit(ctx)
}
