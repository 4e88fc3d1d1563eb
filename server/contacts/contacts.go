// Package contacts is the emergency-contacts service. A user keeps 1-4
// contacts, and every save replaces the whole set in one atomic batch.
package contacts

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Tanishq-j/CareFever/server/account"
	"github.com/Tanishq-j/CareFever/server/docstore"
	"github.com/pkg/errors"
)

const MaxContacts = 4

// ErrInvalid marks a rejected contact list(400-class).
var ErrInvalid = errors.New("invalid contact list")

// Permissive pattern: digits plus common separators, matching what the
// client accepts.
var phonePattern = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)

type Contact struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
	Location string `json:"location,omitempty"`
}

type Service struct {
	store *docstore.Store
}

func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

// Save replaces the user's entire contact set: the existing documents are
// deleted & the submitted ones inserted in a single batch, so a failed
// save never leaves a partial set behind.
func (s *Service) Save(ctx context.Context, userID string, contactList []Contact) error {
	if err := validateContactList(contactList); err != nil {
		return err
	}

	collection := account.ContactsCollection(userID)

	existing, err := s.store.List(ctx, collection, docstore.ListOptions{})
	if err != nil {
		return err
	}

	batch := s.store.Batch()
	for _, doc := range existing {
		batch.Delete(collection, doc.ID)
	}

	for _, contact := range contactList {
		batch.Set(collection, s.store.NewID(), map[string]interface{}{
			"name":     strings.TrimSpace(contact.Name),
			"phone":    strings.TrimSpace(contact.Phone),
			"relation": strings.TrimSpace(contact.Relation),
			"location": strings.TrimSpace(contact.Location),
		})
	}

	return batch.Commit(ctx)
}

// List returns every stored contact with its storage id. Order is
// whatever the store hands back.
func (s *Service) List(ctx context.Context, userID string) ([]Contact, error) {
	docs, err := s.store.List(ctx, account.ContactsCollection(userID), docstore.ListOptions{})
	if err != nil {
		return nil, err
	}

	contactList := make([]Contact, 0, len(docs))
	for _, doc := range docs {
		contactList = append(contactList, Contact{
			ID:       doc.ID,
			Name:     stringField(doc.Data, "name"),
			Phone:    stringField(doc.Data, "phone"),
			Relation: stringField(doc.Data, "relation"),
			Location: stringField(doc.Data, "location"),
		})
	}

	return contactList, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func validateContactList(contactList []Contact) error {
	if len(contactList) == 0 {
		return errors.Wrap(ErrInvalid, "at least one contact is required")
	}

	if len(contactList) > MaxContacts {
		return errors.Wrapf(ErrInvalid, "at most %v contacts are allowed", MaxContacts)
	}

	for i, contact := range contactList {
		label := fmt.Sprintf("contact %v", i+1)

		if strings.TrimSpace(contact.Name) == "" {
			return errors.Wrapf(ErrInvalid, "%v: name is required", label)
		}
		if strings.TrimSpace(contact.Phone) == "" {
			return errors.Wrapf(ErrInvalid, "%v: phone is required", label)
		}
		if !phonePattern.MatchString(strings.TrimSpace(contact.Phone)) {
			return errors.Wrapf(ErrInvalid, "%v: invalid phone number", label)
		}
		if strings.TrimSpace(contact.Relation) == "" {
			return errors.Wrapf(ErrInvalid, "%v: relation is required", label)
		}
	}

	return nil
}

func stringField(data map[string]interface{}, key string) string {
	value, _ := data[key].(string)
	return value
}
