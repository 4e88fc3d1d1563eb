// Package records is the append-only log of fever-check sessions. The
// payload fields are caller-shaped(string, list or object) and stored
// opaquely; records are never updated or deleted.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/Tanishq-j/CareFever/server/account"
	"github.com/Tanishq-j/CareFever/server/docstore"
	"github.com/pkg/errors"
)

// ErrInvalid marks a rejected record payload(400-class).
var ErrInvalid = errors.New("invalid fever record")

// Record is one fever-check session. The six required fields plus
// symptoms pass through as raw JSON, the shape is the caller's business.
type Record struct {
	ID                  string          `json:"id,omitempty"`
	FeverSeverity       json.RawMessage `json:"feverSeverity,omitempty"`
	PossibleFeverCauses json.RawMessage `json:"possibleFeverCauses,omitempty"`
	FeverManagementTips json.RawMessage `json:"feverManagementTips,omitempty"`
	OtcMedicines        json.RawMessage `json:"otcMedicines,omitempty"`
	UrgentCareAlert     json.RawMessage `json:"urgentCareAlert,omitempty"`
	RedFlagsToWatchFor  json.RawMessage `json:"redFlagsToWatchFor,omitempty"`
	Symptoms            json.RawMessage `json:"symptoms,omitempty"`
	CreatedAt           string          `json:"createdAt,omitempty"`
}

type Service struct {
	store *docstore.Store
}

func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

// Append validates & stores a new record and returns its generated id.
func (s *Service) Append(ctx context.Context, userID string, record Record) (string, error) {
	required := map[string]json.RawMessage{
		"feverSeverity":       record.FeverSeverity,
		"possibleFeverCauses": record.PossibleFeverCauses,
		"feverManagementTips": record.FeverManagementTips,
		"otcMedicines":        record.OtcMedicines,
		"urgentCareAlert":     record.UrgentCareAlert,
		"redFlagsToWatchFor":  record.RedFlagsToWatchFor,
	}

	fields := map[string]interface{}{}
	for name, value := range required {
		if !isPresent(value) {
			return "", errors.Wrapf(ErrInvalid, "%v is required", name)
		}
		fields[name] = value
	}

	if isPresent(record.Symptoms) {
		fields["symptoms"] = record.Symptoms
	}

	recordID := s.store.NewID()
	if err := s.store.Set(ctx, account.RecordsCollection(userID), recordID, fields, false); err != nil {
		return "", err
	}

	return recordID, nil
}

// List returns the user's records newest-first. limit caps the result
// count; limit <= 0 returns the full history. Timestamps are serialized
// to RFC 3339 for transport.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Record, error) {
	docs, err := s.store.List(ctx, account.RecordsCollection(userID), docstore.ListOptions{
		OrderByCreatedAtDesc: true,
		Limit:                limit,
	})
	if err != nil {
		return nil, err
	}

	recordList := make([]Record, 0, len(docs))
	for _, doc := range docs {
		recordList = append(recordList, Record{
			ID:                  doc.ID,
			FeverSeverity:       rawField(doc.Data, "feverSeverity"),
			PossibleFeverCauses: rawField(doc.Data, "possibleFeverCauses"),
			FeverManagementTips: rawField(doc.Data, "feverManagementTips"),
			OtcMedicines:        rawField(doc.Data, "otcMedicines"),
			UrgentCareAlert:     rawField(doc.Data, "urgentCareAlert"),
			RedFlagsToWatchFor:  rawField(doc.Data, "redFlagsToWatchFor"),
			Symptoms:            rawField(doc.Data, "symptoms"),
			CreatedAt:           doc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return recordList, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// isPresent fails required-ness only for absent, null & empty-string
// values. Falsy-but-meaningful JSON like false or 0 is accepted, so a
// record with urgentCareAlert=false still saves.
func isPresent(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)

	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return false
	}

	return true
}

func rawField(data map[string]interface{}, key string) json.RawMessage {
	value, ok := data[key]
	if !ok {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}

	return raw
}
