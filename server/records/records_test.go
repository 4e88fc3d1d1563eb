package records

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Tanishq-j/CareFever/server/docstore"
	"github.com/stretchr/testify/assert"
)

func testRecord(severity string) Record {
	return Record{
		FeverSeverity:       json.RawMessage(`"` + severity + `"`),
		PossibleFeverCauses: json.RawMessage(`["viral infection","dehydration"]`),
		FeverManagementTips: json.RawMessage(`{"rest":"8h","fluids":"2L"}`),
		OtcMedicines:        json.RawMessage(`["acetaminophen"]`),
		UrgentCareAlert:     json.RawMessage(`false`),
		RedFlagsToWatchFor:  json.RawMessage(`["stiff neck"]`),
	}
}

func TestAppendThenList(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))
	ctx := context.Background()

	recordID, err := service.Append(ctx, "u1", testRecord("mild"))
	assert.Nil(t, err)
	assert.NotEmpty(t, recordID)

	stored, err := service.List(ctx, "u1", 0)
	assert.Nil(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, recordID, stored[0].ID)
	assert.JSONEq(t, `"mild"`, string(stored[0].FeverSeverity))
	assert.JSONEq(t, `["viral infection","dehydration"]`, string(stored[0].PossibleFeverCauses))
	assert.JSONEq(t, `{"rest":"8h","fluids":"2L"}`, string(stored[0].FeverManagementTips))

	_, err = time.Parse(time.RFC3339, stored[0].CreatedAt)
	assert.Nil(t, err, "createdAt should serialize as RFC 3339")
}

func TestListNewestFirstWithLimit(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))
	ctx := context.Background()

	ids := []string{}
	for _, severity := range []string{"mild", "moderate", "high"} {
		id, err := service.Append(ctx, "u1", testRecord(severity))
		assert.Nil(t, err)
		ids = append(ids, id)

		time.Sleep(5 * time.Millisecond)
	}

	stored, err := service.List(ctx, "u1", 2)
	assert.Nil(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, ids[2], stored[0].ID, "newest record first")
	assert.Equal(t, ids[1], stored[1].ID)

	all, err := service.List(ctx, "u1", 0)
	assert.Nil(t, err)
	assert.Len(t, all, 3, "no limit should return full history")
}

func TestAppendRejectsMissingRequiredFields(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))
	ctx := context.Background()

	record := testRecord("mild")
	record.UrgentCareAlert = nil
	_, err := service.Append(ctx, "u1", record)
	assert.ErrorIs(t, err, ErrInvalid)

	record = testRecord("mild")
	record.FeverSeverity = json.RawMessage(`""`)
	_, err = service.Append(ctx, "u1", record)
	assert.ErrorIs(t, err, ErrInvalid, "empty string fails required-ness")

	record = testRecord("mild")
	record.RedFlagsToWatchFor = json.RawMessage(`null`)
	_, err = service.Append(ctx, "u1", record)
	assert.ErrorIs(t, err, ErrInvalid, "null fails required-ness")

	stored, listErr := service.List(ctx, "u1", 0)
	assert.Nil(t, listErr)
	assert.Empty(t, stored)
}

func TestAppendAcceptsFalsyFieldValues(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))
	ctx := context.Background()

	record := testRecord("mild")
	record.UrgentCareAlert = json.RawMessage(`false`)
	record.FeverSeverity = json.RawMessage(`0`)

	recordID, err := service.Append(ctx, "u1", record)
	assert.Nil(t, err)
	assert.NotEmpty(t, recordID)

	stored, err := service.List(ctx, "u1", 0)
	assert.Nil(t, err)
	assert.Len(t, stored, 1)
	assert.JSONEq(t, `false`, string(stored[0].UrgentCareAlert))
	assert.JSONEq(t, `0`, string(stored[0].FeverSeverity))
}

func TestSymptomsAreOptional(t *testing.T) {
	service := NewService(docstore.NewTestStore(t))
	ctx := context.Background()

	record := testRecord("mild")
	record.Symptoms = json.RawMessage(`["headache","chills"]`)
	_, err := service.Append(ctx, "u1", record)
	assert.Nil(t, err)

	_, err = service.Append(ctx, "u1", testRecord("moderate"))
	assert.Nil(t, err)

	stored, err := service.List(ctx, "u1", 0)
	assert.Nil(t, err)
	assert.Len(t, stored, 2)
	assert.Nil(t, stored[0].Symptoms)
	assert.JSONEq(t, `["headache","chills"]`, string(stored[1].Symptoms))
}
