package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/Tanishq-j/CareFever/server/account"
	"github.com/Tanishq-j/CareFever/server/contacts"
	"github.com/Tanishq-j/CareFever/server/records"
	"github.com/Tanishq-j/CareFever/server/sos"
	"github.com/Tanishq-j/CareFever/server/webhook"
	"github.com/Tanishq-j/CareFever/version"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// ResponsePayload is the JSON envelope on every response.
type ResponsePayload struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	RecordID string      `json:"recordId,omitempty"`
}

func (app *app) clerkUserWebhookHandler(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	event, err := app.verifier.Verify(body, webhook.HeadersFromMap(r.Header.Get))
	if err != nil {
		writeResponse(rw,
			ResponsePayload{Message: "Webhook verification failed", Error: err.Error()},
			http.StatusBadRequest)
		return
	}

	switch event.Type {
	case webhook.UserCreated, webhook.UserUpdated, webhook.UserDeleted:
		if err := app.accounts.ApplyIdentityEvent(r.Context(), event); err != nil {
			writeResponse(rw, ResponsePayload{Error: err.Error()}, statusForError(err))
			return
		}
	default:
		logg.Infof("unhandled event type: %v", event.Type)
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (app *app) getUserHandler(rw http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["uid"]

	user, err := app.accounts.Get(r.Context(), userID)
	if errors.Is(err, account.ErrNotFound) {
		writeResponse(rw, ResponsePayload{Message: "User not found"}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Message: "Failed to fetch user data", Error: err.Error()},
			http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: user}, http.StatusOK)
}

func (app *app) updatePersonalInfoHandler(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		UserID       string               `json:"userId"`
		PersonalInfo account.PersonalInfo `json:"personalInfo"`
	}{}

	if !decodeBody(rw, r, &data) {
		return
	}
	if data.UserID == "" {
		writeResponse(rw, ResponsePayload{Message: "User ID is required"}, http.StatusBadRequest)
		return
	}
	if !app.canAccessUserResource(r, data.UserID) {
		writeResponse(rw, ResponsePayload{Error: "action is forbidden"}, http.StatusForbidden)
		return
	}

	if err := app.accounts.UpdatePersonalInfo(r.Context(), data.UserID, data.PersonalInfo); err != nil {
		writeResponse(rw,
			ResponsePayload{Message: "Failed to update personal information", Error: err.Error()},
			http.StatusInternalServerError)
		return
	}

	writeResponse(rw,
		ResponsePayload{Success: true, Message: "Personal information updated successfully"},
		http.StatusOK)
}

func (app *app) updateSOSInfoHandler(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		UserID  string          `json:"userId"`
		SOSInfo account.SOSInfo `json:"sosInfo"`
	}{}

	if !decodeBody(rw, r, &data) {
		return
	}
	if data.UserID == "" {
		writeResponse(rw, ResponsePayload{Message: "User ID is required"}, http.StatusBadRequest)
		return
	}
	if !app.canAccessUserResource(r, data.UserID) {
		writeResponse(rw, ResponsePayload{Error: "action is forbidden"}, http.StatusForbidden)
		return
	}

	if err := app.accounts.UpdateSOSInfo(r.Context(), data.UserID, data.SOSInfo); err != nil {
		writeResponse(rw,
			ResponsePayload{Message: "Failed to update SOS information", Error: err.Error()},
			statusForError(err))
		return
	}

	writeResponse(rw,
		ResponsePayload{Success: true, Message: "SOS information updated successfully"},
		http.StatusOK)
}

func (app *app) saveEmergencyContactsHandler(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		UserID   string             `json:"userId"`
		Contacts []contacts.Contact `json:"contacts"`
	}{}

	if !decodeBody(rw, r, &data) {
		return
	}
	if data.UserID == "" {
		writeResponse(rw, ResponsePayload{Message: "User ID is required"}, http.StatusBadRequest)
		return
	}
	if !app.canAccessUserResource(r, data.UserID) {
		writeResponse(rw, ResponsePayload{Error: "action is forbidden"}, http.StatusForbidden)
		return
	}

	if err := app.contactList.Save(r.Context(), data.UserID, data.Contacts); err != nil {
		writeResponse(rw,
			ResponsePayload{Message: "Failed to save emergency contacts", Error: err.Error()},
			statusForError(err))
		return
	}

	writeResponse(rw,
		ResponsePayload{Success: true, Message: "Emergency contacts saved successfully"},
		http.StatusOK)
}

func (app *app) getEmergencyContactsHandler(rw http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["uid"]

	contactList, err := app.contactList.List(r.Context(), userID)
	if err != nil {
		writeResponse(rw,
			ResponsePayload{Message: "Failed to fetch emergency contacts", Error: err.Error()},
			http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contactList}, http.StatusOK)
}

func (app *app) saveProfileHandler(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		UserID string `json:"userId"`
		records.Record
	}{}

	if !decodeBody(rw, r, &data) {
		return
	}
	if data.UserID == "" {
		writeResponse(rw, ResponsePayload{Message: "User ID is required"}, http.StatusBadRequest)
		return
	}
	if !app.canAccessUserResource(r, data.UserID) {
		writeResponse(rw, ResponsePayload{Error: "action is forbidden"}, http.StatusForbidden)
		return
	}

	recordID, err := app.recordLog.Append(r.Context(), data.UserID, data.Record)
	if errors.Is(err, records.ErrInvalid) {
		writeResponse(rw, ResponsePayload{Message: "All fields are required"}, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeResponse(rw,
			ResponsePayload{Message: "Failed to save profile", Error: err.Error()},
			http.StatusInternalServerError)
		return
	}

	writeResponse(rw,
		ResponsePayload{Success: true, Message: "Profile saved successfully", RecordID: recordID},
		http.StatusOK)
}

func (app *app) getPastRecordsHandler(rw http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["uid"]

	limit := 0
	if limitArg := r.URL.Query().Get("limit"); limitArg != "" {
		parsed, err := strconv.Atoi(limitArg)
		if err != nil {
			writeResponse(rw, ResponsePayload{Message: "limit must be a number"}, http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	recordList, err := app.recordLog.List(r.Context(), userID, limit)
	if err != nil {
		writeResponse(rw,
			ResponsePayload{Message: "Failed to fetch past records", Error: err.Error()},
			http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: recordList}, http.StatusOK)
}

func (app *app) sosAlertHandler(rw http.ResponseWriter, r *http.Request) {
	if app.dispatcher == nil {
		writeResponse(rw,
			ResponsePayload{Message: "SOS alerts are not configured"},
			http.StatusServiceUnavailable)
		return
	}

	data := struct {
		UserID string `json:"userId"`
		Note   string `json:"note"`
	}{}

	if !decodeBody(rw, r, &data) {
		return
	}
	if data.UserID == "" {
		writeResponse(rw, ResponsePayload{Message: "User ID is required"}, http.StatusBadRequest)
		return
	}
	if !app.canAccessUserResource(r, data.UserID) {
		writeResponse(rw, ResponsePayload{Error: "action is forbidden"}, http.StatusForbidden)
		return
	}

	notified, err := app.dispatcher.SendAlert(r.Context(), data.UserID, data.Note)
	if err != nil {
		writeResponse(rw,
			ResponsePayload{Message: "Failed to send SOS alert", Error: err.Error()},
			statusForError(err))
		return
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Message: "SOS alert sent",
		Data:    map[string]interface{}{"contactsNotified": notified},
	}, http.StatusOK)
}

func (app *app) healthHandler(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"status": "ok", "version": version.Version},
	}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func decodeBody(rw http.ResponseWriter, r *http.Request, data interface{}) bool {
	if err := decodeJSONBody(r, data); err != nil {
		writeResponse(rw, ResponsePayload{Message: "Invalid request body", Error: err.Error()},
			http.StatusBadRequest)
		return false
	}

	return true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, account.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, account.ErrInvalid),
		errors.Is(err, contacts.ErrInvalid),
		errors.Is(err, records.ErrInvalid),
		errors.Is(err, sos.ErrNoContacts):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
