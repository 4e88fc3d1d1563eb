package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Tanishq-j/CareFever/colors"
	"github.com/gorilla/mux"
)

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         200,
		}

		defer func() {
			responseStatus := colors.Green(responseWriter.Status)
			if responseWriter.Status >= 400 {
				responseStatus = colors.Red(responseWriter.Status)
			}

			logg.Infof("%v %v %v %v",
				r.Method,
				r.RequestURI,
				responseStatus,
				colors.Yellow(fmt.Sprintf("[%v]", time.Since(start))))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

// corsMiddleware allows the configured front-end origin(or any origin
// when none is configured) & answers preflight requests.
func (app *app) corsMiddleware(next http.Handler) http.Handler {
	origin := app.frontendBaseURL
	if origin == "" {
		origin = "*"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, svix-id, svix-timestamp, svix-signature")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *app) initialContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")

		// Add decoded session token to request context
		ctx := context.WithValue(r.Context(),
			RequestContextKey("decodedJWT"), app.decodeAndVerifyAuthHeader(r.Header.Get("Authorization")))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// protectedRouteMiddleware requires a valid provider session token on
// user-scoped routes whenever the identity provider's JWKS is
// configured. The webhook route stays signature-protected only.
func (app *app) protectedRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.sessions == nil {
			next.ServeHTTP(w, r)
			return
		}

		decodedJWT := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
		if decodedJWT.ErrorMsg != "" {
			writeResponse(w, ResponsePayload{Error: decodedJWT.ErrorMsg}, http.StatusUnauthorized)
			return
		}

		// client is only able to view/update their own record
		uid := mux.Vars(r)["uid"]
		if uid != "" && uid != decodedJWT.Claims.Subject {
			writeResponse(w, ResponsePayload{Error: "action is forbidden"}, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
