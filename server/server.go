package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tanishq-j/CareFever/server/account"
	"github.com/Tanishq-j/CareFever/server/auth"
	"github.com/Tanishq-j/CareFever/server/contacts"
	"github.com/Tanishq-j/CareFever/server/cron"
	"github.com/Tanishq-j/CareFever/server/docstore"
	"github.com/Tanishq-j/CareFever/server/gstorage"
	"github.com/Tanishq-j/CareFever/server/logger"
	"github.com/Tanishq-j/CareFever/server/records"
	"github.com/Tanishq-j/CareFever/server/sos"
	"github.com/Tanishq-j/CareFever/server/twilio"
	"github.com/Tanishq-j/CareFever/server/webhook"
	"github.com/Tanishq-j/CareFever/shared"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

type RequestContextKey string

type DecodedJWT struct {
	Claims   *auth.SessionClaims
	ErrorMsg string
}

var (
	logg     = logger.NewLogger()
	validate = validator.New()
)

// app holds the request-layer dependencies; everything is injected so
// tests can swap in doubles.
type app struct {
	accounts        *account.Service
	contactList     *contacts.Service
	recordLog       *records.Service
	dispatcher      *sos.Dispatcher
	verifier        *webhook.Verifier
	sessions        *auth.Verifier
	frontendBaseURL string
}

func newApp(
	store *docstore.Store,
	verifier *webhook.Verifier,
	sessions *auth.Verifier,
	messenger sos.Messenger,
	frontendBaseURL string,
) *app {
	accounts := account.NewService(store)
	contactList := contacts.NewService(store)

	var dispatcher *sos.Dispatcher
	if messenger != nil {
		dispatcher = sos.NewDispatcher(accounts, contactList, messenger, logg)
	}

	return &app{
		accounts:        accounts,
		contactList:     contactList,
		recordLog:       records.NewService(store),
		dispatcher:      dispatcher,
		verifier:        verifier,
		sessions:        sessions,
		frontendBaseURL: frontendBaseURL,
	}
}

func (app *app) router() *mux.Router {
	router := mux.NewRouter()
	router.Use(app.corsMiddleware, loggingMiddleware, app.initialContextMiddleware)

	router.HandleFunc("/health", app.healthHandler).Methods("GET")

	// Backward compatibility route for clients that still post fever
	// records to the root path.
	router.Handle("/save-profile", app.protectedRouteMiddleware(
		http.HandlerFunc(app.saveProfileHandler))).Methods("POST")

	api := router.PathPrefix("/api/user").Subrouter()
	api.HandleFunc("/clerk-user-webhook", app.clerkUserWebhookHandler).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(app.protectedRouteMiddleware)
	protected.HandleFunc("/personal-info", app.updatePersonalInfoHandler).Methods("POST")
	protected.HandleFunc("/save-profile", app.updatePersonalInfoHandler).Methods("POST")
	protected.HandleFunc("/sos-info", app.updateSOSInfoHandler).Methods("POST")
	protected.HandleFunc("/sos-alert", app.sosAlertHandler).Methods("POST")
	protected.HandleFunc("/emergency-contacts", app.saveEmergencyContactsHandler).Methods("POST")
	protected.HandleFunc("/{uid}/emergency-contacts", app.getEmergencyContactsHandler).Methods("GET")
	protected.HandleFunc("/{uid}/past-records", app.getPastRecordsHandler).Methods("GET")
	protected.HandleFunc("/{uid}", app.getUserHandler).Methods("GET")

	return router
}

// Start wires the server from config & blocks until SIGINT/SIGTERM.
func Start(config *viper.Viper, devMode bool) {
	serverConfig := shared.ServerConfig{}
	fatalOnError(config.Unmarshal(&serverConfig))
	fatalOnError(validate.Struct(serverConfig))

	configDir := configDirectory(devMode)

	backupEnabled := fmt.Sprintf("%v", serverConfig.Google.Storage.EnableSqliteBackupAndSync) == "true"

	var gStorage *gstorage.GStorage
	if backupEnabled {
		var err error
		gStorage, err = gstorage.NewGStorage(
			serverConfig.Google.ApplicationCredentials,
			serverConfig.Google.Storage.Bucket,
			serverConfig.Google.Storage.Prefix,
		)
		fatalOnError(err)

		restoreSqliteDbIfMissing(gStorage, configDir)
	}

	store, err := docstore.Open(serverConfig.Sqlite.PassPhrase, configDir)
	fatalOnError(err)

	verifier, err := webhook.NewVerifier(serverConfig.CareFever.Webhook.SigningSecret)
	fatalOnError(err)

	var sessions *auth.Verifier
	if jwksURL := serverConfig.CareFever.IdentityProvider.JwksURL; jwksURL != "" {
		sessions, err = auth.NewVerifierFromURL(context.Background(), jwksURL)
		fatalOnError(err)
	}

	var messenger sos.Messenger
	if serverConfig.Twilio.AccountSid != "" {
		messenger = twilio.NewClient(serverConfig.Twilio)
	} else {
		logg.Warn("twilio is not configured, SOS alerts are disabled")
	}

	app := newApp(store, verifier, sessions, messenger, serverConfig.CareFever.Frontend.BaseURL)

	scheduler := cron.NewCronScheduler(serverConfig.CareFever.Cron.TimeZone)
	if backupEnabled {
		_, err = scheduler.Cron(serverConfig.Google.Storage.SqliteBackupSchedule).
			Do(func() { backupSqliteDb(gStorage, configDir) })
		fatalOnError(err)
	}
	scheduler.StartAsync()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", serverConfig.CareFever.Listener.Port),
		Handler: app.router(),
	}
	go serve(server)

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	<-done

	var backup func()
	if backupEnabled {
		backup = func() { backupSqliteDb(gStorage, configDir) }
	}
	cleanup(scheduler.Stop, server, backup)
}
