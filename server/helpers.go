package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tanishq-j/CareFever/server/docstore"
	"github.com/Tanishq-j/CareFever/server/gstorage"
	"github.com/Tanishq-j/CareFever/utils"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func decodeJSONBody(r *http.Request, data interface{}) error {
	return json.NewDecoder(r.Body).Decode(data)
}

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Error)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Error)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func (app *app) decodeAndVerifyAuthHeader(authHeaderValue string) DecodedJWT {
	if app.sessions == nil {
		return DecodedJWT{ErrorMsg: "token verification disabled"}
	}

	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := app.sessions.DecodeSessionToken(authHeaderList[1])
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

// canAccessUserResource guards routes that carry the user id in the
// request body rather than the path. With token checks disabled every
// caller is allowed, matching the original surface.
func (app *app) canAccessUserResource(r *http.Request, userID string) bool {
	if app.sessions == nil {
		return true
	}

	decodedJWT, ok := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
	if !ok || decodedJWT.ErrorMsg != "" {
		return false
	}

	return decodedJWT.Claims.Subject == userID
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("CareFever server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(stopScheduler func(), server *http.Server, backup func()) {
	if stopScheduler != nil {
		stopScheduler()
	}

	if backup != nil {
		backup()
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("CareFever server shutdown failed:%+s", err)
	}

	logg.Infof("CareFever server stopped properly")
}

func backupSqliteDb(gStorage *gstorage.GStorage, rootDir string) {
	dbDir, err := docstore.DbDirectory(rootDir)
	if err != nil {
		logg.Errorf("unable to locate db directory for backup: %v", err)
		return
	}

	err = gStorage.UploadFile(context.Background(), filepath.Join(dbDir, docstore.DB_NAME))
	if err != nil {
		logg.Errorf("sqlite backup failed: %v", err)
		return
	}

	logg.Infof("sqlite db backed up to cloud storage")
}

// restoreSqliteDbIfMissing pulls the last uploaded backup when no local
// db file exists yet e.g. on a fresh host.
func restoreSqliteDbIfMissing(gStorage *gstorage.GStorage, rootDir string) {
	dbDir, err := docstore.DbDirectory(rootDir)
	if err != nil {
		logg.Errorf("unable to locate db directory for restore: %v", err)
		return
	}

	dbFilePath := filepath.Join(dbDir, docstore.DB_NAME)
	if utils.FileExist(dbFilePath) {
		return
	}

	err = gStorage.DownloadFile(context.Background(), docstore.DB_NAME, dbFilePath)
	if err == gstorage.ErrObjectNotExist {
		logg.Infof("no remote sqlite backup to restore")
		return
	}
	if err != nil {
		logg.Errorf("sqlite restore failed: %v", err)
		return
	}

	logg.Infof("sqlite db restored from cloud storage")
}

// configDirectory retrieves the directory for carefever data/configs
// Or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'carefever' folder in home directory for prod
	configFolderName := "carefever"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
