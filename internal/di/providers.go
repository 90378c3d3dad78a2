// Package di assembles the service: mongo-backed store and blobs, the
// optional MySQL audit trail, auth, the mutation services and the HTTP
// server.
package di

import (
	"log"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/api"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/auth"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/config"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/dbmongo"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/dbmysql"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/media"
)

type Application struct {
	Config config.Config
	Mongo  *dbmongo.MongoClient
	Store  *dbmongo.DocStore
	Server *api.Server
}

func ProvideMongoClient(cfg config.Config) (*dbmongo.MongoClient, error) {
	return dbmongo.NewMongoConnection(cfg.Mongo)
}

func ProvideDocStore(cfg config.Config, client *dbmongo.MongoClient) *dbmongo.DocStore {
	return dbmongo.NewDocStore(client, cfg.Store.PollInterval)
}

func ProvideBlobStorage(client *dbmongo.MongoClient) *dbmongo.BlobStorage {
	return dbmongo.NewBlobStorage(client)
}

// ProvideAuditRecorder connects the MySQL trail when one is configured. A
// missing database name disables auditing rather than failing startup.
func ProvideAuditRecorder(cfg config.Config) common.AuditRecorder {
	if cfg.MySQL.Database == "" {
		log.Println("audit trail disabled: mysql database not configured")
		return nil
	}
	db, err := dbmysql.NewMySQL(cfg.MySQL)
	if err != nil {
		log.Printf("audit trail disabled: %v", err)
		return nil
	}
	return dbmysql.NewAuditRepository(db)
}

func ProvideAuthProvider(cfg config.Config, ds *dbmongo.DocStore) *auth.Provider {
	return auth.NewProvider(ds, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
}

func ProvideMediaHandler(blobs *dbmongo.BlobStorage) *media.Handler {
	return media.NewHandler(blobs)
}
