//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/api"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/blob"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/config"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/dbmongo"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/event"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/notice"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

// Declaration only; wire generates the real body in wire_gen.go.
func InitializeApplication(cfg config.Config) (*Application, error) {
	wire.Build(
		ProvideMongoClient,
		ProvideDocStore,
		ProvideBlobStorage,
		ProvideAuditRecorder,
		ProvideAuthProvider,
		ProvideMediaHandler,
		wire.Bind(new(store.Store), new(*dbmongo.DocStore)),
		wire.Bind(new(blob.Uploader), new(*dbmongo.BlobStorage)),
		notice.NewService,
		event.NewService,
		api.NewServer,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil
}
