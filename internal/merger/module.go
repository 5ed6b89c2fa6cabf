package merger

import (
	"context"
	"time"

	"github.com/FlavienRemy/csv-merger/internal/merger/event"
	"github.com/FlavienRemy/csv-merger/internal/merger/inbound"
	"github.com/FlavienRemy/csv-merger/internal/merger/store"
	"github.com/FlavienRemy/csv-merger/internal/merger/usecase"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgconfig"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgrouter"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgroutine"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgtable"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkguid"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
	RunID     pkguid.NumberID
}

func New(dep Dependency) (func(context.Context) error, error) {
	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}
	if dep.RunID == nil {
		sf, err := pkguid.NewSnowflake()
		if err != nil {
			return nil, err
		}
		dep.RunID = sf
	}

	delimiter, err := pkgtable.ParseDelimiter(dep.Config.GetString("modules.merger.csv.delimiter"))
	if err != nil {
		return nil, err
	}

	storage := store.NewInMemoryStore()
	bus := event.NewBus(int(dep.Config.GetInt("modules.merger.event.buffer")))
	consumer := event.NewConsumer(bus, event.AuditLogger{}, event.ConsumerConfig{
		Workers:     int(dep.Config.GetInt("modules.merger.event.workers")),
		MaxRetries:  int(dep.Config.GetInt("modules.merger.event.max_retries")),
		BaseBackoff: time.Duration(dep.Config.GetInt("modules.merger.event.base_backoff_ms")) * time.Millisecond,
	})
	consumer.Start()

	uc := usecase.New(usecase.Dependency{
		Store:        storage,
		Events:       bus,
		Runner:       dep.Goroutine,
		ID:           dep.ID,
		RunID:        dep.RunID,
		RootCtx:      dep.Context,
		ParseOptions: pkgtable.ParseOptions{Delimiter: delimiter},
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, inbound.Options{
		MaxUploadBytes: dep.Config.GetInt("modules.merger.max_upload_bytes"),
	})

	return consumer.Stop, nil
}
