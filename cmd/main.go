package main

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/logger"
	"luckydraw/internal/config"
	"luckydraw/internal/handlers"
	"luckydraw/internal/services"
	"luckydraw/internal/storage"
	"luckydraw/internal/storage/dynamo"
	"luckydraw/internal/storage/sqlite"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:assets
var assetsFS embed.FS

func main() {
	defer logger.Init("luckydraw", true, false, io.Discard).Close()

	// 1. Load configuration
	conf, err := config.Load(config.New())
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the persistence backend
	store, err := openStore(ctx, conf.Storage)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", conf.Storage.Driver, err)
	}
	defer store.Close()

	// 3. Initialize the Lottery Service
	lotteryService := services.NewLotteryService(store, services.WithTickInterval(conf.Draw.TickInterval))
	if err := lotteryService.Init(ctx); err != nil {
		logger.Errorf("Starting offline, initial load failed: %v", err)
	}

	// 4. Load HTML templates from the embedded filesystem.
	templatesSubFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		logger.Fatalf("Failed to create templates sub-filesystem: %v", err)
	}
	templates, err := handlers.ParseTemplates(templatesSubFS)
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}

	// 5. Initialize the HTTP Handler
	httpHandler := handlers.NewHTTPHandler(lotteryService, templates, conf.Server.AdminToken)
	if conf.Server.AdminToken == "" {
		logger.Warning("admin.token is empty, the JSON API accepts writes from anyone")
	}

	// 6. Set up the Gin router
	r := handlers.NewRouter(conf.Server.Mode)

	// 7. Serve static files from the embedded filesystem.
	assetsSubFS, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		logger.Fatalf("Failed to create assets sub-filesystem: %v", err)
	}
	r.StaticFS("/assets", http.FS(assetsSubFS))

	// 8. Register routes
	httpHandler.RegisterRoutes(r)

	// 9. Pick up changes written by other operators
	if conf.Sync.Interval > 0 {
		go lotteryService.RunSync(ctx, conf.Sync.Interval)
	}

	// 10. Run the server
	srv := &http.Server{Addr: fmt.Sprintf(":%d", conf.Server.Port), Handler: r}
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		_ = lotteryService.CancelDraw()
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Errorf("Server shutdown: %v", err)
		}
	}()

	logger.Infof("Server starting on http://localhost:%d (storage: %s)", conf.Server.Port, conf.Storage.Driver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Failed to run server: %v", err)
	}
}

func openStore(ctx context.Context, conf config.StorageConfig) (storage.Store, error) {
	switch conf.Driver {
	case config.DriverDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.Options{
			Region:   conf.DynamoRegion,
			Endpoint: conf.DynamoEndpoint,
		})
		if err != nil {
			return nil, err
		}
		return dynamo.New(client, conf.DynamoTable, conf.DynamoRecordKey), nil
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	default:
		return sqlite.Open(conf.SQLitePath, sqlite.DefaultKey)
	}
}
