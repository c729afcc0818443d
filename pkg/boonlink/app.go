// Package boonlink wires the bridge's components for embedding or
// standalone serving: stores, capabilities, the processor/netquality/sync
// trio, and the tool context, following a functional-options shape.
package boonlink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/boonlink/bridge/internal/capability"
	"github.com/boonlink/bridge/internal/circuitbreaker"
	"github.com/boonlink/bridge/internal/config"
	"github.com/boonlink/bridge/internal/dbpool"
	"github.com/boonlink/bridge/internal/httpserver"
	"github.com/boonlink/bridge/internal/idempotency"
	"github.com/boonlink/bridge/internal/lifecycle"
	"github.com/boonlink/bridge/internal/logger"
	"github.com/boonlink/bridge/internal/metrics"
	"github.com/boonlink/bridge/internal/netquality"
	"github.com/boonlink/bridge/internal/orders"
	"github.com/boonlink/bridge/internal/processor"
	"github.com/boonlink/bridge/internal/queue"
	"github.com/boonlink/bridge/internal/quote"
	sync "github.com/boonlink/bridge/internal/sync"
	"github.com/boonlink/bridge/internal/tools"
)

// envRelayerPrivateKey is the relayer's secp256k1 signing key, read
// directly from the environment rather than through config.Config — like
// the teacher's Stripe secret key, it is a credential, not a setting, and
// has no business round-tripping through a YAML file.
const envRelayerPrivateKey = "BOONLINK_RELAYER_PRIVATE_KEY"

// App wires the bridge's services for reuse or standalone serving.
type App struct {
	Config       *config.Config
	OrderStore   orders.Store
	QueueStore   queue.Store
	Blockchain   capability.Blockchain
	Exchange     capability.Exchange
	Settlement   capability.Settlement
	QRRecognizer capability.QRRecognizer
	Tools        *tools.Context
	Processor    *processor.Processor
	NetDetector  *netquality.Detector
	Sync         *sync.Coordinator

	router           chi.Router
	resourceManager  *lifecycle.Manager
	metricsCollector *metrics.Metrics
	idempotencyStore idempotency.Store
}

// Option configures App construction.
type Option func(*options)

type options struct {
	orderStore   orders.Store
	queueStore   queue.Store
	blockchain   capability.Blockchain
	exchange     capability.Exchange
	settlement   capability.Settlement
	qrRecognizer capability.QRRecognizer
	router       chi.Router
}

// WithOrderStore overrides the payment order store.
func WithOrderStore(store orders.Store) Option {
	return func(o *options) { o.orderStore = store }
}

// WithQueueStore overrides the offline queue store.
func WithQueueStore(store queue.Store) Option {
	return func(o *options) { o.queueStore = store }
}

// WithBlockchain overrides the Blockchain capability (e.g. with a mock in
// tests).
func WithBlockchain(b capability.Blockchain) Option {
	return func(o *options) { o.blockchain = b }
}

// WithExchange overrides the Exchange capability.
func WithExchange(e capability.Exchange) Option {
	return func(o *options) { o.exchange = e }
}

// WithSettlement overrides the Settlement capability.
func WithSettlement(s capability.Settlement) Option {
	return func(o *options) { o.settlement = s }
}

// WithQRRecognizer overrides the QRRecognizer capability.
func WithQRRecognizer(q capability.QRRecognizer) Option {
	return func(o *options) { o.qrRecognizer = q }
}

// WithRouter allows callers to provide an existing chi.Router to register
// routes onto.
func WithRouter(router chi.Router) Option {
	return func(o *options) { o.router = router }
}

// NewApp assembles the bridge for embedding or standalone serving.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("boonlink: config required")
	}

	optState := options{}
	for _, opt := range opts {
		opt(&optState)
	}

	app := &App{
		Config:          cfg,
		resourceManager: lifecycle.NewManager(),
	}

	app.metricsCollector = metrics.New(prometheus.DefaultRegisterer)

	orderStore, queueStore, err := buildStores(cfg, app.resourceManager)
	if err != nil {
		return nil, err
	}
	if optState.orderStore != nil {
		orderStore = optState.orderStore
	}
	if optState.queueStore != nil {
		queueStore = optState.queueStore
	}
	app.OrderStore = orderStore
	app.QueueStore = queueStore

	breaker := circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker)

	blockchain, err := buildBlockchain(cfg, app.resourceManager, breaker)
	if err != nil {
		return nil, err
	}
	if optState.blockchain != nil {
		blockchain = optState.blockchain
	}
	app.Blockchain = blockchain

	exchange := buildExchange(cfg, breaker)
	if optState.exchange != nil {
		exchange = optState.exchange
	}
	app.Exchange = exchange

	settlement := buildSettlement(cfg, breaker)
	if optState.settlement != nil {
		settlement = optState.settlement
	}
	app.Settlement = settlement

	var qrRecognizer capability.QRRecognizer = capability.NewMockQRRecognizer()
	if optState.qrRecognizer != nil {
		qrRecognizer = optState.qrRecognizer
	}
	app.QRRecognizer = qrRecognizer

	netDetector := netquality.NewDetector(cfg.NetQuality.Endpoints, cfg.NetQuality.Interval.Duration, cfg.NetQuality.ProbeTimeout.Duration)
	app.NetDetector = netDetector
	app.resourceManager.RegisterFunc("netquality-detector", netDetector.Stop)

	proc := processor.New(orderStore, queueStore, blockchain, settlement, netDetector, processor.Config{
		TickInterval:   cfg.Queue.TickInterval.Duration,
		Confirmations:  cfg.Chain.Confirmations,
		ConfirmTimeout: cfg.Chain.ConfirmationTimeout.Duration,
	})
	app.Processor = proc
	app.resourceManager.RegisterFunc("processor", proc.Stop)

	app.Sync = sync.New(proc, netDetector, orderStore)

	app.Tools = tools.New(exchange, blockchain, settlement, qrRecognizer, orderStore, queueStore, netDetector, proc)
	app.Tools.ChainID = cfg.Chain.ChainID
	app.Tools.VerifyingContract = cfg.Chain.VerifyingContract
	app.Tools.CollectionAddress = cfg.Chain.CollectionAddress
	if cfg.Chain.Confirmations > 0 {
		app.Tools.Confirmations = cfg.Chain.Confirmations
	}

	app.idempotencyStore = idempotency.NewMemoryStore()
	app.resourceManager.RegisterFunc("idempotency-store", func() error {
		if closer, ok := app.idempotencyStore.(*idempotency.MemoryStore); ok {
			closer.Stop()
		}
		return nil
	})

	if optState.router != nil {
		app.router = optState.router
	} else {
		app.router = chi.NewRouter()
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "boonlink-bridge",
		Environment: cfg.Logging.Environment,
	})

	httpserver.ConfigureRouter(app.router, cfg, app.Tools, app.idempotencyStore, app.metricsCollector, appLogger)

	ctx := context.Background()
	netDetector.Start(ctx)
	proc.Start(ctx)

	return app, nil
}

// buildStores dispatches order/queue store construction on
// config.Storage.Backend/config.Queue.Backend, sharing one
// dbpool.SharedPool across both when both resolve to postgres.
func buildStores(cfg *config.Config, lifecycleMgr *lifecycle.Manager) (orders.Store, queue.Store, error) {
	var sharedDB *sql.DB
	if cfg.Storage.Backend == "postgres" && cfg.Queue.Backend == "postgres" {
		pool, err := dbpool.NewSharedPool(cfg.Storage.PostgresURL, cfg.Storage.PostgresPool)
		if err != nil {
			return nil, nil, fmt.Errorf("boonlink: shared postgres pool: %w", err)
		}
		lifecycleMgr.RegisterFunc("postgres-pool", pool.Close)
		sharedDB = pool.DB()
	}

	orderStore, err := buildOrderStore(cfg.Storage, sharedDB)
	if err != nil {
		return nil, nil, err
	}
	registerStoreCloser(lifecycleMgr, "order-store", orderStore)

	queueStore, err := buildQueueStore(cfg.Queue, sharedDB)
	if err != nil {
		return nil, nil, err
	}
	registerStoreCloser(lifecycleMgr, "queue-store", queueStore)

	return orderStore, queueStore, nil
}

// registerStoreCloser registers a store's Close method with the lifecycle
// manager, whichever of the two shapes the backend uses: the SQL stores take
// no argument, the MongoDB stores take a context.
func registerStoreCloser(lifecycleMgr *lifecycle.Manager, name string, store any) {
	switch closer := store.(type) {
	case interface{ Close() error }:
		lifecycleMgr.RegisterFunc(name, closer.Close)
	case interface{ Close(context.Context) error }:
		lifecycleMgr.RegisterFunc(name, func() error { return closer.Close(context.Background()) })
	}
}

func buildOrderStore(cfg config.StorageConfig, sharedDB *sql.DB) (orders.Store, error) {
	switch cfg.Backend {
	case "postgres":
		if sharedDB != nil {
			return orders.NewPostgresStoreWithDB(sharedDB)
		}
		return orders.NewPostgresStore(cfg.PostgresURL, cfg.PostgresPool)
	case "mongodb":
		return orders.NewMongoDBStore(cfg.MongoDBURL, cfg.MongoDBDatabase)
	case "file":
		return orders.NewFileStore(cfg.FilePath)
	case "memory", "":
		log.Warn().Msg("boonlink: order store defaulting to in-memory — do not use this backend in production")
		return orders.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("boonlink: unknown storage backend %q", cfg.Backend)
	}
}

func buildQueueStore(cfg config.QueueConfig, sharedDB *sql.DB) (queue.Store, error) {
	switch cfg.Backend {
	case "postgres":
		if sharedDB != nil {
			return queue.NewPostgresStoreWithDB(sharedDB)
		}
		return queue.NewPostgresStore(cfg.PostgresURL, config.PostgresPoolConfig{})
	case "mongodb":
		return queue.NewMongoDBStore(cfg.MongoDBURL, cfg.MongoDBDatabase)
	case "file":
		return queue.NewFileStore(cfg.FilePath)
	case "memory", "":
		log.Warn().Msg("boonlink: queue store defaulting to in-memory — do not use this backend in production")
		return queue.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("boonlink: unknown queue backend %q", cfg.Backend)
	}
}

// buildBlockchain wires the real BSC RPC client, or a confirms-immediately
// mock in demo mode. Circuit breaking is skipped for the mock: there is no
// external call to isolate against.
func buildBlockchain(cfg *config.Config, lifecycleMgr *lifecycle.Manager, breaker *circuitbreaker.Manager) (capability.Blockchain, error) {
	if cfg.DemoMode {
		return capability.NewMockBlockchain(1), nil
	}

	relayerKey := os.Getenv(envRelayerPrivateKey)
	if relayerKey == "" {
		return nil, fmt.Errorf("boonlink: %s is required outside demo mode", envRelayerPrivateKey)
	}

	rpc, err := capability.NewRPCBlockchain(context.Background(), cfg.Chain.RPCURL, relayerKey, cfg.Chain.VerifyingContract, cfg.Chain.ChainID)
	if err != nil {
		return nil, fmt.Errorf("boonlink: init RPC blockchain: %w", err)
	}
	lifecycleMgr.RegisterFunc("rpc-blockchain", rpc.Close)

	if !cfg.CircuitBreaker.Enabled {
		return rpc, nil
	}
	return capability.WithBlockchainBreaker(rpc, breaker), nil
}

// buildExchange wires the quote engine over the configured rate source, or
// the mock engine-backed adapter in demo mode.
func buildExchange(cfg *config.Config, breaker *circuitbreaker.Manager) capability.Exchange {
	if cfg.DemoMode {
		return capability.NewEngineExchange(quote.NewEngine(quote.NewMockRateSource(), cfg.Quote.MaxAmountTHB))
	}

	var source quote.RateSource
	switch cfg.Quote.RateSource {
	case "thailocal":
		source = quote.NewThaiLocalRateSource(quote.NewHTTPRateSource(cfg.Quote.ExchangeAPIURL, "thailocal-upstream"))
	case "global":
		source = quote.NewGlobalRateSource(quote.NewHTTPRateSource(cfg.Quote.ExchangeAPIURL, "global-upstream"))
	default:
		source = quote.NewMockRateSource()
	}

	engine := quote.NewEngine(source, cfg.Quote.MaxAmountTHB)
	exchange := capability.NewEngineExchange(engine)

	if !cfg.CircuitBreaker.Enabled || cfg.Quote.RateSource == "mock" {
		return exchange
	}
	return capability.WithExchangeBreaker(exchange, breaker)
}

// buildSettlement wires the real settlement gateway client, or an
// idempotent-by-order-id mock in demo mode.
func buildSettlement(cfg *config.Config, breaker *circuitbreaker.Manager) capability.Settlement {
	if cfg.DemoMode || cfg.Settlement.SettlementAPIURL == "" {
		return capability.NewMockSettlement()
	}

	settlement := capability.NewHTTPSettlement(cfg.Settlement.SettlementAPIURL)
	if !cfg.CircuitBreaker.Enabled {
		return settlement
	}
	return capability.WithSettlementBreaker(settlement, breaker)
}

// Router returns the chi router with bridge routes registered.
func (a *App) Router() chi.Router {
	return a.router
}

// Handler exposes the router as an http.Handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases resources owned by the app (stores, detectors, processor).
func (a *App) Close() error {
	return a.resourceManager.Close()
}

// NewHandler is a convenience that constructs an App and returns its handler.
func NewHandler(cfg *config.Config, opts ...Option) (http.Handler, func(context.Context) error, error) {
	app, err := NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func(context.Context) error {
		return app.Close()
	}
	return app.Handler(), shutdown, nil
}

// Config is an exported alias of the internal configuration struct for
// embedding use.
type Config = config.Config

// LoadConfig wraps the internal loader for consumers embedding the bridge.
func LoadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}
