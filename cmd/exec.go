package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ticket-wallet/config"
	"ticket-wallet/internal/handlers"
	"ticket-wallet/internal/services/catalog"
	"ticket-wallet/internal/services/checkout"
	"ticket-wallet/internal/services/notify"
	"ticket-wallet/internal/services/payment"
	"ticket-wallet/internal/services/signing"
	"ticket-wallet/internal/services/storage"
	"ticket-wallet/internal/services/ticket"
	_ "ticket-wallet/migrations"
	"ticket-wallet/monitoring"
	"ticket-wallet/security"
	"ticket-wallet/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()
	logger := slog.Default()
	monitor := monitoring.NewMonitor()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	st, err := newStorage(cfg, redisClient)
	if err != nil {
		return err
	}

	// Ticket store
	store := ticket.NewStore(st, ticket.StorageKey(cfg.AppName, cfg.DeviceID),
		ticket.WithStoreLogger(logger),
		ticket.WithStoreMonitor(monitor),
	)
	if res := store.Load(ctx); res.Degraded {
		log.Printf("Ticket store unavailable, starting empty: %v", res.Err)
	} else {
		log.Printf("Loaded %d tickets", res.Count)
	}

	// Signer
	prompt := signing.NewPrompt()
	var approver signing.Approver = prompt
	if cfg.SignerAutoApprove {
		approver = nil
	}
	keypair, err := newKeypair(cfg, approver)
	if err != nil {
		return err
	}
	gateway := signing.NewGateway(keypair, logger, monitor)

	// Payments and notifications
	payments := payment.NewService(redisClient, cfg.PaymentTimeout, payment.WithLogger(logger))

	var (
		pn        *pubnub.PubNub
		publisher notify.Publisher = notify.Noop{Log: logger}
	)
	if cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey

		pn = pubnub.NewPubNub(pnConfig)
		publisher = notify.NewPubNubPublisher(pn)
	}

	var events catalog.Catalog = catalog.NewStatic(catalog.DefaultEvents())
	if cfg.CatalogSource == "records" {
		events = catalog.NewRecords(app)
	}

	manager := checkout.NewManager(events, checkout.Dependencies{
		Payments:        payments,
		Signer:          gateway,
		Store:           store,
		Assembler:       ticket.NewAssembler(cfg.IsDevelopment()),
		Currency:        cfg.Currency,
		MerchantContext: cfg.MerchantID,
		Logger:          logger,
		Monitor:         monitor,
	}, publisher, cfg.CheckoutSessionLimit, cfg.CheckoutSessionTTL)
	defer manager.Close()

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(events, store)
	ticketHandler := handlers.NewTicketHandler(store, cfg.ScannerKeyHash, monitor)
	checkoutHandler := handlers.NewCheckoutHandler(manager)
	signingHandler := handlers.NewSigningHandler(prompt)
	paymentHandler := handlers.NewPaymentHandler(payments)

	// Rate limits
	redeemLimiter := security.NewRateLimiter(redisClient, "redeem", 60, time.Minute)
	checkoutLimiter := security.NewRateLimiter(redisClient, "checkout", 20, time.Minute)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	g, gctx := errgroup.WithContext(ctx)
	if cfg.EnableMetrics {
		g.Go(func() error {
			return monitoring.Serve(gctx, cfg.MetricsPort)
		})
	}
	if pn != nil {
		g.Go(func() error {
			payments.Listen(gctx, pn, cfg.PaymentChannel)
			return nil
		})
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Event endpoints
		e.Router.GET("/api/v1/events", eventHandler.ListEvents)
		e.Router.GET("/api/v1/events/{eventId}", eventHandler.GetEvent)
		e.Router.GET("/api/v1/events/{eventId}/tickets", eventHandler.GetEventTickets)

		// Checkout endpoints
		e.Router.POST("/api/v1/checkout", checkoutHandler.BeginCheckout).BindFunc(checkoutLimiter.Middleware())
		e.Router.GET("/api/v1/checkout/{checkoutId}", checkoutHandler.GetCheckout)
		e.Router.POST("/api/v1/checkout/{checkoutId}/retry", checkoutHandler.RetryCheckout)
		e.Router.POST("/api/v1/checkout/{checkoutId}/cancel", checkoutHandler.CancelCheckout)

		// Ticket endpoints
		e.Router.GET("/api/v1/tickets", ticketHandler.ListTickets)
		e.Router.DELETE("/api/v1/tickets", ticketHandler.ClearTickets)
		e.Router.POST("/api/v1/tickets/verify", ticketHandler.VerifyTicket)
		e.Router.POST("/api/v1/tickets/redeem", ticketHandler.RedeemTicket).BindFunc(redeemLimiter.Middleware())
		e.Router.GET("/api/v1/tickets/{ticketId}", ticketHandler.GetTicket)
		e.Router.GET("/api/v1/tickets/{ticketId}/code", ticketHandler.GetTicketCode)

		// Signing endpoints
		e.Router.GET("/api/v1/signing/pending", signingHandler.ListPending)
		e.Router.POST("/api/v1/signing/{requestId}/approve", signingHandler.Approve)
		e.Router.POST("/api/v1/signing/{requestId}/reject", signingHandler.Reject)

		// Test endpoint for payment simulation
		if cfg.IsDevelopment() {
			e.Router.POST("/api/v1/test/simulate-payment", paymentHandler.SimulatePayment)
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := st.Ping(e.Request.Context()); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]any{
				"status":  "healthy",
				"tickets": len(store.All()),
			})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	app.RootCmd.SetArgs(serveArgs(os.Args[1:], cfg.Port))
	if err := app.Start(); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	cancel()
	return g.Wait()
}

func newStorage(cfg *config.Config, redisClient *redis.Client) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "redis":
		return storage.NewRedisStorage(redisClient), nil
	case "memory":
		log.Println("Using in-memory ticket storage; tickets will not survive a restart")
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newKeypair(cfg *config.Config, approver signing.Approver) (*signing.Keypair, error) {
	if cfg.SignerPrivateKey != "" {
		return signing.KeypairFromBase58(cfg.SignerPrivateKey, approver)
	}

	if !cfg.IsDevelopment() {
		return nil, fmt.Errorf("SIGNER_PRIVATE_KEY is required outside development")
	}

	keypair, err := signing.GenerateKeypair(approver)
	if err != nil {
		return nil, err
	}
	identity, _ := keypair.PublicIdentity()
	log.Printf("Generated development signer %s", identity)
	return keypair, nil
}

// serveArgs makes a bare invocation serve on port and adds the port to a
// serve command that has no --http flag.
func serveArgs(args []string, port string) []string {
	listen := "--http=0.0.0.0:" + port
	if len(args) == 0 {
		return []string{"serve", listen}
	}
	if args[0] != "serve" {
		return args
	}
	for _, a := range args[1:] {
		if a == "--http" || strings.HasPrefix(a, "--http=") {
			return args
		}
	}
	return append(append([]string{}, args...), listen)
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
