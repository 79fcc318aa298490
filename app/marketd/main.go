package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	bValidator "github.com/nifty-xyz/gomarket/base/validator"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/governance"
	mmiddleware "github.com/nifty-xyz/gomarket/middleware"
	"github.com/nifty-xyz/gomarket/service/assets"
	"github.com/nifty-xyz/gomarket/service/bank"
	"github.com/nifty-xyz/gomarket/service/payments"
	"github.com/nifty-xyz/gomarket/service/pricing"
	"github.com/nifty-xyz/gomarket/service/statedb"
	auction_delivery "github.com/nifty-xyz/gomarket/stores/auction/delivery/http"
	auction_repository "github.com/nifty-xyz/gomarket/stores/auction/repository"
	auction_usecase "github.com/nifty-xyz/gomarket/stores/auction/usecase"
	auth_delivery "github.com/nifty-xyz/gomarket/stores/auth/delivery/http"
	auth_middleware "github.com/nifty-xyz/gomarket/stores/auth/delivery/http/middleware"
	auth_usecase "github.com/nifty-xyz/gomarket/stores/auth/usecase"
	collection_delivery "github.com/nifty-xyz/gomarket/stores/collection/delivery/http"
	collection_repository "github.com/nifty-xyz/gomarket/stores/collection/repository"
	collection_usecase "github.com/nifty-xyz/gomarket/stores/collection/usecase"
	escrow_repository "github.com/nifty-xyz/gomarket/stores/escrow/repository"
	escrow_usecase "github.com/nifty-xyz/gomarket/stores/escrow/usecase"
	event_delivery "github.com/nifty-xyz/gomarket/stores/event/delivery/http"
	event_repository "github.com/nifty-xyz/gomarket/stores/event/repository"
	event_mongo "github.com/nifty-xyz/gomarket/stores/event/repository/mongo"
	event_usecase "github.com/nifty-xyz/gomarket/stores/event/usecase"
	governance_delivery "github.com/nifty-xyz/gomarket/stores/governance/delivery/http"
	governance_repository "github.com/nifty-xyz/gomarket/stores/governance/repository"
	governance_usecase "github.com/nifty-xyz/gomarket/stores/governance/usecase"
	hc_delivery "github.com/nifty-xyz/gomarket/stores/healthcheck/delivery/http"
	hc_repo "github.com/nifty-xyz/gomarket/stores/healthcheck/repository"
	hc_usecase "github.com/nifty-xyz/gomarket/stores/healthcheck/usecase"
	ledger_delivery "github.com/nifty-xyz/gomarket/stores/ledger/delivery/http"
	ledger_repository "github.com/nifty-xyz/gomarket/stores/ledger/repository"
	ledger_usecase "github.com/nifty-xyz/gomarket/stores/ledger/usecase"
	listing_delivery "github.com/nifty-xyz/gomarket/stores/listing/delivery/http"
	listing_repository "github.com/nifty-xyz/gomarket/stores/listing/repository"
	listing_usecase "github.com/nifty-xyz/gomarket/stores/listing/usecase"
	offer_delivery "github.com/nifty-xyz/gomarket/stores/offer/delivery/http"
	offer_repository "github.com/nifty-xyz/gomarket/stores/offer/repository"
	offer_usecase "github.com/nifty-xyz/gomarket/stores/offer/usecase"
	royalty_delivery "github.com/nifty-xyz/gomarket/stores/royalty/delivery/http"
	royalty_repository "github.com/nifty-xyz/gomarket/stores/royalty/repository"
	royalty_usecase "github.com/nifty-xyz/gomarket/stores/royalty/usecase"
)

func init() {
	cfgFile := pflag.String("config", "infra/configs/config.yaml", "path to config file")
	pflag.Parse()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(*cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	// the state db is single-writer; one request at a time
	e.Use(middL.SerializeOps())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	mmiddleware.SetupCache()

	context := ctx.Background()

	// init state db
	context.Info("init state db")
	db, err := statedb.Open(viper.GetString("statedb.path"))
	if err != nil {
		panic(err)
	}
	defer db.Close()

	// init mongo event mirror when configured
	var mongoClient *mongo.Client
	var sink domain.EventSink
	var indexer *event_usecase.Indexer
	if uri := viper.GetString("mongo.uri"); uri != "" {
		context.Info("init mongo event mirror")
		mctx, cancel := ctx.WithTimeout(context, 10*time.Second)
		mongoClient, err = mongo.Connect(mctx, options.Client().ApplyURI(uri))
		cancel()
		if err != nil {
			panic(err)
		}
		historyRepo := event_mongo.New(mongoClient.Database(viper.GetString("mongo.dbName")))
		indexer = event_usecase.NewIndexer(historyRepo)
		sink = indexer
	}

	bankService := bank.New(db)
	assetRegistry := assets.NewRegistry()
	pricingService := pricing.New(int32(viper.GetInt("market.displayDecimals")))

	// construct repository, usecase and delivery
	eventRepo := event_repository.New(db)
	eventRecorder := event_usecase.NewRecorder(&event_usecase.RecorderCfg{
		DB:        db,
		EventRepo: eventRepo,
		Sink:      sink,
	})

	collectionRepo := collection_repository.New(db)
	governanceRepo := governance_repository.New(db, governance.Params{
		Admin:         domain.Address(viper.GetString("market.admin")).ToLower(),
		Treasury:      domain.Address(viper.GetString("market.treasury")).ToLower(),
		FeeBps:        governance.DefaultFeeBps,
		RoyaltyCapBps: governance.MaxRoyaltyBps,
	})
	escrowRepo := escrow_repository.New(db)
	royaltyRepo := royalty_repository.New(db)
	ledgerRepo := ledger_repository.New(db)
	listingRepo := listing_repository.New(db)
	auctionRepo := auction_repository.New(db)
	offerRepo := offer_repository.New(db)
	collectionOfferRepo := offer_repository.NewCollection(db)

	governanceUC := governance_usecase.New(&governance_usecase.GovernanceUseCaseCfg{
		DB:             db,
		GovernanceRepo: governanceRepo,
		CollectionRepo: collectionRepo,
		EventRecorder:  eventRecorder,
		TimelockDelay:  viper.GetDuration("market.timelockDelay"),
	})
	collectionUC := collection_usecase.New(&collection_usecase.CollectionUseCaseCfg{
		DB:             db,
		CollectionRepo: collectionRepo,
	})
	custodian := escrow_usecase.New(&escrow_usecase.CustodianCfg{
		DB:            db,
		EscrowRepo:    escrowRepo,
		AssetRegistry: assetRegistry,
		EventRecorder: eventRecorder,
	})
	calculator := royalty_usecase.New(&royalty_usecase.CalculatorCfg{
		DB:             db,
		SplitRepo:      royaltyRepo,
		CollectionRepo: collectionRepo,
		Governance:     governanceUC,
		AssetRegistry:  assetRegistry,
	})
	ledgerUC := ledger_usecase.New(&ledger_usecase.LedgerUseCaseCfg{
		DB:            db,
		LedgerRepo:    ledgerRepo,
		Bank:          bankService,
		EventRecorder: eventRecorder,
	})
	distributor := payments.NewDistributor(&payments.DistributorCfg{
		Bank:          bankService,
		Governance:    governanceUC,
		Ledger:        ledgerUC,
		EventRecorder: eventRecorder,
	})
	listingUC := listing_usecase.New(&listing_usecase.ListingUseCaseCfg{
		DB:            db,
		ListingRepo:   listingRepo,
		Collection:    collectionUC,
		Governance:    governanceUC,
		Custodian:     custodian,
		Calculator:    calculator,
		Bank:          bankService,
		Distributor:   distributor,
		EventRecorder: eventRecorder,
	})
	auctionUC := auction_usecase.New(&auction_usecase.AuctionUseCaseCfg{
		DB:              db,
		AuctionRepo:     auctionRepo,
		Collection:      collectionUC,
		Governance:      governanceUC,
		Custodian:       custodian,
		Calculator:      calculator,
		Ledger:          ledgerUC,
		Bank:            bankService,
		Distributor:     distributor,
		EventRecorder:   eventRecorder,
		BidIncrementBps: viper.GetInt64("market.bidIncrementBps"),
		AntiSnipeWindow: viper.GetDuration("market.antiSnipeWindow"),
	})
	offerUC := offer_usecase.New(&offer_usecase.OfferUseCaseCfg{
		DB:                  db,
		OfferRepo:           offerRepo,
		CollectionOfferRepo: collectionOfferRepo,
		Collection:          collectionUC,
		Governance:          governanceUC,
		Custodian:           custodian,
		Calculator:          calculator,
		Listing:             listingUC,
		Auction:             auctionUC,
		AssetRegistry:       assetRegistry,
		Bank:                bankService,
		Distributor:         distributor,
		EventRecorder:       eventRecorder,
	})

	authUC := auth_usecase.New(viper.GetString("auth.jwtSecret"))
	authMiddleware := auth_middleware.New(authUC, governanceUC)

	hcRepo := hc_repo.New(db, mongoClient)
	hcUC := hc_usecase.New(hcRepo)

	hc_delivery.New(e, hcUC)
	auth_delivery.New(e, authUC)
	collection_delivery.New(e, authMiddleware, collectionUC)
	listing_delivery.New(e, authMiddleware, listingUC)
	auction_delivery.New(e, authMiddleware, auctionUC)
	offer_delivery.New(e, authMiddleware, offerUC)
	ledger_delivery.New(e, authMiddleware, ledgerUC, pricingService)
	governance_delivery.New(e, authMiddleware, governanceUC)
	royalty_delivery.New(e, authMiddleware, calculator)
	event_delivery.New(e, eventRepo)

	e.GET("/check", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"address": c.Get("address").(domain.Address),
		})
	}, authMiddleware.Auth())

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithFields(log.Fields{"err": err}).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithFields(log.Fields{"signal": sig}).Info("received signal")
	sctx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Log().WithFields(log.Fields{"err": err}).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
	if indexer != nil {
		indexer.Release()
	}
}
