package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-mem-finance/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/adapter/in/ws"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/adapter/out/eventbus"
	memory_adapter "github.com/JoeShih716/go-mem-finance/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-mem-finance/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/adapter/out/postgres"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-finance/internal/config"
	"github.com/JoeShih716/go-mem-finance/pkg/mysql"
	"github.com/JoeShih716/go-mem-finance/pkg/wal"
	"github.com/JoeShih716/go-mem-finance/rpc"
)

// accountLister 記憶體帳本提供的全帳戶快照 (checkpoint 用)
type accountLister interface {
	Accounts(ctx context.Context) (map[string]*domain.Account, error)
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化 MySQL Client (選用)
	var (
		dbClient    *mysql.Client
		mysqlLedger *mysql_adapter.MySQLLedger
	)
	if cfg.MySQLEnabled() {
		dbClient, err = mysql.NewClientContext(ctx, cfg.MySQL)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer dbClient.Close()
		log.Println("Connected to MySQL successfully")

		mysqlLedger = mysql_adapter.NewMySQLLedger(dbClient)
		if err := mysqlLedger.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate MySQL schema: %v", err)
		}
	}

	// 3. 選擇 Ledger
	var (
		usedLedger usecase.Ledger
		lister     accountLister
		lmaxLedger *memory_adapter.LMAXLedger
		walFile    *wal.WAL
	)
	switch cfg.Ledger.Type {
	case config.LedgerTypeMySQL:
		usedLedger = mysqlLedger
	case config.LedgerTypeMutex, config.LedgerTypeLMAX:
		accounts := map[string]*domain.Account{}
		if mysqlLedger != nil {
			accounts, err = mysqlLedger.LoadAllAccounts(ctx)
			if err != nil {
				log.Fatalf("Failed to load all accounts: %v", err)
			}
			log.Printf("Loaded %d accounts", len(accounts))
		}

		walFile, err = wal.NewWAL(cfg.WAL.Path, wal.WithFsync(cfg.WAL.Fsync))
		if err != nil {
			log.Fatalf("Failed to init WAL: %v", err)
		}

		if cfg.Ledger.Type == config.LedgerTypeMutex {
			mutexLedger, err := memory_adapter.NewMutexLedger(accounts, walFile)
			if err != nil {
				log.Fatalf("Failed to init MutexLedger: %v", err)
			}
			usedLedger, lister = mutexLedger, mutexLedger
		} else {
			lmaxLedger, err = memory_adapter.NewLMAXLedger(accounts, walFile)
			if err != nil {
				log.Fatalf("Failed to init LMAXLedger: %v", err)
			}
			usedLedger, lister = lmaxLedger, lmaxLedger
		}
	}
	log.Printf("Using %s ledger", cfg.Ledger.Type)

	// LMAX 核心迴圈使用獨立的 context，等伺服器停止後才關閉
	coreCtx, stopCore := context.WithCancel(context.Background())
	defer stopCore()
	if lmaxLedger != nil {
		lmaxLedger.Start(coreCtx)
	}

	// 4. 事件輸出
	bus := eventbus.NewBus(cfg.Ledger.EventCapacity)
	opts := []usecase.Option{
		usecase.WithPublisher(bus),
		usecase.WithLocation(loc),
	}
	if cfg.Postgres.DSN != "" {
		store, err := postgres.NewEventStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to create event table: %v", err)
		}
		opts = append(opts, usecase.WithPublisher(store))
		log.Println("Archiving events to Postgres")
	}

	// 5. 初始化 UseCase
	coreUseCase := usecase.NewCoreUseCase(usedLedger, opts...)

	// 6. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	s := grpc.NewServer(grpc_adapter.ServerOptions()...)
	rpc.RegisterFinanceLedgerServer(s, grpc_adapter.NewGrpcServer(coreUseCase, bus))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	reflection.Register(s) // 方便 gRPC Client 測試 (如 grpcurl)

	go func() {
		log.Printf("Starting gRPC server on %s", cfg.GRPC.Addr)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// 7. WebSocket 事件推送
	hub := ws.NewHub(bus)
	feed, cancelFeed := bus.Subscribe("", 0)
	defer cancelFeed()
	go hub.Run(ctx, feed)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if dbClient != nil {
			if err := dbClient.Ping(r.Context()); err != nil {
				http.Error(w, "mysql: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("ok"))
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve http: %v", err)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	log.Println("Shutting down server...")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	// WatchEvents 串流不會自行結束，逾時後強制關閉
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		s.Stop()
	}

	// 不再有新指令，先寫 checkpoint 再關閉核心迴圈
	if cfg.Ledger.CheckpointOnShutdown && mysqlLedger != nil && lister != nil {
		checkpoint(shutdownCtx, lister, mysqlLedger)
	}
	stopCore()
	if lmaxLedger != nil {
		<-lmaxLedger.Done()
	}
	if walFile != nil {
		if err := walFile.Close(); err != nil {
			log.Printf("close WAL: %v", err)
		}
	}
	log.Println("Server exited")
}

// checkpoint 把記憶體帳本寫回 MySQL，下次啟動時 WAL 只需重放之後的指令
func checkpoint(ctx context.Context, lister accountLister, store *mysql_adapter.MySQLLedger) {
	accounts, err := lister.Accounts(ctx)
	if err != nil {
		log.Printf("checkpoint: list accounts: %v", err)
		return
	}
	saved := 0
	for owner, acct := range accounts {
		if err := store.SaveAccount(ctx, acct); err != nil {
			log.Printf("checkpoint %s: %v", owner, err)
			continue
		}
		saved++
	}
	log.Printf("Checkpointed %d/%d accounts", saved, len(accounts))
}
