package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-finance/pkg/amount"
	grpcpool "github.com/JoeShih716/go-mem-finance/pkg/grpc"
	"github.com/JoeShih716/go-mem-finance/rpc"
)

// 命令列工具生命週期很短，使用全域 flag 即可

var serverAddr = flag.String("addr", "localhost:50051", "FinanceLedger gRPC server address")
var ownerID = flag.String("owner", os.Getenv("LEDGER_OWNER"), "account owner id (defaults to $LEDGER_OWNER)")
var currency = flag.String("currency", amount.DefaultCurrency, "ISO 4217 currency used to parse and display amounts")
var timeout = flag.Duration("timeout", 10*time.Second, "timeout for a single call")

// session 一次命令執行所需的連線
type session struct {
	pool   *grpcpool.Pool
	client *rpc.Client
}

// connect 建立帶有帳戶 ID 的客戶端
func connect() (*session, error) {
	if *ownerID == "" {
		return nil, errors.New("missing -owner (or $LEDGER_OWNER)")
	}
	pool := grpcpool.NewPool(
		grpcpool.WithInterceptor(rpc.OwnerInterceptor(*ownerID)),
		grpcpool.WithStreamInterceptor(rpc.OwnerStreamInterceptor(*ownerID)),
	)
	conn, err := pool.GetConnection(*serverAddr)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &session{pool: pool, client: rpc.NewClient(conn)}, nil
}

func (s *session) Close() {
	s.pool.Close()
}

// call 建立連線後執行 fn，錯誤印到 stderr
func call(ctx context.Context, fn func(ctx context.Context, c *rpc.Client) error) subcommands.ExitStatus {
	s, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer s.Close()

	ctx, cancel := callContext(ctx)
	defer cancel()
	if err := fn(ctx, s.client); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", explain(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// callContext 單次呼叫的逾時
func callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, *timeout)
}

// parseAmount 以 -currency 解析十進位金額
func parseAmount(s string) (int64, error) {
	return amount.Parse(s, *currency)
}

func formatAmount(minor int64) string {
	return amount.Format(minor, *currency)
}

// explain 把伺服器錯誤轉為使用者看得懂的訊息
func explain(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient balance"
	case errors.Is(err, domain.ErrInsufficientPayment):
		return "payment does not cover principal plus interest"
	case errors.Is(err, domain.ErrNotFound):
		return "no such record"
	}
	if st, ok := status.FromError(err); ok {
		return fmt.Sprintf("%s: %s", st.Code(), st.Message())
	}
	return err.Error()
}

// withCommandID 寫入類命令共用的 -id flag
type withCommandID struct {
	commandID string
}

func (c *withCommandID) setIDFlag(f *flag.FlagSet) {
	f.StringVar(&c.commandID, "id", "", "command id (UUID); re-sending the same id is applied once")
}
