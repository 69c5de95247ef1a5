package grpc

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-finance/rpc"
)

// EventSource 事件來源 (eventbus.Bus)
type EventSource interface {
	Subscribe(owner string, buffer int) (<-chan domain.Event, func())
}

// GrpcServer FinanceLedger 服務實作，把請求組成指令交給 CoreUseCase
type GrpcServer struct {
	core   *usecase.CoreUseCase
	events EventSource
}

func NewGrpcServer(core *usecase.CoreUseCase, events EventSource) *GrpcServer {
	return &GrpcServer{
		core:   core,
		events: events,
	}
}

// parseCommandID 空字串代表由 usecase 產生
func parseCommandID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: command id %q", domain.ErrInvalidParameter, raw)
	}
	return id, nil
}

// submit 填入呼叫者與 CommandID 後送出指令
func (s *GrpcServer) submit(ctx context.Context, commandID string, cmd *domain.Command) (*domain.Result, error) {
	id, err := parseCommandID(commandID)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	cmd.Owner = OwnerFromContext(ctx)
	cmd.CommandID = id
	res, err := s.core.Submit(ctx, cmd)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return res, nil
}

func meta(res *domain.Result) rpc.CommandMeta {
	return rpc.CommandMeta{Sequence: res.Sequence, Duplicate: res.Duplicate}
}

func indexResponse(res *domain.Result) *rpc.IndexResponse {
	return &rpc.IndexResponse{CommandMeta: meta(res), Index: res.Index, Balance: res.Balance}
}

func (s *GrpcServer) Deposit(ctx context.Context, req *rpc.DepositRequest) (*rpc.BalanceResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{Op: domain.OpDeposit, Amount: req.Amount})
	if err != nil {
		return nil, err
	}
	return &rpc.BalanceResponse{CommandMeta: meta(res), Balance: res.Balance}, nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *rpc.WithdrawRequest) (*rpc.BalanceResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{Op: domain.OpWithdraw, Amount: req.Amount})
	if err != nil {
		return nil, err
	}
	return &rpc.BalanceResponse{CommandMeta: meta(res), Balance: res.Balance}, nil
}

func (s *GrpcServer) TakeLoan(ctx context.Context, req *rpc.TakeLoanRequest) (*rpc.IndexResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{
		Op:           domain.OpTakeLoan,
		Amount:       req.Amount,
		InterestRate: req.InterestRate,
		Duration:     req.DurationDays,
	})
	if err != nil {
		return nil, err
	}
	return indexResponse(res), nil
}

func (s *GrpcServer) RepayLoan(ctx context.Context, req *rpc.RepayLoanRequest) (*rpc.LoanResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{Op: domain.OpRepayLoan, Index: req.Index, Amount: req.Payment})
	if err != nil {
		return nil, err
	}
	out := &rpc.LoanResponse{CommandMeta: meta(res), Balance: res.Balance}
	if res.Loan != nil {
		out.Loan = *res.Loan
	}
	return out, nil
}

func (s *GrpcServer) MakeInvestment(ctx context.Context, req *rpc.MakeInvestmentRequest) (*rpc.IndexResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{Op: domain.OpMakeInvestment, Amount: req.Amount, Label: req.InvestmentType})
	if err != nil {
		return nil, err
	}
	return indexResponse(res), nil
}

func (s *GrpcServer) WithdrawInvestment(ctx context.Context, req *rpc.WithdrawInvestmentRequest) (*rpc.PayoutResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{Op: domain.OpWithdrawInvestment, Index: req.Index})
	if err != nil {
		return nil, err
	}
	return &rpc.PayoutResponse{CommandMeta: meta(res), Payout: res.Payout, Balance: res.Balance}, nil
}

func (s *GrpcServer) AddExpense(ctx context.Context, req *rpc.AddExpenseRequest) (*rpc.IndexResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{
		Op:          domain.OpAddExpense,
		Amount:      req.Amount,
		Label:       req.Category,
		Description: req.Description,
	})
	if err != nil {
		return nil, err
	}
	return indexResponse(res), nil
}

func (s *GrpcServer) SetBudget(ctx context.Context, req *rpc.SetBudgetRequest) (*rpc.IndexResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{
		Op:     domain.OpSetBudget,
		Label:  req.Category,
		Amount: req.Amount,
		Month:  req.Month,
		Year:   req.Year,
	})
	if err != nil {
		return nil, err
	}
	return indexResponse(res), nil
}

func (s *GrpcServer) CreateSavingsGoal(ctx context.Context, req *rpc.CreateSavingsGoalRequest) (*rpc.IndexResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{
		Op:          domain.OpCreateSavingsGoal,
		Label:       req.Name,
		Description: req.Description,
		Amount:      req.TargetAmount,
		Deadline:    req.Deadline,
	})
	if err != nil {
		return nil, err
	}
	return indexResponse(res), nil
}

func (s *GrpcServer) ContributeToSavingsGoal(ctx context.Context, req *rpc.ContributeToSavingsGoalRequest) (*rpc.SavingsGoalResponse, error) {
	res, err := s.submit(ctx, req.CommandID, &domain.Command{Op: domain.OpContributeToSavingsGoal, Index: req.Index, Amount: req.Amount})
	if err != nil {
		return nil, err
	}
	out := &rpc.SavingsGoalResponse{CommandMeta: meta(res), Balance: res.Balance}
	if res.Goal != nil {
		out.Goal = *res.Goal
	}
	return out, nil
}

func (s *GrpcServer) GetAccount(ctx context.Context, req *rpc.GetAccountRequest) (*rpc.AccountResponse, error) {
	acct, err := s.core.GetAccount(ctx, OwnerFromContext(ctx))
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.AccountResponse{Account: acct}, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *rpc.GetBalanceRequest) (*rpc.BalanceResponse, error) {
	acct, err := s.core.GetAccount(ctx, OwnerFromContext(ctx))
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.BalanceResponse{CommandMeta: rpc.CommandMeta{Sequence: acct.Sequence}, Balance: acct.Balance}, nil
}

func (s *GrpcServer) GetTransactions(ctx context.Context, req *rpc.GetTransactionsRequest) (*rpc.TransactionsResponse, error) {
	txs, err := s.core.GetTransactions(ctx, OwnerFromContext(ctx))
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.TransactionsResponse{Transactions: txs}, nil
}

func (s *GrpcServer) GetCurrentMonthExpenses(ctx context.Context, req *rpc.GetCurrentMonthExpensesRequest) (*rpc.AmountResponse, error) {
	amount, err := s.core.GetCurrentMonthExpenses(ctx, OwnerFromContext(ctx), req.Category)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.AmountResponse{Amount: amount}, nil
}

func (s *GrpcServer) GetSummary(ctx context.Context, req *rpc.GetSummaryRequest) (*rpc.SummaryResponse, error) {
	sum, err := s.core.GetSummary(ctx, OwnerFromContext(ctx))
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.SummaryResponse{Summary: sum}, nil
}

// WatchEvents 推送事件直到客戶端斷線或伺服器關閉
func (s *GrpcServer) WatchEvents(req *rpc.WatchEventsRequest, stream grpc.ServerStreamingServer[domain.Event]) error {
	ctx := stream.Context()
	owner := OwnerFromContext(ctx)
	if req.AllOwners {
		owner = ""
	}
	events, cancel := s.events.Subscribe(owner, 256)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.Send(&ev); err != nil {
				log.Printf("watch events: send to %s failed: %v", OwnerFromContext(ctx), err)
				return err
			}
		}
	}
}

var _ rpc.FinanceLedgerServer = (*GrpcServer)(nil)
