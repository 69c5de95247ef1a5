package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
)

// ServiceName gRPC 服務全名
const ServiceName = "finance.v1.FinanceLedger"

// FinanceLedgerServer 服務端需實作的介面
// 呼叫者身分由 metadata x-owner-id 帶入，不出現在請求內容
type FinanceLedgerServer interface {
	Deposit(context.Context, *DepositRequest) (*BalanceResponse, error)
	Withdraw(context.Context, *WithdrawRequest) (*BalanceResponse, error)
	TakeLoan(context.Context, *TakeLoanRequest) (*IndexResponse, error)
	RepayLoan(context.Context, *RepayLoanRequest) (*LoanResponse, error)
	MakeInvestment(context.Context, *MakeInvestmentRequest) (*IndexResponse, error)
	WithdrawInvestment(context.Context, *WithdrawInvestmentRequest) (*PayoutResponse, error)
	AddExpense(context.Context, *AddExpenseRequest) (*IndexResponse, error)
	SetBudget(context.Context, *SetBudgetRequest) (*IndexResponse, error)
	CreateSavingsGoal(context.Context, *CreateSavingsGoalRequest) (*IndexResponse, error)
	ContributeToSavingsGoal(context.Context, *ContributeToSavingsGoalRequest) (*SavingsGoalResponse, error)

	GetAccount(context.Context, *GetAccountRequest) (*AccountResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*BalanceResponse, error)
	GetTransactions(context.Context, *GetTransactionsRequest) (*TransactionsResponse, error)
	GetCurrentMonthExpenses(context.Context, *GetCurrentMonthExpensesRequest) (*AmountResponse, error)
	GetSummary(context.Context, *GetSummaryRequest) (*SummaryResponse, error)

	WatchEvents(*WatchEventsRequest, grpc.ServerStreamingServer[domain.Event]) error
}

// RegisterFinanceLedgerServer 註冊服務實作
func RegisterFinanceLedgerServer(s grpc.ServiceRegistrar, srv FinanceLedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary 產生單一請求方法的描述，解碼後交給攔截器鏈再呼叫實作
func unary[Req, Resp any](name string, call func(FinanceLedgerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(FinanceLedgerServer)
			if interceptor == nil {
				return call(impl, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(impl, ctx, req.(*Req))
			})
		},
	}
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchEventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(FinanceLedgerServer).WatchEvents(in, &grpc.GenericServerStream[WatchEventsRequest, domain.Event]{ServerStream: stream})
}

// ServiceDesc 手寫的服務描述 (對應 protoc 產生的 _grpc.pb.go)
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FinanceLedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Deposit", FinanceLedgerServer.Deposit),
		unary("Withdraw", FinanceLedgerServer.Withdraw),
		unary("TakeLoan", FinanceLedgerServer.TakeLoan),
		unary("RepayLoan", FinanceLedgerServer.RepayLoan),
		unary("MakeInvestment", FinanceLedgerServer.MakeInvestment),
		unary("WithdrawInvestment", FinanceLedgerServer.WithdrawInvestment),
		unary("AddExpense", FinanceLedgerServer.AddExpense),
		unary("SetBudget", FinanceLedgerServer.SetBudget),
		unary("CreateSavingsGoal", FinanceLedgerServer.CreateSavingsGoal),
		unary("ContributeToSavingsGoal", FinanceLedgerServer.ContributeToSavingsGoal),
		unary("GetAccount", FinanceLedgerServer.GetAccount),
		unary("GetBalance", FinanceLedgerServer.GetBalance),
		unary("GetTransactions", FinanceLedgerServer.GetTransactions),
		unary("GetCurrentMonthExpenses", FinanceLedgerServer.GetCurrentMonthExpenses),
		unary("GetSummary", FinanceLedgerServer.GetSummary),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "finance/v1/ledger.proto",
}
