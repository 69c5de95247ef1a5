package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
)

// OwnerMetadataKey 呼叫者帳戶 ID 的 metadata key
const OwnerMetadataKey = "x-owner-id"

// WithOwner 在 outgoing context 帶上呼叫者帳戶
func WithOwner(ctx context.Context, owner string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, OwnerMetadataKey, owner)
}

// OwnerInterceptor 每次呼叫自動帶上固定的帳戶 ID (可搭配 pkg/grpc.Pool 使用)
func OwnerInterceptor(owner string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(WithOwner(ctx, owner), method, req, reply, cc, opts...)
	}
}

// OwnerStreamInterceptor 串流呼叫 (WatchEvents) 版本的 OwnerInterceptor
func OwnerStreamInterceptor(owner string) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(WithOwner(ctx, owner), desc, cc, method, opts...)
	}
}

// Client FinanceLedger 客戶端，錯誤已經過 FromError 轉換
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, callOptions(opts)...); err != nil {
		return FromError(err)
	}
	return nil
}

func (c *Client) Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*BalanceResponse, error) {
	out := new(BalanceResponse)
	if err := c.invoke(ctx, "Deposit", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*BalanceResponse, error) {
	out := new(BalanceResponse)
	if err := c.invoke(ctx, "Withdraw", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TakeLoan(ctx context.Context, in *TakeLoanRequest, opts ...grpc.CallOption) (*IndexResponse, error) {
	out := new(IndexResponse)
	if err := c.invoke(ctx, "TakeLoan", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RepayLoan(ctx context.Context, in *RepayLoanRequest, opts ...grpc.CallOption) (*LoanResponse, error) {
	out := new(LoanResponse)
	if err := c.invoke(ctx, "RepayLoan", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MakeInvestment(ctx context.Context, in *MakeInvestmentRequest, opts ...grpc.CallOption) (*IndexResponse, error) {
	out := new(IndexResponse)
	if err := c.invoke(ctx, "MakeInvestment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) WithdrawInvestment(ctx context.Context, in *WithdrawInvestmentRequest, opts ...grpc.CallOption) (*PayoutResponse, error) {
	out := new(PayoutResponse)
	if err := c.invoke(ctx, "WithdrawInvestment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddExpense(ctx context.Context, in *AddExpenseRequest, opts ...grpc.CallOption) (*IndexResponse, error) {
	out := new(IndexResponse)
	if err := c.invoke(ctx, "AddExpense", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetBudget(ctx context.Context, in *SetBudgetRequest, opts ...grpc.CallOption) (*IndexResponse, error) {
	out := new(IndexResponse)
	if err := c.invoke(ctx, "SetBudget", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSavingsGoal(ctx context.Context, in *CreateSavingsGoalRequest, opts ...grpc.CallOption) (*IndexResponse, error) {
	out := new(IndexResponse)
	if err := c.invoke(ctx, "CreateSavingsGoal", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ContributeToSavingsGoal(ctx context.Context, in *ContributeToSavingsGoalRequest, opts ...grpc.CallOption) (*SavingsGoalResponse, error) {
	out := new(SavingsGoalResponse)
	if err := c.invoke(ctx, "ContributeToSavingsGoal", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	out := new(AccountResponse)
	if err := c.invoke(ctx, "GetAccount", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*BalanceResponse, error) {
	out := new(BalanceResponse)
	if err := c.invoke(ctx, "GetBalance", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTransactions(ctx context.Context, in *GetTransactionsRequest, opts ...grpc.CallOption) (*TransactionsResponse, error) {
	out := new(TransactionsResponse)
	if err := c.invoke(ctx, "GetTransactions", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCurrentMonthExpenses(ctx context.Context, in *GetCurrentMonthExpensesRequest, opts ...grpc.CallOption) (*AmountResponse, error) {
	out := new(AmountResponse)
	if err := c.invoke(ctx, "GetCurrentMonthExpenses", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSummary(ctx context.Context, in *GetSummaryRequest, opts ...grpc.CallOption) (*SummaryResponse, error) {
	out := new(SummaryResponse)
	if err := c.invoke(ctx, "GetSummary", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchEvents 訂閱事件串流，Recv 回傳 io.EOF 代表伺服器正常結束
func (c *Client) WatchEvents(ctx context.Context, in *WatchEventsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[domain.Event], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("WatchEvents"), callOptions(opts)...)
	if err != nil {
		return nil, FromError(err)
	}
	x := &grpc.GenericClientStream[WatchEventsRequest, domain.Event]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
