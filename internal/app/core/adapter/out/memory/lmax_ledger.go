package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-finance/pkg/wal"
)

// ledgerReply 核心迴圈的回覆
type ledgerReply struct {
	res      *domain.Result
	account  *domain.Account
	accounts map[string]*domain.Account
	err      error
}

// ledgerRequest 請求包裝channel，讓呼叫端可以等待結果
// cmd 為 nil 時代表快照讀取，all 為 true 時讀取全部帳戶
type ledgerRequest struct {
	cmd    *domain.Command
	owner  string
	all    bool
	Result chan ledgerReply // 讓 Execute/Snapshot 等這個 channel
}

// LMAXLedger 單一執行緒核心迴圈，所有指令與讀取都經過輸送帶依序處理
type LMAXLedger struct {
	accounts map[string]*domain.Account
	// 已處理過的指令 (依帳戶分開)
	processed map[string]map[uuid.UUID]*domain.Result
	// Write-Ahead Logging
	wal *wal.WAL
	// 輸送帶 負責接收請求
	requestChan chan *ledgerRequest
	// 核心迴圈結束後關閉
	done chan struct{}
	// Pool 減少 GC 壓力
	requestPool sync.Pool
}

// NewLMAXLedger 建立一個新的 LMAXLedger 實例，需呼叫 Start 才會開始處理
//
// 參數:
//
//	accounts: 初始帳戶資料 Map (可為 nil)
//	wal: Write-Ahead Log 實例 (可為 nil)
//
// 回傳:
//
//	*LMAXLedger: LMAXLedger 實例
//	error: 初始化錯誤
func NewLMAXLedger(accounts map[string]*domain.Account, wal *wal.WAL) (*LMAXLedger, error) {
	if accounts == nil {
		accounts = make(map[string]*domain.Account)
	}
	ledger := &LMAXLedger{
		accounts:    accounts, // 直接引用傳入的 Map
		processed:   make(map[string]map[uuid.UUID]*domain.Result),
		wal:         wal,
		requestChan: make(chan *ledgerRequest, 1000), // Buffer 1000
		done:        make(chan struct{}),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &ledgerRequest{
					Result: make(chan ledgerReply, 1),
				}
			},
		},
	}

	// 在啟動前先恢復資料
	if err := ledger.recoverFromWAL(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
func (l *LMAXLedger) recoverFromWAL() error {
	if l.wal == nil {
		return nil
	}
	return l.wal.ReadAll(func(jsonRaw []byte) error {
		var cmd domain.Command
		if err := json.Unmarshal(jsonRaw, &cmd); err != nil {
			return err
		}
		// 直接更新 State，不需要 Lock 因為這是在 NewLMAXLedger 裡跑的 (單執行緒)
		acct := l.account(cmd.Owner)
		if cmd.Sequence <= acct.Sequence {
			return nil
		}
		res, err := acct.Apply(&cmd)
		if err != nil {
			return fmt.Errorf("recover %s seq %d: %w", cmd.Owner, cmd.Sequence, err)
		}
		l.processedOf(cmd.Owner)[cmd.CommandID] = res
		return nil
	})
}

func (l *LMAXLedger) account(owner string) *domain.Account {
	acct, ok := l.accounts[owner]
	if !ok {
		acct = domain.NewAccount(owner)
		l.accounts[owner] = acct
	}
	return acct
}

func (l *LMAXLedger) processedOf(owner string) map[uuid.UUID]*domain.Result {
	p, ok := l.processed[owner]
	if !ok {
		p = make(map[uuid.UUID]*domain.Result)
		l.processed[owner] = p
	}
	return p
}

// Execute 接收指令請求
//
// Execute(等待) -> Channel -> Run Loop (核心) -> WAL -> Map Update -> Result Channel -> Execute(收到結果)
func (l *LMAXLedger) Execute(ctx context.Context, cmd *domain.Command) (*domain.Result, error) {
	reply := l.roundTrip(ctx, cmd, cmd.Owner, false)
	return reply.res, reply.err
}

// Snapshot 讀取同樣經過核心迴圈，確保看到最近一次提交後的狀態
func (l *LMAXLedger) Snapshot(ctx context.Context, owner string) (*domain.Account, error) {
	reply := l.roundTrip(ctx, nil, owner, false)
	return reply.account, reply.err
}

// Accounts 全部帳戶的快照 (checkpoint 用)
func (l *LMAXLedger) Accounts(ctx context.Context) (map[string]*domain.Account, error) {
	reply := l.roundTrip(ctx, nil, "", true)
	return reply.accounts, reply.err
}

func (l *LMAXLedger) roundTrip(ctx context.Context, cmd *domain.Command, owner string, all bool) ledgerReply {
	// 1. 放入輸送帶 (使用 sync.Pool 減少 GC)
	req := l.requestPool.Get().(*ledgerRequest)
	req.cmd = cmd
	req.owner = owner
	req.all = all
	// 清空 Channel (雖然理論上應該是空的，但保險起見)
	select {
	case <-req.Result:
	default:
	}

	select {
	case l.requestChan <- req:
	case <-l.done:
		return ledgerReply{err: domain.ErrLedgerClosed}
	case <-ctx.Done():
		return ledgerReply{err: ctx.Err()}
	}

	// 已進入輸送帶的請求不因 ctx 取消而放棄，避免呼叫端誤判未提交
	var reply ledgerReply
	select {
	case reply = <-req.Result:
	case <-l.done:
		// 迴圈結束後不會再處理，Result 為空代表請求未被執行
		select {
		case reply = <-req.Result:
		default:
			// req 可能仍留在輸送帶中，不放回 Pool
			return ledgerReply{err: domain.ErrLedgerClosed}
		}
	}
	req.cmd = nil
	l.requestPool.Put(req)
	return reply
}

// Start 啟動核心引擎 (非同步)
func (l *LMAXLedger) Start(ctx context.Context) {
	go l.run(ctx)
}

// Done 核心迴圈結束後關閉
func (l *LMAXLedger) Done() <-chan struct{} {
	return l.done
}

func (l *LMAXLedger) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的請求處理完
			l.drain()
			return
		case req := <-l.requestChan:
			l.process(req)
		}
	}
}

func (l *LMAXLedger) drain() {
	for {
		select {
		case req := <-l.requestChan:
			l.process(req)
		default:
			return
		}
	}
}

// process 處理單筆請求並回傳結果
func (l *LMAXLedger) process(req *ledgerRequest) {
	if req.all {
		out := make(map[string]*domain.Account, len(l.accounts))
		for owner, acct := range l.accounts {
			out[owner] = acct.Clone()
		}
		req.Result <- ledgerReply{accounts: out}
		return
	}
	if req.cmd == nil {
		acct, ok := l.accounts[req.owner]
		if !ok {
			req.Result <- ledgerReply{account: domain.NewAccount(req.owner)}
			return
		}
		req.Result <- ledgerReply{account: acct.Clone()}
		return
	}

	cmd := req.cmd
	acct := l.account(cmd.Owner)
	processed := l.processedOf(cmd.Owner)

	// 0. Idempotency Check (Thread Safe in Loop)
	if res, ok := processed[cmd.CommandID]; ok {
		req.Result <- ledgerReply{res: duplicateOf(res)}
		return
	}

	cmd.Sequence = acct.Sequence + 1
	if err := acct.Validate(cmd); err != nil {
		req.Result <- ledgerReply{err: err}
		return
	}

	// 1. 寫入 WAL (Critical Path)
	if l.wal != nil {
		if err := l.wal.Append(cmd); err != nil {
			req.Result <- ledgerReply{err: fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)}
			return
		}
	}

	// 2. 執行業務邏輯
	res, err := acct.Apply(cmd)
	if err != nil {
		req.Result <- ledgerReply{err: err}
		return
	}

	// 3. 更新 Idempotency
	processed[cmd.CommandID] = res

	// 4. 回傳結果
	req.Result <- ledgerReply{res: cloneResult(res)}
}

var _ usecase.Ledger = (*LMAXLedger)(nil)
