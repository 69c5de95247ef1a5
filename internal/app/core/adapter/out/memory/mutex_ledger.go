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

// accountSlot 單一帳戶的狀態與鎖，不同帳戶之間互不阻塞
type accountSlot struct {
	mu      sync.Mutex
	account *domain.Account
	// 已處理過的指令與當時的結果
	processed map[uuid.UUID]*domain.Result
}

func newSlot(account *domain.Account) *accountSlot {
	return &accountSlot{
		account:   account,
		processed: make(map[uuid.UUID]*domain.Result),
	}
}

// MutexLedger 是一個使用 Mutex 實現的帳本
//
// 結構:
//
//	slots: 帳戶 ID 對應的帳戶槽，每個槽有自己的 Mutex
//	mu: 只保護 slots 這張索引表，套用指令時不持有
//	wal: Write-Ahead Log 實例
type MutexLedger struct {
	mu    sync.RWMutex
	slots map[string]*accountSlot
	// Write-Ahead Logging
	wal *wal.WAL
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	accounts: 初始帳戶資料 Map (可為 nil)，WAL 中序號不大於帳戶序號的指令會略過
//	wal: Write-Ahead Log 實例 (可為 nil)
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(accounts map[string]*domain.Account, wal *wal.WAL) (*MutexLedger, error) {
	ledger := &MutexLedger{
		slots: make(map[string]*accountSlot, len(accounts)),
		wal:   wal,
	}
	for owner, acct := range accounts {
		ledger.slots[owner] = newSlot(acct)
	}
	if err := ledger.recoverFromWAL(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
//
// 回傳:
//
//	error: 恢復過程錯誤
func (m *MutexLedger) recoverFromWAL() error {
	if m.wal == nil {
		return nil
	}
	return m.wal.ReadAll(func(jsonRaw []byte) error {
		var cmd domain.Command
		if err := json.Unmarshal(jsonRaw, &cmd); err != nil {
			return err
		}
		return m.applyRecoverCommand(&cmd)
	})
}

// applyRecoverCommand 恢復單筆指令至記憶體 (不寫入 WAL)
// 只有 NewMutexLedger 呼叫，無需 Lock (單執行緒)
func (m *MutexLedger) applyRecoverCommand(cmd *domain.Command) error {
	slot := m.slotFor(cmd.Owner)
	if cmd.Sequence <= slot.account.Sequence {
		return nil
	}
	res, err := slot.account.Apply(cmd)
	if err != nil {
		return fmt.Errorf("recover %s seq %d: %w", cmd.Owner, cmd.Sequence, err)
	}
	slot.processed[cmd.CommandID] = res
	return nil
}

// slotFor 取得帳戶槽，不存在時建立 (帳戶隨第一次呼叫隱含建立)
func (m *MutexLedger) slotFor(owner string) *accountSlot {
	m.mu.RLock()
	slot, ok := m.slots[owner]
	m.mu.RUnlock()
	if ok {
		return slot
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if slot, ok = m.slots[owner]; ok {
		return slot
	}
	slot = newSlot(domain.NewAccount(owner))
	m.slots[owner] = slot
	return slot
}

// Snapshot 取得指定帳戶的快照
//
// 參數:
//
//	ctx: 上下文
//	owner: 帳戶 ID
//
// 回傳:
//
//	*domain.Account: 帳戶深拷貝，帳戶不存在時為空帳戶
//	error: 查詢錯誤
func (m *MutexLedger) Snapshot(ctx context.Context, owner string) (*domain.Account, error) {
	m.mu.RLock()
	slot, ok := m.slots[owner]
	m.mu.RUnlock()
	if !ok {
		return domain.NewAccount(owner), nil
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.account.Clone(), nil
}

// Accounts 全部帳戶的快照 (checkpoint 用)，各帳戶在各自的鎖內複製
func (m *MutexLedger) Accounts(ctx context.Context) (map[string]*domain.Account, error) {
	m.mu.RLock()
	slots := make(map[string]*accountSlot, len(m.slots))
	for owner, slot := range m.slots {
		slots[owner] = slot
	}
	m.mu.RUnlock()

	out := make(map[string]*domain.Account, len(slots))
	for owner, slot := range slots {
		slot.mu.Lock()
		out[owner] = slot.account.Clone()
		slot.mu.Unlock()
	}
	return out, nil
}

// Execute 處理指令請求 (Level 1: 每個帳戶一把 Mutex)
//
// 參數:
//
//	ctx: 上下文
//	cmd: 指令物件
//
// 回傳:
//
//	*domain.Result: 操作結果
//	error: 處理錯誤
func (m *MutexLedger) Execute(ctx context.Context, cmd *domain.Command) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slot := m.slotFor(cmd.Owner)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return m.executeInternal(slot, cmd)
}

// executeInternal 執行指令核心邏輯 (呼叫端持有 slot.mu)
//
// 流程: 冪等檢查 -> 驗證 -> 寫入 WAL -> 套用
func (m *MutexLedger) executeInternal(slot *accountSlot, cmd *domain.Command) (*domain.Result, error) {
	if res, ok := slot.processed[cmd.CommandID]; ok {
		return duplicateOf(res), nil
	}

	cmd.Sequence = slot.account.Sequence + 1
	if err := slot.account.Validate(cmd); err != nil {
		return nil, err
	}

	// 1. 寫入 WAL (Critical Path)，只記錄會成功的指令
	if m.wal != nil {
		if err := m.wal.Append(cmd); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
	}

	// 2. 套用至記憶體
	res, err := slot.account.Apply(cmd)
	if err != nil {
		return nil, err
	}
	slot.processed[cmd.CommandID] = res
	return cloneResult(res), nil
}

// duplicateOf 重送指令的回傳值：沿用原結果，不帶事件
func duplicateOf(res *domain.Result) *domain.Result {
	dup := cloneResult(res)
	dup.Duplicate = true
	dup.Events = nil
	return dup
}

// cloneResult 複製結果，避免呼叫端修改保存的版本
func cloneResult(res *domain.Result) *domain.Result {
	cp := *res
	if res.Loan != nil {
		loan := *res.Loan
		cp.Loan = &loan
	}
	if res.Goal != nil {
		goal := *res.Goal
		cp.Goal = &goal
	}
	cp.Events = append([]domain.Event(nil), res.Events...)
	return &cp
}

var _ usecase.Ledger = (*MutexLedger)(nil)
