package usecase

import (
	"context"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
)

// Ledger 是帳務系統的介面
type Ledger interface {
	// Execute 原子地套用一筆指令，不再分 Deposit/Withdraw，直接看 cmd.Op 決定
	// 相同 CommandID 重送時回傳原結果 (Duplicate=true)，不重複套用
	Execute(ctx context.Context, cmd *domain.Command) (*domain.Result, error)
	// Snapshot 取得帳戶快照 (深拷貝)；帳戶不存在時回傳空帳戶
	Snapshot(ctx context.Context, owner string) (*domain.Account, error)
}

// EventPublisher 事件輸出埠，於指令成功提交後呼叫
type EventPublisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}
