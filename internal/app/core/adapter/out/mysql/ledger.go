package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-finance/pkg/mysql"
)

// MySQLLedger 每筆指令一個資料庫交易，以悲觀鎖 (FOR UPDATE) 序列化同一帳戶的寫入
// 也作為記憶體帳本的快照儲存 (LoadAllAccounts / SaveAccount)
type MySQLLedger struct {
	client *mysql.Client
}

func NewMySQLLedger(client *mysql.Client) *MySQLLedger {
	return &MySQLLedger{
		client: client,
	}
}

// Migrate 建立或更新資料表
func (ledger *MySQLLedger) Migrate(ctx context.Context) error {
	return ledger.client.DB().WithContext(ctx).AutoMigrate(allModels...)
}

// Execute 冪等檢查 -> 鎖定帳戶 -> 載入 -> 套用 -> 寫回變更 -> 記錄指令
func (ledger *MySQLLedger) Execute(ctx context.Context, cmd *domain.Command) (*domain.Result, error) {
	var result *domain.Result
	err := ledger.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先檢查此帳戶是否處理過這筆指令，其他帳戶的同一 CommandID 不算
		var processed sqlCommand
		err := tx.Where("owner = ? AND command_id = ?", cmd.Owner, cmd.CommandID[:]).First(&processed).Error
		if err == nil {
			var res domain.Result
			if err := json.Unmarshal(processed.Result, &res); err != nil {
				return fmt.Errorf("decode stored result: %w", err)
			}
			res.Duplicate = true
			res.Events = nil
			result = &res
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("select command: %w", err)
		}

		// 帳戶不存在時先建立，再取得悲觀鎖
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sqlAccount{Owner: cmd.Owner}).Error; err != nil {
			return err
		}
		var row sqlAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner = ?", cmd.Owner).
			First(&row).Error; err != nil {
			return err
		}
		before, err := loadAccount(tx, row)
		if err != nil {
			return err
		}

		after := before.Clone()
		cmd.Sequence = after.Sequence + 1
		res, err := after.Apply(cmd)
		if err != nil {
			return err
		}
		if err := saveChanges(tx, before, after); err != nil {
			return err
		}

		stored := *res
		stored.Events = nil
		raw, err := json.Marshal(&stored)
		if err != nil {
			return err
		}
		if err := tx.Create(&sqlCommand{
			CommandID: cmd.CommandID[:],
			Owner:     cmd.Owner,
			Sequence:  cmd.Sequence,
			Op:        uint8(cmd.Op),
			Result:    raw,
		}).Error; err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Snapshot 讀取帳戶，不存在時回傳空帳戶
// 帳戶列與各集合在同一個交易中讀取，不會混到並行指令提交前後的資料
func (ledger *MySQLLedger) Snapshot(ctx context.Context, owner string) (*domain.Account, error) {
	var acct *domain.Account
	err := ledger.consistentRead(ctx, func(tx *gorm.DB) error {
		var row sqlAccount
		err := tx.Where("owner = ?", owner).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			acct = domain.NewAccount(owner)
			return nil
		}
		if err != nil {
			return err
		}
		acct, err = loadAccount(tx, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// LoadAllAccounts 載入全部帳戶，作為記憶體帳本的起始狀態
func (ledger *MySQLLedger) LoadAllAccounts(ctx context.Context) (map[string]*domain.Account, error) {
	var accounts map[string]*domain.Account
	err := ledger.consistentRead(ctx, func(tx *gorm.DB) error {
		var rows []sqlAccount
		if err := tx.Find(&rows).Error; err != nil {
			return err
		}
		accounts = make(map[string]*domain.Account, len(rows))
		for _, row := range rows {
			acct, err := loadAccount(tx, row)
			if err != nil {
				return fmt.Errorf("load %s: %w", row.Owner, err)
			}
			accounts[row.Owner] = acct
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// consistentRead 在單一交易中執行多個查詢
// InnoDB 預設隔離等級為 REPEATABLE READ，交易內的讀取共用第一次查詢建立的視圖
func (ledger *MySQLLedger) consistentRead(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return ledger.client.DB().WithContext(ctx).Transaction(fn)
}

// SaveAccount 寫入記憶體帳本的快照 (checkpoint)，序號不比資料庫新時略過
func (ledger *MySQLLedger) SaveAccount(ctx context.Context, acct *domain.Account) error {
	return ledger.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sqlAccount{Owner: acct.Owner}).Error; err != nil {
			return err
		}
		var row sqlAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner = ?", acct.Owner).
			First(&row).Error; err != nil {
			return err
		}
		if row.Sequence >= acct.Sequence {
			log.Printf("mysql: skip checkpoint of %s at seq %d (stored seq %d)", acct.Owner, acct.Sequence, row.Sequence)
			return nil
		}
		before, err := loadAccount(tx, row)
		if err != nil {
			return err
		}
		return saveChanges(tx, before, acct)
	})
}

// loadAccount 依 position 排序載入所有集合
func loadAccount(db *gorm.DB, row sqlAccount) (*domain.Account, error) {
	acct := domain.NewAccount(row.Owner)
	acct.Balance = row.Balance
	acct.Sequence = row.Sequence

	var err error
	if acct.Transactions, err = loadRows(db, row.Owner, sqlTransaction.toDomain); err != nil {
		return nil, err
	}
	if acct.Loans, err = loadRows(db, row.Owner, sqlLoan.toDomain); err != nil {
		return nil, err
	}
	if acct.Investments, err = loadRows(db, row.Owner, sqlInvestment.toDomain); err != nil {
		return nil, err
	}
	if acct.Expenses, err = loadRows(db, row.Owner, sqlExpense.toDomain); err != nil {
		return nil, err
	}
	if acct.Budgets, err = loadRows(db, row.Owner, sqlBudget.toDomain); err != nil {
		return nil, err
	}
	if acct.SavingsGoals, err = loadRows(db, row.Owner, sqlSavingsGoal.toDomain); err != nil {
		return nil, err
	}
	return acct, nil
}

func loadRows[R any, D any](db *gorm.DB, owner string, convert func(R) D) ([]D, error) {
	var rows []R
	if err := db.Where("owner = ?", owner).Order("position").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]D, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert(r))
	}
	return out, nil
}

// saveChanges 寫回帳戶列與各集合中新增或改變的紀錄
func saveChanges(tx *gorm.DB, before, after *domain.Account) error {
	if err := tx.Model(&sqlAccount{}).
		Where("owner = ?", after.Owner).
		Updates(map[string]any{"balance": after.Balance, "sequence": after.Sequence}).Error; err != nil {
		return err
	}
	owner := after.Owner
	if err := upsert(tx, changedRows(owner, before.Transactions, after.Transactions, transactionRow)); err != nil {
		return err
	}
	if err := upsert(tx, changedRows(owner, before.Loans, after.Loans, loanRow)); err != nil {
		return err
	}
	if err := upsert(tx, changedRows(owner, before.Investments, after.Investments, investmentRow)); err != nil {
		return err
	}
	if err := upsert(tx, changedRows(owner, before.Expenses, after.Expenses, expenseRow)); err != nil {
		return err
	}
	if err := upsert(tx, changedRows(owner, before.Budgets, after.Budgets, budgetRow)); err != nil {
		return err
	}
	return upsert(tx, changedRows(owner, before.SavingsGoals, after.SavingsGoals, savingsGoalRow))
}

func upsert[R any](tx *gorm.DB, rows []R) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

var _ usecase.Ledger = (*MySQLLedger)(nil)
