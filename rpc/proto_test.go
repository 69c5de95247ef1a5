package rpc

import (
	"os"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
)

var (
	rpcLine     = regexp.MustCompile(`rpc (\w+)\((\w+)\) returns \((stream )?(\w+)\);`)
	messageHead = regexp.MustCompile(`(?m)^message (\w+) \{`)
	fieldLine   = regexp.MustCompile(`^\s*(?:repeated )?[\w.<>, ]+ (\w+) = \d+;`)
)

// protoMessages 讀取 .proto 中每個 message 的欄位，以 JSON 名稱表示
func protoMessages(t *testing.T, src string) map[string]map[string]bool {
	t.Helper()
	out := make(map[string]map[string]bool)
	locs := messageHead.FindAllStringSubmatchIndex(src, -1)
	for _, loc := range locs {
		name := src[loc[2]:loc[3]]
		body := src[loc[1]:]
		body = body[:strings.Index(body, "}")]
		fields := make(map[string]bool)
		for _, line := range strings.Split(body, "\n") {
			if m := fieldLine.FindStringSubmatch(line); m != nil {
				fields[jsonName(m[1])] = true
			}
		}
		out[name] = fields
	}
	return out
}

// jsonName proto3 預設的 JSON 名稱 (snake_case -> lowerCamelCase)
func jsonName(field string) string {
	var b strings.Builder
	upper := false
	for _, r := range field {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = []rune(strings.ToUpper(string(r)))[0]
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// jsonFields 結構的 JSON 欄位名稱，展開內嵌結構
func jsonFields(typ reflect.Type) []string {
	var out []string
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Anonymous {
			out = append(out, jsonFields(f.Type)...)
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name != "" && name != "-" {
			out = append(out, name)
		}
	}
	return out
}

func TestProtoMatchesService(t *testing.T) {
	raw, err := os.ReadFile("finance/v1/ledger.proto")
	if err != nil {
		t.Fatal(err)
	}
	src := string(raw)

	if !strings.Contains(src, "package finance.v1;") || !strings.Contains(src, "service FinanceLedger {") {
		t.Fatalf("proto does not declare %s", ServiceName)
	}

	declared := make(map[string]bool)
	for _, m := range rpcLine.FindAllStringSubmatch(src, -1) {
		declared[m[1]] = m[3] != ""
	}
	want := make(map[string]bool)
	for _, m := range ServiceDesc.Methods {
		want[m.MethodName] = false
	}
	for _, s := range ServiceDesc.Streams {
		want[s.StreamName] = s.ServerStreams
	}
	if !reflect.DeepEqual(declared, want) {
		t.Fatalf("proto rpcs %v\nservice methods %v", declared, want)
	}

	messages := protoMessages(t, src)
	types := []any{
		DepositRequest{}, WithdrawRequest{}, TakeLoanRequest{}, RepayLoanRequest{},
		MakeInvestmentRequest{}, WithdrawInvestmentRequest{}, AddExpenseRequest{},
		SetBudgetRequest{}, CreateSavingsGoalRequest{}, ContributeToSavingsGoalRequest{},
		GetCurrentMonthExpensesRequest{}, WatchEventsRequest{},
		BalanceResponse{}, IndexResponse{}, LoanResponse{}, PayoutResponse{}, SavingsGoalResponse{},
		AccountResponse{}, TransactionsResponse{}, AmountResponse{}, SummaryResponse{},
		domain.Account{}, domain.Transaction{}, domain.Loan{}, domain.Investment{},
		domain.Expense{}, domain.Budget{}, domain.SavingsGoal{},
		domain.CategoryAmount{}, domain.BudgetUsage{}, domain.DailyTotal{}, domain.Summary{},
		domain.Event{},
	}
	for _, v := range types {
		typ := reflect.TypeOf(v)
		fields, ok := messages[typ.Name()]
		if !ok {
			t.Errorf("message %s missing from proto", typ.Name())
			continue
		}
		got := jsonFields(typ)
		for _, name := range got {
			if !fields[name] {
				t.Errorf("%s.%s missing from proto", typ.Name(), name)
			}
		}
		if len(got) != len(fields) {
			t.Errorf("%s has %d fields, proto declares %d", typ.Name(), len(got), len(fields))
		}
	}
}
