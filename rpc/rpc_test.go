package rpc

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
)

func TestCodecJSONAndProto(t *testing.T) {
	c := jsonCodec{}

	b, err := c.Marshal(&DepositRequest{Amount: 100})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"amount":100}` {
		t.Fatalf("json=%s", b)
	}
	var req DepositRequest
	if err := c.Unmarshal([]byte(`{"commandId":"abc","amount":5}`), &req); err != nil || req.Amount != 5 || req.CommandID != "abc" {
		t.Fatalf("req=%+v err=%v", req, err)
	}

	// proto message 走 protojson
	b, err = c.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
	if err != nil {
		t.Fatal(err)
	}
	var resp healthpb.HealthCheckResponse
	if err := c.Unmarshal(b, &resp); err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("resp=%v err=%v", resp.Status, err)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
		want []error
	}{
		{fmt.Errorf("%w: loan 3", domain.ErrNotFound), codes.NotFound, []error{domain.ErrNotFound}},
		{domain.ErrInsufficientBalance, codes.FailedPrecondition, []error{domain.ErrInsufficientBalance}},
		{fmt.Errorf("%w: %w", domain.ErrInsufficientBalance, domain.ErrInvalidAmount), codes.FailedPrecondition,
			[]error{domain.ErrInsufficientBalance, domain.ErrInvalidAmount}},
		{domain.ErrLedgerClosed, codes.Unavailable, []error{domain.ErrLedgerClosed}},
	}
	for _, tt := range tests {
		st := ToStatus(tt.err)
		if status.Code(st) != tt.code {
			t.Errorf("%v: code=%s want=%s", tt.err, status.Code(st), tt.code)
		}
		got := FromError(st)
		for _, w := range tt.want {
			if !errors.Is(got, w) {
				t.Errorf("%v: FromError result %v is not %v", tt.err, got, w)
			}
		}
		if got.Error() != tt.err.Error() {
			t.Errorf("message=%q want=%q", got.Error(), tt.err.Error())
		}
	}
}

func TestStatusForeignError(t *testing.T) {
	st := ToStatus(errors.New("boom"))
	if status.Code(st) != codes.Internal {
		t.Fatalf("code=%s", status.Code(st))
	}
	if got := FromError(st); got != st {
		t.Fatalf("foreign status should pass through")
	}
	// 已是 status 的錯誤不再包裝
	orig := status.Error(codes.Unauthenticated, "no owner")
	if ToStatus(orig) != orig {
		t.Fatalf("status error rewrapped")
	}
}
