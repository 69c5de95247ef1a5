package rpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
)

// ErrorDomain ErrorInfo.Domain
const ErrorDomain = "finance.v1"

// codeOf 領域錯誤對應的 gRPC 狀態碼
func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientPayment),
		errors.Is(err, domain.ErrAlreadyRepaid),
		errors.Is(err, domain.ErrAlreadyWithdrawn),
		errors.Is(err, domain.ErrAlreadyCompleted):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidParameter),
		errors.Is(err, domain.ErrUnknownOperation):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrLedgerClosed):
		return codes.Unavailable
	}
	return codes.Internal
}

// ToStatus 將領域錯誤轉為 gRPC status，並附上 ErrorInfo (Reason 為第一個代碼，
// 同時符合多個時完整列表放在 Metadata["reasons"])
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(interface{ GRPCStatus() *status.Status }); ok {
		return err
	}
	st := status.New(codeOf(err), err.Error())
	reasons := domain.Reasons(err)
	if len(reasons) == 0 {
		return st.Err()
	}
	info := &errdetails.ErrorInfo{Reason: reasons[0], Domain: ErrorDomain}
	if len(reasons) > 1 {
		info.Metadata = map[string]string{"reasons": strings.Join(reasons, ",")}
	}
	if detailed, derr := st.WithDetails(info); derr == nil {
		st = detailed
	}
	return st.Err()
}

// Error 客戶端收到的領域錯誤，可用 errors.Is 比對 domain 的錯誤，
// 也可用 status.Code 取得狀態碼
type Error struct {
	st   *status.Status
	errs []error
}

func (e *Error) Error() string {
	return e.st.Message()
}

func (e *Error) Unwrap() []error {
	return e.errs
}

func (e *Error) GRPCStatus() *status.Status {
	return e.st
}

// FromError 從 gRPC 錯誤還原領域錯誤；沒有 ErrorInfo 時原樣回傳
func FromError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var errs []error
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.Domain != ErrorDomain {
			continue
		}
		names := []string{info.Reason}
		if all := info.Metadata["reasons"]; all != "" {
			names = strings.Split(all, ",")
		}
		for _, name := range names {
			if e := domain.ErrorFromReason(name); e != nil {
				errs = append(errs, e)
			}
		}
	}
	if len(errs) == 0 {
		return err
	}
	return &Error{st: st, errs: errs}
}
