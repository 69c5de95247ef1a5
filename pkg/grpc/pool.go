package grpc

import (
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Pool 依目標地址快取 gRPC 客戶端連線，每個地址只維護一個連線。
// 可在多個 goroutine 間共用。
type Pool struct {
	conns    sync.Map // map[string]*grpc.ClientConn
	mu       sync.Mutex
	unary    []grpc.UnaryClientInterceptor
	stream   []grpc.StreamClientInterceptor
	callOpts []grpc.CallOption
}

// PoolOption Pool 的配置選項
type PoolOption func(*Pool)

// WithInterceptor 加入 UnaryClientInterceptor，依加入順序串接 (如帶入帳戶 ID)
func WithInterceptor(interceptor grpc.UnaryClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.unary = append(p.unary, interceptor)
	}
}

// WithStreamInterceptor 加入 StreamClientInterceptor
func WithStreamInterceptor(interceptor grpc.StreamClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.stream = append(p.stream, interceptor)
	}
}

// WithCallOptions 每次呼叫預設帶入的選項 (如 CallContentSubtype)
func WithCallOptions(opts ...grpc.CallOption) PoolOption {
	return func(p *Pool) {
		p.callOpts = append(p.callOpts, opts...)
	}
}

func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetConnection 取得現有連線，或為目標建立新連線
//
// 參數:
//
//	target: 目標伺服器地址 (e.g., "localhost:50051")
//	opts: 額外的 gRPC 連線選項
//
// 回傳值:
//
//	*grpc.ClientConn: gRPC 客戶端連線
//	error: 建立連線失敗
func (p *Pool) GetConnection(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if conn, ok := p.load(target); ok {
		return conn, nil
	}

	// Double-check locking
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.load(target); ok {
		return conn, nil
	}

	defaultOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second, // 若無活動，每 10 秒發送一次 Ping
			Timeout:             time.Second,      // 等待 Ping 回應的超時時間
			PermitWithoutStream: true,             // WatchEvents 之外沒有長連線，仍保持連線
		}),
	}
	if len(p.unary) > 0 {
		defaultOpts = append(defaultOpts, grpc.WithChainUnaryInterceptor(p.unary...))
	}
	if len(p.stream) > 0 {
		defaultOpts = append(defaultOpts, grpc.WithChainStreamInterceptor(p.stream...))
	}
	if len(p.callOpts) > 0 {
		defaultOpts = append(defaultOpts, grpc.WithDefaultCallOptions(p.callOpts...))
	}

	// grpc.NewClient 不會立即連線，第一次呼叫時才建立
	conn, err := grpc.NewClient(target, append(defaultOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for target %s: %w", target, err)
	}
	p.conns.Store(target, conn)
	return conn, nil
}

// load 讀取快取，已關閉的連線會被移除
func (p *Pool) load(target string) (*grpc.ClientConn, bool) {
	v, ok := p.conns.Load(target)
	if !ok {
		return nil, false
	}
	conn := v.(*grpc.ClientConn)
	if conn.GetState() == connectivity.Shutdown {
		p.conns.Delete(target)
		return nil, false
	}
	return conn, true
}

// Close 關閉所有連線，回傳第一個錯誤
func (p *Pool) Close() error {
	var firstErr error
	p.conns.Range(func(key, value any) bool {
		conn := value.(*grpc.ClientConn)
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conns.Delete(key)
		return true
	})
	return firstErr
}
