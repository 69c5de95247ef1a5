package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// rw-r--r-- (擁有者讀寫，其他人唯讀)
const FileModeReadOnly fs.FileMode = 0644

type WAL struct {
	file *os.File
	buf  *bufio.Writer
	mu   sync.Mutex
	// fsync: Flush 時是否呼叫 file.Sync
	fsync bool
}

// Option WAL 設定選項
type Option func(*WAL)

// WithFsync 設定 Flush 時是否強制刷入硬碟 (預設開啟)
func WithFsync(on bool) Option {
	return func(w *WAL) {
		w.fsync = on
	}
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string, opts ...Option) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, err
	}
	w := &WAL{
		file:  file,
		buf:   bufio.NewWriter(file),
		fsync: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Write 寫入一筆資料至緩衝區，需呼叫 Flush 才會落地
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return json.NewEncoder(w.buf).Encode(v)
}

// Flush 將緩衝區寫入檔案，並依設定刷入硬碟
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.fsync {
		return w.file.Sync()
	}
	return nil
}

// Append 寫入一筆資料並立即 Flush
func (w *WAL) Append(v any) error {
	if err := w.Write(v); err != nil {
		return err
	}
	return w.Flush()
}

// Sync 強制刷入硬碟 (關鍵！)
func (w *WAL) Sync() error {
	return w.file.Sync()
}

// Close 先 Flush 再關閉檔案
func (w *WAL) Close() error {
	if err := w.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// ReadAll 讀取所有資料
// callback 接收一筆原始 JSON，避免一次將所有資料載入記憶體
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(bufio.NewReader(w.file))
	for n := 0; ; n++ {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("wal record %d: %w", n, err)
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
	return nil
}
