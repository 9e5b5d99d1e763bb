package shortener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakeStore 按脚本控制存在性检查和写入结果。
type fakeStore struct {
	mu          sync.Mutex
	existsHits  int // 前 existsHits 次 ExistsByCode 返回 true
	saveTaken   int // 前 saveTaken 次 Save 返回 ErrCodeTaken
	saveErr     error
	existsCalls int
	saveCalls   int
	saved       map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string]string{}}
}

func (f *fakeStore) ExistsByCode(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls++
	return f.existsCalls <= f.existsHits, nil
}

func (f *fakeStore) Save(_ context.Context, code, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saveCalls <= f.saveTaken {
		return fmt.Errorf("save %q: %w", code, ErrCodeTaken)
	}
	f.saved[code] = url
	return nil
}

func newTestGenerator(t *testing.T, maxRetries int) (*Generator, *Allocator) {
	t.Helper()
	alloc := NewAllocator(1000)
	return NewGenerator(alloc, newTestEncoder(t), maxRetries), alloc
}

func TestGenerateFirstAttempt(t *testing.T) {
	gen, alloc := newTestGenerator(t, 5)
	store := newFakeStore()

	code, err := gen.Generate(context.Background(), store, "https://example.com/a")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// 空存在性检查下，第一次生成用的是保留区之后的第一个 ID：1001
	want, _ := newTestEncoder(t).Encode(1001)
	if code != want {
		t.Fatalf("code: got %q, want %q (encode of 1001)", code, want)
	}
	if store.saved[code] != "https://example.com/a" {
		t.Fatalf("persisted url: got %q", store.saved[code])
	}
	if next := alloc.Next(); next != 1002 {
		t.Fatalf("allocator advanced by %d ids, want 1", next-1001)
	}
}

// 前两个短码已被占用：第三次尝试成功，分配器恰好前进了三个 ID。
func TestGenerateRetriesOnCollision(t *testing.T) {
	gen, alloc := newTestGenerator(t, 5)
	store := newFakeStore()
	store.existsHits = 2

	code, err := gen.Generate(context.Background(), store, "https://example.com/b")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want, _ := newTestEncoder(t).Encode(1003)
	if code != want {
		t.Fatalf("code: got %q, want %q (encode of 1003)", code, want)
	}
	if store.existsCalls != 3 {
		t.Fatalf("exists calls: got %d, want 3", store.existsCalls)
	}
	if next := alloc.Next(); next != 1004 {
		t.Fatalf("allocator advanced by %d ids, want 3", next-1001)
	}
}

// existsCheck 和 save 之间被并发抢占：唯一约束冲突按碰撞处理，换 ID 重试。
func TestGenerateRetriesOnSaveConflict(t *testing.T) {
	gen, alloc := newTestGenerator(t, 5)
	store := newFakeStore()
	store.saveTaken = 1

	code, err := gen.Generate(context.Background(), store, "https://example.com/c")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want, _ := newTestEncoder(t).Encode(1002)
	if code != want {
		t.Fatalf("code: got %q, want %q (encode of 1002)", code, want)
	}
	if next := alloc.Next(); next != 1003 {
		t.Fatalf("allocator advanced by %d ids, want 2", next-1001)
	}
}

func TestGenerateSurfacesSaveError(t *testing.T) {
	gen, _ := newTestGenerator(t, 5)
	store := newFakeStore()
	store.saveErr = errors.New("connection refused")

	if _, err := gen.Generate(context.Background(), store, "https://example.com/d"); !errors.Is(err, store.saveErr) {
		t.Fatalf("Generate: got %v, want save error surfaced", err)
	}
}

func TestGenerateExhaustsRetryBudget(t *testing.T) {
	gen, _ := newTestGenerator(t, 3)
	store := newFakeStore()
	store.existsHits = 100 // 所有短码都“已占用”

	_, err := gen.Generate(context.Background(), store, "https://example.com/e")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Generate: got %v, want ErrRetriesExhausted", err)
	}
	if store.existsCalls != 3 {
		t.Fatalf("exists calls: got %d, want 3 (retry budget)", store.existsCalls)
	}
	if store.saveCalls != 0 {
		t.Fatalf("save must not be called when every code collides, got %d calls", store.saveCalls)
	}
}

// scriptedEncoder 先吐出预置短码，用完后回到真实编码器。
type scriptedEncoder struct {
	codes []string
	calls int
	real  *Encoder
}

func (e *scriptedEncoder) Encode(id uint64) (string, error) {
	e.calls++
	if e.calls <= len(e.codes) {
		return e.codes[e.calls-1], nil
	}
	return e.real.Encode(id)
}

func TestGenerateSkipsReservedCodes(t *testing.T) {
	alloc := NewAllocator(1000)
	enc := &scriptedEncoder{codes: []string{"healthz", "api"}, real: newTestEncoder(t)}
	gen := NewGenerator(alloc, enc, 5)
	store := newFakeStore()

	code, err := gen.Generate(context.Background(), store, "https://example.com/r")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ValidateCode(code) != nil {
		t.Fatalf("generated code %q is not resolvable", code)
	}
	// 保留字短码在存在性检查之前就被跳过，不触发任何存储访问
	if store.existsCalls != 1 {
		t.Fatalf("exists calls: got %d, want 1 (reserved codes skipped before store probe)", store.existsCalls)
	}
	if store.saveCalls != 1 {
		t.Fatalf("save calls: got %d, want 1", store.saveCalls)
	}
	if _, ok := store.saved["healthz"]; ok {
		t.Fatal("reserved code must never be persisted")
	}
	// 两次保留字跳过各消耗一个 ID：最终短码来自第三个 ID
	want, _ := newTestEncoder(t).Encode(1003)
	if code != want {
		t.Fatalf("code: got %q, want %q (encode of 1003)", code, want)
	}
}
