package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/shopspring/decimal"
)

type storedObject struct {
	data        string
	contentType string
	metadata    map[string]string
}

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu        sync.Mutex
	objects   map[string]storedObject
	UploadErr error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string]storedObject)}
}

func (s *memStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *memStore) Upload(ctx context.Context, name string, r io.Reader, contentType string, metadata map[string]string) error {
	if s.UploadErr != nil {
		return s.UploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = storedObject{data: string(data), contentType: contentType, metadata: metadata}
	return nil
}

func (s *memStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	return nil
}

func writeRun(t *testing.T) *domain.Run {
	t.Helper()
	dir := t.TempDir()
	c := domain.CouponRecord{
		OrderID:       7,
		Amount:        decimal.NewFromInt(40),
		ValidDate:     "31/12/2025",
		BarcodeNumber: "123",
	}
	file := filepath.Join(dir, c.FileName())
	if err := os.WriteFile(file, []byte("PNG"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &domain.Run{
		ID:      "run-1",
		Coupons: []domain.CouponRecord{c},
		Files:   []string{file},
		Report:  "Unused coupons left: 1\n",
	}
}

func TestMirror_Archive(t *testing.T) {
	store := newMemStore()
	store.objects["barcodes/old_01_01_2024_10.png"] = storedObject{data: "OLD"}
	store.objects["other/keep.png"] = storedObject{data: "KEEP"}

	if err := NewMirror(store, "/barcodes/").Archive(context.Background(), writeRun(t)); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	names, _ := store.List(context.Background(), "")
	want := []string{"barcodes/123_31_12_2025_40.png", "barcodes/summary.txt", "other/keep.png"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("objects = %v, want %v", names, want)
	}

	img := store.objects["barcodes/123_31_12_2025_40.png"]
	if img.data != "PNG" || img.contentType != "image/png" {
		t.Errorf("image object = %+v", img)
	}
	if img.metadata["order_id"] != "7" || img.metadata["amount"] != "40" || img.metadata["run_id"] != "run-1" {
		t.Errorf("metadata = %v", img.metadata)
	}

	sum := store.objects["barcodes/summary.txt"]
	if sum.data != "Unused coupons left: 1\n" || !strings.HasPrefix(sum.contentType, "text/plain") {
		t.Errorf("summary object = %+v", sum)
	}
}

func TestMirror_UploadError(t *testing.T) {
	store := newMemStore()
	store.UploadErr = errors.New("403 forbidden")
	store.objects["stale.png"] = storedObject{}

	err := NewMirror(store, "").Archive(context.Background(), writeRun(t))
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("err = %v", err)
	}
	if _, ok := store.objects["stale.png"]; !ok {
		t.Error("nothing should be deleted after a failed upload")
	}
}

func TestMirror_MissingLocalFile(t *testing.T) {
	run := &domain.Run{ID: "r", Files: []string{filepath.Join(t.TempDir(), "gone.png")}}
	if err := NewMirror(newMemStore(), "x").Archive(context.Background(), run); err == nil {
		t.Error("expected error for missing file")
	}
}
