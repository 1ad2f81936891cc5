package fs_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tytell/fishdb/internal/blob/core"
	fsblob "github.com/tytell/fishdb/internal/infra/blob/fs"
)

func newStore(t *testing.T) *fsblob.Store {
	t.Helper()
	s, err := fsblob.New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	info, err := s.Put(ctx, "exports/20250601T000000Z/fish.csv", strings.NewReader("id\nF1\n"), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"table": "fish"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size != 6 {
		t.Fatalf("unexpected info: %+v", info)
	}

	got, rc, err := s.Get(ctx, "exports/20250601T000000Z/fish.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "id\nF1\n" {
		t.Fatalf("unexpected body: %q", body)
	}
	if got.ContentType != "text/csv" || got.Metadata["table"] != "fish" || got.ETag != info.ETag {
		t.Fatalf("sidecar metadata lost: %+v", got)
	}

	head, err := s.Head(ctx, "exports/20250601T000000Z/fish.csv")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != info.Size {
		t.Fatalf("head size mismatch: %+v", head)
	}
}

func TestPutRejectsExistingKey(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, "k.txt", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k.txt", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatalf("overwrite must be rejected")
	}
}

func TestSanitizeRejectsTraversal(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, key := range []string{"../escape", "/abs/path", "a/../../b"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, key := range []string{"exports/a.csv", "exports/b.csv", "raw/c.bin"} {
		if _, err := s.Put(ctx, key, strings.NewReader(key), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "exports/a.csv" || infos[1].Key != "exports/b.csv" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestDeleteRemovesDataAndSidecar(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, "k.txt", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := s.Delete(ctx, "k.txt")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, err := s.Head(ctx, "k.txt"); err == nil {
		t.Fatalf("sidecar survived delete")
	}
	ok, err = s.Delete(ctx, "k.txt")
	if err != nil || ok {
		t.Fatalf("second delete should report absent: ok=%v err=%v", ok, err)
	}
}

func TestPresignURLLocalGetOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	url, err := s.PresignURL(ctx, "exports/a.csv", core.SignedURLOptions{Method: "GET"})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if url != "http://local.blob/exports/a.csv" {
		t.Fatalf("unexpected url: %s", url)
	}
	if _, err := s.PresignURL(ctx, "exports/a.csv", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("PUT presign must be unsupported, got %v", err)
	}
}
