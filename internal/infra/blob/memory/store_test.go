package memory_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tytell/fishdb/internal/blob/core"
	"github.com/tytell/fishdb/internal/infra/blob/memory"
)

func TestPutGetHead(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	info, err := s.Put(ctx, "exports/a.csv", strings.NewReader("id,species\n"), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"table": "fish"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "exports/a.csv" || info.Size != int64(len("id,species\n")) {
		t.Fatalf("unexpected info: %+v", info)
	}

	got, rc, err := s.Get(ctx, "exports/a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "id,species\n" {
		t.Fatalf("unexpected body: %q", body)
	}
	if got.ContentType != "text/csv" || got.Metadata["table"] != "fish" {
		t.Fatalf("metadata lost: %+v", got)
	}

	head, err := s.Head(ctx, "exports/a.csv")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != info.Size || head.ETag != info.ETag {
		t.Fatalf("head disagrees with put: %+v vs %+v", head, info)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatalf("second put on same key must fail")
	}
}

func TestDeleteAndList(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	for _, key := range []string{"exports/a", "exports/b", "other/c"} {
		if _, err := s.Put(ctx, key, strings.NewReader(key), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := s.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "exports/a" || infos[1].Key != "exports/b" {
		t.Fatalf("unexpected listing: %+v", infos)
	}

	ok, err := s.Delete(ctx, "exports/a")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = s.Delete(ctx, "exports/a")
	if err != nil || ok {
		t.Fatalf("second delete should report absent: ok=%v err=%v", ok, err)
	}
	if _, _, err := s.Get(ctx, "exports/a"); err == nil {
		t.Fatalf("deleted key still readable")
	}
}

func TestPresignUnsupported(t *testing.T) {
	s := memory.New()
	if _, err := s.PresignURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
