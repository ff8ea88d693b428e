package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "smarttask/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "NONE"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileStoreAppend(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "deliveries.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entries := []Entry{
		{At: time.Now(), TaskID: "task_1", Kind: KindApproaching, Channel: "email", OK: true, TookMS: 42},
		{At: time.Now(), TaskID: "task_2", Kind: KindImmediate, Channel: "telegram", OK: false, Error: "timeout"},
	}
	for _, e := range entries {
		if err := st.Append(context.Background(), e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line not valid json: %v", err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("lines = %d, want 2", len(got))
	}
	if got[0].TaskID != "task_1" || got[0].Kind != KindApproaching || !got[0].OK {
		t.Fatalf("first entry = %+v", got[0])
	}
	if got[1].Error != "timeout" || got[1].OK {
		t.Fatalf("second entry = %+v", got[1])
	}
}

func TestFileStoreAppendAfterClose(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "deliveries.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	st.Close()
	if err := st.Append(context.Background(), Entry{TaskID: "task_x"}); err == nil {
		t.Fatal("expected error appending to closed store")
	}
}

func TestRecordIsNilSafe(t *testing.T) {
	t.Parallel()
	// Must not panic with a nil store.
	Record(context.Background(), nil, Entry{TaskID: "task_x"}, logx.Nop())
}
