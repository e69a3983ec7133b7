package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"salesdash/internal/amqp"
	"salesdash/internal/core"
	"salesdash/internal/source/memory"
)

const sampleCSV = `Branch,Month,Net_Sales,Discount_Amount,Orders
Riyadh,2024-01-01,"1,000.50",50,10
Jeddah,2024-01-01,800,40,8
Riyadh,2025-01-01,1500,75,15
`

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// countingReader counts reads and blocks each one until release is closed.
type countingReader struct {
	calls   int64
	release chan struct{}
	rows    []core.SalesRow
	err     error
}

func (r *countingReader) ReadRows(ctx context.Context) ([]core.SalesRow, error) {
	atomic.AddInt64(&r.calls, 1)
	if r.release != nil {
		<-r.release
	}
	return r.rows, r.err
}

func TestDatasetServiceCachesSnapshot(t *testing.T) {
	reader := &countingReader{rows: []core.SalesRow{{Branch: "A"}}}
	svc := NewDatasetService(reader, DatasetOptions{TTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rows, err := svc.Rows(ctx)
		if err != nil || len(rows) != 1 {
			t.Fatalf("Rows: %v %v", rows, err)
		}
	}
	if got := atomic.LoadInt64(&reader.calls); got != 1 {
		t.Fatalf("source read %d times, want 1", got)
	}

	svc.Invalidate()
	if _, err := svc.Rows(ctx); err != nil {
		t.Fatalf("Rows after invalidate: %v", err)
	}
	if got := atomic.LoadInt64(&reader.calls); got != 2 {
		t.Fatalf("Invalidate should force a reload, reads=%d", got)
	}
}

func TestDatasetServiceCollapsesConcurrentMisses(t *testing.T) {
	reader := &countingReader{release: make(chan struct{}), rows: []core.SalesRow{{Branch: "A"}}}
	svc := NewDatasetService(reader, DatasetOptions{TTL: time.Minute})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Rows(context.Background())
			errs <- err
		}()
	}
	// Let the goroutines pile up on the in-flight read.
	for atomic.LoadInt64(&reader.calls) == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(reader.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Rows: %v", err)
		}
	}
	if got := atomic.LoadInt64(&reader.calls); got != 1 {
		t.Fatalf("concurrent misses triggered %d reads, want 1", got)
	}
}

// snapshotReader captures its rows when a read starts, then waits on gate
// when one is set.
type snapshotReader struct {
	mu    sync.Mutex
	rows  []core.SalesRow
	gate  chan struct{}
	calls int64
}

func (r *snapshotReader) ReadRows(context.Context) ([]core.SalesRow, error) {
	r.mu.Lock()
	rows, gate := r.rows, r.gate
	r.gate = nil
	r.mu.Unlock()
	atomic.AddInt64(&r.calls, 1)
	if gate != nil {
		<-gate
	}
	return rows, nil
}

func (r *snapshotReader) set(rows []core.SalesRow) {
	r.mu.Lock()
	r.rows = rows
	r.mu.Unlock()
}

func TestDatasetServiceInvalidateDuringRead(t *testing.T) {
	gate := make(chan struct{})
	reader := &snapshotReader{rows: []core.SalesRow{{Branch: "OLD"}}, gate: gate}
	svc := NewDatasetService(reader, DatasetOptions{TTL: time.Minute})

	done := make(chan []core.SalesRow, 1)
	go func() {
		rows, _ := svc.Rows(context.Background())
		done <- rows
	}()
	for atomic.LoadInt64(&reader.calls) == 0 {
		time.Sleep(time.Millisecond)
	}

	// An import lands while the read is still running.
	reader.set([]core.SalesRow{{Branch: "NEW"}})
	svc.Invalidate()
	close(gate)
	if rows := <-done; len(rows) != 1 || rows[0].Branch != "OLD" {
		t.Fatalf("in-flight read = %+v, want the OLD snapshot", rows)
	}

	rows, err := svc.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 1 || rows[0].Branch != "NEW" {
		t.Fatalf("Rows after invalidate = %+v, want NEW", rows)
	}
	if got := atomic.LoadInt64(&reader.calls); got != 2 {
		t.Fatalf("reads = %d, want 2", got)
	}
}

func TestDatasetServiceNoTTLAndErrors(t *testing.T) {
	reader := &countingReader{err: errors.New("disk gone")}
	svc := NewDatasetService(reader, DatasetOptions{})
	if _, err := svc.Rows(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	reader.err = nil
	svc.Rows(context.Background())
	svc.Rows(context.Background())
	if got := atomic.LoadInt64(&reader.calls); got != 3 {
		t.Fatalf("ttl 0 should read every time, reads=%d", got)
	}
}

type fakePublisher struct {
	msgs   []*amqp.ImportMessage
	err    error
	closed bool
}

func (p *fakePublisher) PublishImport(_ context.Context, msg *amqp.ImportMessage) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

type flagInvalidator struct{ called int }

func (f *flagInvalidator) Invalidate() { f.called++ }

func TestImportServiceInline(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "sales.csv", sampleCSV)
	store := memory.New(nil)
	inv := &flagInvalidator{}
	svc := NewImportService(store, ImportOptions{Invalidator: inv, BaseDir: dir})
	ctx := context.Background()

	n, err := svc.Import(ctx, "sales.csv")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported %d rows, want 3", n)
	}
	rows, _ := store.ReadRows(ctx)
	if len(rows) != 3 || !rows[0].NetSales.Equal(decimal.RequireFromString("1000.5")) {
		t.Fatalf("store not replaced: %+v", rows)
	}
	if inv.called != 1 {
		t.Fatalf("dataset cache not invalidated")
	}
	last, ok, _ := store.LastImport(ctx)
	if !ok || last.Origin != filepath.Join(dir, "sales.csv") || last.JobID == "" {
		t.Fatalf("import not recorded: %+v", last)
	}

	res, err := svc.RequestImport(ctx, "sales.csv")
	if err != nil || res.Queued || res.Rows != 3 || svc.Queued() {
		t.Fatalf("inline RequestImport = %+v, %v", res, err)
	}
}

func TestImportServiceQueued(t *testing.T) {
	dir := t.TempDir()
	pub := &fakePublisher{}
	svc := NewImportService(nil, ImportOptions{Publisher: pub, BaseDir: dir})

	res, err := svc.RequestImport(context.Background(), "incoming/sales.csv")
	if err != nil {
		t.Fatalf("RequestImport: %v", err)
	}
	if !svc.Queued() {
		t.Fatalf("service with a publisher should report queued imports")
	}
	if !res.Queued || res.JobID == "" || len(pub.msgs) != 1 {
		t.Fatalf("expected one queued job, got %+v msgs=%d", res, len(pub.msgs))
	}
	if pub.msgs[0].JobID != res.JobID || pub.msgs[0].Path != filepath.Join(dir, "incoming", "sales.csv") {
		t.Fatalf("published %+v", pub.msgs[0])
	}

	pub.err = errors.New("broker down")
	if _, err := svc.RequestImport(context.Background(), "sales.csv"); err == nil {
		t.Fatalf("publish failure must surface")
	}

	if err := svc.Close(); err != nil || !pub.closed {
		t.Fatalf("Close should close the publisher")
	}
}

func TestImportServiceHandleMessage(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "sales.csv", sampleCSV)
	store := memory.New(nil)
	svc := NewImportService(store, ImportOptions{BaseDir: dir})

	msg := amqp.NewImportMessage(path)
	if err := svc.HandleImportMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleImportMessage: %v", err)
	}
	last, _, _ := store.LastImport(context.Background())
	if last.JobID != msg.JobID || last.Rows != 3 {
		t.Fatalf("worker import not recorded with job id: %+v", last)
	}
}

func TestImportServiceErrors(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "bad.csv", "Branch,Month\nA,2024-01-01\n")
	ctx := context.Background()

	svc := NewImportService(memory.New(nil), ImportOptions{BaseDir: dir})
	for _, p := range []string{"", "../escape.csv", "/etc/passwd"} {
		if _, err := svc.Import(ctx, p); !errors.Is(err, ErrPathNotAllowed) {
			t.Errorf("Import(%q) = %v, want ErrPathNotAllowed", p, err)
		}
	}
	if _, err := svc.Import(ctx, "bad.csv"); !errors.Is(err, core.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
	if _, err := svc.Import(ctx, "missing.csv"); err == nil {
		t.Errorf("expected error for missing file")
	}

	readOnly := NewImportService(nil, ImportOptions{BaseDir: dir})
	if _, err := readOnly.RequestImport(ctx, "bad.csv"); !errors.Is(err, ErrReadOnlyBackend) {
		t.Errorf("expected ErrReadOnlyBackend, got %v", err)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) ReplaceRows(context.Context, core.Import, []core.SalesRow) error {
	return w.err
}

func TestImportServiceHandleMessageClassifiesErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "sales.csv", sampleCSV)
	bad := writeCSV(t, dir, "bad.csv", "Branch,Month\nA,2024-01-01\n")
	ctx := context.Background()

	svc := NewImportService(memory.New(nil), ImportOptions{BaseDir: dir})
	for _, p := range []string{"../escape.csv", bad, filepath.Join(dir, "missing.csv")} {
		err := svc.HandleImportMessage(ctx, amqp.NewImportMessage(p))
		if !errors.Is(err, amqp.ErrPermanent) {
			t.Errorf("HandleImportMessage(%q) = %v, want permanent", p, err)
		}
	}
	err := NewImportService(nil, ImportOptions{BaseDir: dir}).HandleImportMessage(ctx, amqp.NewImportMessage(good))
	if !errors.Is(err, amqp.ErrPermanent) || !errors.Is(err, ErrReadOnlyBackend) {
		t.Errorf("read-only backend = %v, want permanent ErrReadOnlyBackend", err)
	}

	locked := errors.New("database is locked")
	svc = NewImportService(failingWriter{err: locked}, ImportOptions{BaseDir: dir})
	err = svc.HandleImportMessage(ctx, amqp.NewImportMessage(good))
	if !errors.Is(err, locked) || errors.Is(err, amqp.ErrPermanent) {
		t.Errorf("storage failure = %v, want transient", err)
	}
}
