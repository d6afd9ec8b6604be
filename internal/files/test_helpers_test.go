package files

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"lasdesk/internal/events"
	localstore "lasdesk/internal/shared/storage/object/local"
	"lasdesk/internal/wells"
)

const sampleLAS = `~Version Information
 VERS.   2.0 : CWLS LOG ASCII STANDARD
~Well Information
 NULL.   -999.25 : NULL VALUE
 WELL.   DEMO-1  : WELL
~Curve Information
 DEPT.M  : DEPTH
 GR.GAPI : GAMMA RAY
~A
100.0 45.0
100.5 46.0
`

type fakeProcessor struct {
	mu       sync.Mutex
	enqueued []int64
	err      error
}

func (f *fakeProcessor) Enqueue(ctx context.Context, fileID int64, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, fileID)
	return nil
}

func (f *fakeProcessor) calls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.enqueued...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ProcessLog
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.ProcessLog) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

type testDeps struct {
	svc       *Service
	repo      *MemoryRepo
	curves    *wells.MemoryCurves
	processor *fakeProcessor
	published *recordingPublisher
}

func newTestService(t *testing.T) testDeps {
	t.Helper()
	repo := NewMemoryRepo()
	curves := wells.NewMemoryCurves()
	processor := &fakeProcessor{}
	pub := &recordingPublisher{}
	base := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc := &Service{
		Repo:      repo,
		Wells:     &wells.Service{Repo: wells.NewMemoryRepo(), Curves: curves},
		Store:     localstore.New(t.TempDir()),
		Processor: processor,
		Events:    pub,
		Now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		},
	}
	return testDeps{svc: svc, repo: repo, curves: curves, processor: processor, published: pub}
}

func mustUpload(t *testing.T, svc *Service, name string) File {
	t.Helper()
	results, err := svc.Upload(context.Background(), []UploadInput{{Name: name, Body: strings.NewReader(sampleLAS)}}, false)
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("upload %s: unexpected results %+v", name, results)
	}
	return results[0].File
}
