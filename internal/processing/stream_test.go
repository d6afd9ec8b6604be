package processing

import (
	"errors"
	"sync"
	"testing"

	"lasdesk/internal/events"
)

func TestStreamClientFiltersAndFeedsStore(t *testing.T) {
	transport := newFakeTransport()
	store := NewStore(nil, nil)
	cache := newTestCache(t)
	client := NewStreamClient(transport, cache, store, nil)
	defer client.Close()

	store.SetActive(id(7), 0)
	if _, err := client.Subscribe(7); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	stream := transport.next(t)

	stream.send(events.ProcessLog{FileID: 8, Message: "not mine", Step: events.StepDone})
	stream.send(events.ProcessLog{FileID: 7, Message: "Parsing", Step: events.StepParse})
	stream.send(events.ProcessLog{FileID: 7, Message: "Inserting", Step: events.StepInsert, Inserted: id(25), Total: id(50)})
	stream.send(events.ProcessLog{FileID: 7, Message: "late label", Step: events.StepWell})
	stream.send(events.ProcessLog{FileID: 7, Message: "mystery", Step: "vacuum"})

	if job := store.Active(); job.Progress != 65 {
		t.Fatalf("expected progress 65, got %d", job.Progress)
	}
	entries := cache.Entries(7)
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries for file 7, got %+v", entries)
	}
	if cache.Entries(8) != nil {
		t.Fatalf("other files must not be cached")
	}
}

func TestStreamClientSynthesizesErrorOnTransportFailure(t *testing.T) {
	transport := newFakeTransport()
	cache := newTestCache(t)
	client := NewStreamClient(transport, cache, NewStore(nil, nil), nil)
	defer client.Close()

	var mu sync.Mutex
	var heard []LogEntry
	client.Listen(func(fileID int64, e LogEntry) {
		mu.Lock()
		heard = append(heard, e)
		mu.Unlock()
	})

	sub, _ := client.Subscribe(3)
	transport.next(t).fail <- errors.New("connection reset")
	sub.Wait()

	entries := cache.Entries(3)
	if len(entries) != 1 || entries[0].Step != events.StepError || entries[0].Message != LostConnectionMessage || !entries[0].Local {
		t.Fatalf("expected one synthetic error, got %+v", entries)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(heard) != 1 {
		t.Fatalf("expected listener to hear the synthetic error, got %d", len(heard))
	}
	if client.Current() != nil {
		t.Fatalf("failed subscription must not stay current")
	}
}

func TestStreamClientIntentionalCancelIsSilent(t *testing.T) {
	transport := newFakeTransport()
	cache := newTestCache(t)
	client := NewStreamClient(transport, cache, NewStore(nil, nil), nil)
	defer client.Close()

	sub, _ := client.Subscribe(3)
	stream := transport.next(t)
	sub.Cancel()
	sub.Wait()
	stream.send(events.ProcessLog{FileID: 3, Message: "late", Step: events.StepParse})

	if entries := cache.Entries(3); len(entries) != 0 {
		t.Fatalf("expected nothing recorded after cancel, got %+v", entries)
	}
}

func TestStreamClientKeepsOneSubscription(t *testing.T) {
	transport := newFakeTransport()
	client := NewStreamClient(transport, newTestCache(t), NewStore(nil, nil), nil)
	defer client.Close()

	first, _ := client.Subscribe(1)
	transport.next(t)
	second, _ := client.Subscribe(2)
	stream := transport.next(t)

	if !first.Cancelled() || !stream.prevCancelled {
		t.Fatalf("previous subscription must be torn down before the next opens")
	}
	first.Wait()
	if transport.openCount() != 1 || client.Current() != second || second.FileID() != 2 {
		t.Fatalf("expected exactly one open subscription bound to 2")
	}
}

func TestResubscribeKeepsCachedHistory(t *testing.T) {
	transport := newFakeTransport()
	cache := newTestCache(t)
	client := NewStreamClient(transport, cache, NewStore(nil, nil), nil)
	defer client.Close()

	sub, _ := client.Subscribe(4)
	transport.next(t).send(events.ProcessLog{FileID: 4, Message: "one", Step: events.StepStart})
	client.Unsubscribe(sub)
	sub.Wait()

	_, _ = client.Subscribe(4)
	transport.next(t).send(events.ProcessLog{FileID: 4, Message: "two", Step: events.StepDownload})

	entries := cache.Entries(4)
	if len(entries) != 2 || entries[0].Message != "one" || entries[1].Message != "two" {
		t.Fatalf("expected history kept across resubscribe, got %+v", entries)
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	client := NewStreamClient(newFakeTransport(), nil, nil, nil)
	client.Close()
	if _, err := client.Subscribe(1); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}
}
