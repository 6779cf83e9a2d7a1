package idgen

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		raw     string
		want    Strategy
		wantErr bool
	}{
		{raw: "uuid", want: StrategyUUID},
		{raw: " SEQUENCE ", want: StrategySequence},
		{raw: "timestamp", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseStrategy(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	gen, err := New(StrategyUUID, "")
	if err != nil {
		t.Fatalf("uuid: %v", err)
	}
	if _, ok := gen.(*UUID); !ok {
		t.Fatalf("expected *UUID, got %T", gen)
	}

	gen, err = New(StrategySequence, "x")
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	if got := gen.NewID(); got != "x-1" {
		t.Fatalf("unexpected first id %q", got)
	}

	if _, err := New("clock", ""); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestUUID_Format(t *testing.T) {
	id := NewUUID().NewID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("id %q is not a uuid: %v", id, err)
	}
}

func TestSequence_Monotonic(t *testing.T) {
	seq := NewSequence("")
	want := []string{"ord-1", "ord-2", "ord-3"}
	for _, w := range want {
		if got := seq.NewID(); got != w {
			t.Fatalf("got %q, want %q", got, w)
		}
	}
}

func TestGenerators_UniqueUnderConcurrency(t *testing.T) {
	generators := map[string]domain.IDGenerator{
		"uuid":     NewUUID(),
		"sequence": NewSequence("ord"),
	}

	for name, gen := range generators {
		t.Run(name, func(t *testing.T) {
			const workers, perWorker = 16, 250

			var (
				mu   sync.Mutex
				seen = make(map[string]struct{}, workers*perWorker)
				wg   sync.WaitGroup
			)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					local := make([]string, 0, perWorker)
					for i := 0; i < perWorker; i++ {
						local = append(local, gen.NewID())
					}
					mu.Lock()
					for _, id := range local {
						seen[id] = struct{}{}
					}
					mu.Unlock()
				}()
			}
			wg.Wait()

			if len(seen) != workers*perWorker {
				t.Fatalf("expected %d unique ids, got %d", workers*perWorker, len(seen))
			}
		})
	}
}
