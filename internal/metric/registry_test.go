package metric

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Jemiiah/Maniifold/internal/domain"
)

// fakeStrategy is a test double with a fixed name and value.
type fakeStrategy struct {
	name  string
	value float64
	ok    bool
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) FetchValue(ctx context.Context) (float64, bool) {
	return f.value, f.ok
}

func TestRegistryRegisterGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeStrategy{name: "test_metric", value: 42, ok: true})

	s, err := r.Get("test_metric")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v, ok := s.FetchValue(context.Background()); !ok || v != 42 {
		t.Errorf("FetchValue = (%v, %v), want (42, true)", v, ok)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	if !errors.Is(err, domain.ErrUnknownMetric) {
		t.Errorf("err = %v, want domain.ErrUnknownMetric", err)
	}
}

func TestRegistryOverwrite(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeStrategy{name: "m", value: 1, ok: true})
	r.Register(&fakeStrategy{name: "m", value: 2, ok: true})

	s, err := r.Get("m")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v, _ := s.FetchValue(context.Background()); v != 2 {
		t.Errorf("overwrite not applied, value = %v", v)
	}
}

func TestBuiltinRegistersFullSet(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := Builtin(Endpoints{}, logger)

	want := []string{
		"btc_dominance",
		"btc_price",
		"eth_gas_price",
		"eth_price",
		"eth_staking_rate",
		"fear_greed",
		"generic",
		"stablecoin_peg",
	}

	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGenericNeverResolves(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := &Generic{logger: logger}

	for i := 0; i < 5; i++ {
		if _, ok := g.FetchValue(context.Background()); ok {
			t.Fatal("generic metric must never produce a value")
		}
	}
}
