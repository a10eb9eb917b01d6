package ledger

import "testing"

func TestParsePoolStats(t *testing.T) {
	record := `{
  owner: aleo1xyz,
  total_staked: 1500u64,
  option_a_stakes: 900u64,
  option_b_stakes: 600u64,
  locked: false
}`

	stats, err := ParsePoolStats(record)
	if err != nil {
		t.Fatalf("ParsePoolStats: %v", err)
	}
	if stats.TotalStaked != 1500 {
		t.Errorf("TotalStaked = %d, want 1500", stats.TotalStaked)
	}
	if stats.OptionAStakes != 900 {
		t.Errorf("OptionAStakes = %d, want 900", stats.OptionAStakes)
	}
	if stats.OptionBStakes != 600 {
		t.Errorf("OptionBStakes = %d, want 600", stats.OptionBStakes)
	}
}

func TestPoolTitle(t *testing.T) {
	record := `{
  title: ` + Field("ETH above 5k").Wire() + `,
  total_staked: 10u64,
  option_a_stakes: 5u64,
  option_b_stakes: 5u64
}`

	title, ok := PoolTitle(record)
	if !ok {
		t.Fatal("PoolTitle did not find a title field")
	}
	if title != "ETH above 5k" {
		t.Errorf("PoolTitle = %q, want %q", title, "ETH above 5k")
	}
}

func TestPoolTitleAbsent(t *testing.T) {
	record := `{ total_staked: 10u64, option_a_stakes: 5u64, option_b_stakes: 5u64 }`
	if title, ok := PoolTitle(record); ok {
		t.Errorf("PoolTitle = %q, want no title on a record without one", title)
	}
}

func TestParsePoolStatsMissingCounter(t *testing.T) {
	record := `{ total_staked: 10u64, option_a_stakes: 5u64 }`
	if _, err := ParsePoolStats(record); err == nil {
		t.Error("expected error when option_b_stakes is missing")
	}
}

func TestParsePoolStatsIdempotent(t *testing.T) {
	record := `{ total_staked: 42u64, option_a_stakes: 20u64, option_b_stakes: 22u64 }`

	first, err := ParsePoolStats(record)
	if err != nil {
		t.Fatalf("ParsePoolStats: %v", err)
	}
	second, err := ParsePoolStats(record)
	if err != nil {
		t.Fatalf("ParsePoolStats: %v", err)
	}
	if first != second {
		t.Errorf("parsing the same record twice drifted: %+v vs %+v", first, second)
	}
}
