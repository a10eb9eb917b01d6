package ledger

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/Jemiiah/Maniifold/internal/domain"
)

// Pool record fields are rendered by the node as struct text, e.g.
//
//	{ total_staked: 1500u64, option_a_stakes: 900u64, option_b_stakes: 600u64, ... }
var (
	totalStakedRe   = regexp.MustCompile(`total_staked:\s*(\d+)u64`)
	optionAStakesRe = regexp.MustCompile(`option_a_stakes:\s*(\d+)u64`)
	optionBStakesRe = regexp.MustCompile(`option_b_stakes:\s*(\d+)u64`)
	titleRe         = regexp.MustCompile(`title:\s*(\d+)field`)
)

// PoolTitle decodes the field-encoded title from a pool record. The second
// return is false when the record carries no decodable title field.
func PoolTitle(record string) (string, bool) {
	m := titleRe.FindStringSubmatch(record)
	if m == nil {
		return "", false
	}
	s, err := FieldString(m[1])
	if err != nil {
		return "", false
	}
	return s, true
}

// ParsePoolStats extracts the aggregate stake counters from a pool record.
// It fails when any of the three counters is missing from the record text.
func ParsePoolStats(record string) (domain.PoolStats, error) {
	total, err := extractU64(totalStakedRe, record, "total_staked")
	if err != nil {
		return domain.PoolStats{}, err
	}
	optionA, err := extractU64(optionAStakesRe, record, "option_a_stakes")
	if err != nil {
		return domain.PoolStats{}, err
	}
	optionB, err := extractU64(optionBStakesRe, record, "option_b_stakes")
	if err != nil {
		return domain.PoolStats{}, err
	}

	return domain.PoolStats{
		TotalStaked:   total,
		OptionAStakes: optionA,
		OptionBStakes: optionB,
	}, nil
}

func extractU64(re *regexp.Regexp, record, field string) (uint64, error) {
	m := re.FindStringSubmatch(record)
	if m == nil {
		return 0, fmt.Errorf("ledger: pool record missing %s", field)
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ledger: pool record %s: %w", field, err)
	}
	return n, nil
}
