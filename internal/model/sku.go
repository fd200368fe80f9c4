// internal/model/sku.go
package model

// MatchType is the matching strategy for a legacy SKU mapping row.
type MatchType string

const (
	MatchExact  MatchType = "exact"
	MatchPrefix MatchType = "prefix"
	MatchSuffix MatchType = "suffix"
	MatchRegex  MatchType = "regex"
)

// matchPriorityRank gives the precedence order exact > prefix > suffix > regex,
// lower rank wins when comparing across match types.
var matchPriorityRank = map[MatchType]int{
	MatchExact:  0,
	MatchPrefix: 1,
	MatchSuffix: 2,
	MatchRegex:  3,
}

// Rank returns the type-precedence rank used before within-type priority.
func (m MatchType) Rank() int {
	if r, ok := matchPriorityRank[m]; ok {
		return r
	}
	return len(matchPriorityRank)
}

// SKUMapping is one row of the legacy SKU mapping table.
type SKUMapping struct {
	Pattern       string    `json:"pattern" db:"pattern"`
	MatchType     MatchType `json:"match_type" db:"match_type"`
	CanonicalCode string    `json:"canonical_code" db:"canonical_code"`
	Revision      string    `json:"revision,omitempty" db:"revision"`
	Priority      uint16    `json:"priority" db:"priority"`
	Active        bool      `json:"active" db:"active"`
	Description   string    `json:"description,omitempty" db:"description"`
}

// DesignKey returns the DesignKey a matched mapping resolves to.
func (m SKUMapping) DesignKey() DesignKey {
	return DesignKey{Code: m.CanonicalCode, Revision: m.Revision}
}

// Resolution is the result of resolving any SKU (native or legacy) to
// a canonical design key.
type Resolution struct {
	CanonicalCode string `json:"canonical_code"`
	Revision      string `json:"revision,omitempty"`
	IsLegacy      bool   `json:"is_legacy"`
	CanonicalSKU  string `json:"canonical_sku"`
	OriginalSKU   string `json:"original_sku"`
	ConfigNumber  string `json:"config_number,omitempty"`
}

// Design returns the DesignKey this resolution maps to.
func (r Resolution) Design() DesignKey {
	return DesignKey{Code: r.CanonicalCode, Revision: r.Revision}
}
