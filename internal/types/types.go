package types

// MemberScore is one member's raw vote score on a single bill.
type MemberScore struct {
	MemberID   int     `json:"memberId"`
	MemberName string  `json:"memberName"`
	Score      float64 `json:"score"`
}

// LegislationScore groups all member scores recorded for one bill.
type LegislationScore struct {
	BillID       int           `json:"billId"`
	MemberScores []MemberScore `json:"memberScores"`
}

// BillInfo carries the bill attributes the weighting and reporting
// steps need. Title and Description default to empty strings when the
// detail record is missing upstream.
type BillInfo struct {
	ID                    int    `json:"id"`
	Passed                bool   `json:"passed"`
	DeliberationCompleted bool   `json:"deliberationCompleted"`
	Title                 string `json:"title"`
	Description           string `json:"description"`
}

// ComputeRequest is the body of the compute endpoint.
type ComputeRequest struct {
	NComponents int `json:"nComponents,omitempty"`
}
