package domain

type Outcome int

const (
	Uninterpretable Outcome = iota
	Rejected
	Accepted
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "uninterpretable"
	}
}

type ExtractionResult struct {
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	Material       string `json:"material,omitempty"`
	SpecificObject string `json:"specific_object,omitempty"`
	Context        string `json:"context,omitempty"`
	Query          string `json:"query,omitempty"`
}

// Extraction is the interpreted description backend response. Raw keeps the
// untouched model text for diagnostics.
type Extraction struct {
	Outcome Outcome
	Result  ExtractionResult
	Raw     string
}

func (e Extraction) HasQuery() bool {
	return e.Outcome == Accepted && e.Result.Query != ""
}
