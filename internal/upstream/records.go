package upstream

import "encoding/json"

// CourtRecord is one court as served by the catalog.
type CourtRecord struct {
	ID           string `json:"id"`
	Name         string `json:"full_name"`
	ShortName    string `json:"short_name"`
	Slug         string `json:"slug"`
	Jurisdiction string `json:"jurisdiction"`
	CourtType    string `json:"court_type"`
	URL          string `json:"url"`
}

// PositionRecord is one entry in a judge's position history. Dates arrive
// as ISO strings; an absent termination date means the seat is current.
type PositionRecord struct {
	CourtID         string  `json:"court"`
	PositionType    string  `json:"position_type"`
	DateStart       string  `json:"date_start"`
	DateTermination *string `json:"date_termination"`
}

// JudgeRecord is one judge with embedded position history.
type JudgeRecord struct {
	ID           string           `json:"id"`
	Name         string           `json:"name_full"`
	Slug         string           `json:"slug"`
	Jurisdiction string           `json:"jurisdiction"`
	BirthYear    *int             `json:"birth_year"`
	Appointer    *string          `json:"appointer"`
	Positions    []PositionRecord `json:"positions"`
}

// OpinionRecord is one published decision. Raw carries the undecoded body
// from a single-record fetch so outcome extraction can probe fields this
// struct does not model.
type OpinionRecord struct {
	ID           string  `json:"id"`
	CaseName     string  `json:"case_name"`
	DocketNumber *string `json:"docket_number"`
	CourtID      *string `json:"court"`
	JudgeID      *string `json:"author"`
	Disposition  *string `json:"disposition"`
	DateFiled    *string `json:"date_filed"`
	DateDecided  *string `json:"date_decided"`
	Summary      *string `json:"summary"`

	Raw json.RawMessage `json:"-"`
}

// DocketRecord is one docket header from the per-judge docket listing.
type DocketRecord struct {
	ID           string  `json:"id"`
	DocketNumber string  `json:"docket_number"`
	CaseName     string  `json:"case_name"`
	CourtID      *string `json:"court"`
	DateFiled    *string `json:"date_filed"`
}

// listEnvelope is the catalog's cursor pagination wrapper. Next and
// Previous are absolute URLs into the same listing, null at the edges.
type listEnvelope[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// CourtPage is one page of the court listing. NextPage is empty on the
// last page.
type CourtPage struct {
	Total    int
	NextPage string
	Courts   []CourtRecord
}

// JudgePage is one page of the judge listing.
type JudgePage struct {
	Total    int
	NextPage string
	Judges   []JudgeRecord
}

// OpinionPage is one page of a per-judge opinion listing.
type OpinionPage struct {
	Total    int
	NextPage string
	Opinions []OpinionRecord
}

// DocketPage is one page of a per-judge docket listing.
type DocketPage struct {
	Total    int
	NextPage string
	Dockets  []DocketRecord
}

func pageCursor(next *string) string {
	if next == nil {
		return ""
	}
	return *next
}
