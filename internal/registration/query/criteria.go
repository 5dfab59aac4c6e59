// Package query parses and validates registration list query parameters into
// a normalized Criteria value. A Criteria is built fresh per request and
// discarded after the query runs.
package query

import (
	"net/url"
	"strconv"
	"time"

	dErrors "mhreg/pkg/domain-errors"
)

// Field names the list endpoint sorts and filters on. The same enumeration
// serves both purposes: a field name appears either as the sortCriteriaName
// value or as a discrete filter key.
type Field string

const (
	FieldMHRNumber      Field = "mhrNumber"
	FieldRegType        Field = "registrationType"
	FieldStatus         Field = "statusType"
	FieldRegTS          Field = "createDateTime"
	FieldClientRef      Field = "clientReferenceId"
	FieldUserName       Field = "username"
	FieldSubmittingName Field = "submittingName"
	FieldOwnerName      Field = "ownerName"
)

var knownFields = map[Field]bool{
	FieldMHRNumber:      true,
	FieldRegType:        true,
	FieldStatus:         true,
	FieldRegTS:          true,
	FieldClientRef:      true,
	FieldUserName:       true,
	FieldSubmittingName: true,
	FieldOwnerName:      true,
}

// Direction orders sorted results.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// Reserved (non-filter) query parameter names.
const (
	ParamSortCriteria  = "sortCriteriaName"
	ParamSortDirection = "sortDirection"
	ParamStartTS       = "startTimestamp"
	ParamEndTS         = "endTimestamp"
	ParamCollapse      = "collapse"
)

// Criteria is a validated, normalized list query.
//
// When both a discrete filter and a date range are supplied, the discrete
// filter takes precedence and the date range is not applied. HasDateRange
// reflects that decision so callers never apply both.
type Criteria struct {
	SortField   Field
	Direction   Direction
	FilterField Field
	FilterValue string
	Start       time.Time
	End         time.Time
	Collapse    bool

	hasDateRange bool
}

// HasFilter reports whether a discrete field filter is active.
func (c Criteria) HasFilter() bool {
	return c.FilterField != ""
}

// HasDateRange reports whether the date-range filter is active. It is false
// whenever a discrete filter is active, regardless of supplied bounds.
func (c Criteria) HasDateRange() bool {
	return c.hasDateRange && !c.HasFilter()
}

// Parse validates raw query parameters into a Criteria.
//
// Defaults: no sortCriteriaName orders by registration timestamp descending
// (most recent first); a supplied sortCriteriaName without sortDirection
// sorts ascending.
func Parse(values url.Values) (Criteria, error) {
	criteria := Criteria{
		SortField: FieldRegTS,
		Direction: Descending,
	}

	for key := range values {
		switch key {
		case ParamSortCriteria, ParamSortDirection, ParamStartTS, ParamEndTS, ParamCollapse:
			continue
		}
		if !knownFields[Field(key)] {
			return Criteria{}, dErrors.Newf(dErrors.CodeValidation, "unknown query parameter %q", key)
		}
		if Field(key) == FieldRegTS {
			// Timestamp filtering goes through the date-range parameters.
			return Criteria{}, dErrors.New(dErrors.CodeValidation, "filter by createDateTime using startTimestamp and endTimestamp")
		}
		if criteria.FilterField != "" {
			return Criteria{}, dErrors.New(dErrors.CodeValidation, "at most one filter field may be supplied")
		}
		value := values.Get(key)
		if value == "" {
			return Criteria{}, dErrors.Newf(dErrors.CodeValidation, "filter %q requires a value", key)
		}
		criteria.FilterField = Field(key)
		criteria.FilterValue = value
	}

	if sortName := values.Get(ParamSortCriteria); sortName != "" {
		if !knownFields[Field(sortName)] {
			return Criteria{}, dErrors.Newf(dErrors.CodeValidation, "unknown sort criteria %q", sortName)
		}
		criteria.SortField = Field(sortName)
		criteria.Direction = Ascending
	}
	if dir := values.Get(ParamSortDirection); dir != "" {
		switch Direction(dir) {
		case Ascending, Descending:
			criteria.Direction = Direction(dir)
		default:
			return Criteria{}, dErrors.Newf(dErrors.CodeValidation, "invalid sort direction %q", dir)
		}
	}

	startRaw, endRaw := values.Get(ParamStartTS), values.Get(ParamEndTS)
	if startRaw != "" || endRaw != "" {
		if startRaw == "" || endRaw == "" {
			return Criteria{}, dErrors.New(dErrors.CodeValidation, "date range requires both startTimestamp and endTimestamp")
		}
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			return Criteria{}, dErrors.Newf(dErrors.CodeValidation, "invalid startTimestamp %q", startRaw)
		}
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			return Criteria{}, dErrors.Newf(dErrors.CodeValidation, "invalid endTimestamp %q", endRaw)
		}
		if end.Before(start) {
			return Criteria{}, dErrors.New(dErrors.CodeValidation, "endTimestamp precedes startTimestamp")
		}
		criteria.Start = start
		criteria.End = end
		criteria.hasDateRange = true
	}

	if collapseRaw := values.Get(ParamCollapse); collapseRaw != "" {
		collapse, err := strconv.ParseBool(collapseRaw)
		if err != nil {
			return Criteria{}, dErrors.Newf(dErrors.CodeValidation, "invalid collapse value %q", collapseRaw)
		}
		criteria.Collapse = collapse
	}

	return criteria, nil
}
