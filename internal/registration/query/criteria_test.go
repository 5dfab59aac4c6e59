package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mhreg/pkg/domain-errors"
)

func parseQuery(t *testing.T, raw string) (Criteria, error) {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return Parse(values)
}

func TestParseDefaults(t *testing.T) {
	criteria, err := parseQuery(t, "")
	require.NoError(t, err)

	assert.Equal(t, FieldRegTS, criteria.SortField)
	assert.Equal(t, Descending, criteria.Direction)
	assert.False(t, criteria.HasFilter())
	assert.False(t, criteria.HasDateRange())
	assert.False(t, criteria.Collapse)
}

func TestParseSortFields(t *testing.T) {
	for _, field := range []Field{
		FieldMHRNumber, FieldRegType, FieldStatus, FieldRegTS,
		FieldClientRef, FieldUserName, FieldSubmittingName, FieldOwnerName,
	} {
		criteria, err := parseQuery(t, "sortCriteriaName="+string(field))
		require.NoError(t, err, "field %s", field)
		assert.Equal(t, field, criteria.SortField)
		// Explicit sort without direction defaults to ascending.
		assert.Equal(t, Ascending, criteria.Direction)
	}

	criteria, err := parseQuery(t, "sortCriteriaName=statusType&sortDirection=descending")
	require.NoError(t, err)
	assert.Equal(t, Descending, criteria.Direction)
}

func TestParseRejectsUnknownNames(t *testing.T) {
	for _, raw := range []string{
		"sortCriteriaName=bogus",
		"sortCriteriaName=mhrNumber&sortDirection=sideways",
		"bogusFilter=1",
		"createDateTime=2021-10-14T09:53:57Z",
	} {
		_, err := parseQuery(t, raw)
		require.Error(t, err, "query %q", raw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}

func TestParseDiscreteFilter(t *testing.T) {
	criteria, err := parseQuery(t, "mhrNumber=098487")
	require.NoError(t, err)
	assert.True(t, criteria.HasFilter())
	assert.Equal(t, FieldMHRNumber, criteria.FilterField)
	assert.Equal(t, "098487", criteria.FilterValue)

	_, err = parseQuery(t, "mhrNumber=098487&statusType=ACTIVE")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = parseQuery(t, "mhrNumber=")
	require.Error(t, err)
}

func TestParseDateRange(t *testing.T) {
	criteria, err := parseQuery(t, url.Values{
		ParamStartTS: {"2021-10-14T09:53:57-07:00"},
		ParamEndTS:   {"2021-10-17T09:53:57-07:00"},
		ParamCollapse: {"true"},
	}.Encode())
	require.NoError(t, err)

	assert.True(t, criteria.HasDateRange())
	assert.True(t, criteria.Collapse)
	assert.Equal(t, 2021, criteria.Start.Year())
	assert.True(t, criteria.End.After(criteria.Start))
}

func TestParseDateRangeValidation(t *testing.T) {
	cases := []url.Values{
		{ParamStartTS: {"2021-10-14T09:53:57-07:00"}},                                     // missing end
		{ParamEndTS: {"2021-10-14T09:53:57-07:00"}},                                       // missing start
		{ParamStartTS: {"not-a-time"}, ParamEndTS: {"2021-10-14T09:53:57-07:00"}},         // bad start
		{ParamStartTS: {"2021-10-14T09:53:57-07:00"}, ParamEndTS: {"2021-10-14"}},         // bad end
		{ParamStartTS: {"2021-10-17T00:00:00Z"}, ParamEndTS: {"2021-10-14T00:00:00Z"}},    // inverted
		{ParamStartTS: {"2021-10-14T00:00:00Z"}, ParamEndTS: {"2021-10-17T00:00:00Z"}, ParamCollapse: {"maybe"}},
	}
	for _, values := range cases {
		_, err := Parse(values)
		require.Error(t, err, "values %v", values)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}

func TestDiscreteFilterTakesPrecedenceOverDateRange(t *testing.T) {
	criteria, err := Parse(url.Values{
		"statusType": {"ACTIVE"},
		ParamStartTS: {"2021-10-14T00:00:00Z"},
		ParamEndTS:   {"2021-10-17T00:00:00Z"},
	})
	require.NoError(t, err)

	assert.True(t, criteria.HasFilter())
	assert.False(t, criteria.HasDateRange())
	// The bounds were still validated and retained.
	assert.Equal(t, time.Date(2021, 10, 14, 0, 0, 0, 0, time.UTC), criteria.Start)
}
