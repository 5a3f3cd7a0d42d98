package listview

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

func arrivals() []model.Arrival {
	return []model.Arrival{
		{ID: 1, ArrivalNo: "AR-001", MaterialName: "伺服电机", SupplierName: "汇川", Status: "DELAYED", DelayDays: 5, ExpectedQty: 10},
		{ID: 2, ArrivalNo: "AR-002", MaterialName: "Cylinder", SupplierName: "SMC", Status: "PENDING", ExpectedQty: 50},
		{ID: 3, ArrivalNo: "AR-003", MaterialName: "导轨", SupplierName: "HIWIN", Status: "DELAYED", DelayDays: 2, ExpectedQty: 4},
		{ID: 4, ArrivalNo: "AR-004", MaterialName: "cylinder seal", SupplierName: "SMC", Status: "RECEIVED", ExpectedQty: 100},
	}
}

var arrivalSpec = Spec[model.Arrival]{
	Keywords: []func(model.Arrival) string{
		func(a model.Arrival) string { return a.ArrivalNo },
		func(a model.Arrival) string { return a.MaterialName },
		func(a model.Arrival) string { return a.SupplierName },
	},
	Category: func(a model.Arrival) string { return a.Status },
	Value:    func(a model.Arrival) float64 { return a.ExpectedQty },
	Sorts: map[string]func(a, b model.Arrival) bool{
		"delay_days": func(a, b model.Arrival) bool { return a.DelayDays < b.DelayDays },
	},
}

func ids(items []model.Arrival) []int64 {
	out := make([]int64, len(items))
	for i, a := range items {
		out[i] = a.ID
	}
	return out
}

func TestKeyword_caseInsensitive(t *testing.T) {
	got := Filter(arrivals(), arrivalSpec.keyword("CYLINDER"))
	assert.Equal(t, []int64{2, 4}, ids(got))

	got = Filter(arrivals(), arrivalSpec.keyword("电机"))
	assert.Equal(t, []int64{1}, ids(got))

	got = Filter(arrivals(), arrivalSpec.keyword("  "))
	assert.Len(t, got, 4)
}

func (s Spec[T]) keyword(kw string) func(T) bool {
	return Keyword(kw, s.Keywords...)
}

func TestCategoryAndRange(t *testing.T) {
	got := Filter(arrivals(), Category("DELAYED", arrivalSpec.Category))
	assert.Equal(t, []int64{1, 3}, ids(got))

	lo, hi := 5.0, 50.0
	got = Filter(arrivals(), Range(&lo, &hi, arrivalSpec.Value))
	assert.Equal(t, []int64{1, 2}, ids(got))

	got = Filter(arrivals(), Range(nil, &lo, arrivalSpec.Value))
	assert.Equal(t, []int64{3}, ids(got))
}

func TestSortBy_doesNotMutateSource(t *testing.T) {
	src := arrivals()
	sorted := SortBy(src, func(a, b model.Arrival) bool { return a.ExpectedQty > b.ExpectedQty })

	assert.Equal(t, []int64{4, 2, 1, 3}, ids(sorted))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(src), "source must not be reordered")

	assert.NotNil(t, SortBy[model.Arrival](nil, func(a, b model.Arrival) bool { return false }))
}

func TestSortBy_stable(t *testing.T) {
	sorted := SortBy(arrivals(), func(a, b model.Arrival) bool { return a.SupplierName == "SMC" && b.SupplierName != "SMC" })
	assert.Equal(t, []int64{2, 4, 1, 3}, ids(sorted))
}

func TestPaginate(t *testing.T) {
	items := arrivals()
	assert.Equal(t, []int64{1, 2}, ids(Paginate(items, 1, 2)))
	assert.Equal(t, []int64{3, 4}, ids(Paginate(items, 2, 2)))
	assert.Empty(t, Paginate(items, 3, 2))
	assert.NotNil(t, Paginate(items, 9, 2))
	assert.Equal(t, []int64{1, 2}, ids(Paginate(items, 0, 2)), "page clamps to 1")
	assert.Len(t, Paginate(items, 1, 0), 4, "size defaults")

	page := Paginate(items, 1, 2)
	page[0].ID = 99
	assert.Equal(t, int64(1), items[0].ID, "page must be a copy")
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery(url.Values{
		"keyword":   {" smc "},
		"status":    {"PENDING"},
		"sort":      {"-delay_days"},
		"min":       {"3"},
		"max":       {"bogus"},
		"page":      {"2"},
		"page_size": {"1000"},
	})
	assert.Equal(t, "smc", q.Keyword)
	assert.Equal(t, "PENDING", q.Category)
	assert.Equal(t, "delay_days", q.SortKey)
	assert.True(t, q.Desc)
	require.NotNil(t, q.Min)
	assert.Equal(t, 3.0, *q.Min)
	assert.Nil(t, q.Max)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, MaxPageSize, q.PageSize)

	q = ParseQuery(url.Values{"category": {"电气"}, "sort": {"name"}, "order": {"DESC"}})
	assert.Equal(t, "电气", q.Category)
	assert.True(t, q.Desc)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageSize, q.PageSize)
}

func TestApply(t *testing.T) {
	src := arrivals()
	res := Apply(src, Query{Category: "DELAYED", SortKey: "delay_days", Desc: true, Page: 1, PageSize: 10}, arrivalSpec)

	assert.Equal(t, []int64{1, 3}, ids(res.Items))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 10, res.PageSize)

	res = Apply(src, Query{SortKey: "delay_days", Page: 1, PageSize: 1}, arrivalSpec)
	assert.Equal(t, 4, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(2), res.Items[0].ID, "ascending stable sort puts the first zero-delay row first")

	res = Apply(src, Query{SortKey: "unknown", Keyword: "nothing-matches"}, arrivalSpec)
	assert.NotNil(t, res.Items)
	assert.Equal(t, 0, res.Total)

	assert.Equal(t, []int64{1, 2, 3, 4}, ids(src))
}
