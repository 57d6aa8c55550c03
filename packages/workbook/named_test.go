package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedRangeSet(t *testing.T) {
	nrs := NewNamedRangeSet()

	nr, err := nrs.Add("TaxRate", "=Sheet1!$B$2")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), nr.ID())
	assert.Equal(t, []string{"Sheet1!$B$2"}, nr.References())
	assert.True(t, nr.IsVisible())

	_, err = nrs.Add("taxrate")
	assert.True(t, IsAppError(err, AlreadyExists))

	for _, bad := range []string{"", "1st", "A1", "xfd100", "R", "c", "has space", "a-b"} {
		_, err := nrs.Add(bad)
		assert.True(t, IsAppError(err, InvalidArgument), bad)
	}
	for _, good := range []string{"_private", `\weird`, "Q1.Total", "ABCD1", "Données"} {
		_, err := nrs.Add(good)
		assert.NoError(t, err, good)
	}

	got, ok := nrs.Get("TAXRATE")
	require.True(t, ok)
	assert.Same(t, nr, got)

	require.NoError(t, nrs.Rename("TaxRate", "VAT"))
	assert.False(t, nrs.Contains("TaxRate"))
	assert.Equal(t, "VAT", nr.Name())
	assert.True(t, IsAppError(nrs.Rename("missing", "Other"), NotFound))
	assert.True(t, IsAppError(nrs.Rename("VAT", "_private"), AlreadyExists))
	require.NoError(t, nrs.Rename("VAT", "vat"))

	var names []string
	for nr := range nrs.All() {
		names = append(names, nr.Name())
	}
	assert.Equal(t, []string{"\\weird", "_private", "ABCD1", "Données", "Q1.Total", "vat"}, names)

	assert.True(t, nrs.Delete("VAT"))
	assert.False(t, nrs.Delete("VAT"))
	assert.Equal(t, 5, nrs.Count())
}

func TestNamedRangeReferences(t *testing.T) {
	nrs := NewNamedRangeSet()
	nr, err := nrs.Add("Block")
	require.NoError(t, err)

	assert.True(t, IsAppError(nr.AddReference(" = "), InvalidArgument))
	require.NoError(t, nr.AddReference("Sheet1!$A$1:$B$3"))
	require.NoError(t, nr.AddReference("=Sheet1!D4"))
	assert.Equal(t, 2, nr.ReferenceCount())

	nr.SetComment("input block")
	nr.SetVisible(false)
	assert.Equal(t, "input block", nr.Comment())
	assert.False(t, nr.IsVisible())

	dropped := nrs.rewrite(func(ref string) string {
		if ref == "Sheet1!D4" {
			return ""
		}
		return ref
	})
	assert.Equal(t, []string{"Block: Sheet1!D4"}, dropped)
	assert.Equal(t, 1, nr.ReferenceCount())

	nr.ClearReferences()
	assert.Zero(t, nr.ReferenceCount())
	assert.True(t, nrs.Contains("Block"))
}

func TestNamedRangeRanges(t *testing.T) {
	limits := Limits{MaxRow: 100, MaxColumn: 26}
	nrs := NewNamedRangeSet()

	nr, err := nrs.Add("Inputs", "Sheet1!$A$1:$A$3,'Other Sheet'!C5", "B2:C4", "2:3")
	require.NoError(t, err)

	ranges, err := nr.Ranges(limits, "Sheet9")
	require.NoError(t, err)

	var got []string
	for _, sr := range ranges {
		got = append(got, sr.String())
	}
	assert.Equal(t, []string{
		"Sheet1!A1:A3",
		"'Other Sheet'!C5:C5",
		"Sheet9!B2:C4",
		"Sheet9!A2:Z3",
	}, got)

	constant, err := nrs.Add("Answer", "42")
	require.NoError(t, err)
	ranges, err = constant.Ranges(limits, "Sheet1")
	require.NoError(t, err)
	assert.Empty(t, ranges)

	outside, err := nrs.Add("Outside", "Sheet1!A500")
	require.NoError(t, err)
	_, err = outside.Ranges(limits, "Sheet1")
	assert.True(t, IsAppError(err, InvalidArgument))
}

func TestResolveName(t *testing.T) {
	wb, err := NewWorkbook(WithLimits(Limits{MaxRow: 100, MaxColumn: 26}))
	require.NoError(t, err)
	ws, err := wb.AddWorksheet("Data")
	require.NoError(t, err)

	_, err = wb.DefineName("Scope", "Data!A1")
	require.NoError(t, err)
	_, err = ws.DefineName("Scope", "B2:B3")
	require.NoError(t, err)
	_, err = wb.DefineName("Global", "Data!C1")
	require.NoError(t, err)

	ranges, err := ws.ResolveName("scope")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, "Data!B2:B3", ranges[0].String())

	ranges, err = ws.ResolveName("Global")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, "Data!C1:C1", ranges[0].String())

	_, err = ws.ResolveName("Nope")
	assert.True(t, IsAppError(err, NotFound))
}
