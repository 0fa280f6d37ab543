package vcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlab/vexpress/internal/gt"
)

func parseLine(t *testing.T, h *Header, line string) *Record {
	t.Helper()
	rec, err := ParseRecord(h, newSampleCols(h.samples), line, 1)
	require.NoError(t, err)
	return rec
}

func TestRecord_RenderRoundTrip(t *testing.T) {
	h := testHeader(t)
	lines := []string{
		"chr1\t100\trs1\tA\tG\t29.5\tPASS\tDP=14;AF=0.5;DB\tGT:AD\t0|1:10,4\t1/1:0,12",
		"chr1\t200\t.\tAC\tA,ACT\t.\t.\tDP=3\tGT:AD\t0/1:2,1\t.:.",
		"chr1\t300\t.\tT\t.\t.\tq10\t.\tGT:AD\t0/0:7,0\t0|0:5,0",
	}
	for _, line := range lines {
		rec := parseLine(t, h, line)
		assert.Equal(t, line, rec.Render(h), "untouched record must render byte-identical")
	}
}

func TestRecord_CoreAccessors(t *testing.T) {
	h := testHeader(t)
	rec := parseLine(t, h, "chr1\t100\trs1\tACG\tA\t29.5\tq10;s50\tDP=14\tGT\t0|1\t1/1")

	assert.Equal(t, "chr1", rec.Chrom())
	assert.Equal(t, int64(99), rec.Pos())
	assert.Equal(t, int64(102), rec.End(), "end spans the reference allele")
	assert.Equal(t, "rs1", rec.ID())
	assert.Equal(t, "ACG", rec.Ref())
	assert.Equal(t, []string{"A"}, rec.Alt())

	q, ok := rec.Qual()
	require.True(t, ok)
	assert.InDelta(t, 29.5, q, 1e-9)

	assert.Equal(t, []string{"q10", "s50"}, rec.Filters())
	first, ok := rec.FirstFilter()
	require.True(t, ok)
	assert.Equal(t, "q10", first)
}

func TestRecord_Mutation(t *testing.T) {
	h := testHeader(t)
	rec := parseLine(t, h, "chr1\t100\t.\tA\tG\t.\t.\t.\tGT\t0/1\t1/1")

	rec.SetPos(149)
	rec.SetID("rs99")
	rec.SetRef("AT")
	rec.SetAlt([]string{"A", "ATT"})
	rec.SetQual(12.25)
	rec.SetFilters([]string{"q10"})

	assert.Equal(t,
		"chr1\t150\trs99\tAT\tA,ATT\t12.25\tq10\t.\tGT\t0/1\t1/1",
		rec.Render(h))
}

func TestRecord_MissingQual(t *testing.T) {
	h := testHeader(t)
	rec := parseLine(t, h, "chr1\t100\t.\tA\tG\t.\t.\t.\tGT\t0/1\t1/1")
	_, ok := rec.Qual()
	assert.False(t, ok)
}

func TestRecord_InfoTypedAccess(t *testing.T) {
	h := testHeader(t)
	rec := parseLine(t, h, "chr1\t100\t.\tA\tG,T\t.\t.\tDP=14;AF=0.25,0.5;DB\tGT\t0/1\t1/2")

	ints, present, err := rec.InfoInts("DP")
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, []int{14}, ints)

	floats, present, err := rec.InfoFloats("AF")
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, []float64{0.25, 0.5}, floats)

	assert.True(t, rec.InfoFlag("DB"))
	assert.False(t, rec.InfoFlag("H2"))

	_, present, _ = rec.InfoRaw("MISSING")
	assert.False(t, present)
}

func TestRecord_InfoWriteBack(t *testing.T) {
	h := testHeader(t)
	rec := parseLine(t, h, "chr1\t100\t.\tA\tG\t.\t.\tDP=14;AF=0.5\tGT\t0/1\t1/1")

	// in-place update keeps field order
	rec.SetInfoInts("DP", []int{20})
	// new tag appends
	rec.SetInfoFloats("AFmax", []float64{0.5})
	rec.SetInfoFlag("DB", true)
	assert.Equal(t,
		"chr1\t100\t.\tA\tG\t.\t.\tDP=20;AF=0.5;AFmax=0.5;DB\tGT\t0/1\t1/1",
		rec.Render(h))

	rec.ClearInfo("AF")
	_, present, _ := rec.InfoRaw("AF")
	assert.False(t, present)

	rec.SetInfoFlag("DB", false)
	assert.False(t, rec.InfoFlag("DB"))
}

func TestRecord_SampleFields(t *testing.T) {
	h := testHeader(t)
	rec := parseLine(t, h, "chr1\t100\t.\tA\tG\t.\t.\t.\tGT:AD\t0|1:10,4\t1/1")

	v, ok := rec.SampleField("NA12878", "AD")
	require.True(t, ok)
	assert.Equal(t, "10,4", v)

	// second sample dropped its trailing AD field
	_, ok = rec.SampleField("NA12879", "AD")
	assert.False(t, ok)

	_, ok = rec.SampleField("NA99999", "GT")
	assert.False(t, ok)
}

func TestRecord_GTCalls(t *testing.T) {
	h := testHeader(t)
	rec := parseLine(t, h, "chr1\t100\t.\tA\tG\t.\t.\t.\tGT\t0|1\t1/1")

	calls, err := rec.GTCalls()
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "0|1", calls[0].String())
	assert.Equal(t, "1/1", calls[1].String())

	require.NoError(t, rec.SetGTCall("NA12878", gt.Call{
		{Index: 1}, {Index: 1, Phased: true},
	}))
	assert.Equal(t, "chr1\t100\t.\tA\tG\t.\t.\t.\tGT\t1|1\t1/1", rec.Render(h))
}

func TestRecord_GTCallsAfterSubset(t *testing.T) {
	h := testHeader(t)
	rec := parseLine(t, h, "chr1\t100\t.\tA\tG\t.\t.\t.\tGT\t0|1\t1/1")

	require.NoError(t, h.SubsetSamples([]string{"NA12879"}))

	calls, err := rec.GTCalls()
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "1/1", calls[0].String(), "record still reads its original file column")

	assert.Equal(t, "chr1\t100\t.\tA\tG\t.\t.\t.\tGT\t1/1", rec.Render(h))
}

func TestParseRecord_Errors(t *testing.T) {
	h := testHeader(t)
	cols := newSampleCols(h.samples)

	_, err := ParseRecord(h, cols, "chr1\t100\t.\tA", 7)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 7, pe.Line)

	_, err = ParseRecord(h, cols, "chr1\tzero\t.\tA\tG\t.\t.\t.", 8)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "POS", pe.Field)

	// sample column count must match the file layout
	_, err = ParseRecord(h, cols, "chr1\t100\t.\tA\tG\t.\t.\t.\tGT\t0/1", 9)
	assert.Error(t, err)
}
