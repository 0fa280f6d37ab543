package bind

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlab/vexpress/internal/script"
	"github.com/varlab/vexpress/internal/vcf"
)

const bindVCF = "##fileformat=VCFv4.2\n" +
	"##contig=<ID=chr1>\n" +
	"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Total Depth\">\n" +
	"##INFO=<ID=AF,Number=A,Type=Float,Description=\"Allele Frequency\">\n" +
	"##INFO=<ID=DB,Number=0,Type=Flag,Description=\"dbSNP membership\">\n" +
	"##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">\n" +
	"##FORMAT=<ID=AD,Number=R,Type=Integer,Description=\"Allelic depths\">\n" +
	"##FORMAT=<ID=DP,Number=1,Type=Integer,Description=\"Read depth\">\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA12878\tNA12879\n" +
	"chr1\t7\trs1234\tA\tAT,G\t31.5\tPASS\tDP=10;AF=0.25,0.5;DB\tGT:AD:DP\t0|1:10,4,.:14\t1/2:0,3,9:12\n"

func bindRecord(t *testing.T) (*Variant, *vcf.Header) {
	t.Helper()
	r, err := vcf.NewReader(strings.NewReader(bindVCF))
	require.NoError(t, err)
	rec, err := r.Read()
	require.NoError(t, err)
	_, err = r.Read()
	require.ErrorIs(t, err, io.EOF)
	return New(rec, r.Header()), r.Header()
}

func TestVariant_Fields(t *testing.T) {
	v, _ := bindRecord(t)

	for name, want := range map[string]script.Value{
		"chrom":  script.Str("chr1"),
		"pos":    script.Int(6),
		"start":  script.Int(6),
		"stop":   script.Int(7),
		"end":    script.Int(7),
		"id":     script.Str("rs1234"),
		"REF":    script.Str("A"),
		"qual":   script.Float(31.5),
		"FILTER": script.Str("PASS"),
		"ALT":    script.List{script.Str("AT"), script.Str("G")},
	} {
		got, err := v.Field(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	got, err := v.Field("genotypes")
	require.NoError(t, err)
	assert.Equal(t, script.List{script.Str("0|1"), script.Str("1/2")}, got)
}

func TestVariant_UnknownField(t *testing.T) {
	v, _ := bindRecord(t)
	_, err := v.Field("posn")
	assert.True(t, IsFieldNotFound(err))
	err = v.SetField("nope", script.Int(1))
	assert.True(t, IsFieldNotFound(err))
}

func TestVariant_SetFields(t *testing.T) {
	v, _ := bindRecord(t)

	require.NoError(t, v.SetField("pos", script.Int(99)))
	got, err := v.Field("pos")
	require.NoError(t, err)
	assert.Equal(t, script.Int(99), got)

	require.NoError(t, v.SetField("id", script.Str("rs2")))
	require.NoError(t, v.SetField("qual", script.Int(12)))
	q, err := v.Field("qual")
	require.NoError(t, err)
	assert.Equal(t, script.Float(12), q)

	// REF replacement keeps the ALT list
	require.NoError(t, v.SetField("REF", script.Str("T")))
	alts, err := v.Field("ALT")
	require.NoError(t, err)
	assert.Equal(t, script.List{script.Str("AT"), script.Str("G")}, alts)

	// ALT replacement keeps REF
	require.NoError(t, v.SetField("ALT", script.List{script.Str("C")}))
	ref, err := v.Field("REF")
	require.NoError(t, err)
	assert.Equal(t, script.Str("T"), ref)

	require.NoError(t, v.SetField("filters", script.List{script.Str("q10")}))
	f, err := v.Field("FILTER")
	require.NoError(t, err)
	assert.Equal(t, script.Str("q10"), f)

	err = v.SetField("chrom", script.Str("chr2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}

func TestVariant_SetFilterReplacesSet(t *testing.T) {
	v, _ := bindRecord(t)

	require.NoError(t, v.SetField("filters", script.List{script.Str("q10"), script.Str("s50")}))
	require.NoError(t, v.SetField("FILTER", script.Str("PASS")))

	got, err := v.Field("filters")
	require.NoError(t, err)
	assert.Equal(t, script.List{script.Str("PASS")}, got)

	f, err := v.Field("FILTER")
	require.NoError(t, err)
	assert.Equal(t, script.Str("PASS"), f)
}

func TestVariant_Info(t *testing.T) {
	v, _ := bindRecord(t)

	// scalar without index
	got, err := v.Info("DP", 0)
	require.NoError(t, err)
	assert.Equal(t, script.Int(10), got)

	// multi-valued without index yields the whole list
	got, err = v.Info("AF", 0)
	require.NoError(t, err)
	assert.Equal(t, script.List{script.Float(0.25), script.Float(0.5)}, got)

	// explicit index is 1-based
	got, err = v.Info("AF", 2)
	require.NoError(t, err)
	assert.Equal(t, script.Float(0.5), got)

	// out-of-range index is guest nil
	got, err = v.Info("AF", 3)
	require.NoError(t, err)
	assert.Equal(t, script.Null{}, got)

	// flags are presence booleans, present or not
	got, err = v.Info("DB", 0)
	require.NoError(t, err)
	assert.Equal(t, script.Bool(true), got)

	// undeclared tag is an error, not nil
	_, err = v.Info("XX", 0)
	assert.True(t, vcf.IsUnknownTag(err))
}

func TestVariant_InfoAbsentDeclaredTag(t *testing.T) {
	v, hdr := bindRecord(t)
	require.NoError(t, hdr.AddInfo(vcf.TagDef{ID: "MQ", Type: vcf.TypeFloat, Card: vcf.Fixed(1)}))

	got, err := v.Info("MQ", 0)
	require.NoError(t, err)
	assert.Equal(t, script.Null{}, got)
}

func TestVariant_Format(t *testing.T) {
	v, _ := bindRecord(t)

	// scalar tag flattens to one value per sample
	got, err := v.Format("DP")
	require.NoError(t, err)
	assert.Equal(t, script.List{script.Int(14), script.Int(12)}, got)

	// R-cardinality tag is a list per sample; "." keeps its slot as nil
	got, err = v.Format("AD")
	require.NoError(t, err)
	assert.Equal(t, script.List{
		script.List{script.Int(10), script.Int(4), script.Null{}},
		script.List{script.Int(0), script.Int(3), script.Int(9)},
	}, got)

	_, err = v.Format("ZZ")
	assert.True(t, vcf.IsUnknownTag(err))
}

func TestVariant_Sample(t *testing.T) {
	v, _ := bindRecord(t)

	m, err := v.Sample("NA12878")
	require.NoError(t, err)
	assert.Equal(t, script.List{script.Int(0), script.Int(1)}, m["GT"])
	assert.Equal(t, script.List{script.Bool(false), script.Bool(true)}, m["phase"])
	assert.Equal(t, script.Int(14), m["DP"])
	assert.Equal(t, script.List{script.Int(10), script.Int(4), script.Null{}}, m["AD"])

	_, err = v.Sample("NA00000")
	assert.True(t, vcf.IsUnknownSample(err))
}

func TestVariant_Snapshot(t *testing.T) {
	v, _ := bindRecord(t)

	snap, err := v.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, script.Str("chr1"), snap["chrom"])
	assert.Equal(t, script.Int(6), snap["pos"])

	rec, ok := snap["variant"].(script.Map)
	require.True(t, ok)
	assert.Equal(t, script.Str("rs1234"), rec["id"])
	info, ok := rec["info"].(script.Map)
	require.True(t, ok)
	assert.Equal(t, script.Int(10), info["DP"])
	assert.Equal(t, script.Bool(true), info["DB"])

	samples, ok := snap["samples"].(script.Map)
	require.True(t, ok)
	na, ok := samples["NA12878"].(script.Map)
	require.True(t, ok)
	assert.Equal(t, script.List{script.Int(0), script.Int(1)}, na["GT"])
}

func TestVariant_GenotypesView(t *testing.T) {
	v, _ := bindRecord(t)

	view, err := v.Genotypes()
	require.NoError(t, err)
	assert.Equal(t, 2, view.Len())
	call, err := view.At(0)
	require.NoError(t, err)
	assert.Equal(t, "0|1", call.String())

	// the view survives release; the binding does not
	v.Release()
	assert.Equal(t, 2, view.Len())

	_, err = v.Field("pos")
	assert.ErrorIs(t, err, ErrBindingReleased)
	_, err = v.Info("DP", 0)
	assert.ErrorIs(t, err, ErrBindingReleased)
	err = v.SetField("pos", script.Int(1))
	assert.ErrorIs(t, err, ErrBindingReleased)
}
