package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlab/vexpress/internal/script"
	"github.com/varlab/vexpress/internal/script/luascript"
	"github.com/varlab/vexpress/internal/vcf"
)

const pipeVCF = "##fileformat=VCFv4.2\n" +
	"##contig=<ID=chr1>\n" +
	"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Total Depth\">\n" +
	"##INFO=<ID=AF,Number=1,Type=Float,Description=\"Allele Frequency\">\n" +
	"##INFO=<ID=AFx,Number=1,Type=Float,Description=\"Other frequency\">\n" +
	"##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA12878\n" +
	"chr1\t7\trs1234\tA\tAT\t31.5\tPASS\tDP=10;AF=0.5;AFx=0.25\tGT\t0|1\n" +
	"chr1\t100\trs9\tT\tC\t10\tq10\tDP=3;AF=0.1;AFx=0.9\tGT\t1|1\n"

func newLua(t *testing.T) *luascript.Engine {
	t.Helper()
	eng, err := luascript.New(luascript.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func openInput(t *testing.T, text string) *vcf.Reader {
	t.Helper()
	r, err := vcf.NewReader(strings.NewReader(text))
	require.NoError(t, err)
	return r
}

func TestPipeline_EarlyExit(t *testing.T) {
	eng := newLua(t)
	r := openInput(t, pipeVCF)

	p, err := New(Options{
		Engine: eng,
		Header: r.Header(),
		Libraries: []Source{{Name: "hits.lua", Code: `
			hits = {}
			function hit(i)
				hits[#hits+1] = i
				return i == 2
			end
		`}},
		Filters: []string{"hit(1)", "hit(2)", "hit(3)"},
	})
	require.NoError(t, err)

	rec, err := r.Read()
	require.NoError(t, err)
	ev, err := p.Evaluate(rec, 0)
	require.NoError(t, err)
	assert.Equal(t, KindRecord, ev.Kind)

	// the third filter was never invoked
	c, err := eng.Compile("hits")
	require.NoError(t, err)
	got, err := eng.Invoke(c, nil)
	require.NoError(t, err)
	assert.Equal(t, script.List{script.Int(1), script.Int(2)}, got)
}

func TestPipeline_ConstructionValidation(t *testing.T) {
	hdr := vcf.NewHeader()
	_, err := NewSink(filepath.Join(t.TempDir(), "out.vcf"), true, hdr)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	// same conflict for binary structured output
	_, err = NewSink("out.bcf", true, hdr)
	assert.True(t, IsConfigError(err))
}

func TestPipeline_PassThroughIsByteIdentical(t *testing.T) {
	eng := newLua(t)
	r := openInput(t, pipeVCF)

	p, err := New(Options{
		Engine:  eng,
		Header:  r.Header(),
		Filters: []string{`variant.id == "rs1234"`},
	})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.vcf")
	sink, err := NewSink(out, false, r.Header())
	require.NoError(t, err)
	require.NoError(t, Run(r, p, sink))
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	header := pipeVCF[:strings.Index(pipeVCF, "#CHROM")]
	assert.Equal(t, header+
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA12878\n"+
		"chr1\t7\trs1234\tA\tAT\t31.5\tPASS\tDP=10;AF=0.5;AFx=0.25\tGT\t0|1\n",
		string(raw))

	stats := p.Stats()
	assert.Equal(t, 2, stats.VariantsEvaluated)
	assert.Equal(t, 1, stats.VariantsPassing)
}

func TestPipeline_Template(t *testing.T) {
	eng := newLua(t)
	r := openInput(t, pipeVCF)

	p, err := New(Options{
		Engine:   eng,
		Header:   r.Header(),
		Filters:  []string{`variant.id == "rs1234"`},
		Template: "{chrom}:{pos}",
	})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.txt")
	sink, err := NewSink(out, true, r.Header())
	require.NoError(t, err)
	require.NoError(t, Run(r, p, sink))
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "chr1:6\n", string(raw))
}

func TestPipeline_SetExpressionWithPrelude(t *testing.T) {
	eng := newLua(t)
	r := openInput(t, pipeVCF)

	p, err := New(Options{
		Engine: eng,
		Header: r.Header(),
		Preludes: []Source{{Name: "prelude.lua", Code: `
			header:add_info({ID="AFmax", Number="1", Type="Float", Description="max AF"})
		`}},
		Sets:    []string{`AFmax=max(info("AF"), info("AFx"))`},
		Filters: []string{`variant:info("DP") > 5`},
	})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.vcf")
	sink, err := NewSink(out, false, r.Header())
	require.NoError(t, err)
	require.NoError(t, Run(r, p, sink))
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "filter_set_prelude", raw)
}

func TestPipeline_SetTargetMustBeDeclared(t *testing.T) {
	eng := newLua(t)
	r := openInput(t, pipeVCF)

	_, err := New(Options{
		Engine: eng,
		Header: r.Header(),
		Sets:   []string{`NOPE=1`},
	})
	require.Error(t, err)
	assert.True(t, vcf.IsUnknownTag(err))
	assert.Contains(t, err.Error(), "prelude")
}

func TestPipeline_StagedUpdatesWithheldOnReject(t *testing.T) {
	eng := newLua(t)
	r := openInput(t, pipeVCF)

	p, err := New(Options{
		Engine:  eng,
		Header:  r.Header(),
		Sets:    []string{`DP=99`},
		Filters: []string{`false`},
	})
	require.NoError(t, err)

	rec, err := r.Read()
	require.NoError(t, err)
	ev, err := p.Evaluate(rec, 0)
	require.NoError(t, err)
	assert.Equal(t, KindSuppressed, ev.Kind)

	// the staged DP=99 never landed on the rejected record
	ints, present, err := rec.InfoInts("DP")
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, []int{10}, ints)
}

func TestPipeline_NoFiltersPassesEverything(t *testing.T) {
	eng := newLua(t)
	r := openInput(t, pipeVCF)

	p, err := New(Options{Engine: eng, Header: r.Header()})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec, err := r.Read()
		require.NoError(t, err)
		ev, err := p.Evaluate(rec, i)
		require.NoError(t, err)
		assert.Equal(t, KindRecord, ev.Kind)
	}
}

func TestPipeline_GuestErrorIsFatalWithContext(t *testing.T) {
	eng := newLua(t)
	r := openInput(t, pipeVCF)

	p, err := New(Options{
		Engine:  eng,
		Header:  r.Header(),
		Filters: []string{`info("NOPE") ~= nil`},
	})
	require.NoError(t, err)

	rec, err := r.Read()
	require.NoError(t, err)
	_, err = p.Evaluate(rec, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 0")
	assert.Contains(t, err.Error(), "NOPE")
}

func TestPipeline_SetCoercionMismatch(t *testing.T) {
	eng := newLua(t)
	r := openInput(t, pipeVCF)

	p, err := New(Options{
		Engine: eng,
		Header: r.Header(),
		Sets:   []string{`DP="not a number"`},
	})
	require.NoError(t, err)

	rec, err := r.Read()
	require.NoError(t, err)
	_, err = p.Evaluate(rec, 0)
	require.Error(t, err)
	assert.True(t, script.IsTypeMismatch(err))
}

func TestSink_KindMismatchIsConfigError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	sink, err := NewSink(out, true, vcf.NewHeader())
	require.NoError(t, err)
	defer sink.Close()

	err = sink.Emit(Event{Kind: KindRecord})
	assert.True(t, IsConfigError(err))
}
