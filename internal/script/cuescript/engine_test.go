package cuescript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlab/vexpress/internal/bind"
	"github.com/varlab/vexpress/internal/script"
	"github.com/varlab/vexpress/internal/vcf"
)

const cueVCF = "##fileformat=VCFv4.2\n" +
	"##contig=<ID=chr1>\n" +
	"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Total Depth\">\n" +
	"##INFO=<ID=AF,Number=1,Type=Float,Description=\"Allele Frequency\">\n" +
	"##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA12878\n" +
	"chr1\t7\trs1234\tA\tAT\t31.5\tPASS\tDP=10;AF=0.5\tGT\t0|1\n"

func cueFixture(t *testing.T) (*Engine, *bind.Variant) {
	t.Helper()
	r, err := vcf.NewReader(strings.NewReader(cueVCF))
	require.NoError(t, err)
	rec, err := r.Read()
	require.NoError(t, err)
	return New(), bind.New(rec, r.Header())
}

func TestEngine_Expressions(t *testing.T) {
	eng, v := cueFixture(t)

	for expr, want := range map[string]script.Value{
		`id == "rs1234"`:        script.Bool(true),
		`pos`:                   script.Int(6),
		`chrom`:                 script.Str("chr1"),
		`variant.info.DP > 5`:   script.Bool(true),
		`variant.info.AF`:       script.Float(0.5),
		`variant.id`:            script.Str("rs1234"),
		`samples.NA12878.GT[1]`: script.Int(1),
		`len(ALT)`:              script.Int(1),
	} {
		c, err := eng.Compile(expr)
		require.NoError(t, err, expr)
		got, err := eng.Invoke(c, v)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}
}

func TestEngine_Template(t *testing.T) {
	eng, v := cueFixture(t)

	c, err := eng.CompileTemplate(`{chrom}:{pos}`)
	require.NoError(t, err)
	got, err := eng.Invoke(c, v)
	require.NoError(t, err)
	assert.Equal(t, script.Str("chr1:6"), got)

	// native CUE interpolation passes through untranslated
	c, err = eng.CompileTemplate(`\(id)@\(chrom)`)
	require.NoError(t, err)
	got, err = eng.Invoke(c, v)
	require.NoError(t, err)
	assert.Equal(t, script.Str("rs1234@chr1"), got)
}

func TestEngine_CompileError(t *testing.T) {
	eng := New()
	_, err := eng.Compile(`id ==`)
	require.Error(t, err)
	assert.True(t, script.IsExprError(err))
}

func TestEngine_NoPreludesOrLibraries(t *testing.T) {
	eng := New()
	assert.Error(t, eng.RunPrelude("p.lua", "x", vcf.NewHeader()))
	assert.Error(t, eng.LoadLibrary("l.lua", "x"))
}

func TestTranslateTemplate(t *testing.T) {
	assert.Equal(t, `\(chrom):\(pos)`, translateTemplate(`{chrom}:{pos}`))
	assert.Equal(t, `plain \"quoted\"`, translateTemplate(`plain "quoted"`))
}
