package contigio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clonoweave/clonoweave/internal/refdata"
)

func sampleRef(t *testing.T) *refdata.Index {
	t.Helper()
	const fasta = `>0|TRBV1|V|TRB|
CAGCAGCTGGTGCAGTCTGGGGCT
>1|TRBJ1|J|TRB|
TTCGGCCCAGGCACCCGGCTGAAA
>2|TRBC1|C|TRB|
GAGGACCTGAACAAGGTGTTCCCA
`
	path := filepath.Join(t.TempDir(), "ref.fasta")
	require.NoError(t, os.WriteFile(path, []byte(fasta), 0o644))

	idx, err := refdata.Load(path)
	require.NoError(t, err)
	return idx
}

func TestDecodeQuals(t *testing.T) {
	out, err := decodeQuals("IIII")
	require.NoError(t, err)
	require.Equal(t, []byte{40, 40, 40, 40}, out)

	out, err = decodeQuals("I`99I")
	require.NoError(t, err)
	require.Equal(t, []byte{40, 99, 40}, out)

	_, err = decodeQuals("I`9")
	require.Error(t, err)
}

func TestParserFiltersAndDecodes(t *testing.T) {
	ref := sampleRef(t)

	lines := []string{
		`{"barcode":"AAA-1","contig_name":"AAA-1_contig_1","dataset_index":0,"is_cell":true,"high_confidence":true,"productive":true,"sequence":"CAGCAGCTGGTGCAGTCTGGGGCTTTCGGCCCAGGCACCCGGCTGAAA","quals":"IIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIII","v_start":0,"v_stop":24,"v_stop_ref":24,"j_start":24,"j_start_ref":0,"j_stop":48,"v_region":"TRBV1","j_region":"TRBJ1","chain_type":"TRB","cdr3_start":18,"cdr3_seq":"TGTGCTGGGGGG","cdr3":"CAGG","umi_count":3,"read_count":10}`,
		`{"barcode":"BBB-1","contig_name":"BBB-1_contig_1","dataset_index":0,"is_cell":false,"high_confidence":true,"productive":true,"sequence":"CAGCAGCTGGTGCAGTCTGGGGCTTTCGGCCCAGGCACCCGGCTGAAA","quals":"IIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIII","v_start":0,"v_stop":24,"v_stop_ref":24,"j_start":24,"j_start_ref":0,"j_stop":48,"v_region":"TRBV1","j_region":"TRBJ1","chain_type":"TRB","cdr3_start":18,"cdr3_seq":"TGTGCTGGGGGG","cdr3":"CAGG","umi_count":1,"read_count":2}`,
	}

	p := NewParserFromReader(strings.NewReader(strings.Join(lines, "\n")+"\n"), ref)
	defer p.Close()

	c, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, "AAA-1", c.Barcode)
	require.Equal(t, refdata.TRB, c.ChainType)
	require.True(t, c.Left())
	require.Equal(t, 3, c.UMICount)

	// The second record is filtered out (is_cell=false); stream ends.
	c2, err := p.Next()
	require.NoError(t, err)
	require.Nil(t, c2)
}

func TestParserUnknownChainType(t *testing.T) {
	ref := sampleRef(t)
	line := `{"barcode":"AAA-1","contig_name":"c1","is_cell":true,"high_confidence":true,"productive":true,"sequence":"ACGT","quals":"IIII","v_region":"TRBV1","j_region":"TRBJ1","chain_type":"ZZZ"}`
	p := NewParserFromReader(strings.NewReader(line+"\n"), ref)
	defer p.Close()

	_, err := p.Next()
	require.Error(t, err)
}

func TestParserUnknownReferenceSegment(t *testing.T) {
	ref := sampleRef(t)
	line := `{"barcode":"AAA-1","contig_name":"c1","is_cell":true,"high_confidence":true,"productive":true,"sequence":"ACGT","quals":"IIII","v_region":"TRBV9","j_region":"TRBJ1","chain_type":"TRB"}`
	p := NewParserFromReader(strings.NewReader(line+"\n"), ref)
	defer p.Close()

	_, err := p.Next()
	require.Error(t, err)
}
