package contigio

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/clonoweave/clonoweave/internal/cloneerr"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

// ContigParser is the interface for readers of per-contig annotation
// records, mirroring vcf.VariantParser's shape exactly: the inbound
// format changed from VCF/MAF text to newline-delimited JSON, but the
// streaming contract a caller depends on (pull one record at a time,
// track a line number, close once) did not.
type ContigParser interface {
	// Next reads the next contig record.
	// Returns nil, nil when there are no more records.
	Next() (*Contig, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// record is the wire shape of one line of the inbound contig stream
// (spec.md section 6, "per-contig annotation records"). Quality is a
// Phred string using the backtick-shifted convention described below.
type record struct {
	Barcode      string `json:"barcode"`
	ContigName   string `json:"contig_name"`
	DatasetIndex int    `json:"dataset_index"`
	OriginIndex  *int   `json:"origin_index"`
	DonorIndex   *int   `json:"donor_index"`
	TagIndex     *int   `json:"tag_index"`

	IsCell         bool `json:"is_cell"`
	HighConfidence bool `json:"high_confidence"`
	Productive     bool `json:"productive"`
	FullLength     bool `json:"full_length"`

	Sequence string `json:"sequence"`
	Quals    string `json:"quals"`

	VStart, VStop, VStopRef int
	JStart, JStartRef, JStop int
	CStart                  *int `json:"c_start"`

	VRegion string `json:"v_region"`
	JRegion string `json:"j_region"`
	URegion *string `json:"u_region"`
	DRegion *string `json:"d_region"`
	CRegion *string `json:"c_region"`

	ChainType string `json:"chain_type"`

	CDR3Start int    `json:"cdr3_start"`
	CDR3DNA   string `json:"cdr3_seq"`
	CDR3AA    string `json:"cdr3"`

	AnnV []struct {
		TigOffset  int    `json:"tig_offset"`
		Length     int    `json:"length"`
		VRegion    string `json:"v_region"`
		RefOffset  int    `json:"ref_offset"`
		Mismatches int    `json:"mismatches"`
	} `json:"annv"`

	UMICount  int `json:"umi_count"`
	ReadCount int `json:"read_count"`
}

// UnmarshalJSON exists so that record embeds the coordinate fields
// without an extra nested struct in the wire format (they arrive as
// flat top-level keys v_start/v_stop/... in the JSON record).
func (r *record) UnmarshalJSON(data []byte) error {
	type alias record
	aux := &struct {
		VStart    int `json:"v_start"`
		VStop     int `json:"v_stop"`
		VStopRef  int `json:"v_stop_ref"`
		JStart    int `json:"j_start"`
		JStartRef int `json:"j_start_ref"`
		JStop     int `json:"j_stop"`
		*alias
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	r.VStart, r.VStop, r.VStopRef = aux.VStart, aux.VStop, aux.VStopRef
	r.JStart, r.JStartRef, r.JStop = aux.JStart, aux.JStartRef, aux.JStop
	return nil
}

// Parser streams Contig records out of a newline-delimited JSON file,
// resolving V/D/J/C/U region names against a loaded refdata.Index. The
// gzip-transparency and line-counting idiom is grounded on
// internal/vcf/parser.go.
type Parser struct {
	ref        *refdata.Index
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
}

// NewParser opens path (plain or gzip-compressed newline-delimited
// JSON, "-" for stdin) and prepares to stream Contig records resolved
// against ref.
func NewParser(path string, ref *refdata.Index) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin, ref), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contig file: %w", err)
	}

	p := &Parser{ref: ref, file: file}

	buf := make([]byte, 2)
	if _, err := io.ReadFull(file, buf); err != nil && err != io.ErrUnexpectedEOF {
		file.Close()
		return nil, fmt.Errorf("read contig file header: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek contig file: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.gzipReader = gz
		p.reader = bufio.NewReader(gz)
	} else {
		p.reader = bufio.NewReader(file)
	}

	return p, nil
}

// NewParserFromReader wraps an already-open reader (e.g. stdin).
func NewParserFromReader(r io.Reader, ref *refdata.Index) *Parser {
	return &Parser{ref: ref, reader: bufio.NewReader(r)}
}

// Next reads and decodes the next contig record, skipping blank lines.
func (p *Parser) Next() (*Contig, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if strings.TrimSpace(line) == "" {
					return nil, nil
				}
			} else {
				return nil, fmt.Errorf("read contig record: %w", err)
			}
		}
		p.lineNumber++

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}

		c, perr := p.decodeLine(trimmed)
		if perr != nil {
			return nil, perr
		}
		if c == nil {
			// filtered record: not a cell, low confidence, or non-productive.
			if err == io.EOF {
				return nil, nil
			}
			continue
		}
		return c, nil
	}
}

// decodeLine parses one JSON record and returns the Contig it
// describes, or (nil, nil) if spec.md section 4.B's inbound filter
// (is_cell && high_confidence && productive) rejects it.
func (p *Parser) decodeLine(line string) (*Contig, error) {
	var rec record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, &ParseError{Line: p.lineNumber, Message: err.Error()}
	}

	if !rec.IsCell || !rec.HighConfidence || !rec.Productive {
		return nil, nil
	}

	chain, ok := refdata.ParseChainType(rec.ChainType)
	if !ok {
		return nil, cloneerr.MalformedInput(
			fmt.Sprintf("contig %s at line %d: unknown chain_type %q", rec.ContigName, p.lineNumber, rec.ChainType), nil)
	}

	vID, ok := p.ref.IDByName(rec.VRegion)
	if !ok {
		return nil, cloneerr.ReferenceMismatch(
			fmt.Sprintf("contig %s at line %d: unknown V segment %q", rec.ContigName, p.lineNumber, rec.VRegion), nil)
	}
	jID, ok := p.ref.IDByName(rec.JRegion)
	if !ok {
		return nil, cloneerr.ReferenceMismatch(
			fmt.Sprintf("contig %s at line %d: unknown J segment %q", rec.ContigName, p.lineNumber, rec.JRegion), nil)
	}

	var uID, dID, cID *int
	if rec.URegion != nil {
		if id, ok := p.ref.IDByName(*rec.URegion); ok {
			uID = &id
		} else {
			return nil, cloneerr.ReferenceMismatch(
				fmt.Sprintf("contig %s at line %d: unknown U segment %q", rec.ContigName, p.lineNumber, *rec.URegion), nil)
		}
	}
	if rec.DRegion != nil {
		if id, ok := p.ref.IDByName(*rec.DRegion); ok {
			dID = &id
		} else {
			return nil, cloneerr.ReferenceMismatch(
				fmt.Sprintf("contig %s at line %d: unknown D segment %q", rec.ContigName, p.lineNumber, *rec.DRegion), nil)
		}
	}
	if rec.CRegion != nil {
		if id, ok := p.ref.IDByName(*rec.CRegion); ok {
			cID = &id
		} else {
			return nil, cloneerr.ReferenceMismatch(
				fmt.Sprintf("contig %s at line %d: unknown C segment %q", rec.ContigName, p.lineNumber, *rec.CRegion), nil)
		}
	}

	quals, err := decodeQuals(rec.Quals)
	if err != nil {
		return nil, cloneerr.MalformedInput(
			fmt.Sprintf("contig %s at line %d: quality string", rec.ContigName, p.lineNumber), err)
	}
	if len(quals) != len(rec.Sequence) {
		return nil, cloneerr.MalformedInput(
			fmt.Sprintf("contig %s at line %d: quals length %d != sequence length %d",
				rec.ContigName, p.lineNumber, len(quals), len(rec.Sequence)), nil)
	}

	annv := make([]VAnn, 0, len(rec.AnnV))
	for _, a := range rec.AnnV {
		refID, ok := p.ref.IDByName(a.VRegion)
		if !ok {
			return nil, cloneerr.ReferenceMismatch(
				fmt.Sprintf("contig %s at line %d: unknown annv V segment %q", rec.ContigName, p.lineNumber, a.VRegion), nil)
		}
		annv = append(annv, VAnn{
			TigOffset:  a.TigOffset,
			Length:     a.Length,
			VRefID:     refID,
			RefOffset:  a.RefOffset,
			Mismatches: a.Mismatches,
		})
	}

	c := &Contig{
		Barcode:      rec.Barcode,
		Name:         rec.ContigName,
		DatasetIndex: rec.DatasetIndex,
		OriginIndex:  rec.OriginIndex,
		DonorIndex:   rec.DonorIndex,
		TagIndex:     rec.TagIndex,

		FullSeq:   strings.ToUpper(rec.Sequence),
		FullQuals: quals,

		VStart: rec.VStart, VStop: rec.VStop, VStopRef: rec.VStopRef,
		JStart: rec.JStart, JStartRef: rec.JStartRef, JStop: rec.JStop,
		CStart: rec.CStart,

		VRefID: vID,
		JRefID: jID,
		URefID: uID,
		DRefID: dID,
		CRefID: cID,

		CDR3Start: rec.CDR3Start,
		CDR3DNA:   rec.CDR3DNA,
		CDR3AA:    rec.CDR3AA,

		ChainType: chain,
		AnnV:      annv,

		UMICount:  rec.UMICount,
		ReadCount: rec.ReadCount,
	}

	if err := c.Validate(); err != nil {
		return nil, cloneerr.MalformedInput(
			fmt.Sprintf("contig %s at line %d", rec.ContigName, p.lineNumber), err)
	}

	return c, nil
}

// decodeQuals turns a Phred+33 quality string into 0-based Phred
// scores, with a backtick (`) escape for values at or above 94 that
// would otherwise collide with non-printable ASCII: a backtick
// followed by two decimal digits encodes that numeric score directly,
// matching the original source's seq_del_amino quality re-encoding.
func decodeQuals(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '`' {
			if i+2 >= len(s) {
				return nil, fmt.Errorf("truncated backtick escape at offset %d", i)
			}
			hi, lo := s[i+1], s[i+2]
			if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
				return nil, fmt.Errorf("invalid backtick escape digits at offset %d", i)
			}
			out = append(out, byte((hi-'0')*10+(lo-'0')))
			i += 2
			continue
		}
		if ch < 33 {
			return nil, fmt.Errorf("quality byte %d below Phred+33 floor at offset %d", ch, i)
		}
		out = append(out, ch-33)
	}
	return out, nil
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and the underlying file, if any.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

var _ ContigParser = (*Parser)(nil)
