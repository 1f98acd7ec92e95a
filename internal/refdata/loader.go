package refdata

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/clonoweave/clonoweave/internal/cloneerr"
)

// Load reads the V(D)J reference FASTA described in spec.md section 6:
// headers of the form ">id|name|region|chain|..." where region is one
// of U, V, D, J, C and chain is one of IGH, IGK, IGL, TRA, TRB. The
// scanning idiom (gzip-transparent, buffered, large-line-tolerant) is
// grounded on internal/cache/fasta_loader.go's FASTALoader.parseFASTA.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return parseFASTA(r)
}

func parseFASTA(r io.Reader) (*Index, error) {
	idx := NewIndex()

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var cur *Segment
	var seq strings.Builder

	flush := func() {
		if cur != nil {
			cur.Bases = strings.ToUpper(seq.String())
			idx.Add(cur)
		}
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ">") {
			flush()
			seq.Reset()

			seg, err := parseHeader(line[1:])
			if err != nil {
				return nil, cloneerr.MalformedInput(fmt.Sprintf("reference header at line %d", lineNo), err)
			}
			cur = seg
			continue
		}

		seq.WriteString(strings.TrimSpace(line))
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, cloneerr.MalformedInput("scan reference FASTA", err)
	}

	return idx, nil
}

// parseHeader parses "id|name|region|chain|..." into a Segment.
func parseHeader(header string) (*Segment, error) {
	parts := strings.Split(header, "|")
	if len(parts) < 4 {
		return nil, fmt.Errorf("expected at least 4 pipe-delimited fields, found %d in %q", len(parts), header)
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid segment id %q: %w", parts[0], err)
	}

	region, ok := ParseRegion(parts[2])
	if !ok {
		return nil, fmt.Errorf("unknown region tag %q", parts[2])
	}

	chain, ok := ParseChainType(parts[3])
	if !ok {
		return nil, fmt.Errorf("unknown chain tag %q", parts[3])
	}

	return &Segment{
		ID:     id,
		Name:   parts[1],
		Region: region,
		Chain:  chain,
	}, nil
}
