package annotate

import "testing"

func TestTranslateCodon(t *testing.T) {
	tests := []struct {
		name  string
		codon string
		want  byte
	}{
		{"ATG -> Met (start)", "ATG", 'M'},
		{"GGT -> Gly", "GGT", 'G'},
		{"TGT -> Cys", "TGT", 'C'},
		{"TTT -> Phe", "TTT", 'F'},
		{"AAA -> Lys", "AAA", 'K'},

		{"TAA -> Stop", "TAA", '*'},
		{"TAG -> Stop", "TAG", '*'},
		{"TGA -> Stop", "TGA", '*'},

		{"lowercase atg", "atg", 'M'},
		{"mixed case AtG", "AtG", 'M'},

		{"too short", "AT", 'X'},
		{"too long", "ATGG", 'X'},
		{"invalid bases", "XYZ", 'X'},
		{"empty", "", 'X'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateCodon(tt.codon)
			if got != tt.want {
				t.Errorf("TranslateCodon(%q) = %c, want %c", tt.codon, got, tt.want)
			}
		})
	}
}

func TestReverseComplement(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		want string
	}{
		{"simple", "ATGC", "GCAT"},
		{"single base", "A", "T"},
		{"palindrome", "ATAT", "ATAT"},
		{"poly-A", "AAAA", "TTTT"},
		{"GC rich", "GCGC", "GCGC"},
		{"lowercase", "atgc", "gcat"},
		{"mixed case", "AtGc", "gCaT"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReverseComplement(tt.seq)
			if got != tt.want {
				t.Errorf("ReverseComplement(%q) = %q, want %q", tt.seq, got, tt.want)
			}
		})
	}
}

func TestIsStopCodon(t *testing.T) {
	tests := []struct {
		codon string
		want  bool
	}{
		{"TAA", true},
		{"TAG", true},
		{"TGA", true},
		{"ATG", false},
		{"GGT", false},
		{"taa", true},
	}

	for _, tt := range tests {
		t.Run(tt.codon, func(t *testing.T) {
			got := IsStopCodon(tt.codon)
			if got != tt.want {
				t.Errorf("IsStopCodon(%q) = %v, want %v", tt.codon, got, tt.want)
			}
		})
	}
}

func TestTranslateSequence(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		want string
	}{
		{"simple protein", "ATGGGTCGA", "MGR"},
		{"with stop", "ATGGGTCGATAA", "MGR*"},
		{"incomplete codon truncated", "ATGGGTCGAT", "MGR"},
		{"empty", "", ""},
		{"single codon", "ATG", "M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateSequence(tt.seq)
			if got != tt.want {
				t.Errorf("TranslateSequence(%q) = %q, want %q", tt.seq, got, tt.want)
			}
		})
	}
}
