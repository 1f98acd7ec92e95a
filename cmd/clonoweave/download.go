package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// imgtBaseURL is the root of the IMGT reference directory sets used to
// assemble a combined V/D/J/C FASTA for a given organism, the V(D)J
// analogue of the teacher's GENCODE FTP mirror.
const imgtBaseURL = "https://www.imgt.org/download/GENE-DB"

func getReferenceURLs(organism string) []string {
	org := strings.ToLower(organism)
	switch org {
	case "mouse":
		return []string{
			imgtBaseURL + "/imgt_mouse_TR.fasta",
			imgtBaseURL + "/imgt_mouse_IG.fasta",
		}
	default:
		return []string{
			imgtBaseURL + "/imgt_human_TR.fasta",
			imgtBaseURL + "/imgt_human_IG.fasta",
		}
	}
}

func newDownloadRefCmd() *cobra.Command {
	var (
		organism  string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "download-ref",
		Short: "Download a V(D)J reference FASTA for the given organism",
		Long: `download-ref fetches the IMGT TR and IG gene sets for an organism and
concatenates them into a single FASTA usable by --ref on the other
subcommands. Files already present at the destination are left alone
and reused, matching the teacher's GENCODE fetcher's skip-if-present
behavior.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownloadRef(organism, outputDir)
		},
	}

	cmd.Flags().StringVar(&organism, "organism", "human", "reference organism: human or mouse")
	cmd.Flags().StringVar(&outputDir, "output", "", "output directory (default: ~/.clonoweave/ref)")

	return cmd
}

func runDownloadRef(organism, outputDir string) error {
	if outputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("determining home directory: %w", err)
		}
		outputDir = filepath.Join(home, ".clonoweave", "ref")
	}
	destDir := filepath.Join(outputDir, strings.ToLower(organism))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", destDir, err)
	}

	urls := getReferenceURLs(organism)
	fmt.Printf("Downloading V(D)J reference for %s...\n", organism)
	fmt.Printf("Destination: %s\n\n", destDir)

	var parts []string
	for _, u := range urls {
		dest := filepath.Join(destDir, filepath.Base(u))
		if err := downloadFile(u, dest); err != nil {
			return fmt.Errorf("downloading %s: %w", u, err)
		}
		parts = append(parts, dest)
	}

	combined := filepath.Join(destDir, "combined.fasta")
	if err := concatFASTA(parts, combined); err != nil {
		return fmt.Errorf("assembling combined reference: %w", err)
	}

	fmt.Printf("\nDownload complete: %s\n", combined)
	fmt.Printf("Use it with:\n  clonoweave join --ref %s ...\n", combined)
	return nil
}

func concatFASTA(parts []string, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	for _, p := range parts {
		in, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		_, copyErr := io.Copy(out, in)
		in.Close()
		if copyErr != nil {
			return fmt.Errorf("copy %s: %w", p, copyErr)
		}
	}
	return nil
}

// downloadFile downloads a file from url to destPath with progress,
// skipping the fetch entirely if destPath already exists.
func downloadFile(url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Printf("  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{Timeout: 30 * time.Minute}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{total: resp.ContentLength, downloaded: &downloaded, lastPrint: time.Now()}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress, printing an update no more
// than once a second.
type progressWriter struct {
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ", formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}
	return n, nil
}

// formatSize formats bytes as a human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
