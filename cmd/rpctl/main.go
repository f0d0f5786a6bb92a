// Package main implements the rpctl CLI for manual operations against the
// redpanda HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the redpanda HTTP server
	serverURL string
	// kbID selects the target knowledge base
	kbID int64
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rpctl",
	Short: "CLI for redpanda HTTP server operations",
	Long: `rpctl is a command-line interface for interacting with the redpanda HTTP server.
It provides commands for uploading documents, asking questions, and checking server health.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "redpanda server URL")
	uploadCmd.Flags().Int64Var(&kbID, "kb", 0, "knowledge base id (0 for the default)")
	queryCmd.Flags().Int64Var(&kbID, "kb", 0, "knowledge base id (0 for the default)")
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(healthCmd)
}

// uploadCmd ingests a PDF into a knowledge base
var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF into a knowledge base",
	Long: `Upload a PDF document for ingestion into a knowledge base.

Examples:
  # Upload into the default knowledge base
  rpctl upload report.pdf

  # Upload into knowledge base 3
  rpctl upload --kb 3 report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

// queryCmd asks a question against a knowledge base
var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against a knowledge base",
	Long: `Ask a question and print the answer with its sources.

Examples:
  # Query the default knowledge base
  rpctl query "what does chapter 3 cover"

  # Query knowledge base 3
  rpctl query --kb 3 "what does chapter 3 cover"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check redpanda server health",
	RunE:  runHealth,
}

// EmbedResponse matches internal/server EmbedResponse
type EmbedResponse struct {
	DocumentID       int64  `json:"document_id"`
	StoredFilename   string `json:"stored_filename"`
	Chunks           int    `json:"chunks"`
	ExtractionFailed bool   `json:"extraction_failed"`
}

// QueryRequest matches internal/rag QueryRequest
type QueryRequest struct {
	Query           string `json:"query"`
	KnowledgeBaseID int64  `json:"kb_id"`
}

// QueryResponse matches internal/rag Answer
type QueryResponse struct {
	Answer  string `json:"answer"`
	Sources []struct {
		Document  string   `json:"document"`
		Preview   string   `json:"content_preview"`
		Relevance *float64 `json:"relevance,omitempty"`
	} `json:"sources"`
}

// HealthResponse matches internal/server HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// runUpload handles the upload command
func runUpload(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", args[0], err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filepath.Base(args[0]))
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	if kbID != 0 {
		if err := w.WriteField("kb_id", fmt.Sprintf("%d", kbID)); err != nil {
			return fmt.Errorf("failed to build upload form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}

	url := fmt.Sprintf("%s/embed", serverURL)
	httpReq, err := http.NewRequest("POST", url, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	// Ingestion extracts and embeds the whole document synchronously.
	client := &http.Client{Timeout: 10 * time.Minute}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}

	var embedResp EmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Document ID: %d\n", embedResp.DocumentID)
	fmt.Printf("Chunks:      %d\n", embedResp.Chunks)
	if embedResp.ExtractionFailed {
		fmt.Fprintf(os.Stderr, "[rpctl] Warning: text extraction failed; document stored but not searchable\n")
	}
	return nil
}

// runQuery handles the query command
func runQuery(cmd *cobra.Command, args []string) error {
	reqJSON, err := json.Marshal(QueryRequest{Query: args[0], KnowledgeBaseID: kbID})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/query", serverURL)
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Expansion, retrieval, and generation take several model calls.
	client := &http.Client{Timeout: 5 * time.Minute}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var queryResp QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Println(queryResp.Answer)
	if len(queryResp.Sources) > 0 {
		fmt.Fprintf(os.Stderr, "\nSources:\n")
		for _, s := range queryResp.Sources {
			if s.Relevance != nil {
				fmt.Fprintf(os.Stderr, "  %s (%.0f): %s\n", s.Document, *s.Relevance, s.Preview)
			} else {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", s.Document, s.Preview)
			}
		}
	}
	return nil
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Server URL: %s\n", serverURL)
	return nil
}

// statusError reads the body of a non-success response into an error.
func statusError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}
