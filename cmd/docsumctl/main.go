// docsumctl is the operator CLI for a running docsumd instance.
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
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "docsumctl",
		Short:         "Control client for the document summarization service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("DOCSUM_SERVER", "http://localhost:8080"), "docsumd base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(submitCmd(), statusCmd(), watchCmd(), listCmd(), exportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func submitCmd() *cobra.Command {
	var mediaType string
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a document and print the job id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			fw, err := mw.CreateFormFile("document", filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if _, err := fw.Write(data); err != nil {
				return err
			}
			if mediaType != "" {
				if err := mw.WriteField("media_type", strings.ToUpper(mediaType)); err != nil {
					return err
				}
			}
			if err := mw.Close(); err != nil {
				return err
			}

			req, err := http.NewRequest(http.MethodPost, serverURL+"/v1/documents", &buf)
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", mw.FormDataContentType())

			body, err := do(req, http.StatusAccepted)
			if err != nil {
				return err
			}
			var resp struct {
				JobID string `json:"job_id"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			fmt.Println(resp.JobID)
			return nil
		},
	}
	cmd.Flags().StringVar(&mediaType, "media-type", "", "override media type (TXT, PDF or IMAGE)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Print a job's status as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := fetchStatus(args[0])
			if err != nil {
				return err
			}
			return printPretty(body)
		},
	}
}

func watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Poll a job until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for {
				body, err := fetchStatus(args[0])
				if err != nil {
					return err
				}
				var st struct {
					State string `json:"state"`
				}
				if err := json.Unmarshal(body, &st); err != nil {
					return fmt.Errorf("decode status: %w", err)
				}
				fmt.Fprintln(os.Stderr, time.Now().Format(time.TimeOnly), st.State)
				if st.State == "SUCCEEDED" || st.State == "FAILED" {
					return printPretty(body)
				}
				time.Sleep(interval)
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval")
	return cmd
}

func listCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequest(http.MethodGet,
				fmt.Sprintf("%s/v1/jobs?limit=%d", serverURL, limit), nil)
			if err != nil {
				return err
			}
			body, err := do(req, http.StatusOK)
			if err != nil {
				return err
			}
			return printPretty(body)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum jobs to return")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	var limit int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the job history as an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequest(http.MethodGet,
				fmt.Sprintf("%s/v1/jobs/export?limit=%d", serverURL, limit), nil)
			if err != nil {
				return err
			}
			body, err := do(req, http.StatusOK)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "jobs.xlsx", "output file")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum jobs to export (0 = server default)")
	return cmd
}

func fetchStatus(jobID string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, serverURL+"/v1/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	return do(req, http.StatusOK)
}

func do(req *http.Request, want int) ([]byte, error) {
	hc := &http.Client{Timeout: timeout}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return nil, fmt.Errorf("%s %s: %s: %s",
			req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func printPretty(body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
