package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

type openedResponse struct {
	ID           string `json:"id"`
	DocumentType string `json:"documentType"`
	Error        string `json:"error"`
}

func newOpenCommand(ctx *commandContext) *cobra.Command {
	var fileType string
	var fileName string
	var blank bool

	cmd := &cobra.Command{
		Use:   "open [path|url]",
		Short: "Open a document in the running server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBase()
			if err != nil {
				return err
			}

			var req *http.Request
			switch {
			case blank || len(args) == 0:
				q := url.Values{}
				if fileType != "" {
					q.Set("type", fileType)
				}
				req, err = http.NewRequestWithContext(cmd.Context(), http.MethodPost, base+"/api/new?"+q.Encode(), nil)
			case strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://"):
				req, err = newJSONRequest(cmd.Context(), base+"/api/open-url",
					map[string]string{"url": args[0], "fileType": fileType, "fileName": fileName})
			default:
				abs, absErr := filepath.Abs(args[0])
				if absErr != nil {
					return fmt.Errorf("resolve %s: %w", args[0], absErr)
				}
				req, err = newJSONRequest(cmd.Context(), base+"/api/open-path",
					map[string]string{"path": abs, "fileType": fileType, "fileName": fileName})
			}
			if err != nil {
				return err
			}

			opened, err := doOpen(ctx.apiClient(), req, base)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s document %s\n", opened.DocumentType, opened.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&fileType, "type", "t", "", "Override the document file type")
	cmd.Flags().StringVarP(&fileName, "name", "n", "", "Override the document title")
	cmd.Flags().BoolVar(&blank, "new", false, "Create a blank document instead")
	return cmd
}

func newJSONRequest(ctx context.Context, target string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doOpen(client *http.Client, req *http.Request, base string) (openedResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return openedResponse{}, wrapAPIError(err, base)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return openedResponse{}, err
	}
	var out openedResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return openedResponse{}, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error == "" {
			out.Error = http.StatusText(resp.StatusCode)
		}
		return openedResponse{}, fmt.Errorf("open failed: %s", out.Error)
	}
	return out, nil
}
