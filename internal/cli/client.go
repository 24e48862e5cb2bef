package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adsbot-network/pointsd/internal/daemon"
)

// apiClient is a thin HTTP client for the daemon's local API.
type apiClient struct {
	base string
	http *http.Client
}

// newAPIClient builds a client pointed at the configured local API address.
func newAPIClient() (*apiClient, error) {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return nil, err
	}
	return &apiClient{
		base: "http://" + cfg.API.Addr(),
		http: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

func (c *apiClient) get(path string, out any) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("is the daemon running? 'pointsd serve': %w", err)
	}
	return decode(resp, out)
}

func (c *apiClient) post(path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	resp, err := c.http.Post(c.base+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("is the daemon running? 'pointsd serve': %w", err)
	}
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var body struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if body.Error.Message != "" {
			return fmt.Errorf("%s", body.Error.Message)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
