package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/go-jwt-session/token"
)

// postJSON posts body to the auth API endpoint path and decodes the JSON
// reply into out. A decodable reply is returned regardless of status code;
// callers branch on its success field.
func (m *Manager) postJSON(ctx context.Context, path string, body any, bearer string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("Manager.postJSON marshal: %w", err)
	}

	endpoint := m.baseURL.JoinPath(m.cfg.GetAPIPrefix(), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("Manager.postJSON request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", token.BearerHeader(bearer))
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Manager.postJSON %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("Manager.postJSON read %s: %w", path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("Manager.postJSON %s: status %d", path, resp.StatusCode)
		}
		return fmt.Errorf("Manager.postJSON decode %s: %w", path, err)
	}
	return nil
}
