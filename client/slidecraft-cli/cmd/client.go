package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

func endpoint(path string, query url.Values) (string, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	u := base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func wsEndpoint(path string) (string, error) {
	raw, err := endpoint(path, nil)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(raw)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// apiError carries the service's {"error": ...} body.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Status, e.Message)
}

func checkStatus(resp *http.Response, want ...int) error {
	for _, code := range want {
		if resp.StatusCode == code {
			return nil
		}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &apiError{Status: resp.StatusCode, Message: msg}
}

// postJSON sends body and decodes the JSON answer into out when out is not nil.
func postJSON(path string, query url.Values, body, out interface{}, want ...int) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	target, err := endpoint(path, query)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(target, "application/json", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, want...); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if w, ok := out.(io.Writer); ok {
		_, err = io.Copy(w, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func get(path string, query url.Values, w io.Writer) error {
	target, err := endpoint(path, query)
	if err != nil {
		return err
	}
	resp, err := httpClient.Get(target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return err
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
