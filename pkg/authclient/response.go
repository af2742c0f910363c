package authclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxResponseBytes = 1 << 20

// envelope is the server's flat response shape. Success is canonical; IsAuth and the presence of
// UserData are only consulted when an older server omits it.
type envelope struct {
	Success  *bool     `json:"success"`
	Message  string    `json:"message"`
	Code     string    `json:"code"`
	Token    string    `json:"token"`
	User     *User     `json:"user"`
	UserData *UserData `json:"userData"`
	IsAuth   *bool     `json:"isAuth"`
}

func (e *envelope) ok(status int) bool {
	if e.Success != nil {
		return *e.Success
	}
	switch {
	case e.IsAuth != nil:
		return *e.IsAuth
	case e.UserData != nil:
		return true
	}
	return status >= 200 && status < 300
}

func (e *envelope) authenticated() bool {
	if e.Success != nil {
		return *e.Success && e.User != nil
	}
	return e.IsAuth != nil && *e.IsAuth
}

func decodeEnvelope(resp *http.Response) (*envelope, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	env := &envelope{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, env); err != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("undecodable response: %v", err)}
		}
	}
	if resp.StatusCode >= 400 || !env.ok(resp.StatusCode) {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Message: msg}
	}
	return env, nil
}
