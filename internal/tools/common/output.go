package common

import (
	"encoding/json"
	"io"
	"time"
)

// CIResult is the single JSON document an authctl command prints in --ci mode.
type CIResult struct {
	OK         bool     `json:"ok"`
	Tool       string   `json:"tool"`
	Command    string   `json:"command"`
	DurationMS int64    `json:"duration_ms"`
	Details    []string `json:"details,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func NewCIResult(opts RunOptions, took time.Duration, details []string, err error) CIResult {
	res := CIResult{
		OK:         err == nil,
		Tool:       opts.Tool,
		Command:    opts.Command,
		DurationMS: took.Milliseconds(),
		Details:    details,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func (r CIResult) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
