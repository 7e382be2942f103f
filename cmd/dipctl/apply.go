package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"dipindex/crypto"
	"dipindex/native/index"
	"dipindex/rpc"
)

// Script is an ordered list of requests. Later steps may reference records
// returned by earlier named steps as ${step.record}.
type Script struct {
	Server string `yaml:"server"`
	Steps  []Step `yaml:"steps"`
}

type Step struct {
	Name    string        `yaml:"name"`
	Request index.Request `yaml:"request"`
}

var refPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_-]+)\.([A-Za-z0-9_]+)\}`)

func loadScript(r io.Reader) (*Script, error) {
	var script Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if strings.TrimSpace(script.Server) == "" {
		script.Server = defaultServer
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("script has no steps")
	}
	seen := make(map[string]struct{})
	for i, step := range script.Steps {
		if step.Request.Handler == "" {
			return nil, fmt.Errorf("step %d: handler required", i+1)
		}
		if step.Name == "" {
			continue
		}
		if _, dup := seen[step.Name]; dup {
			return nil, fmt.Errorf("step %d: duplicate name %q", i+1, step.Name)
		}
		seen[step.Name] = struct{}{}
	}
	return &script, nil
}

// expand resolves ${step.record} references against earlier results.
func expand(req index.Request, results map[string]map[string]string) (index.Request, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return req, err
	}
	var missing string
	expanded := refPattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		parts := refPattern.FindSubmatch(m)
		records, ok := results[string(parts[1])]
		if !ok {
			missing = string(m)
			return m
		}
		value, ok := records[string(parts[2])]
		if !ok {
			missing = string(m)
			return m
		}
		return []byte(value)
	})
	if missing != "" {
		return req, fmt.Errorf("unresolved reference %s", missing)
	}
	var out index.Request
	if err := json.Unmarshal(expanded, &out); err != nil {
		return req, err
	}
	return out, nil
}

func applyScript(c *client, script *Script, key *crypto.PrivateKey, out io.Writer) error {
	results := make(map[string]map[string]string)
	for i, step := range script.Steps {
		req, err := expand(step.Request, results)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if req.Signer == "" && key != nil {
			req.Signer = key.PubKey().Address().String()
		}
		res, err := c.submit(req, key)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, req.Handler, err)
		}
		if step.Name != "" {
			results[step.Name] = res.Records
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", req.Handler, res.RequestID, formatRecords(res.Records))
	}
	return nil
}

func formatRecords(records map[string]string) string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + records[k]
	}
	return strings.Join(parts, " ")
}

type client struct {
	base string
	http *http.Client
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *client) submit(req index.Request, key *crypto.PrivateKey) (*index.Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, strings.TrimRight(c.base, "/")+"/v1/requests", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key != nil {
		sig, err := rpc.SignRequest(key, payload)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set(rpc.SignatureHeader, sig)
	}
	body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	var res index.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

func (c *client) get(path string) ([]byte, error) {
	httpReq, err := http.NewRequest(http.MethodGet, strings.TrimRight(c.base, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(httpReq)
}

func (c *client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Code != "" {
			return nil, fmt.Errorf("%s: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return body, nil
}
