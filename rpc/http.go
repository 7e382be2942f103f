package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"dipindex/native/index"
)

const jsonRPCVersion = "2.0"

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRejected       = -32010
	codeRateLimited    = -32020
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeDomainError reports an index failure with the HTTP status the REST
// surface would use and the stable code as error data.
func writeDomainError(w http.ResponseWriter, id interface{}, err error, query bool) {
	code := errorCode(err)
	rpcCode := codeRejected
	switch code {
	case "InvalidRequest", "UnknownHandler":
		rpcCode = codeInvalidParams
	case "BadSignature", "Unauthorized":
		rpcCode = codeUnauthorized
	case "RateLimited":
		rpcCode = codeRateLimited
	case "Internal":
		rpcCode = codeServerError
	}
	writeError(w, statusFor(code, query), id, rpcCode, err.Error(), map[string]string{"code": code})
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "failed to read request body", err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}
	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}

	switch req.Method {
	case "index_submit":
		s.rpcSubmit(w, r, req)
	case "index_get":
		s.rpcGet(w, req)
	case "index_derive":
		s.rpcDerive(w, req)
	case "index_handlers":
		writeResult(w, req.ID, index.Handlers)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
	}
}

// rpcSubmit expects params [request, signature?]. The signature covers the
// raw request object bytes as sent.
func (s *Server) rpcSubmit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if len(req.Params) < 1 || len(req.Params) > 2 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "expected [request, signature?]", nil)
		return
	}
	signature := r.Header.Get(SignatureHeader)
	if len(req.Params) == 2 {
		if err := json.Unmarshal(req.Params[1], &signature); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "signature must be a string", err.Error())
			return
		}
	}
	res, err := s.submit(r.Context(), req.Params[0], signature)
	if err != nil {
		writeDomainError(w, req.ID, err, false)
		return
	}
	writeResult(w, req.ID, res)
}

// rpcGet expects params [kind, id].
func (s *Server) rpcGet(w http.ResponseWriter, req *RPCRequest) {
	var kind, id string
	if err := unmarshalParams(req.Params, &kind, &id); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "expected [kind, id]", err.Error())
		return
	}
	view, err := s.query(kind, id)
	if err != nil {
		writeDomainError(w, req.ID, err, true)
		return
	}
	writeResult(w, req.ID, view)
}

// rpcDerive expects params [kind, {seed: value}].
func (s *Server) rpcDerive(w http.ResponseWriter, req *RPCRequest) {
	var kind string
	args := make(map[string]string)
	if err := unmarshalParams(req.Params, &kind, &args); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "expected [kind, args]", err.Error())
		return
	}
	id, err := index.Derive(kind, args)
	if err != nil {
		writeDomainError(w, req.ID, err, true)
		return
	}
	writeResult(w, req.ID, deriveResponse{Kind: kind, ID: id.Hex()})
}

func unmarshalParams(params []json.RawMessage, targets ...interface{}) error {
	if len(params) != len(targets) {
		return errors.New("wrong number of params")
	}
	for i, raw := range params {
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return fmt.Errorf("param %d: %w", i, err)
		}
	}
	return nil
}
