package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	"dipindex/native/index"
)

func parseID(raw string) (common.Hash, error) {
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: id must be 32 bytes of 0x hex", index.ErrInvalidRequest)
	}
	return common.BytesToHash(b), nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", index.ErrInvalidRequest, maxRequestBytes)
		}
		return nil, fmt.Errorf("%w: %v", index.ErrInvalidRequest, err)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, r *http.Request, err error, query bool) {
	code := errorCode(err)
	writeJSON(w, statusFor(code, query), errorResponse{
		Error:     APIError{Code: code, Message: err.Error()},
		RequestID: requestIDFrom(r.Context()),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeAPIError(w, r, err, false)
		return
	}
	res, err := s.submit(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		writeAPIError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuery(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.query(kind, chi.URLParam(r, "id"))
		if err != nil {
			writeAPIError(w, r, err, true)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type deriveResponse struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (s *Server) handleDerive(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	args := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			args[key] = values[0]
		}
	}
	id, err := index.Derive(kind, args)
	if err != nil {
		writeAPIError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, deriveResponse{Kind: kind, ID: id.Hex()})
}
