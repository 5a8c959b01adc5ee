package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
)

// GraphQLRequest is one operation of a GraphQL-over-HTTP request.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(message string) *requestError {
	return &requestError{status: http.StatusBadRequest, message: message}
}

// parseRequest reads a GET query string or a JSON POST body. A JSON array
// body is a batch.
func parseRequest(r *http.Request, maxBody int64) (reqs []GraphQLRequest, batched bool, err *requestError) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req := GraphQLRequest{Query: q.Get("query"), OperationName: q.Get("operationName"), Variables: map[string]any{}}
		if req.Query == "" {
			return nil, false, badRequest("missing 'query'")
		}
		if v := q.Get("variables"); v != "" {
			if json.Unmarshal([]byte(v), &req.Variables) != nil {
				return nil, false, badRequest("invalid 'variables' JSON")
			}
		}
		return []GraphQLRequest{req}, false, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); mt != "application/json" {
			return nil, false, badRequest("unsupported Content-Type")
		}
	}
	defer r.Body.Close()
	body := io.Reader(r.Body)
	if maxBody > 0 {
		body = io.LimitReader(r.Body, maxBody+1)
	}
	data, rerr := io.ReadAll(body)
	if rerr != nil {
		return nil, false, badRequest("failed to read body")
	}
	if maxBody > 0 && int64(len(data)) > maxBody {
		return nil, false, &requestError{status: http.StatusRequestEntityTooLarge, message: "body too large"}
	}

	if trimmed := bytes.TrimLeft(data, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '[' {
		if json.Unmarshal(data, &reqs) != nil {
			return nil, false, badRequest("invalid JSON")
		}
		if len(reqs) == 0 {
			return nil, false, badRequest("empty batch")
		}
		return reqs, true, nil
	}
	var req GraphQLRequest
	if json.Unmarshal(data, &req) != nil {
		return nil, false, badRequest("invalid JSON")
	}
	if req.Query == "" {
		return nil, false, badRequest("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return []GraphQLRequest{req}, false, nil
}
