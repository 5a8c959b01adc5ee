package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	eventbus "github.com/hanpama/mutagraph/internal/eventbus"
	events "github.com/hanpama/mutagraph/internal/events"
	executor "github.com/hanpama/mutagraph/internal/executor"
	language "github.com/hanpama/mutagraph/internal/language"
	reqid "github.com/hanpama/mutagraph/internal/reqid"
)

type location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type responseError struct {
	Message    string         `json:"message"`
	Locations  []location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// response is the JSON body of one executed operation.
type response struct {
	Data   any             `json:"data"`
	Errors []responseError `json:"errors,omitempty"`
}

func failure(message string) response {
	return response{Errors: []responseError{{Message: message}}}
}

// execute runs one operation. Mutations are refused when readOnly.
func (h *Handler) execute(ctx context.Context, req GraphQLRequest, root any, readOnly bool) response {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		var gqlErr *language.Error
		if errors.As(err, &gqlErr) {
			out := responseError{Message: gqlErr.Message}
			for _, l := range gqlErr.Locations {
				out.Locations = append(out.Locations, location{Line: l.Line, Column: l.Column})
			}
			return response{Errors: []responseError{out}}
		}
		return failure(err.Error())
	}

	opType := ""
	op := doc.Operations.ForName(req.OperationName)
	if op == nil && req.OperationName == "" && len(doc.Operations) == 1 {
		op = doc.Operations[0]
	}
	if op != nil {
		opType = string(op.Operation)
		if readOnly && op.Operation == language.Mutation {
			return failure("mutations are not allowed over GET")
		}
	}

	rid, _ := reqid.FromContext(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{RequestID: rid, Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	result := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, root)
	errs := make([]error, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = e
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		RequestID:     rid,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	if len(errs) > 0 {
		h.opt.Logger.Debug("graphql operation returned errors",
			zap.String("request_id", rid),
			zap.String("operation", req.OperationName),
			zap.String("type", opType),
			zap.Errors("errors", errs))
	}
	return toResponse(result)
}

func toResponse(res *executor.ExecutionResult) response {
	out := response{Data: res.Data}
	for _, e := range res.Errors {
		re := responseError{Message: e.Message, Extensions: e.Extensions}
		for _, elem := range e.Path {
			re.Path = append(re.Path, elem)
		}
		out.Errors = append(out.Errors, re)
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		h.opt.Logger.Debug("write response", zap.Error(err))
	}
}
