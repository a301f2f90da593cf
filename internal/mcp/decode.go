package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/kiln/internal/errors"
)

// decode maps tool arguments onto T. Arguments of the wrong JSON type are
// reported by field name as INVALID_REQUEST.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return out, errors.NewInvalidRequest("arguments are not valid JSON")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) && typeErr.Field != "" {
			return out, errors.NewInvalidRequest(fmt.Sprintf("argument %q must be a %s", typeErr.Field, typeErr.Type))
		}
		return out, errors.NewInvalidRequest(fmt.Sprintf("malformed arguments: %v", err))
	}
	return out, nil
}
