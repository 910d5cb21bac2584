// Package httpx provides HTTP request/response helpers for the command server:
// JSON request decoding, JSON responses, error bodies and a status-tracking
// response writer.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// MaxRequestBody bounds the size of a command request body.
const MaxRequestBody = 1 << 20

// GetRequestData parses a JSON object request body into data.
// Only POST and PUT are accepted. An empty body leaves data untouched.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxRequestBody))
	if err := dec.Decode(data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("unable to parse request body")
		return ErrUnableToParseReqData()
	}
	return nil
}
