package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

const maxRequestBodyBytes = 10 << 20

var ErrInvalidContentType = errors.New("invalid content type")

// DecodeJSONBody decodes a JSON request body into dst. The request must
// declare an application/json content type; an empty body decodes to dst's zero value.
func DecodeJSONBody(r *http.Request, dst any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != ContentType.JSON {
		return ErrInvalidContentType
	}

	if r.Body == nil {
		return nil
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode json body: %w", err)
	}
	return nil
}
