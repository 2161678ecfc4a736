package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/djordjev/mock-simulator/internal/packages/reqctx"
)

const (
	maxBodySize      = 5 << 20
	maxMultipartMemo = 32 << 20
)

// parseBody decodes JSON, url-encoded and multipart bodies before a handler
// runs. The decoded value is available through reqctx.Body, form fields also
// through r.Form and r.PostForm.
func parseBody(w http.ResponseWriter, r *http.Request) (*http.Request, int, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return r, 0, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return r, 0, nil
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, bodyErrorStatus(err), err
		}

		if len(bytes.TrimSpace(data)) == 0 {
			return r, 0, nil
		}

		var body any
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err)
		}

		return reqctx.WithBody(r, body), 0, nil

	case mediaType == "application/x-www-form-urlencoded":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, bodyErrorStatus(err), err
		}

		values, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid form body: %w", err)
		}

		r.PostForm = values
		r.Form = mergeValues(r.URL.Query(), values)

		return reqctx.WithBody(r, formToMap(values)), 0, nil

	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemo); err != nil {
			return nil, bodyErrorStatus(err), fmt.Errorf("invalid multipart body: %w", err)
		}

		return reqctx.WithBody(r, formToMap(r.MultipartForm.Value)), 0, nil
	}

	return r, 0, nil
}

func bodyErrorStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}

	return http.StatusBadRequest
}

func mergeValues(query url.Values, form url.Values) url.Values {
	merged := make(url.Values, len(query)+len(form))
	for k, v := range form {
		merged[k] = append(merged[k], v...)
	}
	for k, v := range query {
		merged[k] = append(merged[k], v...)
	}

	return merged
}

// formToMap keeps single values as strings and repeated fields as lists.
func formToMap(values map[string][]string) map[string]any {
	result := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			result[k] = v[0]
			continue
		}

		list := make([]any, 0, len(v))
		for _, item := range v {
			list = append(list, item)
		}
		result[k] = list
	}

	return result
}
