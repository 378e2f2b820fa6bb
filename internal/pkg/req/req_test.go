package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resc/internal/pkg/errs"
)

type announce struct {
	Body string `json:"body"`
}

func request(contentType, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/announce", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	return r
}

func TestBindJSON(t *testing.T) {
	var dst announce
	err := BindJSON(httptest.NewRecorder(), request("application/json", `{"body":"maintenance at noon"}`), &dst)
	require.Nil(t, err)
	assert.Equal(t, "maintenance at noon", dst.Body)
}

func TestBindJSONRejects(t *testing.T) {
	cases := map[string]struct {
		contentType string
		body        string
		code        int
	}{
		"wrong media type": {"text/plain", `{"body":"x"}`, errs.ErrUnsupportedMediaType},
		"broken json":      {"application/json", `{"body":`, errs.ErrInvalidJSONFormat},
		"unknown field":    {"application/json", `{"text":"x"}`, errs.ErrInvalidJSONFormat},
		"trailing object":  {"application/json", `{"body":"x"}{"body":"y"}`, errs.ErrExtraContentInBody},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var dst announce
			err := BindJSON(httptest.NewRecorder(), request(tc.contentType, tc.body), &dst)
			require.NotNil(t, err)
			assert.Equal(t, tc.code, err.Code)
		})
	}
}
