package idcard

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func extract(t *testing.T, body string) map[string]any {
	t.Helper()
	h := NewHandler(MockExtractor{}, zap.NewNop().Sugar())
	rec := httptest.NewRecorder()
	h.Extract(rec, httptest.NewRequest(http.MethodPost, "/id-card/extract", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestExtract(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes"))

	for _, payload := range []string{img, "data:image/jpeg;base64," + img} {
		out := extract(t, `{"image":"`+payload+`"}`)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "BENCHEIKH", out["nom"])
		assert.Equal(t, "Ahmed", out["prenom"])
		assert.Equal(t, "1234567890123456", out["national_id"])
	}
}

func TestExtract_Failures(t *testing.T) {
	tests := map[string]string{
		"malformed json": `{`,
		"missing image":  `{}`,
		"bad base64":     `{"image":"%%%"}`,
		"bad data url":   `{"image":"data:image/png;base64"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			out := extract(t, body)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["error"])
		})
	}
}
