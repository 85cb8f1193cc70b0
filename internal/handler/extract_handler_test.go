package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotedraft/internal/config"
	"quotedraft/internal/handler"
	"quotedraft/internal/router"
	"quotedraft/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	cfg := config.ExtractConfig{
		MaxFileSizeMB:         25,
		MaxFiles:              10,
		ChunkPages:            4,
		ChunkPagesConstrained: 2,
	}
	svc := service.NewExtractService(nil, cfg)
	extractH := handler.NewExtractHandler(svc)
	healthH := handler.NewHealthHandler()
	return router.Setup(extractH, healthH, []string{"http://localhost:3000"})
}

func quoteRequestBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"source":   "xlsx",
		"filename": "견적.xlsx",
		"rows": [][]string{
			{"상품명", "규격", "수량", "단가", "금액"},
			{"키보드", "기계식", "2", "10,000", "20,000"},
			{"배송비", "", "", "", "3,000"},
			{"합계", "", "", "", "23,000"},
		},
		"meta": map[string]string{"subject": "8월 구매건"},
	})
	require.NoError(t, err)
	return body
}

func TestExtract_JSONSingleDocument(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewReader(quoteRequestBody(t)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Files    []service.FileResult  `json:"files"`
			Failures []service.FileFailure `json:"failures"`
			Combined struct {
				Mode   string `json:"mode"`
				Totals struct {
					GrandTotal *float64 `json:"grandTotal"`
				} `json:"totals"`
			} `json:"combined"`
			Payload struct {
				Meta struct {
					Subject string `json:"subject"`
				} `json:"meta"`
				Quote struct {
					Currency string   `json:"currency"`
					Total    *float64 `json:"total"`
				} `json:"quote"`
			} `json:"payload"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Files, 1)
	assert.Empty(t, resp.Data.Failures)
	assert.Equal(t, "heuristic", resp.Data.Combined.Mode)
	require.NotNil(t, resp.Data.Combined.Totals.GrandTotal)
	assert.Equal(t, 23000.0, *resp.Data.Combined.Totals.GrandTotal)
	assert.Equal(t, "8월 구매건", resp.Data.Payload.Meta.Subject)
	assert.Equal(t, "KRW", resp.Data.Payload.Quote.Currency)
	require.NotNil(t, resp.Data.Payload.Quote.Total)
	assert.Equal(t, 23000.0, *resp.Data.Payload.Quote.Total)
}

func TestExtract_JSONFilesArray(t *testing.T) {
	r := newTestRouter()

	body, err := json.Marshal(map[string]any{
		"files": []map[string]any{
			{
				"filename": "a.xlsx",
				"rows": [][]string{
					{"상품명", "수량", "단가", "금액"},
					{"마우스", "1", "15,000", "15,000"},
				},
			},
			{
				"filename": "b.xlsx",
				"rows": [][]string{
					{"상품명", "수량", "단가", "금액"},
					{"모니터", "1", "120,000", "120,000"},
				},
			},
		},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Files    []service.FileResult `json:"files"`
			Combined struct {
				Source string `json:"source"`
				Totals struct {
					ItemsSubtotal *float64 `json:"itemsSubtotal"`
				} `json:"totals"`
			} `json:"combined"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Len(t, resp.Data.Files, 2)
	assert.Equal(t, "multi", resp.Data.Combined.Source)
	require.NotNil(t, resp.Data.Combined.Totals.ItemsSubtotal)
	assert.Equal(t, 135000.0, *resp.Data.Combined.Totals.ItemsSubtotal)
}

func TestExtract_MalformedJSON(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNSUPPORTED_FORMAT", resp.Error.Code)
}

func TestExtract_AllFilesFail(t *testing.T) {
	r := newTestRouter()

	body, err := json.Marshal(map[string]any{
		"filename": "문서.hwp",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NO_ITEMS_EXTRACTED", resp.Error.Code)
}

func TestExtract_MultipartUpload(t *testing.T) {
	r := newTestRouter()

	// HTML table saved with an .xls extension, the common marketplace export.
	doc := `<html><body><table>
		<tr><th>상품명</th><th>수량</th><th>단가</th><th>금액</th></tr>
		<tr><td>키보드</td><td>2</td><td>10,000</td><td>20,000</td></tr>
	</table></body></html>`

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", "주문내역.xls")
	require.NoError(t, err)
	_, err = fw.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("subject", "비품 구매"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Files   []service.FileResult `json:"files"`
			Payload struct {
				Meta struct {
					Subject string `json:"subject"`
				} `json:"meta"`
			} `json:"payload"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Files, 1)
	assert.Equal(t, "주문내역.xls", resp.Data.Files[0].Filename)
	require.Len(t, resp.Data.Files[0].Result.Items, 1)
	assert.Equal(t, "키보드", resp.Data.Files[0].Result.Items[0].Name)
	assert.Equal(t, "비품 구매", resp.Data.Payload.Meta.Subject)
}

func TestExtract_MultipartNoFiles(t *testing.T) {
	r := newTestRouter()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("subject", "empty"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExtractCSV(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/extract/csv", bytes.NewReader(quoteRequestBody(t)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	body := w.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))

	text := string(body)
	assert.Contains(t, text, "품명")
	assert.Contains(t, text, "키보드")
	assert.Contains(t, text, "배송비")
	assert.Contains(t, text, "23000")
}

func TestHealthz(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
