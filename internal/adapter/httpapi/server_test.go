package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/species-atlas/internal/adapter/httpapi"
	"github.com/couchcryptid/species-atlas/internal/config"
	"github.com/couchcryptid/species-atlas/internal/domain"
	"github.com/couchcryptid/species-atlas/internal/observability"
	"github.com/couchcryptid/species-atlas/internal/service"
	"github.com/couchcryptid/species-atlas/internal/store"
)

const testCookie = "atlas_session"

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:        ":0",
		LogLevel:        "info",
		LogFormat:       "text",
		SessionCookie:   testCookie,
		MaxUploadBytes:  1 << 20,
		PlanCacheSize:   16,
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: time.Second,
	}
}

func newTestServer(cfg *config.Config) *httpapi.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.New(), observability.NewMetricsForTesting(), logger, cfg.MaxUploadBytes, cfg.PlanCacheSize)
	return httpapi.NewServer(cfg, svc, logger)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, srv *httpapi.Server, cookie *http.Cookie, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func doGet(srv *httpapi.Server, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

var birdsCSV = []byte("species,latitude,longitude,count\nHouse Sparrow,28.6139,77.2090,3\nCommon Myna,28.7041,77.1025,5\n")

var boundaryKML = []byte(`<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Placemark><Polygon><outerBoundaryIs><LinearRing>
    <coordinates>77.1,28.5,0 77.3,28.5,0 77.3,28.7,0</coordinates>
  </LinearRing></outerBoundaryIs></Polygon></Placemark>
</kml>`)

func TestUploadCSV(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doUpload(t, srv, nil, "delhi_birds.csv", birdsCSV)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Success bool           `json:"success"`
		Dataset domain.Dataset `json:"dataset"`
	}
	decodeBody(t, rec, &body)
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Dataset.ID)
	assert.Equal(t, "delhi_birds.csv", body.Dataset.Name)
	assert.Equal(t, 2, body.Dataset.TotalRecords)

	cookie := sessionCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestUploadReportsSkippedRows(t *testing.T) {
	srv := newTestServer(testConfig())
	payload := []byte("species,latitude,longitude\nSparrow,28.6,77.2\nCrow,95,77.2\n")

	rec := doUpload(t, srv, nil, "mixed.csv", payload)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Success   bool              `json:"success"`
		Warning   string            `json:"warning"`
		RowErrors []domain.RowError `json:"row_errors"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "1 rows had issues and were skipped", body.Warning)
	require.Len(t, body.RowErrors, 1)
	assert.Equal(t, 3, body.RowErrors[0].Row)
}

func TestUploadMissingColumnsReturns400(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doUpload(t, srv, nil, "wrong.csv", []byte("name,region\nSparrow,Delhi\n"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decodeBody(t, rec, &body)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "missing required columns")
	assert.Contains(t, body.Error, "name")
}

func TestUploadNoValidRowsReturns400(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doUpload(t, srv, nil, "junk.csv", []byte("species,latitude,longitude\n,91,200\n"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no valid species data")
}

func TestUploadUnsupportedTypeReturns400(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doUpload(t, srv, nil, "birds.json", []byte(`{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadWithoutFileReturns400(t *testing.T) {
	srv := newTestServer(testConfig())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file provided")
}

func TestUploadTooLargeReturns413(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 64
	srv := newTestServer(cfg)

	rec := doUpload(t, srv, nil, "big.csv", birdsCSV)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestListDatasetsEmptySession(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doGet(srv, "/api/datasets", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"datasets":[]}`, rec.Body.String())
}

func TestSessionIsolation(t *testing.T) {
	srv := newTestServer(testConfig())

	upload := doUpload(t, srv, nil, "delhi_birds.csv", birdsCSV)
	require.Equal(t, http.StatusCreated, upload.Code)
	cookie := sessionCookie(t, upload)

	var owned struct {
		Datasets []domain.Dataset `json:"datasets"`
	}
	decodeBody(t, doGet(srv, "/api/datasets", cookie), &owned)
	require.Len(t, owned.Datasets, 1)

	// A request without the cookie gets a fresh session and sees nothing.
	var fresh struct {
		Datasets []domain.Dataset `json:"datasets"`
	}
	decodeBody(t, doGet(srv, "/api/datasets", nil), &fresh)
	assert.Empty(t, fresh.Datasets)

	// Another session cannot read the dataset by id either.
	rec := doGet(srv, "/api/datasets/"+owned.Datasets[0].ID+"/data", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDatasetData(t *testing.T) {
	srv := newTestServer(testConfig())

	upload := doUpload(t, srv, nil, "delhi_birds.csv", birdsCSV)
	require.Equal(t, http.StatusCreated, upload.Code)
	cookie := sessionCookie(t, upload)

	var created struct {
		Dataset domain.Dataset `json:"dataset"`
	}
	decodeBody(t, upload, &created)

	rec := doGet(srv, "/api/datasets/"+created.Dataset.ID+"/data", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success      bool                 `json:"success"`
		Dataset      domain.Dataset       `json:"dataset"`
		Observations []domain.Observation `json:"observations"`
	}
	decodeBody(t, rec, &body)
	assert.True(t, body.Success)
	require.Len(t, body.Observations, 2)
	assert.Equal(t, "House Sparrow", body.Observations[0].Species)
	assert.Equal(t, 3, body.Observations[0].Count)
}

func TestDatasetDataUnknownIDReturns404(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doGet(srv, "/api/datasets/ds_nope/data", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestBoundaryUpload(t *testing.T) {
	srv := newTestServer(testConfig())

	upload := doUpload(t, srv, nil, "delhi_ncr.kml", boundaryKML)
	require.Equal(t, http.StatusCreated, upload.Code)
	cookie := sessionCookie(t, upload)

	var created struct {
		Dataset    domain.Dataset `json:"dataset"`
		IsBoundary bool           `json:"is_boundary"`
	}
	decodeBody(t, upload, &created)
	assert.True(t, created.IsBoundary)
	assert.Equal(t, "delhi_ncr (Study Area)", created.Dataset.Name)

	var body struct {
		Boundaries []domain.Dataset `json:"boundaries"`
	}
	decodeBody(t, doGet(srv, "/api/boundaries", cookie), &body)
	require.Len(t, body.Boundaries, 1)
	assert.Equal(t, created.Dataset.ID, body.Boundaries[0].ID)
}

func TestMalformedKMLReturns400(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doUpload(t, srv, nil, "broken.kml", []byte("<kml><open"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed kml")
}

func TestDeleteIsIdempotent(t *testing.T) {
	srv := newTestServer(testConfig())

	upload := doUpload(t, srv, nil, "delhi_birds.csv", birdsCSV)
	require.Equal(t, http.StatusCreated, upload.Code)
	cookie := sessionCookie(t, upload)

	var created struct {
		Dataset domain.Dataset `json:"dataset"`
	}
	decodeBody(t, upload, &created)

	del := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/datasets/"+created.Dataset.ID, nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	first := del()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{"success":true,"deleted":true}`, first.Body.String())

	second := del()
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, `{"success":true,"deleted":false}`, second.Body.String())
}

func TestExportCSVAttachment(t *testing.T) {
	srv := newTestServer(testConfig())

	upload := doUpload(t, srv, nil, "delhi_birds.csv", birdsCSV)
	require.Equal(t, http.StatusCreated, upload.Code)
	cookie := sessionCookie(t, upload)

	var created struct {
		Dataset domain.Dataset `json:"dataset"`
	}
	decodeBody(t, upload, &created)

	rec := doGet(srv, "/api/datasets/"+created.Dataset.ID+"/export", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="species_export_delhi_birds_`)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("Species,Latitude,Longitude,Count,Date,Location,Created_At\n")))
}

func TestExportPlan(t *testing.T) {
	srv := newTestServer(testConfig())

	upload := doUpload(t, srv, nil, "delhi_birds.csv", birdsCSV)
	require.Equal(t, http.StatusCreated, upload.Code)
	cookie := sessionCookie(t, upload)

	var created struct {
		Dataset domain.Dataset `json:"dataset"`
	}
	decodeBody(t, upload, &created)

	rec := doGet(srv, "/api/datasets/"+created.Dataset.ID+"/plan", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Plan    struct {
			DatasetID string `json:"dataset_id"`
			Heatmap   struct {
				Title string `json:"title"`
				Zoom  int    `json:"zoom"`
			} `json:"heatmap"`
		} `json:"plan"`
	}
	decodeBody(t, rec, &body)
	assert.True(t, body.Success)
	assert.Equal(t, created.Dataset.ID, body.Plan.DatasetID)
	assert.Equal(t, "Species Distribution Heatmap", body.Plan.Heatmap.Title)
	assert.Equal(t, 10, body.Plan.Heatmap.Zoom)
}

func TestExportPlanOnBoundaryReturns422(t *testing.T) {
	srv := newTestServer(testConfig())

	upload := doUpload(t, srv, nil, "delhi_ncr.kml", boundaryKML)
	require.Equal(t, http.StatusCreated, upload.Code)
	cookie := sessionCookie(t, upload)

	var created struct {
		Dataset domain.Dataset `json:"dataset"`
	}
	decodeBody(t, upload, &created)

	rec := doGet(srv, "/api/datasets/"+created.Dataset.ID+"/plan", cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExportPlanUnknownIDReturns404(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doGet(srv, "/api/datasets/ds_nope/plan", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doGet(srv, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doGet(srv, "/readyz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doGet(srv, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
