package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"danang-green/geocode"
	"danang-green/kv"
	"danang-green/mapsync"
	"danang-green/media"
	"danang-green/models"
	"danang-green/service"
	"danang-green/store"

	"github.com/gin-gonic/gin"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	req      service.SubmitRequest
	body     []byte
	out      *service.Outcome
	err      error
	advanced *models.ReportRecord
}

func (f *fakeSubmitter) Submit(_ context.Context, req service.SubmitRequest) (*service.Outcome, error) {
	f.req = req
	if req.File.Reader != nil {
		f.body, _ = io.ReadAll(req.File.Reader)
	}
	return f.out, f.err
}

func (f *fakeSubmitter) AdvanceStatus(_ context.Context, id string) (*models.ReportRecord, error) {
	if f.advanced == nil || f.advanced.ID != id {
		return nil, nil
	}
	return f.advanced, nil
}

type fixedPoints int

func (p fixedPoints) Points() int { return int(p) }

type fakeSearcher struct {
	res geocode.Result
	err error
}

func (f fakeSearcher) Search(context.Context, string) (geocode.Result, error) {
	return f.res, f.err
}

func testRecord(id string, status models.ReportStatus) models.ReportRecord {
	return models.ReportRecord{
		ID:        id,
		MediaURL:  "/media/" + id + ".jpg",
		MediaKind: models.MediaImage,
		Position:  models.GeoPosition{Latitude: 16.06, Longitude: 108.22},
		Analysis:  models.AIAnalysis{IssueType: models.IssueLittering, Priority: models.PriorityLow, Description: "Rác", Remedy: "Dọn", IssuePresent: true},
		Status:    status,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

type fixture struct {
	router    *gin.Engine
	submitter *fakeSubmitter
	mediaDir  string
}

func newFixture(t *testing.T, searcher fakeSearcher) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := store.New(kv.NewMemoryStore(), "test")
	require.NoError(t, s.Load(context.Background(), []models.ReportRecord{
		testRecord("r-new", models.StatusNew),
		testRecord("r-done", models.StatusResolved),
	}))

	dir := t.TempDir()
	files, err := media.NewLocalStore(dir, "/media")
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	h := NewHandlers(sub, s, fixedPoints(30), searcher, nil, mapsync.DaNangPOIs(), files)
	return &fixture{router: SetupRouter(h, nil), submitter: sub, mediaDir: dir}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, fields map[string]string, withFile bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withFile {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="trash.jpg"`)
		header.Set("Content-Type", "image/jpeg")
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		part.Write([]byte("jpeg-bytes"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmitReportAccepted(t *testing.T) {
	f := newFixture(t, fakeSearcher{})
	rec := testRecord("fresh", models.StatusNew)
	f.submitter.out = &service.Outcome{Record: &rec, PointsAwarded: 10, PointsTotal: 40}

	req := multipartRequest(t, map[string]string{"latitude": "16.0544", "longitude": "108.2022", "note": "  rác ven đường  "}, true)
	req.Header.Set("X-Submission-Key", "device-1")
	w := f.do(req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out service.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotNil(t, out.Record)
	assert.Equal(t, "fresh", out.Record.ID)
	assert.Equal(t, 40, out.PointsTotal)

	got := f.submitter.req
	assert.Equal(t, "device-1", got.Key)
	assert.Equal(t, "rác ven đường", got.Note)
	require.NotNil(t, got.Position)
	assert.Equal(t, models.GeoPosition{Latitude: 16.0544, Longitude: 108.2022}, *got.Position)
	assert.Equal(t, "image/jpeg", got.File.DeclaredMIME)
	assert.Equal(t, []byte("jpeg-bytes"), f.submitter.body)
}

func TestSubmitReportSubmissionKey(t *testing.T) {
	f := newFixture(t, fakeSearcher{})
	rec := testRecord("fresh", models.StatusNew)
	f.submitter.out = &service.Outcome{Record: &rec}

	w := f.do(multipartRequest(t, map[string]string{"latitude": "16", "longitude": "108", "submission_key": "form-7"}, true))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "form-7", f.submitter.req.Key)

	req := multipartRequest(t, map[string]string{"latitude": "16", "longitude": "108"}, true)
	req.RemoteAddr = "203.0.113.9:5050"
	w = f.do(req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, f.submitter.req.Key)
}

func TestSubmitReportRejected(t *testing.T) {
	f := newFixture(t, fakeSearcher{})
	f.submitter.out = &service.Outcome{Rejected: &models.SubmissionRejected{Reason: models.RejectionNoIssue}}

	w := f.do(multipartRequest(t, map[string]string{"latitude": "16", "longitude": "108"}, true))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.RejectionNoIssue)
}

func TestSubmitReportErrors(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		code int
	}{
		{"location missing", models.ErrLocationMissing, http.StatusUnprocessableEntity},
		{"invalid latitude", &models.ValidationError{Field: "latitude", Reason: "out of range"}, http.StatusUnprocessableEntity},
		{"unsupported media", &models.MediaError{Cause: "unsupported media type text/plain", Err: models.ErrUnsupportedMedia}, http.StatusUnsupportedMediaType},
		{"undecodable media", &models.MediaError{Cause: "video could not be decoded"}, http.StatusBadRequest},
		{"classifier", &models.ClassifierError{Source: "gemini", Err: errors.New("boom")}, http.StatusBadGateway},
		{"in flight", models.ErrSubmissionInFlight, http.StatusConflict},
		{"store", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, fakeSearcher{})
			f.submitter.err = tc.err
			w := f.do(multipartRequest(t, map[string]string{"latitude": "16", "longitude": "108"}, true))
			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestSubmitReportFormProblems(t *testing.T) {
	f := newFixture(t, fakeSearcher{})

	w := f.do(multipartRequest(t, map[string]string{"latitude": "16", "longitude": "108"}, false))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(multipartRequest(t, map[string]string{"latitude": "16"}, true))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(multipartRequest(t, map[string]string{"latitude": "north", "longitude": "108"}, true))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"latitude"`)
}

func TestSubmitReportWithoutLocationReachesPipeline(t *testing.T) {
	f := newFixture(t, fakeSearcher{})
	f.submitter.err = models.ErrLocationMissing

	w := f.do(multipartRequest(t, nil, true))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Nil(t, f.submitter.req.Position)
}

func TestAdvanceStatus(t *testing.T) {
	f := newFixture(t, fakeSearcher{})
	advanced := testRecord("r-new", models.StatusInProgress)
	f.submitter.advanced = &advanced

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/reports/r-new/advance", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"InProgress"`)

	w = f.do(httptest.NewRequest(http.MethodPost, "/api/v1/reports/ghost/advance", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReports(t *testing.T) {
	f := newFixture(t, fakeSearcher{})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Reports []models.ReportRecord `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Reports, 2)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports?status=Resolved", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Reports, 1)
	assert.Equal(t, "r-done", body.Reports[0].ID)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports/r-new", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports/ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportsGeoJSON(t *testing.T) {
	f := newFixture(t, fakeSearcher{})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/reports.geojson", nil))
	require.Equal(t, http.StatusOK, w.Code)
	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	feature := fc.Features[0]
	assert.True(t, feature.Geometry.IsPoint())
	assert.Equal(t, []float64{108.22, 16.06}, feature.Geometry.Point)
	assert.Equal(t, mapsync.ColorNew, feature.Properties["color"])
	assert.Equal(t, "Báo cáo mới", feature.Properties["statusLabel"])
}

func TestPOIEndpoints(t *testing.T) {
	f := newFixture(t, fakeSearcher{})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/poi", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		POIs []models.POI `json:"pois"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.POIs, len(mapsync.DaNangPOIs()))

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/poi?category=WaterStation", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.POIs)
	for _, p := range body.POIs {
		assert.Equal(t, models.POIWaterStation, p.Type)
	}

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/poi.geojson?category=NatureReserve&category=RecyclingCenter", nil))
	require.Equal(t, http.StatusOK, w.Code)
	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	require.NoError(t, err)
	for _, feat := range fc.Features {
		assert.Contains(t, []interface{}{"NatureReserve", "RecyclingCenter"}, feat.Properties["type"])
	}
}

func TestStatsAndPoints(t *testing.T) {
	f := newFixture(t, fakeSearcher{})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Stats  models.ReportStats `json:"stats"`
		Points int                `json:"points"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.ReportStats{Total: 2, New: 1, Resolved: 1}, body.Stats)
	assert.Equal(t, 30, body.Points)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/points", nil))
	assert.JSONEq(t, `{"points":30}`, w.Body.String())
}

func TestSearch(t *testing.T) {
	found := geocode.Result{Found: true, Position: models.GeoPosition{Latitude: 16.0678, Longitude: 108.2208}}
	f := newFixture(t, fakeSearcher{res: found})
	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/search?q=C%E1%BA%A7u+R%E1%BB%93ng", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"found":true`)

	f = newFixture(t, fakeSearcher{})
	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/search?q=Atlantis", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Không tìm thấy địa điểm.")

	f = newFixture(t, fakeSearcher{err: errors.New("timeout")})
	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestMarkerIcon(t *testing.T) {
	f := newFixture(t, fakeSearcher{})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/markers/InProgress.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/markers/InProgress", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeMedia(t *testing.T) {
	f := newFixture(t, fakeSearcher{})
	require.NoError(t, os.WriteFile(filepath.Join(f.mediaDir, "clip.jpg"), []byte("jpeg"), 0o644))

	w := f.do(httptest.NewRequest(http.MethodGet, "/media/clip.jpg", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())

	w = f.do(httptest.NewRequest(http.MethodGet, "/media/.env", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, fakeSearcher{})
	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}
