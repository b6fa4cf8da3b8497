package directory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo, *mockRepo) {
	svc, repo := newTestService()
	return NewHandler(svc), echo.New(), repo
}

func TestHandler_UpsertHospital(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"name":"St. Mary","location":{"lat":40.7,"lng":-73.9},"base_eta_minutes":10,"capacity_ratio":0.75,"specialties":["stroke"]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.UpsertHospital(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_UpsertHospital_BadCapacity(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"name":"St. Mary","location":{"lat":40.7,"lng":-73.9},"base_eta_minutes":10,"capacity_ratio":2}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.UpsertHospital(c); err == nil {
		t.Error("expected error for invalid capacity ratio")
	}
}

func TestHandler_GetHospital(t *testing.T) {
	h, e, repo := newTestHandler()
	hospital := validHospital()
	repo.Upsert(nil, hospital)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(hospital.ID.String())

	if err := h.GetHospital(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetHospital_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetHospital(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_ListHospitals(t *testing.T) {
	h, e, repo := newTestHandler()
	repo.Upsert(nil, validHospital())
	repo.Upsert(nil, validHospital())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListHospitals(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data  []*Hospital `json:"data"`
		Total int         `json:"total"`
		Limit int         `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Total != 2 || len(body.Data) != 2 {
		t.Errorf("expected 2 hospitals with total 2, got %d/%d", len(body.Data), body.Total)
	}
	if body.Limit == 0 {
		t.Error("expected default limit in response")
	}
}

func TestHandler_ListHospitals_Paginated(t *testing.T) {
	h, e, repo := newTestHandler()
	for i := 0; i < 5; i++ {
		repo.Upsert(nil, validHospital())
	}

	req := httptest.NewRequest(http.MethodGet, "/?limit=2&offset=4", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListHospitals(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []*Hospital `json:"data"`
		Total int         `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Total != 5 {
		t.Errorf("expected total 5, got %d", body.Total)
	}
	if len(body.Data) != 1 {
		t.Errorf("expected 1 hospital on the last page, got %d", len(body.Data))
	}
}
