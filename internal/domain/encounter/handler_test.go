package encounter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(NewService(newMockRepo())), echo.New()
}

func postEncounter(h *Handler, e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/encounters", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreateEncounter(c); err != nil {
		panic(err)
	}
	return rec
}

func TestCreateEncounterHandler(t *testing.T) {
	h, e := newTestHandler()
	rec := postEncounter(h, e, `{"patientId":"p-1","location":{"lat":40.7,"lng":-73.9},"condition":"trauma"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	for _, key := range []string{"message", "encounterId", "timestamp"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("expected %q in response", key)
		}
	}
}

func TestCreateEncounterHandler_BogusCondition(t *testing.T) {
	h, e := newTestHandler()
	rec := postEncounter(h, e, `{"patientId":"p-1","location":{"lat":40.7,"lng":-73.9},"condition":"bogus"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	msg, _ := resp["error"].(string)
	if !strings.Contains(msg, "bogus") {
		t.Errorf("expected error message to name the invalid value, got %q", msg)
	}
	if code, _ := resp["code"].(float64); code != 400 {
		t.Errorf("expected code 400, got %v", resp["code"])
	}
}

func TestCreateEncounterHandler_MissingFields(t *testing.T) {
	h, e := newTestHandler()
	rec := postEncounter(h, e, `{"location":{"lat":40.7,"lng":-73.9},"condition":"trauma"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing patientId, got %d", rec.Code)
	}
}
