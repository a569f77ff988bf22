package respond

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestPaging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query              string
		wantLimit, wantOff int
	}{
		{"", 20, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=500", 50, 0},
		{"?limit=-1&offset=-3", 20, 0},
		{"?limit=abc", 20, 0},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/items"+tc.query, nil)
		limit, offset := Paging(c, 20, 50)
		if limit != tc.wantLimit || offset != tc.wantOff {
			t.Errorf("Paging(%q) = %d,%d want %d,%d", tc.query, limit, offset, tc.wantLimit, tc.wantOff)
		}
	}
}

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	Error(c, http.StatusUnprocessableEntity, "step_invalid", "step has errors", []FieldError{{Field: "personal.email", Message: "required"}})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	want := `{"error":{"code":"step_invalid","message":"step has errors","details":[{"field":"personal.email","message":"required"}]}}`
	if w.Body.String() != want {
		t.Fatalf("body = %s", w.Body.String())
	}
}
