package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/tumme/course-system/internal/core/domain"
)

func TestGradeHandler_Mine(t *testing.T) {
	e := newEcho()
	handler := NewGradeHandler(&stubGradeService{
		grade: domain.Grade{StudentID: "st1", Value: 12.4, Graded: true, TotalECTS: 10},
	})

	c, rec := newContext(e, http.MethodGet, "/me/grade", "", studentUser)
	if err := handler.Mine(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var g domain.Grade
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !g.Graded || g.Value != 12.4 {
		t.Fatalf("unexpected grade: %+v", g)
	}
}

func TestGradeHandler_Stream(t *testing.T) {
	e := newEcho()
	stream := make(chan domain.Grade, 2)
	stream <- domain.Grade{StudentID: "st1", Value: 10, Graded: true, TotalECTS: 2}
	stream <- domain.Grade{StudentID: "st1", Value: 16, Graded: true, TotalECTS: 5}
	close(stream)
	handler := NewGradeHandler(&stubGradeService{stream: stream})

	c, rec := newContext(e, http.MethodGet, "/me/grade/stream", "", studentUser)
	if err := handler.Stream(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if strings.Count(body, "event: grade\n") != 2 {
		t.Fatalf("expected two events, got %q", body)
	}
	if !strings.Contains(body, `"value":16`) {
		t.Fatalf("missing latest grade in %q", body)
	}
}
