package notify

import (
	"errors"
	"strings"
	"testing"

	"github.com/OpenDataAtlas/ODA-Backend/internal/catalog"
	"github.com/google/uuid"
)

func testBatch(events ...EventInfo) *EventBatch {
	return &EventBatch{
		UserID:    "alice",
		UserEmail: "alice@example.com",
		Events:    events,
	}
}

func sourceEvent(name string) EventInfo {
	return EventInfo{
		EventID:    uuid.New(),
		EventType:  EventApproved,
		EntityType: catalog.EntityDataSource,
		EntityID:   uuid.New(),
		EntityName: name,
	}
}

func requestEvent(name string, eventType EventType) EventInfo {
	return EventInfo{
		EventID:    uuid.New(),
		EventType:  eventType,
		EntityType: catalog.EntityDataRequest,
		EntityID:   uuid.New(),
		EntityName: name,
	}
}

func TestRenderSingularSection(t *testing.T) {
	r := Renderer{BaseURL: "https://atlas.example.org"}
	e := sourceEvent("Transit Data")

	htmlBody, textBody, err := r.Render(testBatch(e))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !strings.Contains(htmlBody, "<h2>New Data Source</h2>") {
		t.Errorf("Expected singular heading, got:\n%s", htmlBody)
	}
	if !strings.Contains(htmlBody, "The following data source was approved:") {
		t.Errorf("Expected singular intro, got:\n%s", htmlBody)
	}
	wantLink := "https://atlas.example.org/data-sources/" + e.EntityID.String()
	if !strings.Contains(htmlBody, `<a href="`+wantLink+`">Transit Data</a>`) {
		t.Errorf("Expected link %s, got:\n%s", wantLink, htmlBody)
	}
	if !strings.Contains(textBody, "- Transit Data: "+wantLink) {
		t.Errorf("Expected text line with link, got:\n%s", textBody)
	}
}

func TestRenderPluralSection(t *testing.T) {
	r := Renderer{BaseURL: "https://atlas.example.org"}

	htmlBody, textBody, err := r.Render(testBatch(
		sourceEvent("Transit Data"),
		sourceEvent("Budget Data"),
	))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !strings.Contains(htmlBody, "<h2>New Data Sources</h2>") {
		t.Errorf("Expected plural heading, got:\n%s", htmlBody)
	}
	if !strings.Contains(htmlBody, "The following data sources were approved:") {
		t.Errorf("Expected plural intro, got:\n%s", htmlBody)
	}
	if strings.Contains(htmlBody, "<h2>New Data Source</h2>") {
		t.Errorf("Singular heading should not appear alongside plural")
	}
	if !strings.Contains(textBody, "New Data Sources") {
		t.Errorf("Text body missing plural heading:\n%s", textBody)
	}
}

func TestRenderOmitsEmptyCategories(t *testing.T) {
	r := Renderer{BaseURL: "https://atlas.example.org"}

	htmlBody, _, err := r.Render(testBatch(requestEvent("Zoning Request", EventReadyToStart)))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !strings.Contains(htmlBody, "<h2>Data Request Ready to Start</h2>") {
		t.Errorf("Expected ready-to-start heading, got:\n%s", htmlBody)
	}
	if strings.Contains(htmlBody, "New Data Source") {
		t.Errorf("Empty data source category should be omitted")
	}
	if strings.Contains(htmlBody, "Completed Data Request") {
		t.Errorf("Empty completed category should be omitted")
	}
}

func TestRenderFixedCategoryOrder(t *testing.T) {
	r := Renderer{BaseURL: "https://atlas.example.org"}

	// Input order is scrambled on purpose; output order is fixed.
	htmlBody, _, err := r.Render(testBatch(
		requestEvent("Zoning Request", EventReadyToStart),
		requestEvent("Crime Stats", EventComplete),
		sourceEvent("Transit Data"),
	))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	approved := strings.Index(htmlBody, "New Data Source")
	completed := strings.Index(htmlBody, "Completed Data Request")
	ready := strings.Index(htmlBody, "Data Request Ready to Start")
	if approved == -1 || completed == -1 || ready == -1 {
		t.Fatalf("Missing a category heading:\n%s", htmlBody)
	}
	if !(approved < completed && completed < ready) {
		t.Errorf("Categories out of order: approved=%d completed=%d ready=%d", approved, completed, ready)
	}
}

func TestRenderEscapesEntityNames(t *testing.T) {
	r := Renderer{BaseURL: "https://atlas.example.org"}

	htmlBody, textBody, err := r.Render(testBatch(sourceEvent(`<script>alert("x")</script>`)))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if strings.Contains(htmlBody, "<script>") {
		t.Errorf("Entity name not escaped in HTML:\n%s", htmlBody)
	}
	if !strings.Contains(htmlBody, "&lt;script&gt;") {
		t.Errorf("Expected escaped name in HTML:\n%s", htmlBody)
	}
	if !strings.Contains(textBody, `<script>alert("x")</script>`) {
		t.Errorf("Plain text should carry the raw name:\n%s", textBody)
	}
}

func TestRenderTrimsBaseURLSlash(t *testing.T) {
	r := Renderer{BaseURL: "https://atlas.example.org/"}
	e := sourceEvent("Transit Data")

	htmlBody, _, err := r.Render(testBatch(e))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(htmlBody, "org//data-sources") {
		t.Errorf("Double slash in link:\n%s", htmlBody)
	}
}

func TestRenderRejectsEmptyBatch(t *testing.T) {
	r := Renderer{BaseURL: "https://atlas.example.org"}

	if _, _, err := r.Render(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("Expected ErrEmptyBatch for nil batch, got %v", err)
	}
	if _, _, err := r.Render(&EventBatch{UserID: "alice"}); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("Expected ErrEmptyBatch for zero events, got %v", err)
	}
}
