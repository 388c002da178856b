package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reqview/pkg/model"
)

func okEnvelope(data any) []byte {
	buf, _ := json.Marshal(map[string]any{"success": true, "data": data})
	return buf
}

func errEnvelope(msg string) []byte {
	buf, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	return buf
}

func TestListRequirements_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/requirements" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("project_id"); got != "p1" {
			t.Errorf("expected project_id=p1, got %q", got)
		}
		w.Write(okEnvelope([]map[string]any{
			{"requirement_id": "REQ-001", "title": "Login", "status": "Draft", "chapter": "3.1"},
			{"requirement_id": "REQ-002", "title": "Logout", "status": "Completed", "parents": []string{"REQ-001"}},
		}))
	}))
	defer srv.Close()

	c := New(srv.URL)
	reqs, err := c.ListRequirements(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("ListRequirements failed: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Chapter != "3.1" || reqs[0].Status != model.StatusDraft {
		t.Errorf("field decode failed: %+v", reqs[0])
	}
	if !reqs[1].HasParent("REQ-001") {
		t.Errorf("parents decode failed: %+v", reqs[1])
	}
}

func TestDo_ErrorKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/requirements/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write(errEnvelope("Requirement not found"))
		case "/api/requirements/boom":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write(errEnvelope("database locked"))
		default:
			w.Write([]byte("not json"))
		}
	}))
	defer srv.Close()
	c := New(srv.URL)

	_, err := c.GetRequirement(context.Background(), "missing")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNotFound {
		t.Errorf("expected KindNotFound, got %v", err)
	}
	if apiErr.Message != "Requirement not found" {
		t.Errorf("server message should pass through, got %q", apiErr.Message)
	}

	_, err = c.GetRequirement(context.Background(), "boom")
	if !errors.As(err, &apiErr) || apiErr.Kind != KindServer || apiErr.StatusCode != 500 {
		t.Errorf("expected KindServer/500, got %v", err)
	}

	_, err = c.GetRequirement(context.Background(), "garbled")
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork {
		t.Errorf("a malformed body is a network failure, got %v", err)
	}
}

func TestDo_ConnectionRefusedIsNetwork(t *testing.T) {
	c := New("http://127.0.0.1:1") // nothing listens here
	_, err := c.ListProjects(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork {
		t.Errorf("expected KindNetwork, got %v", err)
	}
}

func TestCreateRequirement_EmptyTitleNeverSent(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()
	c := New(srv.URL)

	_, err := c.CreateRequirement(context.Background(), RequirementInput{Title: "   "})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
	if called {
		t.Error("a locally rejected request must not reach the server")
	}

	if _, err := c.UpdateRequirement(context.Background(), "REQ-001", RequirementInput{}); err == nil {
		t.Error("update with empty title should be rejected too")
	}
}

func TestSetParent_Payloads(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		if r.URL.Path != "/api/requirements/REQ-002/parent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write(okEnvelope(nil))
	}))
	defer srv.Close()
	c := New(srv.URL)

	parent := "REQ-001"
	if err := c.SetParent(context.Background(), "REQ-002", &parent, false); err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if err := c.SetParent(context.Background(), "REQ-002", &parent, true); err != nil {
		t.Fatalf("remove link failed: %v", err)
	}
	if err := c.SetParent(context.Background(), "REQ-002", nil, false); err != nil {
		t.Fatalf("clear parents failed: %v", err)
	}

	if len(bodies) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(bodies))
	}
	if bodies[0]["parent_id"] != "REQ-001" {
		t.Errorf("create body: %v", bodies[0])
	}
	if _, present := bodies[0]["remove_only"]; present {
		t.Errorf("remove_only should be omitted when false: %v", bodies[0])
	}
	if bodies[1]["parent_id"] != "REQ-001" || bodies[1]["remove_only"] != true {
		t.Errorf("remove body: %v", bodies[1])
	}
	// Clearing all parents sends an explicit null, not a missing key.
	if v, present := bodies[2]["parent_id"]; !present || v != nil {
		t.Errorf("clear body must carry parent_id:null, got %v", bodies[2])
	}
}

func TestSetPosition_SendsCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]float64
		json.NewDecoder(r.Body).Decode(&body)
		if body["x"] != 120 || body["y"] != 340 {
			t.Errorf("expected x=120 y=340, got %v", body)
		}
		w.Write(okEnvelope(nil))
	}))
	defer srv.Close()
	c := New(srv.URL)
	if err := c.SetPosition(context.Background(), "REQ-001", 120, 340); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
}

func TestBatchUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in BatchUpdateInput
		json.NewDecoder(r.Body).Decode(&in)
		if len(in.RequirementIDs) != 2 || in.Updates["status"] != "Completed" {
			t.Errorf("unexpected batch input: %+v", in)
		}
		w.Write(okEnvelope(map[string]int{"updated_count": 2}))
	}))
	defer srv.Close()
	c := New(srv.URL)

	res, err := c.BatchUpdate(context.Background(), BatchUpdateInput{
		RequirementIDs: []string{"REQ-001", "REQ-002"},
		Updates:        map[string]string{"status": "Completed"},
	})
	if err != nil {
		t.Fatalf("BatchUpdate failed: %v", err)
	}
	if res.UpdatedCount != 2 {
		t.Errorf("expected 2 updated, got %d", res.UpdatedCount)
	}

	if _, err := c.BatchUpdate(context.Background(), BatchUpdateInput{}); err == nil {
		t.Error("empty batch should be rejected client-side")
	}
}

func TestFetchGraph_NormalizesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(okEnvelope(map[string]any{}))
	}))
	defer srv.Close()
	c := New(srv.URL)

	g, err := c.FetchGraph(context.Background(), "p1")
	if err != nil {
		t.Fatalf("FetchGraph failed: %v", err)
	}
	if g.Nodes == nil || g.Edges == nil {
		t.Error("missing node/edge lists should decode as empty, not nil")
	}
}

func TestExportCSV_StreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("requirement_id,title\nREQ-001,Login\n"))
	}))
	defer srv.Close()
	c := New(srv.URL)

	var buf bytes.Buffer
	if err := c.ExportCSV(context.Background(), "p1", &buf); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if !strings.Contains(buf.String(), "REQ-001") {
		t.Errorf("export body not streamed: %q", buf.String())
	}
}

func TestUploadCSV_MultipartFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not multipart: %v", err)
		}
		if r.FormValue("group_id") != "g1" || r.FormValue("project_id") != "p1" {
			t.Errorf("form fields missing: %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file part missing: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "reqs.csv" {
			t.Errorf("filename: %q", hdr.Filename)
		}
		w.Write(okEnvelope(map[string]int{"records_processed": 5, "records_skipped": 1}))
	}))
	defer srv.Close()
	c := New(srv.URL)

	res, err := c.UploadCSV(context.Background(), "reqs.csv", strings.NewReader("requirement_id,title\n"), "g1", "p1")
	if err != nil {
		t.Fatalf("UploadCSV failed: %v", err)
	}
	if res.RecordsProcessed != 5 || res.RecordsSkipped != 1 {
		t.Errorf("import result: %+v", res)
	}
}
