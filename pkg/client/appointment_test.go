package client

import (
	"io"
	"medisched/pkg/signature"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNotifyPrescription_SignsBody(t *testing.T) {
	const secret = "webhook-secret"
	payload := []byte(`{"appointment_id":"a1","prescription_id":"rx1"}`)

	var (
		gotPath   string
		gotHeader string
		gotAuth   string
		gotBody   []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get(signature.Header)
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"id":"a1","status":"completed"}}`))
	}))
	defer server.Close()

	resp, err := NewAppointmentClient(server.URL, "").NotifyPrescription(payload, secret)
	if err != nil {
		t.Fatalf("NotifyPrescription: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if gotPath != "/internal/v1/prescriptions/completed" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "" {
		t.Errorf("webhook must not carry a bearer token, got %q", gotAuth)
	}
	if string(gotBody) != string(payload) {
		t.Errorf("body = %s", gotBody)
	}
	if !signature.Verify(gotBody, gotHeader, secret) {
		t.Errorf("signature %q does not verify", gotHeader)
	}

	view, err := NewAppointmentClient(server.URL, "").DecodeAppointment(resp)
	if err != nil {
		t.Fatalf("DecodeAppointment: %v", err)
	}
	if view.Status != "completed" {
		t.Errorf("status = %s", view.Status)
	}
}
