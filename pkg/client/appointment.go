package client

import (
	"fmt"
	"medisched/pkg/model"
	"medisched/pkg/signature"
	"net/url"
)

type AppointmentClient struct {
	httpClient *HttpClient
}

func NewAppointmentClient(baseURL, token string) *AppointmentClient {
	return &AppointmentClient{
		httpClient: NewHttpClient(baseURL).WithToken(token),
	}
}

func (c *AppointmentClient) Book(req model.BookingRequest) (*Response, error) {
	return c.httpClient.POST("/api/v1/appointments", req)
}

func (c *AppointmentClient) BookIdempotent(req model.BookingRequest, key string) (*Response, error) {
	return c.httpClient.POSTWithHeaders("/api/v1/appointments", req, map[string]string{"Idempotency-Key": key})
}

func (c *AppointmentClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/appointments/id/" + url.PathEscape(id))
}

func (c *AppointmentClient) Update(id string, patch model.AppointmentUpdate) (*Response, error) {
	return c.httpClient.PATCH("/api/v1/appointments/id/"+url.PathEscape(id), patch)
}

func (c *AppointmentClient) Transition(id, status string) (*Response, error) {
	path := "/api/v1/appointments/id/" + url.PathEscape(id) + "/status"
	return c.httpClient.POST(path, model.StatusTransition{Status: status})
}

func (c *AppointmentClient) Cancel(id string) (*Response, error) {
	return c.httpClient.POST("/api/v1/appointments/id/"+url.PathEscape(id)+"/cancel", nil)
}

func (c *AppointmentClient) ListMine(limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(fmt.Sprintf("/api/v1/appointments/mine?limit=%d&offset=%d", limit, offset))
}

func (c *AppointmentClient) ListForDoctor(doctorID, date string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	return c.httpClient.GET("/api/v1/appointments/doctor/" + url.PathEscape(doctorID) + "?" + q.Encode())
}

func (c *AppointmentClient) Stats(doctorID string) (*Response, error) {
	path := "/api/v1/appointments/stats"
	if doctorID != "" {
		path += "?doctor_id=" + url.QueryEscape(doctorID)
	}
	return c.httpClient.GET(path)
}

// NotifyPrescription posts a raw prescription.completed payload to the internal
// webhook, signed with the shared webhook secret.
func (c *AppointmentClient) NotifyPrescription(payload []byte, webhookSecret string) (*Response, error) {
	return c.httpClient.POSTRaw("/internal/v1/prescriptions/completed", payload, map[string]string{
		signature.Header: signature.HeaderValue(payload, webhookSecret),
	})
}

func (c *AppointmentClient) DecodeAppointment(resp *Response) (*model.AppointmentView, error) {
	var view model.AppointmentView
	if err := resp.DecodeData(&view); err != nil {
		return nil, err
	}
	return &view, nil
}
