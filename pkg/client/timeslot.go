package client

import (
	"medisched/pkg/model"
	"net/url"
)

type TimeSlotClient struct {
	httpClient *HttpClient
}

func NewTimeSlotClient(baseURL, token string) *TimeSlotClient {
	return &TimeSlotClient{
		httpClient: NewHttpClient(baseURL).WithToken(token),
	}
}

func (c *TimeSlotClient) Request(req model.SlotRequest) (*Response, error) {
	return c.httpClient.POST("/api/v1/timeslots/requests", req)
}

func (c *TimeSlotClient) ListPending() (*Response, error) {
	return c.httpClient.GET("/api/v1/timeslots/requests/pending")
}

func (c *TimeSlotClient) Approve(id string) (*Response, error) {
	return c.httpClient.POST("/api/v1/timeslots/id/"+url.PathEscape(id)+"/approve", nil)
}

func (c *TimeSlotClient) Reject(id string) (*Response, error) {
	return c.httpClient.POST("/api/v1/timeslots/id/"+url.PathEscape(id)+"/reject", nil)
}

func (c *TimeSlotClient) MarkUnavailable(id string) (*Response, error) {
	return c.httpClient.POST("/api/v1/timeslots/id/"+url.PathEscape(id)+"/unavailable", nil)
}

func (c *TimeSlotClient) ListForDoctor(doctorID string) (*Response, error) {
	return c.httpClient.GET("/api/v1/timeslots/doctor/" + url.PathEscape(doctorID))
}

func (c *TimeSlotClient) DecodeTimeSlots(resp *Response) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	if err := resp.DecodeData(&slots); err != nil {
		return nil, err
	}
	return slots, nil
}
