package client

import (
	"fmt"
	"medisched/pkg/model"
	"net/url"
)

type DoctorClient struct {
	httpClient *HttpClient
}

func NewDoctorClient(baseURL, token string) *DoctorClient {
	return &DoctorClient{
		httpClient: NewHttpClient(baseURL).WithToken(token),
	}
}

func (c *DoctorClient) Create(doctor model.Doctor) (*Response, error) {
	return c.httpClient.POST("/api/v1/doctors", doctor)
}

func (c *DoctorClient) GetAll(limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(fmt.Sprintf("/api/v1/doctors?limit=%d&offset=%d", limit, offset))
}

func (c *DoctorClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/doctors/id/" + url.PathEscape(id))
}

func (c *DoctorClient) Search(specialty string) (*Response, error) {
	return c.httpClient.GET("/api/v1/doctors/search?specialty=" + url.QueryEscape(specialty))
}

func (c *DoctorClient) Recommend(symptoms []string) (*Response, error) {
	return c.httpClient.POST("/api/v1/triage/recommend", map[string][]string{"symptoms": symptoms})
}

func (c *DoctorClient) DecodeDoctor(resp *Response) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := resp.DecodeData(&doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (c *DoctorClient) Suggest(query string) (*Response, error) {
	return c.httpClient.GET("/api/v1/triage/suggestions?query=" + url.QueryEscape(query))
}
