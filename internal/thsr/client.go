// Package thsr reads timetables and service alerts from the THSR open-data
// API (PTX).
package thsr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ytlin/thsr-reminder/internal/models"
)

// DefaultBaseURL is the PTX THSR endpoint root.
const DefaultBaseURL = "https://ptx.transportdata.tw/MOTC/v2/Rail/THSR"

// The API rejects requests without a browser-like User-Agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)" +
	" AppleWebKit/537.36 (KHTML, like Gecko)" +
	" Chrome/74.0.3729.169 Safari/537.36"

// FetchError wraps any network, HTTP, or decode failure from the data
// source. The scheduler soft-retries these; everything else is fatal.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// API is the data-source contract the timetable cache consumes.
type API interface {
	ReadTimetable(orig, dest string, date time.Time) ([]models.Train, error)
	ReadAlertInfo() ([]models.AlertInfo, error)
}

// Client implements API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	nameToID   map[string]string
}

// NewClient creates a client for the given endpoint root. An empty baseURL
// selects the public PTX endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Wire formats of the PTX responses. Only the fields we read are declared.

type stationObj struct {
	StationID   string             `json:"StationID"`
	StationName models.StationName `json:"StationName"`
}

type stopTimeObj struct {
	StationName   models.StationName `json:"StationName"`
	ArrivalTime   string             `json:"ArrivalTime"`
	DepartureTime string             `json:"DepartureTime"`
}

type timetableObj struct {
	DailyTrainInfo struct {
		TrainNo   string `json:"TrainNo"`
		Direction int    `json:"Direction"`
	} `json:"DailyTrainInfo"`
	OriginStopTime      stopTimeObj `json:"OriginStopTime"`
	DestinationStopTime stopTimeObj `json:"DestinationStopTime"`
}

type alertObj struct {
	Level           int    `json:"Level"`
	Status          string `json:"Status"`
	Title           string `json:"Title"`
	Description     string `json:"Description"`
	Effects         string `json:"Effects"`
	Direction       string `json:"Direction"`
	EffectedSection string `json:"EffectedSection"`
}

// ReadTimetable returns the day's scheduled services between two stations.
// Stations may be named in English or Taiwanese Mandarin; unknown names are
// passed through as raw station IDs.
func (c *Client) ReadTimetable(orig, dest string, date time.Time) ([]models.Train, error) {
	if err := c.ensureStations(); err != nil {
		return nil, err
	}

	origID := c.stationID(orig)
	destID := c.stationID(dest)
	endpoint := fmt.Sprintf("%s/DailyTimetable/OD/%s/to/%s/%s",
		c.baseURL, url.PathEscape(origID), url.PathEscape(destID), date.Format("2006-01-02"))

	var objs []timetableObj
	if err := c.getJSON(endpoint, &objs); err != nil {
		return nil, err
	}

	trains := make([]models.Train, 0, len(objs))
	for _, obj := range objs {
		trains = append(trains, models.Train{
			TrainNo:   obj.DailyTrainInfo.TrainNo,
			Direction: models.Direction(obj.DailyTrainInfo.Direction),
			Origin: models.StopTime{
				Station:   obj.OriginStopTime.StationName,
				Arrival:   obj.OriginStopTime.ArrivalTime,
				Departure: obj.OriginStopTime.DepartureTime,
			},
			Destination: models.StopTime{
				Station:   obj.DestinationStopTime.StationName,
				Arrival:   obj.DestinationStopTime.ArrivalTime,
				Departure: obj.DestinationStopTime.DepartureTime,
			},
		})
	}
	return trains, nil
}

// ReadAlertInfo returns the active service disruptions. Level-1 entries are
// normal operation and are dropped.
func (c *Client) ReadAlertInfo() ([]models.AlertInfo, error) {
	var objs []alertObj
	if err := c.getJSON(c.baseURL+"/AlertInfo", &objs); err != nil {
		return nil, err
	}

	alerts := make([]models.AlertInfo, 0, len(objs))
	for _, obj := range objs {
		if obj.Level == 1 {
			continue
		}
		alerts = append(alerts, models.AlertInfo{
			Status:          obj.Status,
			Title:           obj.Title,
			Description:     obj.Description,
			Effects:         obj.Effects,
			Direction:       obj.Direction,
			AffectedSection: obj.EffectedSection,
		})
	}
	return alerts, nil
}

// ensureStations builds the localized-name to station-ID mapping on first
// use and keeps it for the process lifetime.
func (c *Client) ensureStations() error {
	if c.nameToID != nil {
		return nil
	}

	var stations []stationObj
	if err := c.getJSON(c.baseURL+"/Station", &stations); err != nil {
		return err
	}

	nameToID := make(map[string]string, 2*len(stations))
	for _, station := range stations {
		nameToID[station.StationName.En] = station.StationID
		nameToID[station.StationName.ZhTw] = station.StationID
	}
	c.nameToID = nameToID
	return nil
}

func (c *Client) stationID(name string) string {
	if id, ok := c.nameToID[name]; ok {
		return id
	}
	return name
}

func (c *Client) getJSON(endpoint string, v interface{}) error {
	req, err := http.NewRequest("GET", endpoint+"?format=JSON", nil)
	if err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &FetchError{URL: endpoint, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	return nil
}
