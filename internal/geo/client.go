// Package geo предоставляет клиент геокодирования и маршрутизации.
//
// Сервис рассматривается как внешний ненадёжный коллаборатор: его ответы
// используются только для отображения и никогда не влияют на выбор зоны.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/smartpark-system/internal/model"
)

// Публичные адреса OpenStreetMap, используемые при пустой конфигурации.
const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	defaultOSRMURL      = "https://router.project-osrm.org"
)

// Client инкапсулирует HTTP-взаимодействие с сервисами Nominatim и OSRM.
type Client struct {
	searchURL  string
	routeURL   string
	httpClient *http.Client
}

// Candidate описывает кандидата геокодирования для текстового запроса.
type Candidate struct {
	Lat float64
	Lng float64
}

// Route описывает маршрут для отображения: длина, время в пути и геометрия.
type Route struct {
	DistanceM float64         `json:"distance_m"`
	DurationS float64         `json:"duration_s"`
	Geometry  json.RawMessage `json:"geometry"`
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

// NewClient создаёт клиент. Пустой baseURL означает публичные сервисы OSM,
// иначе оба API ожидаются за одним адресом.
func NewClient(baseURL string) *Client {
	searchURL := defaultNominatimURL
	routeURL := defaultOSRMURL
	if baseURL != "" {
		trimmed := strings.TrimRight(baseURL, "/")
		searchURL = trimmed
		routeURL = trimmed
	}
	return &Client{
		searchURL: searchURL,
		routeURL:  routeURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Search геокодирует текстовый запрос в список координатных кандидатов.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	if query == "" {
		return nil, nil
	}

	u := fmt.Sprintf("%s/search?format=json&q=%s", c.searchURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lng, lngErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lngErr != nil {
			continue
		}
		candidates = append(candidates, Candidate{Lat: lat, Lng: lng})
	}

	return candidates, nil
}

// Route запрашивает автомобильный маршрут между двумя точками.
func (c *Client) Route(ctx context.Context, start, end model.Coordinate) (*Route, error) {
	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.routeURL, start.Lng, start.Lat, end.Lng, end.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if result.Code != "Ok" || len(result.Routes) == 0 {
		return nil, fmt.Errorf("no route: code %q", result.Code)
	}

	first := result.Routes[0]
	return &Route{
		DistanceM: first.Distance,
		DurationS: first.Duration,
		Geometry:  first.Geometry,
	}, nil
}
