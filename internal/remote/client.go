// Package remote предоставляет клиент удалённого сервиса доступности парковок.
//
// Удалённый сервис — источник истины по занятости зон и журналу платежей.
// Запросы резервирования и освобождения выполняются по принципу
// «отправил и забыл»: результат вызывающая сторона вправе игнорировать,
// расхождения устраняет следующий тик синхронизатора.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/smartpark-system/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с сервисом доступности.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Zone описывает запись о зоне в ответе удалённого сервиса.
type Zone struct {
	ID         int64  `json:"id"`
	FreeSlots  int    `json:"free_slots"`
	TotalSlots int    `json:"total_slots"`
	Status     string `json:"status"`
}

type zonesResponse struct {
	Zones []Zone `json:"zones"`
}

type reservationRequest struct {
	User   string `json:"user"`
	ZoneID int64  `json:"zone_id"`
}

// NewClient создаёт HTTP-клиент сервиса доступности по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *Client) url(path string) string {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base + path
}

// Zones запрашивает полный список зон с актуальной занятостью.
func (c *Client) Zones(ctx context.Context) ([]Zone, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("remote client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/zones"), nil)
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

	var result zonesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Zones, nil
}

// Payments запрашивает журнал платежей удалённого реестра.
func (c *Client) Payments(ctx context.Context) ([]model.Payment, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("remote client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/payments"), nil)
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

	var result []model.Payment
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result, nil
}

// Reserve отправляет запрос резервирования зоны от имени пользователя.
// На тело ответа контракт не полагается, важен только код.
func (c *Client) Reserve(ctx context.Context, user string, zoneID int64) error {
	return c.post(ctx, "/api/reserve", reservationRequest{User: user, ZoneID: zoneID})
}

// Release отправляет симметричный запрос освобождения зоны.
func (c *Client) Release(ctx context.Context, user string, zoneID int64) error {
	return c.post(ctx, "/api/release", reservationRequest{User: user, ZoneID: zoneID})
}

// SendPayment передаёт локально созданную запись об оплате в удалённый реестр.
func (c *Client) SendPayment(ctx context.Context, p model.Payment) error {
	return c.post(ctx, "/api/payments", p)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("remote client not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
