package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
)

// DefaultURL is the hosted ThreeLance subgraph.
const DefaultURL = "https://api.studio.thegraph.com/query/66219/threelance/version/latest"

// ServicesCreatedQuery mirrors every ServiceCreated event.
const ServicesCreatedQuery = `{
  serviceCreateds {
    id
    ThreeLance_id
    price
    name
    description
    mediaLinks
  }
}`

const maxResponseBytes = 4 << 20

type graphRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphError struct {
	Message string `json:"message"`
}

type graphResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphError    `json:"errors"`
}

// GraphClient posts queries to a subgraph endpoint.
type GraphClient struct {
	url        string
	httpClient *http.Client
}

func NewGraphClient(url string, timeout time.Duration) *GraphClient {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GraphClient{url: url, httpClient: &http.Client{Timeout: timeout}}
}

func (c *GraphClient) URL() string {
	return c.url
}

// Query runs query and decodes its data object into dst.
func (c *GraphClient) Query(ctx context.Context, query string, variables map[string]interface{}, dst interface{}) error {
	body, err := json.Marshal(graphRequest{Query: query, Variables: variables})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: indexer request: %v", domainerrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read indexer response: %v", domainerrors.ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: indexer returned %d", domainerrors.ErrUnavailable, resp.StatusCode)
	}

	var gr graphResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return fmt.Errorf("%w: decode indexer response: %v", domainerrors.ErrUnavailable, err)
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, 0, len(gr.Errors))
		for _, e := range gr.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%w: indexer: %s", domainerrors.ErrUnavailable, strings.Join(msgs, "; "))
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return fmt.Errorf("%w: indexer returned no data", domainerrors.ErrUnavailable)
	}
	return json.Unmarshal(gr.Data, dst)
}

// ServicesCreated returns every indexed ServiceCreated event.
func (c *GraphClient) ServicesCreated(ctx context.Context) ([]entities.IndexedService, error) {
	var data struct {
		ServiceCreateds []entities.IndexedService `json:"serviceCreateds"`
	}
	if err := c.Query(ctx, ServicesCreatedQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.ServiceCreateds == nil {
		return []entities.IndexedService{}, nil
	}
	return data.ServiceCreateds, nil
}
