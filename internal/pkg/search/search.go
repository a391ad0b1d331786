package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

// Indexer writes readings into a search index. Documents are keyed by device and
// timestamp, so indexing the same reading twice overwrites rather than duplicates.
type Indexer struct {
	client *opensearch.Client
	index  string
}

func New(client *opensearch.Client, index string) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
	}
}

// NewClient builds the search client handle.
func NewClient(addresses []string, username, password string) (*opensearch.Client, error) {
	return opensearch.NewClient(opensearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
}

// DocumentID is the id of the document holding a reading.
func DocumentID(r model.Reading) string {
	return strconv.FormatInt(r.DeviceID, 10) + "_" + r.Timestamp.UTC().Format(time.RFC3339Nano)
}

type document struct {
	DeviceID    int64    `json:"device_id"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Timestamp   string   `json:"timestamp"`
}

// Publish indexes the reading. It satisfies the fan-out target contract.
func (i *Indexer) Publish(ctx context.Context, r model.Reading) error {
	return i.IndexReading(ctx, r)
}

func (i *Indexer) IndexReading(ctx context.Context, r model.Reading) error {
	body, err := json.Marshal(document{
		DeviceID:    r.DeviceID,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Timestamp:   r.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	req := opensearchapi.IndexRequest{
		Index:      i.index,
		DocumentID: DocumentID(r),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index %s: %w", req.DocumentID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("index %s: status %d: %s", req.DocumentID, res.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// Ping checks that the cluster answers.
func (i *Indexer) Ping(ctx context.Context) error {
	res, err := opensearchapi.PingRequest{}.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("ping: status %d", res.StatusCode)
	}
	return nil
}
