// Package history exports entity states to InfluxDB as time series.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/sensor-node/internal/config"
	"github.com/sweeney/sensor-node/internal/logging"
)

var (
	// ErrDisabled is returned by Connect when export is turned off.
	ErrDisabled = errors.New("influxdb disabled")
	// ErrConnectionFailed wraps ping failures.
	ErrConnectionFailed = errors.New("influxdb connection failed")
)

const (
	connectTimeout = 10 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

// PointWriter is the subset of the non-blocking write API the exporter uses.
type PointWriter interface {
	WritePoint(p *write.Point)
	Flush()
}

// Client wraps an InfluxDB v2 client and its non-blocking write API.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// Connect pings the server and returns a client with a batching write API.
// Asynchronous write errors are logged.
func Connect(ctx context.Context, cfg config.InfluxDBConfig, log *logging.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*1000),
	)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func(errs <-chan error) {
		for err := range errs {
			log.Warn("influxdb write failed", "error", err)
		}
	}(writeAPI.Errors())

	return &Client{client: client, writeAPI: writeAPI}, nil
}

// WritePoint queues p for the next batch.
func (c *Client) WritePoint(p *write.Point) { c.writeAPI.WritePoint(p) }

// Flush sends queued points now.
func (c *Client) Flush() { c.writeAPI.Flush() }

// Close flushes pending writes and closes the client.
func (c *Client) Close() {
	c.writeAPI.Flush()
	c.client.Close()
}
