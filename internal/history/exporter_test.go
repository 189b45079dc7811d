package history

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/config"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/logging"
)

type recorder struct {
	lines   []string
	flushed int
}

func (r *recorder) WritePoint(p *write.Point) {
	r.lines = append(r.lines, write.PointToLineProtocol(p, time.Second))
}

func (r *recorder) Flush() { r.flushed++ }

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestExporterWritesSensorAndBinaryStates(t *testing.T) {
	reg := entity.NewRegistry()
	tank := entity.NewSensor("Tank Level", entity.WithUnit("mm"))
	door := entity.NewBinarySensor("Door")
	reg.MustAdd(tank)
	reg.MustAdd(door)

	rec := &recorder{}
	clk := clock.NewFake(start)
	exp := NewExporter("shed", reg, rec, clk)
	require.NoError(t, exp.Setup())

	tank.PublishState(1953)
	clk.Advance(time.Second)
	door.PublishState(true)

	require.Len(t, rec.lines, 2)
	assert.True(t, strings.HasPrefix(rec.lines[0], Measurement+","))
	assert.Contains(t, rec.lines[0], "object_id=tank_level")
	assert.Contains(t, rec.lines[0], "domain=sensor")
	assert.Contains(t, rec.lines[0], "node=shed")
	assert.Contains(t, rec.lines[0], "unit=mm")
	assert.Contains(t, rec.lines[0], "value=1953")
	assert.True(t, strings.HasSuffix(rec.lines[0], " 1772366400"))

	assert.Contains(t, rec.lines[1], "domain=binary_sensor")
	assert.Contains(t, rec.lines[1], "value=true")
	assert.NotContains(t, rec.lines[1], "unit=")
	assert.True(t, strings.HasSuffix(rec.lines[1], " 1772366401"))
}

func TestExporterSkipsUnavailableAndInternal(t *testing.T) {
	reg := entity.NewRegistry()
	tank := entity.NewSensor("Tank")
	loop := entity.NewSensor("Loop Time", entity.Internal())
	text := entity.NewTextSensor("Version")
	reg.MustAdd(tank)
	reg.MustAdd(loop)
	reg.MustAdd(text)

	rec := &recorder{}
	exp := NewExporter("shed", reg, rec, clock.NewFake(start))
	require.NoError(t, exp.Setup())

	tank.PublishState(math.NaN())
	loop.PublishState(4)
	text.PublishState("1.0.0")

	assert.Empty(t, rec.lines)
	written, skipped := exp.Stats()
	assert.Equal(t, 0, written)
	assert.Equal(t, 1, skipped)
}

func TestExporterFlushesOnShutdown(t *testing.T) {
	rec := &recorder{}
	exp := NewExporter("shed", entity.NewRegistry(), rec, clock.NewFake(start))
	exp.OnShutdown()
	assert.Equal(t, 1, rec.flushed)
}

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{}, logging.Discard())
	assert.ErrorIs(t, err, ErrDisabled)
}
