package bus_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jacentio/dimstore/bus"
	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/metrics"
	"github.com/jacentio/dimstore/sqlstore"
)

func newBackend(t *testing.T) dimension.Backend {
	t.Helper()
	ctx := context.Background()
	db, err := sqlstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "bus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlstore.Migrate(ctx, db, sqlstore.SQLite, catalog.All()...))
	return sqlstore.New(db, sqlstore.SQLite)
}

func newConsumer(t *testing.T, b dimension.Backend, opts ...bus.Option) *bus.Consumer {
	t.Helper()
	c := bus.NewConsumer(opts...)
	bus.RegisterCatalog(c, catalog.NewRepositories(b))
	return c
}

func message(t *testing.T, id string, entity string, op bus.Op, key int64, payload any) events.SQSMessage {
	t.Helper()
	cmd, err := bus.NewCommand(entity, op, key, payload)
	require.NoError(t, err)
	body, err := json.Marshal(cmd)
	require.NoError(t, err)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func batch(msgs ...events.SQSMessage) events.SQSEvent {
	return events.SQSEvent{Records: msgs}
}

func read(t *testing.T, c *bus.Consumer, req bus.ReadRequest, into any) bus.ReadResponse {
	t.Helper()
	resp := c.HandleRead(context.Background(), req)
	if resp.Status == bus.StatusOK && into != nil {
		require.NoError(t, json.Unmarshal(resp.Data, into))
	}
	return resp
}

func TestNewCommand(t *testing.T) {
	cmd, err := bus.NewCommand("city", bus.OpCreate, 0, catalog.City{Name: "Omsk", OblastID: 2})
	require.NoError(t, err)

	_, err = uuid.Parse(cmd.ID)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"city_id":0,"city_name":"Omsk","oblast_id":2}`, string(cmd.Payload))
}

func TestHandleCommands_CreateThenRead(t *testing.T) {
	c := newConsumer(t, newBackend(t))
	ctx := context.Background()

	resp, err := c.HandleCommands(ctx, batch(
		message(t, "m1", "federal_district", bus.OpCreate, 0, catalog.FederalDistrict{Name: "Siberian"}),
		message(t, "m2", "oblast", bus.OpCreate, 0, catalog.Oblast{Name: "Omsk Oblast", DistrictID: 1}),
	))
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)

	var oblast catalog.Oblast
	got := read(t, c, bus.ReadRequest{Entity: "oblast", Op: bus.OpGet, Key: 1}, &oblast)
	require.Equal(t, bus.StatusOK, got.Status, got.Error)
	assert.Equal(t, catalog.Oblast{ID: 1, Name: "Omsk Oblast", DistrictID: 1}, oblast)
}

func TestHandleCommands_DropsWhatRetryCannotFix(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newConsumer(t, newBackend(t), bus.WithLogger(zap.New(core)))

	resp, err := c.HandleCommands(context.Background(), batch(
		message(t, "m1", "federal_district", bus.OpCreate, 0, catalog.FederalDistrict{Name: "Ural"}),
		message(t, "m2", "federal_district", bus.OpCreate, 0, catalog.FederalDistrict{Name: "Ural"}),
		message(t, "m3", "federal_district", bus.OpDelete, 42, nil),
		message(t, "m4", "planet", bus.OpCreate, 0, map[string]string{"name": "Mars"}),
		message(t, "m5", "federal_district", "merge", 1, nil),
		message(t, "m6", "federal_district", bus.OpCreate, 0, catalog.FederalDistrict{ID: 9, Name: "Far Eastern"}),
		events.SQSMessage{MessageId: "m7", Body: "{not json"},
	))
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Equal(t, 5, logs.FilterMessage("command rejected").Len())
	assert.Equal(t, 1, logs.FilterMessage("dropping undecodable command").Len())

	var districts []catalog.FederalDistrict
	read(t, c, bus.ReadRequest{Entity: "federal_district", Op: bus.OpList}, &districts)
	assert.Equal(t, []catalog.FederalDistrict{{ID: 1, Name: "Ural"}}, districts)
}

func TestHandleCommands_DropsDeleteOfReferencedParent(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newConsumer(t, newBackend(t), bus.WithLogger(zap.New(core)))
	ctx := context.Background()

	_, err := c.HandleCommands(ctx, batch(
		message(t, "m1", "federal_district", bus.OpCreate, 0, catalog.FederalDistrict{Name: "Siberian"}),
		message(t, "m2", "oblast", bus.OpCreate, 0, catalog.Oblast{Name: "Omsk Oblast", DistrictID: 1}),
	))
	require.NoError(t, err)

	resp, err := c.HandleCommands(ctx, batch(message(t, "m3", "federal_district", bus.OpDelete, 1, nil)))
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Equal(t, 1, logs.FilterMessage("command rejected").Len())

	got := read(t, c, bus.ReadRequest{Entity: "federal_district", Op: bus.OpGet, Key: 1}, nil)
	assert.Equal(t, bus.StatusOK, got.Status)
}

func TestHandleCommands_UpdateAndDelete(t *testing.T) {
	c := newConsumer(t, newBackend(t))
	ctx := context.Background()

	_, err := c.HandleCommands(ctx, batch(
		message(t, "m1", "federal_district", bus.OpCreate, 0, catalog.FederalDistrict{Name: "Siberian"}),
	))
	require.NoError(t, err)

	_, err = c.HandleCommands(ctx, batch(
		message(t, "m2", "federal_district", bus.OpUpdate, 1, catalog.FederalDistrict{Name: "Siberian FD"}),
	))
	require.NoError(t, err)

	var d catalog.FederalDistrict
	read(t, c, bus.ReadRequest{Entity: "federal_district", Op: bus.OpGet, Key: 1}, &d)
	assert.Equal(t, "Siberian FD", d.Name)

	_, err = c.HandleCommands(ctx, batch(message(t, "m3", "federal_district", bus.OpDelete, 1, nil)))
	require.NoError(t, err)

	got := read(t, c, bus.ReadRequest{Entity: "federal_district", Op: bus.OpGet, Key: 1}, nil)
	assert.Equal(t, bus.StatusNotFound, got.Status)
	assert.Contains(t, got.Error, "not found")
}

// faultyBackend fails every insert with err.
type faultyBackend struct {
	dimension.Backend
	err error
}

func (b faultyBackend) Insert(context.Context, *dimension.Schema, dimension.Record) (int64, error) {
	return 0, b.err
}

func TestHandleCommands_RedeliversFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"transient", &dimension.TransientError{Entity: "federal_district", Op: "insert", Err: context.DeadlineExceeded}},
		{"unclassified", assert.AnError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConsumer(t, faultyBackend{Backend: newBackend(t), err: tt.err})

			resp, err := c.HandleCommands(context.Background(), batch(
				message(t, "m1", "federal_district", bus.OpCreate, 0, catalog.FederalDistrict{Name: "Ural"}),
				message(t, "m2", "federal_district", bus.OpDelete, 5, nil),
			))
			require.NoError(t, err)
			assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m1"}}, resp.BatchItemFailures)
		})
	}
}

func TestHandleRead_ListWithFilter(t *testing.T) {
	b := newBackend(t)
	repos := catalog.NewRepositories(b)
	ctx := context.Background()

	siberia, err := repos.FederalDistricts.Add(ctx, catalog.FederalDistrict{Name: "Siberian"})
	require.NoError(t, err)
	ural, err := repos.FederalDistricts.Add(ctx, catalog.FederalDistrict{Name: "Ural"})
	require.NoError(t, err)
	for _, o := range []catalog.Oblast{
		{Name: "Tomsk Oblast", DistrictID: siberia.ID},
		{Name: "Omsk Oblast", DistrictID: siberia.ID},
		{Name: "Sverdlovsk Oblast", DistrictID: ural.ID},
	} {
		_, err := repos.Oblasts.Add(ctx, o)
		require.NoError(t, err)
	}

	c := newConsumer(t, b)
	var oblasts []catalog.Oblast
	resp := read(t, c, bus.ReadRequest{
		Entity: "oblast",
		Op:     bus.OpList,
		Where:  map[string]string{"district_id": "1"},
	}, &oblasts)
	require.Equal(t, bus.StatusOK, resp.Status, resp.Error)

	names := make([]string, len(oblasts))
	for i, o := range oblasts {
		names[i] = o.Name
	}
	assert.Equal(t, []string{"Omsk Oblast", "Tomsk Oblast"}, names)

	resp = read(t, c, bus.ReadRequest{Entity: "oblast", Op: bus.OpList, Where: map[string]string{"district_id": "x"}}, nil)
	assert.Equal(t, bus.StatusInvalid, resp.Status)
}

func TestHandleRead_EmptyListIsOK(t *testing.T) {
	c := newConsumer(t, newBackend(t))

	resp := read(t, c, bus.ReadRequest{Entity: "city", Op: bus.OpList}, nil)
	require.Equal(t, bus.StatusOK, resp.Status)
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func TestHandleRead_Invalid(t *testing.T) {
	c := newConsumer(t, newBackend(t))

	tests := []struct {
		name string
		req  bus.ReadRequest
	}{
		{"unknown entity", bus.ReadRequest{Entity: "planet", Op: bus.OpGet, Key: 1}},
		{"unknown op", bus.ReadRequest{Entity: "city", Op: bus.OpDelete, Key: 1}},
		{"unknown filter field", bus.ReadRequest{Entity: "city", Op: bus.OpList, Where: map[string]string{"size": "1"}}},
		{"unknown order field", bus.ReadRequest{Entity: "city", Op: bus.OpList, OrderBy: []string{"size"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := c.HandleRead(context.Background(), tt.req)
			assert.Equal(t, bus.StatusInvalid, resp.Status)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

// blockingBackend answers fetches only when the context ends.
type blockingBackend struct {
	dimension.Backend
}

func (blockingBackend) Fetch(ctx context.Context, schema *dimension.Schema, _ int64) (dimension.Record, error) {
	<-ctx.Done()
	return dimension.Record{}, dimension.Transient(schema.Entity, "fetch", ctx.Err())
}

func TestHandleRead_Timeout(t *testing.T) {
	reg := prometheus.NewRegistry()
	core, logs := observer.New(zapcore.WarnLevel)
	c := newConsumer(t, blockingBackend{Backend: newBackend(t)},
		bus.WithReadTimeout(20*time.Millisecond),
		bus.WithMetrics(metrics.New(reg)),
		bus.WithLogger(zap.New(core)),
	)

	start := time.Now()
	resp := c.HandleRead(context.Background(), bus.ReadRequest{Entity: "city", Op: bus.OpGet, Key: 1})

	assert.Equal(t, bus.StatusUnavailable, resp.Status)
	assert.Less(t, time.Since(start), 5*time.Second)
	failed := logs.FilterMessage("read failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "unavailable", failed[0].ContextMap()["status"])

	expected := `
# HELP dimstore_bus_messages_total Total number of bus messages handled by result.
# TYPE dimstore_bus_messages_total counter
dimstore_bus_messages_total{entity="city",op="get",result="unavailable"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "dimstore_bus_messages_total"))
}
