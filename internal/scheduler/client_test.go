package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type schedulerConfigStub struct {
	redisURL string
	queue    string
}

func (s schedulerConfigStub) GetRedisURL() string       { return s.redisURL }
func (s schedulerConfigStub) GetRedisTLSInsecure() bool { return false }
func (s schedulerConfigStub) GetAsynqQueueName() string { return s.queue }
func (s schedulerConfigStub) GetAsynqConcurrency() int  { return 1 }
func (s schedulerConfigStub) GetGeocodeSweepInterval() time.Duration { return time.Minute }
func (s schedulerConfigStub) GetGeocodeBatchSize() int               { return 25 }

func TestClientEnqueuesListingGeocode(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(schedulerConfigStub{redisURL: "redis://" + srv.Addr(), queue: "books"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer func() { _ = client.Close() }()

	payload := ListingGeocodePayload{ListingID: uuid.NewString()}
	if err := client.ScheduleListingGeocode(context.Background(), payload); err != nil {
		t.Fatalf("ScheduleListingGeocode: %v", err)
	}

	if len(srv.Keys()) == 0 {
		t.Fatal("expected task keys in redis after enqueue")
	}
}

func TestClientEnqueuesGeocodeSweep(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(schedulerConfigStub{redisURL: "redis://" + srv.Addr(), queue: "books"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.ScheduleGeocodeSweep(context.Background(), GeocodeSweepPayload{BatchSize: 10}); err != nil {
		t.Fatalf("ScheduleGeocodeSweep: %v", err)
	}

	if len(srv.Keys()) == 0 {
		t.Fatal("expected task keys in redis after enqueue")
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(schedulerConfigStub{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}
