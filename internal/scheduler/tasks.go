package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskListingGeocode = "listings.geocode"

const TaskGeocodeSweep = "listings.geocode.sweep"

type ListingGeocodePayload struct {
	ListingID string `json:"listingId"`
}

type GeocodeSweepPayload struct {
	BatchSize int `json:"batchSize"`
}

func NewListingGeocodeTask(payload ListingGeocodePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskListingGeocode, data), nil
}

func ParseListingGeocodePayload(task *asynq.Task) (ListingGeocodePayload, error) {
	var payload ListingGeocodePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ListingGeocodePayload{}, err
	}
	return payload, nil
}

func NewGeocodeSweepTask(payload GeocodeSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGeocodeSweep, data), nil
}

func ParseGeocodeSweepPayload(task *asynq.Task) (GeocodeSweepPayload, error) {
	var payload GeocodeSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return GeocodeSweepPayload{}, err
	}
	return payload, nil
}
