package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Corgi239/Speech-Command-Recognition/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PredictWorkerPool consumes finalized recordings from a Redis stream,
// classifies them and publishes the result to the recording's Pub/Sub
// channels.
type PredictWorkerPool struct {
	Redis      *redis.Client
	Recordings services.RecordingService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *PredictWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Recordings == nil {
		return errors.New("PredictWorkerPool missing dependency: Redis/Recordings must be set")
	}
	if p.Stream == "" {
		p.Stream = "recordings:stream"
	}
	if p.Group == "" {
		p.Group = "predict-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *PredictWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *PredictWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	recordingID := getStr("recording_id")
	if recordingID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":     msg.ID,
		"recording_id": recordingID,
	})

	resultCh := "recording:" + recordingID + ":result"
	statusCh := "recording:" + recordingID + ":status"

	_ = p.Redis.Publish(ctx, statusCh, `{"type":"status","status":"processing","message":"classifying recording"}`).Err()

	start := time.Now()
	result, err := p.Recordings.Process(ctx, recordingID)
	if err != nil {
		log.WithError(err).Error("recording classification failed")
		_ = p.Redis.Publish(ctx, statusCh, `{"type":"status","status":"failed","message":"classification failed"}`).Err()
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"type":               "prediction",
		"recording_id":       recordingID,
		"result":             result,
		"processing_time_ms": time.Since(start).Milliseconds(),
	})
	_ = p.Redis.Publish(ctx, resultCh, string(payload)).Err()
	_ = p.Redis.Publish(ctx, statusCh, `{"type":"status","status":"done","message":"recording classified"}`).Err()
}
