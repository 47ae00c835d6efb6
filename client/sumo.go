package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/sumologic-library/query-profiler/models"
)

// Sumo is a Search Job API client bound to a single deployment endpoint.
type Sumo struct {
	http  fastshot.ClientHttpMethods
	sleep time.Duration
}

// EndpointFor returns the REST endpoint for a deployment code such as "us2"
// or "eu". us1 is the original deployment and carries no prefix.
func EndpointFor(deployment string) string {
	switch deployment {
	case "", "us1", "prod":
		return "https://api.sumologic.com/api"
	}
	return fmt.Sprintf("https://api.%s.sumologic.com/api", deployment)
}

// New builds a client for the given endpoint. sleep bounds the jittered
// pause between status polls.
func New(endpoint string, creds Credentials, sleep time.Duration) (*Sumo, error) {
	if strings.HasSuffix(endpoint, "/") {
		return nil, fmt.Errorf("endpoint must not end with a slash: %s", endpoint)
	}

	c := fastshot.NewClient(endpoint)
	c.Auth().BasicAuth(creds.AccessID, creds.AccessKey)

	httpClient := c.Config().SetTimeout(time.Minute).
		Config().SetFollowRedirects(true).
		Header().Add("Content-Type", "application/json").
		Header().Add("Accept", "application/json").
		Build()

	return &Sumo{http: httpClient, sleep: sleep}, nil
}

// StartSearchJob submits a query over the given time window and returns the
// created job.
func (s *Sumo) StartSearchJob(ctx context.Context, query string, tr models.TimeRange) (models.SearchJob, error) {
	req := models.SearchJobRequest{
		Query:         query,
		From:          strconv.FormatInt(tr.FromMillis, 10),
		To:            strconv.FormatInt(tr.ToMillis, 10),
		TimeZone:      tr.TimeZone,
		ByReceiptTime: strconv.FormatBool(tr.ByReceiptTime),
	}

	resp, err := s.http.POST("/v1/search/jobs").
		Context().Set(ctx).
		Body().AsJSON(req).
		Send()
	if err != nil {
		return models.SearchJob{}, fmt.Errorf("failed to start search job: %w", err)
	}
	defer resp.Body().Close()

	var job models.SearchJob
	if err := parseHTTPResponse(*resp, &job); err != nil {
		return models.SearchJob{}, err
	}
	if job.ID == "" {
		return models.SearchJob{}, errors.New("search job response carried no id")
	}
	return job, nil
}

// SearchJobStatus fetches the current state and counters of a job.
func (s *Sumo) SearchJobStatus(ctx context.Context, jobID string) (models.SearchJobStatus, error) {
	resp, err := s.http.GET("/v1/search/jobs/"+jobID).
		Context().Set(ctx).
		Retry().SetExponentialBackoff(time.Second*2, 10, 2.0).
		Send()
	if err != nil {
		return models.SearchJobStatus{}, fmt.Errorf("failed to get search job status: %w", err)
	}
	defer resp.Body().Close()

	var status models.SearchJobStatus
	if err := parseHTTPResponse(*resp, &status); err != nil {
		return models.SearchJobStatus{}, err
	}
	return status, nil
}

// SearchJobRecords fetches one page of aggregate records.
func (s *Sumo) SearchJobRecords(ctx context.Context, jobID string, limit, offset int) (models.RecordsResponse, error) {
	resp, err := s.http.GET("/v1/search/jobs/"+jobID+"/records").
		Context().Set(ctx).
		Query().AddParam("limit", strconv.Itoa(limit)).
		Query().AddParam("offset", strconv.Itoa(offset)).
		Retry().SetExponentialBackoff(time.Second*2, 10, 2.0).
		Send()
	if err != nil {
		return models.RecordsResponse{}, fmt.Errorf("failed to get search job records: %w", err)
	}
	defer resp.Body().Close()

	var records models.RecordsResponse
	if err := parseHTTPResponse(*resp, &records); err != nil {
		return models.RecordsResponse{}, err
	}
	return records, nil
}

// SearchJobMessages fetches one page of raw messages.
func (s *Sumo) SearchJobMessages(ctx context.Context, jobID string, limit, offset int) (models.MessagesResponse, error) {
	resp, err := s.http.GET("/v1/search/jobs/"+jobID+"/messages").
		Context().Set(ctx).
		Query().AddParam("limit", strconv.Itoa(limit)).
		Query().AddParam("offset", strconv.Itoa(offset)).
		Retry().SetExponentialBackoff(time.Second*2, 10, 2.0).
		Send()
	if err != nil {
		return models.MessagesResponse{}, fmt.Errorf("failed to get search job messages: %w", err)
	}
	defer resp.Body().Close()

	var messages models.MessagesResponse
	if err := parseHTTPResponse(*resp, &messages); err != nil {
		return models.MessagesResponse{}, err
	}
	return messages, nil
}

// DeleteSearchJob removes a finished job so it stops counting against the
// org's concurrent search job quota.
func (s *Sumo) DeleteSearchJob(ctx context.Context, jobID string) error {
	resp, err := s.http.DELETE("/v1/search/jobs/"+jobID).
		Context().Set(ctx).
		Send()
	if err != nil {
		return fmt.Errorf("failed to delete search job: %w", err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		msg, err := resp.Body().AsString()
		if err != nil {
			return fmt.Errorf("failed to read error response: %w", err)
		}
		return errors.New(msg)
	}
	return nil
}

// WaitForCompletion polls the job until it leaves the gathering state,
// sleeping a jittered interval between polls. The returned tally carries the
// profiling counters for the run even when the wait is cut short.
func (s *Sumo) WaitForCompletion(ctx context.Context, jobID string) (models.Tally, error) {
	started := time.Now()

	var tally models.Tally
	for {
		status, err := s.SearchJobStatus(ctx, jobID)
		if err != nil {
			tally.Elapsed = time.Since(started)
			return tally, err
		}

		tally.Polls++
		tally.State = status.State
		tally.Messages = status.MessageCount
		tally.Records = status.RecordCount

		if status.Done() {
			tally.Elapsed = time.Since(started)
			return tally, nil
		}

		select {
		case <-ctx.Done():
			tally.Elapsed = time.Since(started)
			return tally, ctx.Err()
		case <-time.After(jitter(s.sleep)):
		}
	}
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max) + 1))
}

func parseHTTPResponse[T any](resp fastshot.Response, result *T) error {
	if resp.Status().IsError() {
		msg, err := resp.Body().AsString()
		if err != nil {
			return fmt.Errorf("failed to read error response: %w", err)
		}
		return errors.New(msg)
	}

	err := resp.Body().AsJSON(result)
	if err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
