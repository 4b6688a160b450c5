// Package mail enqueues outbound email jobs for an external worker.
// Delivery is fire-and-forget; the auth core never waits on it.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
)

// JobKind names the email job handlers the worker side dispatches on.
type JobKind string

const (
	JobOTPEmail          JobKind = "send_otp_email"
	JobRegistrationEmail JobKind = "send_registration_email"
)

// OTPEmail carries the plaintext one-time code to the mailer. The code
// exists nowhere else in plaintext.
type OTPEmail struct {
	To               string `json:"to"`
	Code             string `json:"code"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

// RegistrationEmail carries the raw invitation token to the mailer.
type RegistrationEmail struct {
	To             string `json:"to"`
	Token          string `json:"token"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

// Job is the envelope pushed onto the queue.
type Job struct {
	ID         int64           `json:"id"`
	Kind       JobKind         `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Queue accepts email jobs.
type Queue interface {
	EnqueueOTPEmail(ctx context.Context, email OTPEmail) error
	EnqueueRegistrationEmail(ctx context.Context, email RegistrationEmail) error
}

const defaultQueueKey = "jobs:email:default"

// RedisQueue implements Queue as a Redis list the worker consumes with
// BRPOP.
type RedisQueue struct {
	client redis.UniversalClient
	node   *snowflake.Node
	key    string
}

var _ Queue = (*RedisQueue)(nil)

func NewRedisQueue(client redis.UniversalClient, node *snowflake.Node) *RedisQueue {
	return &RedisQueue{client: client, node: node, key: defaultQueueKey}
}

func (q *RedisQueue) EnqueueOTPEmail(ctx context.Context, email OTPEmail) error {
	return q.enqueue(ctx, JobOTPEmail, email)
}

func (q *RedisQueue) EnqueueRegistrationEmail(ctx context.Context, email RegistrationEmail) error {
	return q.enqueue(ctx, JobRegistrationEmail, email)
}

func (q *RedisQueue) enqueue(ctx context.Context, kind JobKind, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	job := Job{
		ID:         q.node.Generate().Int64(),
		Kind:       kind,
		Payload:    body,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal %s job: %w", kind, err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}
