package dispatch

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/redis"
)

// RedisClientOpt maps the shared redis settings onto the task queue's connection options.
func RedisClientOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opts, err := redis.OptionsFromConfig(cfg)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Network:      opts.Network,
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		TLSConfig:    opts.TLSConfig,
	}, nil
}

// Client submits delivery tasks to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs a queue client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueContext forwards to the underlying queue client.
func (c *Client) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("dispatch client not configured")
	}
	return c.client.EnqueueContext(ctx, task, opts...)
}

// Close releases client resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// QueueStats is a compact view of one queue's backlog.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Processed int    `json:"processedToday"`
	Failed    int    `json:"failedToday"`
}

// Inspector reports queue health for the admin surface.
type Inspector struct {
	inspector *asynq.Inspector
	queue     string
}

// NewInspector builds an inspector for queue.
func NewInspector(redisOpts asynq.RedisClientOpt, queue string) *Inspector {
	return &Inspector{inspector: asynq.NewInspector(redisOpts), queue: queue}
}

// Stats returns the current counters of the dispatch queue.
func (i *Inspector) Stats(context.Context) (*QueueStats, error) {
	if i == nil || i.inspector == nil {
		return nil, errors.New("dispatch inspector not configured")
	}
	info, err := i.inspector.GetQueueInfo(i.queue)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return &QueueStats{Queue: i.queue}, nil
		}
		return nil, err
	}
	return &QueueStats{
		Queue:     info.Queue,
		Pending:   info.Pending,
		Active:    info.Active,
		Retry:     info.Retry,
		Archived:  info.Archived,
		Processed: info.Processed,
		Failed:    info.Failed,
	}, nil
}

// Close releases inspector resources.
func (i *Inspector) Close() error {
	if i == nil || i.inspector == nil {
		return nil
	}
	return i.inspector.Close()
}
