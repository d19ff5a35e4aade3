package dispatch

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/outbox/registry"
)

// WorkerParams collects what the worker needs to start.
type WorkerParams struct {
	RedisOpts asynq.RedisClientOpt
	Config    config.WorkerConfig
	Logger    *logger.Logger
	Handler   *Handler
}

// Worker wraps the task server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logg   *logger.Logger
}

// NewWorker constructs a Worker serving the contract delivery tasks.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Handler == nil {
		return nil, errors.New("dispatch handler required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	queue := params.Config.Queue
	if queue == "" {
		return nil, errors.New("worker queue required")
	}
	concurrency := params.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	logg := params.Logger
	srv := asynq.NewServer(params.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logg.Error(logg.WithField(ctx, "task_type", task.Type()), "dispatch task failed", err)
		}),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(registry.TaskContractLink, params.Handler.HandleContractLink)
	mux.HandleFunc(registry.TaskContractNotice, params.Handler.HandleContractNotice)

	return &Worker{server: srv, mux: mux, logg: logg}, nil
}

// Run processes tasks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	w.logg.Info(ctx, "dispatch worker started")
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
