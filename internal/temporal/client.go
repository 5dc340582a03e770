package temporal

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/observability"
)

// Workflow and query names shared by the client and the workflow package,
// so the server layer never imports the workflows package.
const (
	// PrewarmWorkflowName is the registered name of the reading-list prewarm workflow.
	PrewarmWorkflowName = "PrewarmReadingListWorkflow"

	// QueryProgress is the query name used to retrieve prewarm progress.
	QueryProgress = "progress"
)

// Default timeout constants for workflow execution and health checks.
const (
	// DefaultWorkflowExecutionTimeout is the maximum time a prewarm workflow is allowed to run.
	DefaultWorkflowExecutionTimeout = 2 * time.Hour

	// DefaultHealthCheckTimeout is the timeout for Temporal server health checks.
	DefaultHealthCheckTimeout = 5 * time.Second
)

var (
	ErrWorkflowNotFound       = errors.New("workflow not found")
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")
	ErrQueryFailed            = errors.New("query failed")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrDeadlineExceeded       = errors.New("deadline exceeded")
	ErrCanceled               = errors.New("canceled")
	ErrClientClosed           = errors.New("client closed")
	ErrConnectionFailed       = errors.New("connection failed")
)

// TemporalError is returned by every PrewarmClient call that fails. Kind is
// one of the sentinels above, so callers match with errors.Is.
type TemporalError struct {
	Op         string
	Kind       error
	WorkflowID string
	RunID      string
	Err        error
}

func (e *TemporalError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.WorkflowID != "" {
		b.WriteString(" (workflow ")
		b.WriteString(e.WorkflowID)
		if e.RunID != "" {
			b.WriteString(", run ")
			b.WriteString(e.RunID)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TemporalError) Unwrap() error { return e.Err }

// Is reports whether target is e's Kind.
func (e *TemporalError) Is(target error) bool {
	return e.Kind == target
}

// wrapTemporalError classifies err. It returns nil for a nil err.
func wrapTemporalError(op string, err error, workflowID, runID string) error {
	if err == nil {
		return nil
	}
	return &TemporalError{Op: op, Kind: classify(err), WorkflowID: workflowID, RunID: runID, Err: err}
}

// classify maps SDK and service errors onto the sentinels. Anything not
// recognized is treated as a connectivity problem.
func classify(err error) error {
	switch {
	case as[*serviceerror.NotFound](err):
		return ErrWorkflowNotFound
	case as[*serviceerror.WorkflowExecutionAlreadyStarted](err):
		return ErrWorkflowAlreadyStarted
	case as[*serviceerror.QueryFailed](err):
		return ErrQueryFailed
	case as[*serviceerror.InvalidArgument](err):
		return ErrInvalidArgument
	case as[*serviceerror.DeadlineExceeded](err), errors.Is(err, context.DeadlineExceeded):
		return ErrDeadlineExceeded
	case as[*serviceerror.Canceled](err), errors.Is(err, context.Canceled):
		return ErrCanceled
	default:
		return ErrConnectionFailed
	}
}

func as[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// IsWorkflowNotFound reports whether err means the workflow does not exist.
func IsWorkflowNotFound(err error) bool { return errors.Is(err, ErrWorkflowNotFound) }

// IsWorkflowAlreadyStarted reports whether a prewarm of the same list is
// still running.
func IsWorkflowAlreadyStarted(err error) bool { return errors.Is(err, ErrWorkflowAlreadyStarted) }

// IsConnectionFailed reports whether Temporal could not be reached.
func IsConnectionFailed(err error) bool { return errors.Is(err, ErrConnectionFailed) }

// TLSConfig holds file paths for a TLS connection to Temporal.
type TLSConfig struct {
	CertPath   string
	KeyPath    string
	CACertPath string
	ServerName string
}

// load reads the configured files. A client certificate is only loaded
// when both CertPath and KeyPath are set.
func (t TLSConfig) load() (*tls.Config, error) {
	cfg := &tls.Config{ServerName: t.ServerName, MinVersion: tls.VersionTLS12}

	if t.CertPath != "" && t.KeyPath != "" {
		pair, err := tls.LoadX509KeyPair(t.CertPath, t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("client key pair: %w", err)
		}
		cfg.Certificates = append(cfg.Certificates, pair)
	}
	if t.CACertPath == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(t.CACertPath)
	if err != nil {
		return nil, fmt.Errorf("CA bundle: %w", err)
	}
	cfg.RootCAs = x509.NewCertPool()
	if !cfg.RootCAs.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", t.CACertPath)
	}
	return cfg, nil
}

// ClientConfig configures the Temporal connection and prewarm runs.
type ClientConfig struct {
	HostPort  string
	Namespace string
	TaskQueue string
	// Concurrency bounds how many books one prewarm run resolves at once.
	Concurrency int
	// TLS enables a TLS connection when non-nil.
	TLS *TLSConfig
	// HealthCheckTimeout defaults to DefaultHealthCheckTimeout.
	HealthCheckTimeout time.Duration
}

// NewClient dials Temporal. SDK log output is routed through logger.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (client.Client, error) {
	opts := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    observability.NewTemporalLogger(logger),
	}
	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.load()
		if err != nil {
			return nil, fmt.Errorf("temporal tls: %w", err)
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}

	c, err := client.Dial(opts)
	if err != nil {
		return nil, fmt.Errorf("dial temporal at %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// PrewarmWorkflowInput is the argument of the prewarm workflow. It lives
// here so the server layer can start runs without importing the workflows
// package.
type PrewarmWorkflowInput struct {
	List domain.ReadingList
	// CorrelationID ties the completion event back to the starting request.
	CorrelationID string
	// Concurrency bounds parallel book resolutions.
	Concurrency int
}

// PrewarmProgress is returned by the progress query.
type PrewarmProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// PrewarmStatus describes a prewarm workflow execution.
type PrewarmStatus struct {
	WorkflowID string           `json:"workflow_id"`
	RunID      string           `json:"run_id"`
	Status     string           `json:"status"`
	StartTime  time.Time        `json:"start_time"`
	CloseTime  *time.Time       `json:"close_time,omitempty"`
	Progress   *PrewarmProgress `json:"progress,omitempty"`
}

// PrewarmClient starts, inspects and cancels reading-list prewarm runs.
// Every method fails with ErrClientClosed after Close.
type PrewarmClient struct {
	client             client.Client
	taskQueue          string
	concurrency        int
	healthCheckTimeout time.Duration
	closed             atomic.Bool
}

// NewPrewarmClient wraps an existing Temporal client.
func NewPrewarmClient(c client.Client, cfg ClientConfig) *PrewarmClient {
	return &PrewarmClient{
		client:             c,
		taskQueue:          cfg.TaskQueue,
		concurrency:        cfg.Concurrency,
		healthCheckTimeout: cmp.Or(cfg.HealthCheckTimeout, DefaultHealthCheckTimeout),
	}
}

// Close closes the underlying connection once.
func (c *PrewarmClient) Close() {
	if c.client != nil && c.closed.CompareAndSwap(false, true) {
		c.client.Close()
	}
}

func (c *PrewarmClient) isClosed() bool { return c.closed.Load() }

// guard returns the ErrClientClosed error for op once the client is closed.
func (c *PrewarmClient) guard(op, workflowID string) error {
	if !c.isClosed() {
		return nil
	}
	return &TemporalError{Op: op, Kind: ErrClientClosed, WorkflowID: workflowID}
}

// TaskQueue returns the queue prewarm runs are started on.
func (c *PrewarmClient) TaskQueue() string { return c.taskQueue }

// Health asks the frontend service for its health within the configured
// timeout.
func (c *PrewarmClient) Health(ctx context.Context) error {
	if err := c.guard("Health", ""); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()
	if _, err := c.client.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		return wrapTemporalError("Health", err, "", "")
	}
	return nil
}

// PrewarmWorkflowID returns the workflow ID used for a reading list. One
// list has at most one running prewarm at a time.
func PrewarmWorkflowID(listID string) string {
	return "prewarm-" + listID
}

// StartPrewarm starts a prewarm run for the list and returns its workflow ID.
func (c *PrewarmClient) StartPrewarm(ctx context.Context, list domain.ReadingList) (string, error) {
	id := PrewarmWorkflowID(list.ID)
	if err := c.guard("StartPrewarm", id); err != nil {
		return "", err
	}

	opts := client.StartWorkflowOptions{
		ID:                       id,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: DefaultWorkflowExecutionTimeout,
	}
	input := PrewarmWorkflowInput{
		List:          list,
		CorrelationID: uuid.NewString(),
		Concurrency:   c.concurrency,
	}
	if _, err := c.client.ExecuteWorkflow(ctx, opts, PrewarmWorkflowName, input); err != nil {
		return "", wrapTemporalError("StartPrewarm", err, id, "")
	}
	return id, nil
}

// PrewarmStatus describes a prewarm run. Progress is filled in when the
// worker answers the progress query and left nil otherwise.
func (c *PrewarmClient) PrewarmStatus(ctx context.Context, workflowID string) (*PrewarmStatus, error) {
	if err := c.guard("PrewarmStatus", workflowID); err != nil {
		return nil, err
	}

	resp, err := c.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		return nil, wrapTemporalError("PrewarmStatus", err, workflowID, "")
	}

	info := resp.GetWorkflowExecutionInfo()
	status := &PrewarmStatus{
		WorkflowID: workflowID,
		RunID:      info.GetExecution().GetRunId(),
		Status:     info.GetStatus().String(),
		StartTime:  info.GetStartTime().AsTime(),
	}
	if ct := info.GetCloseTime(); ct != nil {
		t := ct.AsTime()
		status.CloseTime = &t
	}

	var progress PrewarmProgress
	if err := c.query(ctx, workflowID, status.RunID, QueryProgress, &progress); err == nil {
		status.Progress = &progress
	}
	return status, nil
}

// CancelPrewarm requests cancellation of a running prewarm.
func (c *PrewarmClient) CancelPrewarm(ctx context.Context, workflowID string) error {
	if err := c.guard("CancelPrewarm", workflowID); err != nil {
		return err
	}
	if err := c.client.CancelWorkflow(ctx, workflowID, ""); err != nil {
		return wrapTemporalError("CancelPrewarm", err, workflowID, "")
	}
	return nil
}

func (c *PrewarmClient) query(ctx context.Context, workflowID, runID, name string, out any) error {
	resp, err := c.client.QueryWorkflow(ctx, workflowID, runID, name)
	if err != nil {
		return wrapTemporalError("QueryWorkflow", err, workflowID, runID)
	}
	if err := resp.Get(out); err != nil {
		return &TemporalError{
			Op:         "QueryWorkflow",
			Kind:       ErrQueryFailed,
			WorkflowID: workflowID,
			RunID:      runID,
			Err:        fmt.Errorf("decode %s result: %w", name, err),
		}
	}
	return nil
}
