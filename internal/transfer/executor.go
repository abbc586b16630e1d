package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	// DefaultMaxAttempts bounds transfer attempts per request.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the fixed pause between transfer attempts.
	DefaultRetryDelay = 15 * time.Second

	// TransferInProgressMarker is the GitHub error detail fragment reported
	// while a previous transfer still holds the server-side repository lock.
	// Only responses carrying this marker are retryable.
	TransferInProgressMarker = "previous repository operation is still in progress"

	transferStepDescriptionTemplateConstant = "Transferring repository %s to %s"
	transferSimulatedTemplateConstant       = "DRY RUN: would transfer repository %s to %s"
	transferAcceptedTemplateConstant        = "Repository transfer initiated: %s to %s"
	transferFailedTemplateConstant          = "Repository transfer failed: %s"
	transferRetryWarningTemplateConstant    = "Transfer attempt failed (%s); retrying in %s"
	transferRetriesExhaustedTemplateConstant = "transfer retries exhausted after %d attempts: %s"
	transferStatusDetailTemplateConstant    = "status %d: %s"
	transferStartedMessageConstant          = "initiating repository transfer"
	transferOutcomeMessageConstant          = "repository transfer outcome"
	requestFieldConstant                    = "request"
	outcomeKindFieldConstant                = "outcome_kind"
	attemptFieldConstant                    = "attempt"
)

type transientTransferError struct {
	detail string
}

func (transientError transientTransferError) Error() string {
	return transientError.detail
}

// ExecutionOptions tunes a single transfer execution.
type ExecutionOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Simulate    bool
}

func (options ExecutionOptions) withDefaults() ExecutionOptions {
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = DefaultMaxAttempts
	}
	if options.RetryDelay <= 0 {
		options.RetryDelay = DefaultRetryDelay
	}
	return options
}

// ExecutorDependencies describes the collaborators required by the Executor.
type ExecutorDependencies struct {
	Logger    *zap.Logger
	APIClient APIGateway
	Events    EventSink
	// RetryTimer overrides the backoff timer; tests inject a deterministic
	// implementation to observe retry delays.
	RetryTimer backoff.Timer
}

// Executor performs the transfer call with bounded fixed-delay retry. It
// assumes validation already succeeded for the request; no gate runs here.
type Executor struct {
	logger     *zap.Logger
	apiClient  APIGateway
	events     EventSink
	retryTimer backoff.Timer
}

// NewExecutor constructs an Executor with the provided dependencies.
func NewExecutor(dependencies ExecutorDependencies) (*Executor, error) {
	if dependencies.APIClient == nil {
		return nil, ErrAPIClientMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		logger:     logger,
		apiClient:  dependencies.APIClient,
		events:     resolveEventSink(dependencies.Events),
		retryTimer: dependencies.RetryTimer,
	}, nil
}

// Execute performs one transfer. Simulation short-circuits to Success before
// any network traffic. A 202 response is terminal success; a 422 carrying the
// in-progress marker and transport failures are retried with a fixed delay;
// every other non-202 response fails immediately without retry.
func (executor *Executor) Execute(executionContext context.Context, request TransferRequest, options ExecutionOptions) TransferOutcome {
	options = options.withDefaults()

	if options.Simulate {
		simulationMessage := fmt.Sprintf(transferSimulatedTemplateConstant, request.RepositorySlug(), request.DestinationOrganization)
		executor.events.StepCompleted(true, simulationMessage, "")
		return TransferOutcome{Kind: OutcomeSuccess, Stage: StageTransfer, Detail: simulationMessage}
	}

	executor.events.StepStarted(fmt.Sprintf(transferStepDescriptionTemplateConstant, request.RepositorySlug(), request.DestinationOrganization))
	executor.logger.Debug(transferStartedMessageConstant, zap.String(requestFieldConstant, request.Describe()))

	attemptNumber := 0
	var outcome TransferOutcome

	transferOperation := func() error {
		attemptNumber++

		response, requestError := executor.apiClient.TransferRepository(
			executionContext,
			request.SourceOrganization,
			request.RepositoryName,
			request.DestinationOrganization,
		)
		if requestError != nil {
			outcome = TransferOutcome{Kind: OutcomeAPIFailure, Stage: StageTransfer, Detail: requestError.Error()}
			return transientTransferError{detail: requestError.Error()}
		}

		statusDetail := fmt.Sprintf(transferStatusDetailTemplateConstant, response.StatusCode, response.Body)

		switch {
		case response.StatusCode == http.StatusAccepted:
			outcome = TransferOutcome{
				Kind:       OutcomeSuccess,
				Stage:      StageTransfer,
				StatusCode: response.StatusCode,
				Detail:     fmt.Sprintf(transferAcceptedTemplateConstant, request.RepositorySlug(), request.DestinationOrganization),
			}
			return nil
		case response.StatusCode == http.StatusUnprocessableEntity && strings.Contains(response.Body, TransferInProgressMarker):
			outcome = TransferOutcome{
				Kind:       OutcomeRetryExhausted,
				Stage:      StageTransfer,
				StatusCode: response.StatusCode,
				Detail:     fmt.Sprintf(transferRetriesExhaustedTemplateConstant, options.MaxAttempts, statusDetail),
			}
			return transientTransferError{detail: statusDetail}
		default:
			outcome = TransferOutcome{
				Kind:       OutcomeAPIFailure,
				Stage:      StageTransfer,
				StatusCode: response.StatusCode,
				Detail:     statusDetail,
			}
			return backoff.Permanent(errors.New(statusDetail))
		}
	}

	retryNotification := func(attemptError error, nextDelay time.Duration) {
		warningMessage := fmt.Sprintf(transferRetryWarningTemplateConstant, attemptError, nextDelay)
		executor.events.WarningRaised(warningMessage)
		executor.logger.Warn(warningMessage, zap.Int(attemptFieldConstant, attemptNumber))
	}

	retryPolicy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(options.RetryDelay), uint64(options.MaxAttempts-1)),
		executionContext,
	)

	_ = backoff.RetryNotifyWithTimer(transferOperation, retryPolicy, retryNotification, executor.retryTimer)

	executor.events.StepCompleted(
		outcome.Succeeded(),
		executor.describeOutcome(request, outcome),
		outcome.Detail,
	)
	executor.logger.Debug(
		transferOutcomeMessageConstant,
		zap.String(requestFieldConstant, request.Describe()),
		zap.String(outcomeKindFieldConstant, string(outcome.Kind)),
	)

	return outcome
}

func (executor *Executor) describeOutcome(request TransferRequest, outcome TransferOutcome) string {
	if outcome.Succeeded() {
		return fmt.Sprintf(transferAcceptedTemplateConstant, request.RepositorySlug(), request.DestinationOrganization)
	}
	return fmt.Sprintf(transferFailedTemplateConstant, request.Describe())
}
