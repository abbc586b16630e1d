package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultInterTransferDelay paces consecutive real transfers to sidestep
	// platform rate limiting and the server-side transfer lock.
	DefaultInterTransferDelay = 5 * time.Second

	validatorMissingMessageConstant           = "transfer validator not configured"
	executorMissingMessageConstant            = "transfer executor not configured"
	batchSectionTitleConstant                 = "Processing repository transfers"
	requestSectionTemplateConstant            = "Transfer request: %s"
	batchSummaryTemplateConstant              = "Completed %d of %d transfers successfully"
	batchDeclinedMessageConstant              = "transfer batch declined by approval predicate"
	batchIdentityHaltTemplateConstant         = "aborting batch: %s"
	batchInputHaltTemplateConstant            = "halting batch on malformed input: %s"
	batchValidationHaltTemplateConstant       = "aborting batch on validation failure: %s"
	simulationValidationWarningTemplate       = "validation failed for %s (%s); continuing because simulation is enabled"
	singleValidationAbortTemplateConstant     = "validation failed: %s"
	batchStartedMessageConstant               = "transfer batch started"
	batchCompletedMessageConstant             = "transfer batch completed"
	requestProcessedMessageConstant           = "transfer request processed"
	simulateFieldConstant                     = "simulate"
	successfulFieldConstant                   = "successful"
	totalFieldConstant                        = "total"
	haltedFieldConstant                       = "halted_early"
)

// ValidationFailurePolicy governs whether a hard validation failure aborts the
// remaining batch. The source history was inconsistent here, so the behavior
// is an explicit policy rather than a fixed rule.
type ValidationFailurePolicy int

const (
	// ValidationFailurePolicyDefault halts unless the run is simulated.
	ValidationFailurePolicyDefault ValidationFailurePolicy = iota
	// ValidationFailureHalt aborts the batch on the first hard validation failure.
	ValidationFailureHalt
	// ValidationFailureContinue records the failure and proceeds to the executor.
	ValidationFailureContinue
)

func (policy ValidationFailurePolicy) resolve(simulate bool) ValidationFailurePolicy {
	if policy != ValidationFailurePolicyDefault {
		return policy
	}
	if simulate {
		return ValidationFailureContinue
	}
	return ValidationFailureHalt
}

// ShouldHalt reports whether the policy aborts on validation failure.
func (policy ValidationFailurePolicy) ShouldHalt() bool {
	return policy == ValidationFailureHalt
}

// BatchOptions tunes a coordinator run.
type BatchOptions struct {
	Simulate           bool
	InterTransferDelay time.Duration
	MaxAttempts        int
	RetryDelay         time.Duration
	FailurePolicy      ValidationFailurePolicy
	// ShouldProceed is the optional pre-approval predicate applied before any
	// work when the full request list is known up front.
	ShouldProceed func(requests []TransferRequest) bool
}

func (options BatchOptions) withDefaults() BatchOptions {
	if options.InterTransferDelay <= 0 {
		options.InterTransferDelay = DefaultInterTransferDelay
	}
	return options
}

func (options BatchOptions) executionOptions() ExecutionOptions {
	return ExecutionOptions{
		MaxAttempts: options.MaxAttempts,
		RetryDelay:  options.RetryDelay,
		Simulate:    options.Simulate,
	}
}

// CoordinatorDependencies describes the collaborators required by the Coordinator.
type CoordinatorDependencies struct {
	Logger    *zap.Logger
	Validator *Validator
	Executor  *Executor
	Events    EventSink
	Sleeper   Sleeper
}

// Coordinator drives the validation gate and transfer executor across request
// sequences, isolating per-request failures and accumulating batch accounting.
// Execution is strictly sequential in input order.
type Coordinator struct {
	logger    *zap.Logger
	validator *Validator
	executor  *Executor
	events    EventSink
	sleeper   Sleeper
}

var (
	errValidatorMissing = errors.New(validatorMissingMessageConstant)
	errExecutorMissing  = errors.New(executorMissingMessageConstant)
)

// NewCoordinator constructs a Coordinator with the provided dependencies.
func NewCoordinator(dependencies CoordinatorDependencies) (*Coordinator, error) {
	if dependencies.Validator == nil {
		return nil, errValidatorMissing
	}
	if dependencies.Executor == nil {
		return nil, errExecutorMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sleeper := dependencies.Sleeper
	if sleeper == nil {
		sleeper = SystemSleeper{}
	}

	return &Coordinator{
		logger:    logger,
		validator: dependencies.Validator,
		executor:  dependencies.Executor,
		events:    resolveEventSink(dependencies.Events),
		sleeper:   sleeper,
	}, nil
}

// RunBatchRequests applies the pre-approval predicate to the known request
// list and then runs the batch over it.
func (coordinator *Coordinator) RunBatchRequests(batchContext context.Context, requests []TransferRequest, options BatchOptions) BatchResult {
	if options.ShouldProceed != nil && !options.ShouldProceed(requests) {
		coordinator.events.WarningRaised(batchDeclinedMessageConstant)
		return BatchResult{HaltedEarly: true, HaltReason: batchDeclinedMessageConstant}
	}
	return coordinator.RunBatch(batchContext, NewSliceRequestIterator(requests), options)
}

// RunBatch processes requests from the iterator in input order. Identity
// resolution failure aborts the whole batch with zero counts; a malformed
// input row halts remaining processing while preserving partial results;
// individual transfer failures never stop the batch.
func (coordinator *Coordinator) RunBatch(batchContext context.Context, iterator RequestIterator, options BatchOptions) BatchResult {
	options = options.withDefaults()
	failurePolicy := options.FailurePolicy.resolve(options.Simulate)

	coordinator.events.SectionStarted(batchSectionTitleConstant)
	coordinator.logger.Info(batchStartedMessageConstant, zap.Bool(simulateFieldConstant, options.Simulate))

	var result BatchResult

	if _, identityError := coordinator.validator.ResolveIdentity(batchContext); identityError != nil {
		result.HaltedEarly = true
		result.HaltReason = identityError.Error()
		coordinator.events.WarningRaised(fmt.Sprintf(batchIdentityHaltTemplateConstant, identityError))
		return result
	}

	executedRealTransfer := false

	for {
		request, iterationError := iterator.Next()
		if errors.Is(iterationError, ErrNoMoreRequests) {
			break
		}
		if iterationError != nil {
			result.HaltedEarly = true
			result.HaltReason = iterationError.Error()
			coordinator.events.WarningRaised(fmt.Sprintf(batchInputHaltTemplateConstant, iterationError))
			break
		}

		if executedRealTransfer {
			coordinator.sleeper.Sleep(batchContext, options.InterTransferDelay)
		}

		coordinator.events.SectionStarted(fmt.Sprintf(requestSectionTemplateConstant, request.Describe()))

		report, identityError := coordinator.validator.Validate(batchContext, request, !failurePolicy.ShouldHalt())
		if identityError != nil {
			result.HaltedEarly = true
			result.HaltReason = identityError.Error()
			coordinator.events.WarningRaised(fmt.Sprintf(batchIdentityHaltTemplateConstant, identityError))
			break
		}

		if stage, reason, failed := report.FirstFailure(); failed {
			if failurePolicy.ShouldHalt() {
				result.Outcomes = append(result.Outcomes, RequestOutcome{
					Request: request,
					Outcome: TransferOutcome{Kind: OutcomeValidationFailed, Stage: stage, Detail: reason},
				})
				result.Total++
				result.HaltedEarly = true
				result.HaltReason = fmt.Sprintf(batchValidationHaltTemplateConstant, reason)
				coordinator.events.WarningRaised(result.HaltReason)
				break
			}

			coordinator.events.WarningRaised(fmt.Sprintf(simulationValidationWarningTemplate, request.Describe(), reason))
		}

		outcome := coordinator.executor.Execute(batchContext, request, options.executionOptions())
		if !options.Simulate {
			executedRealTransfer = true
		}

		result.Outcomes = append(result.Outcomes, RequestOutcome{Request: request, Outcome: outcome})
		result.Total++
		if outcome.Succeeded() {
			result.Successful++
		}

		coordinator.logger.Debug(requestProcessedMessageConstant, zap.String(outcomeKindFieldConstant, string(outcome.Kind)))
	}

	coordinator.events.StepCompleted(
		result.Successful == result.Total && !result.HaltedEarly,
		fmt.Sprintf(batchSummaryTemplateConstant, result.Successful, result.Total),
		result.HaltReason,
	)
	coordinator.logger.Info(
		batchCompletedMessageConstant,
		zap.Int(successfulFieldConstant, result.Successful),
		zap.Int(totalFieldConstant, result.Total),
		zap.Bool(haltedFieldConstant, result.HaltedEarly),
	)

	return result
}

// ProcessSingleTransfer runs the n=1 pipeline: any validation failure aborts
// immediately unless simulating, in which case a warning is raised and the
// executor still runs.
func (coordinator *Coordinator) ProcessSingleTransfer(transferContext context.Context, request TransferRequest, options BatchOptions) TransferOutcome {
	coordinator.events.SectionStarted(fmt.Sprintf(requestSectionTemplateConstant, request.Describe()))

	failurePolicy := options.FailurePolicy.resolve(options.Simulate)

	report, identityError := coordinator.validator.Validate(transferContext, request, !failurePolicy.ShouldHalt())
	if identityError != nil {
		return TransferOutcome{Kind: OutcomeValidationFailed, Stage: StageIdentity, Detail: identityError.Error()}
	}

	if stage, reason, failed := report.FirstFailure(); failed {
		if failurePolicy.ShouldHalt() {
			return TransferOutcome{Kind: OutcomeValidationFailed, Stage: stage, Detail: fmt.Sprintf(singleValidationAbortTemplateConstant, reason)}
		}
		coordinator.events.WarningRaised(fmt.Sprintf(simulationValidationWarningTemplate, request.Describe(), reason))
	}

	return coordinator.executor.Execute(transferContext, request, options.executionOptions())
}
