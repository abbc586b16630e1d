package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/orgshift/internal/githubapi"
	"github.com/temirov/orgshift/internal/githubauth"
)

const (
	transferCommandUseConstant              = "transfer"
	transferCommandShortDescriptionConstant = "Transfer repositories between GitHub organizations"
	transferCommandLongDescriptionConstant  = "transfer validates and executes repository ownership transfers, either for a single repository or for a CSV batch."
	unexpectedArgumentsErrorMessageConstant = "transfer does not accept positional arguments"
	sourceOrgFlagNameConstant               = "source-org"
	sourceOrgFlagDescriptionConstant        = "Source GitHub organization"
	repositoryFlagNameConstant              = "repo"
	repositoryFlagDescriptionConstant       = "Repository name to transfer"
	destinationOrgFlagNameConstant          = "dest-org"
	destinationOrgFlagDescriptionConstant   = "Destination GitHub organization"
	csvFlagNameConstant                     = "csv"
	csvFlagDescriptionConstant              = "Path to a CSV file with source_org,repo_name,dest_org columns"
	dryRunFlagNameConstant                  = "dry-run"
	dryRunFlagDescriptionConstant           = "Validate without performing transfers"
	assumeYesFlagNameConstant               = "yes"
	assumeYesFlagDescriptionConstant        = "Skip the pre-transfer approval prompt"
	tokenSourceFlagNameConstant             = "token-source"
	tokenSourceFlagDescriptionConstant      = "Token source (env:NAME or file:/path)"
	modeConflictErrorMessageConstant        = "--csv cannot be combined with --source-org/--repo/--dest-org"
	singleModeArgumentsErrorMessageConstant = "--source-org, --repo, and --dest-org are required for single transfer mode"
	tokenResolutionErrorTemplateConstant    = "unable to resolve GitHub token: %w"
	tokenSourceParseErrorTemplateConstant   = "invalid token source: %w"
	apiClientErrorTemplateConstant          = "unable to build GitHub API client: %w"
	csvOpenErrorTemplateConstant            = "unable to open csv file %s: %w"
	csvIteratorErrorTemplateConstant        = "unable to read csv file %s: %w"
	noRequestsProcessedMessageConstant      = "no transfer requests were processed"
	partialBatchErrorTemplateConstant       = "%d of %d transfers failed"
	singleTransferErrorTemplateConstant     = "transfer of %s failed: %s"
	approvalErrorTemplateConstant           = "approval prompt failed: %v"
	approvalDeclinedWarningConstant         = "transfer batch declined by operator"
	reportWriteErrorTemplateConstant        = "unable to write transfer summary: %w"
)

// APIClientResolver builds the API gateway for a resolved credential.
type APIClientResolver func(clientContext context.Context, token string, baseURL string) (APIGateway, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current transfer configuration.
type ConfigurationProvider func() Configuration

// EventSinkProvider supplies the event sink rendering pipeline progress.
type EventSinkProvider func(logger *zap.Logger) EventSink

// CommandBuilder assembles the transfer command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	EventSinkProvider     EventSinkProvider
	APIClientResolver     APIClientResolver
	TokenResolver         githubauth.TokenResolver
	Prompter              ApprovalPrompter
	Sleeper               Sleeper
	Input                 io.Reader
	Output                io.Writer
}

// Build constructs the transfer command with its flag surface.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	transferCommand := &cobra.Command{
		Use:   transferCommandUseConstant,
		Short: transferCommandShortDescriptionConstant,
		Long:  transferCommandLongDescriptionConstant,
		RunE:  builder.runTransfer,
	}

	transferCommand.Flags().String(sourceOrgFlagNameConstant, "", sourceOrgFlagDescriptionConstant)
	transferCommand.Flags().String(repositoryFlagNameConstant, "", repositoryFlagDescriptionConstant)
	transferCommand.Flags().String(destinationOrgFlagNameConstant, "", destinationOrgFlagDescriptionConstant)
	transferCommand.Flags().String(csvFlagNameConstant, "", csvFlagDescriptionConstant)
	transferCommand.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)
	transferCommand.Flags().Bool(assumeYesFlagNameConstant, false, assumeYesFlagDescriptionConstant)
	transferCommand.Flags().String(tokenSourceFlagNameConstant, "", tokenSourceFlagDescriptionConstant)

	return transferCommand, nil
}

type commandOptions struct {
	sourceOrganization      string
	repositoryName          string
	destinationOrganization string
	csvPath                 string
	dryRun                  bool
	assumeYes               bool
	tokenSource             string
	configuration           Configuration
}

func (builder *CommandBuilder) runTransfer(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	eventSink := builder.resolveEventSink(logger)

	coordinator, coordinatorError := builder.buildCoordinator(command.Context(), options, logger, eventSink)
	if coordinatorError != nil {
		return coordinatorError
	}

	if len(options.csvPath) > 0 {
		return builder.runBatchTransfer(command.Context(), coordinator, options)
	}

	return builder.runSingleTransfer(command.Context(), coordinator, options)
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	sourceOrganization, sourceFlagError := flagSet.GetString(sourceOrgFlagNameConstant)
	if sourceFlagError != nil {
		return commandOptions{}, sourceFlagError
	}

	repositoryName, repositoryFlagError := flagSet.GetString(repositoryFlagNameConstant)
	if repositoryFlagError != nil {
		return commandOptions{}, repositoryFlagError
	}

	destinationOrganization, destinationFlagError := flagSet.GetString(destinationOrgFlagNameConstant)
	if destinationFlagError != nil {
		return commandOptions{}, destinationFlagError
	}

	csvPath, csvFlagError := flagSet.GetString(csvFlagNameConstant)
	if csvFlagError != nil {
		return commandOptions{}, csvFlagError
	}

	tokenSourceValue, tokenSourceFlagError := flagSet.GetString(tokenSourceFlagNameConstant)
	if tokenSourceFlagError != nil {
		return commandOptions{}, tokenSourceFlagError
	}

	dryRunValue, dryRunFlagError := boolFlagValue(flagSet, dryRunFlagNameConstant, configuration.DryRun)
	if dryRunFlagError != nil {
		return commandOptions{}, dryRunFlagError
	}

	assumeYesValue, assumeYesFlagError := boolFlagValue(flagSet, assumeYesFlagNameConstant, !configuration.RequireApproval)
	if assumeYesFlagError != nil {
		return commandOptions{}, assumeYesFlagError
	}

	options := commandOptions{
		sourceOrganization:      strings.TrimSpace(sourceOrganization),
		repositoryName:          strings.TrimSpace(repositoryName),
		destinationOrganization: strings.TrimSpace(destinationOrganization),
		csvPath:                 strings.TrimSpace(csvPath),
		dryRun:                  dryRunValue,
		assumeYes:               assumeYesValue,
		tokenSource:             selectStringValue(tokenSourceValue, configuration.TokenSource),
		configuration:           configuration,
	}

	singleModeRequested := len(options.sourceOrganization) > 0 || len(options.repositoryName) > 0 || len(options.destinationOrganization) > 0
	if len(options.csvPath) > 0 && singleModeRequested {
		return commandOptions{}, errors.New(modeConflictErrorMessageConstant)
	}

	if len(options.csvPath) == 0 {
		if len(options.sourceOrganization) == 0 || len(options.repositoryName) == 0 || len(options.destinationOrganization) == 0 {
			return commandOptions{}, errors.New(singleModeArgumentsErrorMessageConstant)
		}
	}

	return options, nil
}

func (builder *CommandBuilder) buildCoordinator(commandContext context.Context, options commandOptions, logger *zap.Logger, eventSink EventSink) (*Coordinator, error) {
	token, tokenError := builder.resolveCredential(commandContext, options.tokenSource)
	if tokenError != nil {
		return nil, tokenError
	}

	apiClient, clientError := builder.resolveAPIClient(commandContext, token, options.configuration.APIBaseURL)
	if clientError != nil {
		return nil, fmt.Errorf(apiClientErrorTemplateConstant, clientError)
	}

	validator, validatorError := NewValidator(ValidatorDependencies{
		Logger:          logger,
		APIClient:       apiClient,
		Events:          eventSink,
		CheckMembership: options.configuration.CheckMembership,
	})
	if validatorError != nil {
		return nil, validatorError
	}

	executor, executorError := NewExecutor(ExecutorDependencies{
		Logger:    logger,
		APIClient: apiClient,
		Events:    eventSink,
	})
	if executorError != nil {
		return nil, executorError
	}

	return NewCoordinator(CoordinatorDependencies{
		Logger:    logger,
		Validator: validator,
		Executor:  executor,
		Events:    eventSink,
		Sleeper:   builder.Sleeper,
	})
}

func (builder *CommandBuilder) runBatchTransfer(commandContext context.Context, coordinator *Coordinator, options commandOptions) error {
	csvFile, openError := os.Open(options.csvPath)
	if openError != nil {
		return fmt.Errorf(csvOpenErrorTemplateConstant, options.csvPath, openError)
	}
	defer csvFile.Close()

	iterator, iteratorError := NewCSVRequestIterator(csvFile)
	if iteratorError != nil {
		return fmt.Errorf(csvIteratorErrorTemplateConstant, options.csvPath, iteratorError)
	}

	batchOptions := builder.batchOptions(options)

	var result BatchResult
	if options.assumeYes {
		result = coordinator.RunBatch(commandContext, iterator, batchOptions)
	} else {
		requests, collectionError := CollectRequests(iterator)
		if collectionError != nil {
			return fmt.Errorf(csvIteratorErrorTemplateConstant, options.csvPath, collectionError)
		}
		batchOptions.ShouldProceed = builder.approvalPredicate(coordinator)
		result = coordinator.RunBatchRequests(commandContext, requests, batchOptions)
	}

	if writeError := WriteMarkdownSummary(builder.resolveOutput(), result); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
	}

	if result.Total == 0 {
		return errors.New(noRequestsProcessedMessageConstant)
	}
	if result.Successful < result.Total {
		return fmt.Errorf(partialBatchErrorTemplateConstant, result.Total-result.Successful, result.Total)
	}

	return nil
}

func (builder *CommandBuilder) runSingleTransfer(commandContext context.Context, coordinator *Coordinator, options commandOptions) error {
	request := TransferRequest{
		SourceOrganization:      options.sourceOrganization,
		RepositoryName:          options.repositoryName,
		DestinationOrganization: options.destinationOrganization,
	}

	outcome := coordinator.ProcessSingleTransfer(commandContext, request, builder.batchOptions(options))
	if !outcome.Succeeded() {
		return fmt.Errorf(singleTransferErrorTemplateConstant, request.Describe(), outcome.Detail)
	}

	return nil
}

func (builder *CommandBuilder) batchOptions(options commandOptions) BatchOptions {
	return BatchOptions{
		Simulate:           options.dryRun,
		InterTransferDelay: time.Duration(options.configuration.InterTransferDelaySeconds) * time.Second,
		MaxAttempts:        options.configuration.MaxAttempts,
		RetryDelay:         time.Duration(options.configuration.RetryDelaySeconds) * time.Second,
	}
}

func (builder *CommandBuilder) approvalPredicate(coordinator *Coordinator) func(requests []TransferRequest) bool {
	prompter := builder.resolvePrompter()
	return func(requests []TransferRequest) bool {
		approved, approvalError := prompter.Approve(requests)
		if approvalError != nil {
			coordinator.events.WarningRaised(fmt.Sprintf(approvalErrorTemplateConstant, approvalError))
			return false
		}
		if !approved {
			coordinator.events.WarningRaised(approvalDeclinedWarningConstant)
		}
		return approved
	}
}

func (builder *CommandBuilder) resolveCredential(commandContext context.Context, tokenSourceValue string) (string, error) {
	parsedTokenSource, parseError := githubauth.ParseTokenSource(tokenSourceValue)
	if parseError != nil {
		return "", fmt.Errorf(tokenSourceParseErrorTemplateConstant, parseError)
	}

	tokenResolver := builder.TokenResolver
	if tokenResolver == nil {
		tokenResolver = githubauth.NewTokenResolver(nil, nil)
	}

	token, resolutionError := tokenResolver.ResolveToken(commandContext, parsedTokenSource)
	if resolutionError == nil {
		return token, nil
	}

	if fallbackToken, found := githubauth.ResolveToken(nil); found {
		return fallbackToken, nil
	}

	return "", fmt.Errorf(tokenResolutionErrorTemplateConstant, resolutionError)
}

func (builder *CommandBuilder) resolveAPIClient(commandContext context.Context, token string, baseURL string) (APIGateway, error) {
	if builder.APIClientResolver != nil {
		return builder.APIClientResolver(commandContext, token, baseURL)
	}
	return githubapi.NewTokenClient(commandContext, token, baseURL)
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	return configuration.Sanitize()
}

func (builder *CommandBuilder) resolveEventSink(logger *zap.Logger) EventSink {
	if builder.EventSinkProvider != nil {
		if sink := builder.EventSinkProvider(logger); sink != nil {
			return sink
		}
	}
	return NoopEventSink{}
}

func (builder *CommandBuilder) resolvePrompter() ApprovalPrompter {
	if builder.Prompter != nil {
		return builder.Prompter
	}
	return NewIOApprovalPrompter(builder.resolveInput(), builder.resolveOutput())
}

func (builder *CommandBuilder) resolveInput() io.Reader {
	if builder.Input != nil {
		return builder.Input
	}
	return os.Stdin
}

func (builder *CommandBuilder) resolveOutput() io.Writer {
	if builder.Output != nil {
		return builder.Output
	}
	return os.Stdout
}

func boolFlagValue(flagSet *pflag.FlagSet, flagName string, fallback bool) (bool, error) {
	if !flagSet.Changed(flagName) {
		return fallback, nil
	}
	return flagSet.GetBool(flagName)
}

func selectStringValue(flagValue string, configurationValue string) string {
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) > 0 {
		return trimmedFlagValue
	}

	return strings.TrimSpace(configurationValue)
}
