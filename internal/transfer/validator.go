package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/orgshift/internal/githubapi"
)

const (
	apiClientMissingMessageConstant            = "github api client not configured"
	identityFailureStatusTemplateConstant      = "token validation failed with status %d: %s"
	identityFailureTransportTemplateConstant   = "token validation failed: %s"
	identityResolvedMessageConstant            = "authenticated identity resolved"
	identityLoginFieldConstant                 = "login"
	organizationFieldConstant                  = "organization"
	repositoryFieldConstant                    = "repository"
	organizationStatusTemplateConstant         = "organization lookup returned status %d: %s"
	organizationTypeTemplateConstant           = "account %s exists but has type %q, not an organization"
	membershipStatusTemplateConstant           = "membership lookup returned status %d: %s"
	membershipStateTemplateConstant            = "membership state %q with role %q does not authorize transfers"
	repositoryStatusTemplateConstant           = "repository lookup returned status %d: %s"
	repositoryOwnerTemplateConstant            = "repository is owned by %s, not %s"
	identityStepDescriptionConstant            = "Resolving authenticated identity"
	organizationStepDescriptionTemplateConstant = "Validating access to organization %s"
	repositoryStepDescriptionTemplateConstant  = "Validating repository %s/%s"
	identityStepSuccessTemplateConstant        = "Authenticated as %s"
	organizationStepSuccessTemplateConstant    = "Organization access validated: %s"
	repositoryStepSuccessTemplateConstant      = "Repository access validated: %s/%s"
	organizationStepFailureTemplateConstant    = "Organization access failed: %s"
	repositoryStepFailureTemplateConstant      = "Repository access failed: %s/%s"
	validationFailureReasonTemplateConstant    = "%s check failed: %s"
)

// IdentityError reports a failed identity resolution. Identity failures are
// fatal to everything downstream.
type IdentityError struct {
	StatusCode int
	Detail     string
}

// Error describes the identity failure.
func (identityError IdentityError) Error() string {
	if identityError.StatusCode > 0 {
		return fmt.Sprintf(identityFailureStatusTemplateConstant, identityError.StatusCode, identityError.Detail)
	}
	return fmt.Sprintf(identityFailureTransportTemplateConstant, identityError.Detail)
}

// APIGateway exposes the GitHub API operations consumed by the transfer pipeline.
type APIGateway interface {
	GetAuthenticatedUser(requestContext context.Context) (githubapi.Response, error)
	GetOrganization(requestContext context.Context, organizationName string) (githubapi.Response, error)
	GetOrganizationMembership(requestContext context.Context, organizationName string, username string) (githubapi.Response, error)
	GetRepository(requestContext context.Context, organizationName string, repositoryName string) (githubapi.Response, error)
	TransferRepository(requestContext context.Context, organizationName string, repositoryName string, newOwner string) (githubapi.Response, error)
}

// ValidatorDependencies describes the collaborators required by the Validator.
type ValidatorDependencies struct {
	Logger    *zap.Logger
	APIClient APIGateway
	Events    EventSink
	// CheckMembership enables the organization membership gate. Earlier
	// revisions of the transfer tooling validated organization existence
	// only; the flag preserves that behavior as a configuration choice.
	CheckMembership bool
}

// Validator gates transfer requests on identity, organization access, and
// repository ownership. The resolved identity is cached write-once for the
// validator lifetime.
type Validator struct {
	logger          *zap.Logger
	apiClient       APIGateway
	events          EventSink
	checkMembership bool
	cachedIdentity  *Identity
}

// ErrAPIClientMissing indicates construction without an API client.
var ErrAPIClientMissing = errors.New(apiClientMissingMessageConstant)

// NewValidator constructs a Validator with the provided dependencies.
func NewValidator(dependencies ValidatorDependencies) (*Validator, error) {
	if dependencies.APIClient == nil {
		return nil, ErrAPIClientMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Validator{
		logger:          logger,
		apiClient:       dependencies.APIClient,
		events:          resolveEventSink(dependencies.Events),
		checkMembership: dependencies.CheckMembership,
	}, nil
}

// ResolveIdentity resolves and caches the authenticated actor. Subsequent
// calls return the cached identity without network traffic.
func (validator *Validator) ResolveIdentity(validationContext context.Context) (Identity, error) {
	if validator.cachedIdentity != nil {
		return *validator.cachedIdentity, nil
	}

	validator.events.StepStarted(identityStepDescriptionConstant)

	response, requestError := validator.apiClient.GetAuthenticatedUser(validationContext)
	if requestError != nil {
		identityFailure := IdentityError{Detail: requestError.Error()}
		validator.events.StepCompleted(false, identityFailure.Error(), "")
		return Identity{}, identityFailure
	}

	if response.StatusCode != http.StatusOK {
		identityFailure := IdentityError{StatusCode: response.StatusCode, Detail: response.Body}
		validator.events.StepCompleted(false, identityFailure.Error(), "")
		return Identity{}, identityFailure
	}

	userPayload, decodingError := githubapi.ParseAuthenticatedUser(response.Body)
	if decodingError != nil {
		identityFailure := IdentityError{StatusCode: response.StatusCode, Detail: decodingError.Error()}
		validator.events.StepCompleted(false, identityFailure.Error(), "")
		return Identity{}, identityFailure
	}

	identity := Identity{Login: userPayload.Login}
	validator.cachedIdentity = &identity

	validator.logger.Info(identityResolvedMessageConstant, zap.String(identityLoginFieldConstant, identity.Login))
	validator.events.StepCompleted(true, fmt.Sprintf(identityStepSuccessTemplateConstant, identity.Login), "")

	return identity, nil
}

// ValidateOrganizationAccess checks that the named account exists, is an
// organization, and (when membership checking is enabled) that the
// authenticated actor holds an active admin or member role in it.
func (validator *Validator) ValidateOrganizationAccess(validationContext context.Context, organizationName string) OrganizationAccessResult {
	validator.events.StepStarted(fmt.Sprintf(organizationStepDescriptionTemplateConstant, organizationName))

	result := validator.evaluateOrganizationAccess(validationContext, organizationName)
	if result.Valid() {
		validator.events.StepCompleted(true, fmt.Sprintf(organizationStepSuccessTemplateConstant, organizationName), string(result.Role))
	} else {
		validator.events.StepCompleted(false, fmt.Sprintf(organizationStepFailureTemplateConstant, organizationName), result.Detail)
	}

	return result
}

func (validator *Validator) evaluateOrganizationAccess(validationContext context.Context, organizationName string) OrganizationAccessResult {
	response, requestError := validator.apiClient.GetOrganization(validationContext, organizationName)
	if requestError != nil {
		return OrganizationAccessResult{Status: OrganizationAccessTransientError, Detail: requestError.Error()}
	}

	if response.StatusCode != http.StatusOK {
		return OrganizationAccessResult{
			Status: OrganizationAccessNotFound,
			Detail: fmt.Sprintf(organizationStatusTemplateConstant, response.StatusCode, response.Body),
		}
	}

	organizationPayload, decodingError := githubapi.ParseOrganization(response.Body)
	if decodingError != nil {
		return OrganizationAccessResult{Status: OrganizationAccessTransientError, Detail: decodingError.Error()}
	}

	if organizationPayload.Type != githubapi.OrganizationAccountType {
		return OrganizationAccessResult{
			Status: OrganizationAccessNotAnOrganization,
			Detail: fmt.Sprintf(organizationTypeTemplateConstant, organizationName, organizationPayload.Type),
		}
	}

	if !validator.checkMembership {
		return OrganizationAccessResult{Status: OrganizationAccessValid}
	}

	identity, identityError := validator.ResolveIdentity(validationContext)
	if identityError != nil {
		return OrganizationAccessResult{Status: OrganizationAccessTransientError, Detail: identityError.Error()}
	}

	membershipResponse, membershipRequestError := validator.apiClient.GetOrganizationMembership(validationContext, organizationName, identity.Login)
	if membershipRequestError != nil {
		return OrganizationAccessResult{Status: OrganizationAccessTransientError, Detail: membershipRequestError.Error()}
	}

	if membershipResponse.StatusCode != http.StatusOK {
		return OrganizationAccessResult{
			Status: OrganizationAccessNotAMember,
			Detail: fmt.Sprintf(membershipStatusTemplateConstant, membershipResponse.StatusCode, membershipResponse.Body),
		}
	}

	membershipPayload, membershipDecodingError := githubapi.ParseOrganizationMembership(membershipResponse.Body)
	if membershipDecodingError != nil {
		return OrganizationAccessResult{Status: OrganizationAccessTransientError, Detail: membershipDecodingError.Error()}
	}

	membershipRole, roleError := ParseOrganizationRole(membershipPayload.Role)
	if membershipPayload.State != githubapi.MembershipStateActive || roleError != nil {
		return OrganizationAccessResult{
			Status: OrganizationAccessNotAMember,
			Detail: fmt.Sprintf(membershipStateTemplateConstant, membershipPayload.State, membershipPayload.Role),
		}
	}

	return OrganizationAccessResult{Status: OrganizationAccessValid, Role: membershipRole}
}

// ValidateRepositoryAccess checks that the repository exists under the
// expected organization. A 200 response whose owner differs case-insensitively
// from the expected organization indicates a prior transfer redirect and is
// rejected as WrongOwner.
func (validator *Validator) ValidateRepositoryAccess(validationContext context.Context, organizationName string, repositoryName string) RepositoryAccessResult {
	validator.events.StepStarted(fmt.Sprintf(repositoryStepDescriptionTemplateConstant, organizationName, repositoryName))

	result := validator.evaluateRepositoryAccess(validationContext, organizationName, repositoryName)
	if result.Valid() {
		validator.events.StepCompleted(true, fmt.Sprintf(repositoryStepSuccessTemplateConstant, organizationName, repositoryName), "")
	} else {
		validator.events.StepCompleted(false, fmt.Sprintf(repositoryStepFailureTemplateConstant, organizationName, repositoryName), result.Detail)
	}

	return result
}

func (validator *Validator) evaluateRepositoryAccess(validationContext context.Context, organizationName string, repositoryName string) RepositoryAccessResult {
	response, requestError := validator.apiClient.GetRepository(validationContext, organizationName, repositoryName)
	if requestError != nil {
		return RepositoryAccessResult{Status: RepositoryAccessTransientError, Detail: requestError.Error()}
	}

	if response.StatusCode != http.StatusOK {
		return RepositoryAccessResult{
			Status: RepositoryAccessNotFound,
			Detail: fmt.Sprintf(repositoryStatusTemplateConstant, response.StatusCode, response.Body),
		}
	}

	repositoryPayload, decodingError := githubapi.ParseRepository(response.Body)
	if decodingError != nil {
		return RepositoryAccessResult{Status: RepositoryAccessTransientError, Detail: decodingError.Error()}
	}

	if !strings.EqualFold(repositoryPayload.Owner.Login, organizationName) {
		return RepositoryAccessResult{
			Status:      RepositoryAccessWrongOwner,
			ActualOwner: repositoryPayload.Owner.Login,
			Detail:      fmt.Sprintf(repositoryOwnerTemplateConstant, repositoryPayload.Owner.Login, organizationName),
		}
	}

	return RepositoryAccessResult{Status: RepositoryAccessValid}
}

// ValidationReport aggregates the three gate results for one request. A
// zero-valued result means the check was skipped after an earlier hard failure.
type ValidationReport struct {
	SourceOrganization      OrganizationAccessResult
	DestinationOrganization OrganizationAccessResult
	Repository              RepositoryAccessResult
}

// FirstFailure returns the earliest failed stage with its reason.
func (report ValidationReport) FirstFailure() (ValidationStage, string, bool) {
	if len(report.SourceOrganization.Status) > 0 && !report.SourceOrganization.Valid() {
		return StageSourceOrganization, fmt.Sprintf(validationFailureReasonTemplateConstant, StageSourceOrganization, report.SourceOrganization.Detail), true
	}
	if len(report.DestinationOrganization.Status) > 0 && !report.DestinationOrganization.Valid() {
		return StageDestinationOrganization, fmt.Sprintf(validationFailureReasonTemplateConstant, StageDestinationOrganization, report.DestinationOrganization.Detail), true
	}
	if len(report.Repository.Status) > 0 && !report.Repository.Valid() {
		return StageRepository, fmt.Sprintf(validationFailureReasonTemplateConstant, StageRepository, report.Repository.Detail), true
	}
	return "", "", false
}

// Passed reports whether every evaluated check succeeded.
func (report ValidationReport) Passed() bool {
	_, _, failed := report.FirstFailure()
	return !failed
}

// Validate runs the full gate for one request: source organization,
// destination organization, then repository ownership, short-circuiting on the
// first hard failure unless continuePastFailures is set (simulation mode still
// exercises the remaining checks). Identity failures abort immediately.
func (validator *Validator) Validate(validationContext context.Context, request TransferRequest, continuePastFailures bool) (ValidationReport, error) {
	if _, identityError := validator.ResolveIdentity(validationContext); identityError != nil {
		return ValidationReport{}, identityError
	}

	var report ValidationReport

	report.SourceOrganization = validator.ValidateOrganizationAccess(validationContext, request.SourceOrganization)
	if !report.SourceOrganization.Valid() && !continuePastFailures {
		return report, nil
	}

	report.DestinationOrganization = validator.ValidateOrganizationAccess(validationContext, request.DestinationOrganization)
	if !report.DestinationOrganization.Valid() && !continuePastFailures {
		return report, nil
	}

	report.Repository = validator.ValidateRepositoryAccess(validationContext, request.SourceOrganization, request.RepositoryName)

	return report, nil
}
