package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	repositorySlugTemplateConstant      = "%s/%s"
	requestDescriptionTemplateConstant  = "%s/%s -> %s"
	roleEmptyErrorMessageConstant       = "membership role must be provided"
	roleInvalidTemplateConstant         = "membership role %q is not supported"
	adminRoleValueConstant              = "admin"
	memberRoleValueConstant             = "member"
	organizationAccessValidValue        = "valid"
	organizationAccessNotFoundValue     = "not_found"
	organizationAccessNotAnOrgValue     = "not_an_organization"
	organizationAccessNotAMemberValue   = "not_a_member"
	organizationAccessTransientValue    = "transient_error"
	repositoryAccessValidValue          = "valid"
	repositoryAccessNotFoundValue       = "not_found"
	repositoryAccessWrongOwnerValue     = "wrong_owner"
	repositoryAccessTransientValue      = "transient_error"
	outcomeSuccessValue                 = "success"
	outcomeValidationFailedValue        = "validation_failed"
	outcomeAPIFailureValue              = "api_failure"
	outcomeRetryExhaustedValue          = "retry_exhausted"
	stageIdentityValue                  = "identity"
	stageSourceOrganizationValue        = "source_organization"
	stageDestinationOrganizationValue   = "destination_organization"
	stageRepositoryValue                = "repository"
	stageTransferValue                  = "transfer"
)

// TransferRequest identifies one unit of transfer work. The triple is the
// request identity; instances are never mutated after creation.
type TransferRequest struct {
	SourceOrganization      string
	RepositoryName          string
	DestinationOrganization string
}

// RepositorySlug formats the owner-qualified repository name.
func (request TransferRequest) RepositorySlug() string {
	return fmt.Sprintf(repositorySlugTemplateConstant, request.SourceOrganization, request.RepositoryName)
}

// Describe formats the request for log and report consumption.
func (request TransferRequest) Describe() string {
	return fmt.Sprintf(requestDescriptionTemplateConstant, request.SourceOrganization, request.RepositoryName, request.DestinationOrganization)
}

// Identity captures the authenticated actor resolved once per session.
type Identity struct {
	Login string
}

// OrganizationRole enumerates membership roles that authorize org-level operations.
type OrganizationRole string

// Supported organization membership roles.
const (
	OrganizationRoleAdmin  OrganizationRole = OrganizationRole(adminRoleValueConstant)
	OrganizationRoleMember OrganizationRole = OrganizationRole(memberRoleValueConstant)
)

// ParseOrganizationRole normalizes textual membership role values.
func ParseOrganizationRole(roleValue string) (OrganizationRole, error) {
	trimmedValue := strings.TrimSpace(roleValue)
	if len(trimmedValue) == 0 {
		return "", fmt.Errorf(roleEmptyErrorMessageConstant)
	}

	switch OrganizationRole(strings.ToLower(trimmedValue)) {
	case OrganizationRoleAdmin:
		return OrganizationRoleAdmin, nil
	case OrganizationRoleMember:
		return OrganizationRoleMember, nil
	default:
		return "", fmt.Errorf(roleInvalidTemplateConstant, roleValue)
	}
}

// OrganizationAccessStatus enumerates organization validation results.
type OrganizationAccessStatus string

// Organization access statuses.
const (
	OrganizationAccessValid             OrganizationAccessStatus = OrganizationAccessStatus(organizationAccessValidValue)
	OrganizationAccessNotFound          OrganizationAccessStatus = OrganizationAccessStatus(organizationAccessNotFoundValue)
	OrganizationAccessNotAnOrganization OrganizationAccessStatus = OrganizationAccessStatus(organizationAccessNotAnOrgValue)
	OrganizationAccessNotAMember        OrganizationAccessStatus = OrganizationAccessStatus(organizationAccessNotAMemberValue)
	OrganizationAccessTransientError    OrganizationAccessStatus = OrganizationAccessStatus(organizationAccessTransientValue)
)

// OrganizationAccessResult reports one organization validation check.
type OrganizationAccessResult struct {
	Status OrganizationAccessStatus
	Role   OrganizationRole
	Detail string
}

// Valid reports whether the organization check passed.
func (result OrganizationAccessResult) Valid() bool {
	return result.Status == OrganizationAccessValid
}

// RepositoryAccessStatus enumerates repository validation results.
type RepositoryAccessStatus string

// Repository access statuses.
const (
	RepositoryAccessValid          RepositoryAccessStatus = RepositoryAccessStatus(repositoryAccessValidValue)
	RepositoryAccessNotFound       RepositoryAccessStatus = RepositoryAccessStatus(repositoryAccessNotFoundValue)
	RepositoryAccessWrongOwner     RepositoryAccessStatus = RepositoryAccessStatus(repositoryAccessWrongOwnerValue)
	RepositoryAccessTransientError RepositoryAccessStatus = RepositoryAccessStatus(repositoryAccessTransientValue)
)

// RepositoryAccessResult reports the repository ownership check. WrongOwner
// carries the owner GitHub actually reported, guarding against a prior
// transfer having silently redirected the repository name.
type RepositoryAccessResult struct {
	Status      RepositoryAccessStatus
	ActualOwner string
	Detail      string
}

// Valid reports whether the repository check passed.
func (result RepositoryAccessResult) Valid() bool {
	return result.Status == RepositoryAccessValid
}

// ValidationStage identifies which gate a failure occurred in.
type ValidationStage string

// Validation stages in evaluation order.
const (
	StageIdentity                ValidationStage = ValidationStage(stageIdentityValue)
	StageSourceOrganization      ValidationStage = ValidationStage(stageSourceOrganizationValue)
	StageDestinationOrganization ValidationStage = ValidationStage(stageDestinationOrganizationValue)
	StageRepository              ValidationStage = ValidationStage(stageRepositoryValue)
	StageTransfer                ValidationStage = ValidationStage(stageTransferValue)
)

// OutcomeKind enumerates terminal transfer outcomes.
type OutcomeKind string

// Transfer outcome kinds.
const (
	OutcomeSuccess          OutcomeKind = OutcomeKind(outcomeSuccessValue)
	OutcomeValidationFailed OutcomeKind = OutcomeKind(outcomeValidationFailedValue)
	OutcomeAPIFailure       OutcomeKind = OutcomeKind(outcomeAPIFailureValue)
	OutcomeRetryExhausted   OutcomeKind = OutcomeKind(outcomeRetryExhaustedValue)
)

// TransferOutcome is the terminal result of processing one TransferRequest.
type TransferOutcome struct {
	Kind       OutcomeKind
	Stage      ValidationStage
	StatusCode int
	Detail     string
}

// Succeeded reports whether the transfer completed (or was simulated) successfully.
func (outcome TransferOutcome) Succeeded() bool {
	return outcome.Kind == OutcomeSuccess
}

// RequestOutcome pairs a request with its terminal outcome, preserving input order.
type RequestOutcome struct {
	Request TransferRequest
	Outcome TransferOutcome
}

// BatchResult accumulates per-request outcomes for a batch run. HaltedEarly is
// set when the run stopped before exhausting its input, either on a validation
// failure under the halting policy or on a malformed input row.
type BatchResult struct {
	Successful  int
	Total       int
	Outcomes    []RequestOutcome
	HaltedEarly bool
	HaltReason  string
}

// Sleeper abstracts delay insertion for deterministic testing.
type Sleeper interface {
	Sleep(sleepContext context.Context, duration time.Duration)
}

// SystemSleeper implements Sleeper with a context-aware timer wait.
type SystemSleeper struct{}

// Sleep blocks for the requested duration or until the context is cancelled.
func (SystemSleeper) Sleep(sleepContext context.Context, duration time.Duration) {
	if duration <= 0 {
		return
	}

	delayTimer := time.NewTimer(duration)
	defer delayTimer.Stop()

	select {
	case <-sleepContext.Done():
	case <-delayTimer.C:
	}
}
