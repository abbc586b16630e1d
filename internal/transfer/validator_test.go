package transfer_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/orgshift/internal/githubapi"
	"github.com/temirov/orgshift/internal/transfer"
)

const (
	validatorSubtestNameTemplateConstant       = "%d_%s"
	testSourceOrganizationConstant             = "source-org"
	testDestinationOrganizationConstant        = "dest-org"
	testRepositoryNameConstant                 = "widget-service"
	testCaseIdentityCachedConstant             = "identity resolved once and cached"
	testCaseIdentityUnauthorizedConstant       = "identity failure surfaces status"
	testCaseOrganizationValidAdminConstant     = "organization valid with admin role"
	testCaseOrganizationValidMemberConstant    = "organization valid with member role"
	testCaseOrganizationNotFoundConstant       = "missing organization reported as not found"
	testCaseOrganizationUserAccountConstant    = "user account rejected as not an organization"
	testCaseMembershipMissingConstant          = "missing membership reported as not a member"
	testCaseMembershipPendingConstant          = "pending membership reported as not a member"
	testCaseOrganizationTransportConstant      = "transport failure reported as transient"
	testCaseMembershipSkippedConstant          = "membership check skipped when disabled"
)

func newTestValidator(testInstance *testing.T, gateway *stubAPIGateway, checkMembership bool) *transfer.Validator {
	testInstance.Helper()

	validator, constructionError := transfer.NewValidator(transfer.ValidatorDependencies{
		APIClient:       gateway,
		CheckMembership: checkMembership,
	})
	require.NoError(testInstance, constructionError)
	return validator
}

func TestNewValidatorRequiresAPIClient(testInstance *testing.T) {
	testInstance.Parallel()

	_, constructionError := transfer.NewValidator(transfer.ValidatorDependencies{})
	require.ErrorIs(testInstance, constructionError, transfer.ErrAPIClientMissing)
}

func TestValidatorResolveIdentity(testInstance *testing.T) {
	testInstance.Parallel()

	testInstance.Run(testCaseIdentityCachedConstant, func(testInstance *testing.T) {
		testInstance.Parallel()

		gateway := &stubAPIGateway{}
		validator := newTestValidator(testInstance, gateway, true)

		firstIdentity, firstError := validator.ResolveIdentity(context.Background())
		require.NoError(testInstance, firstError)
		require.Equal(testInstance, stubAuthenticatedLoginConstant, firstIdentity.Login)

		secondIdentity, secondError := validator.ResolveIdentity(context.Background())
		require.NoError(testInstance, secondError)
		require.Equal(testInstance, firstIdentity, secondIdentity)
		require.Equal(testInstance, 1, gateway.authenticatedUserCalls)
	})

	testInstance.Run(testCaseIdentityUnauthorizedConstant, func(testInstance *testing.T) {
		testInstance.Parallel()

		gateway := &stubAPIGateway{
			authenticatedUserFunc: func() (githubapi.Response, error) {
				return githubapi.Response{StatusCode: http.StatusUnauthorized, Body: `{"message":"Bad credentials"}`}, nil
			},
		}
		validator := newTestValidator(testInstance, gateway, true)

		_, identityError := validator.ResolveIdentity(context.Background())
		require.Error(testInstance, identityError)

		var typedError transfer.IdentityError
		require.ErrorAs(testInstance, identityError, &typedError)
		require.Equal(testInstance, http.StatusUnauthorized, typedError.StatusCode)
	})
}

func TestValidatorValidateOrganizationAccess(testInstance *testing.T) {
	testInstance.Parallel()

	transportFailure := githubapi.TransportError{Method: http.MethodGet, Endpoint: "/orgs/source-org", Cause: fmt.Errorf("connection reset")}

	testCases := []struct {
		name            string
		checkMembership bool
		organizationFunc func(organizationName string) (githubapi.Response, error)
		membershipFunc  func(organizationName string, username string) (githubapi.Response, error)
		expectedStatus  transfer.OrganizationAccessStatus
		expectedRole    transfer.OrganizationRole
		expectMembership bool
	}{
		{
			name:             testCaseOrganizationValidAdminConstant,
			checkMembership:  true,
			expectedStatus:   transfer.OrganizationAccessValid,
			expectedRole:     transfer.OrganizationRoleAdmin,
			expectMembership: true,
		},
		{
			name:            testCaseOrganizationValidMemberConstant,
			checkMembership: true,
			membershipFunc: func(string, string) (githubapi.Response, error) {
				return githubapi.Response{StatusCode: http.StatusOK, Body: stubActiveMemberMembershipConstant}, nil
			},
			expectedStatus:   transfer.OrganizationAccessValid,
			expectedRole:     transfer.OrganizationRoleMember,
			expectMembership: true,
		},
		{
			name:            testCaseOrganizationNotFoundConstant,
			checkMembership: true,
			organizationFunc: func(string) (githubapi.Response, error) {
				return githubapi.Response{StatusCode: http.StatusNotFound, Body: stubNotFoundPayloadConstant}, nil
			},
			expectedStatus: transfer.OrganizationAccessNotFound,
		},
		{
			name:            testCaseOrganizationUserAccountConstant,
			checkMembership: true,
			organizationFunc: func(organizationName string) (githubapi.Response, error) {
				return githubapi.Response{StatusCode: http.StatusOK, Body: fmt.Sprintf(stubUserAccountPayloadTemplate, organizationName)}, nil
			},
			expectedStatus: transfer.OrganizationAccessNotAnOrganization,
		},
		{
			name:            testCaseMembershipMissingConstant,
			checkMembership: true,
			membershipFunc: func(string, string) (githubapi.Response, error) {
				return githubapi.Response{StatusCode: http.StatusNotFound, Body: stubNotFoundPayloadConstant}, nil
			},
			expectedStatus:   transfer.OrganizationAccessNotAMember,
			expectMembership: true,
		},
		{
			name:            testCaseMembershipPendingConstant,
			checkMembership: true,
			membershipFunc: func(string, string) (githubapi.Response, error) {
				return githubapi.Response{StatusCode: http.StatusOK, Body: stubPendingMembershipConstant}, nil
			},
			expectedStatus:   transfer.OrganizationAccessNotAMember,
			expectMembership: true,
		},
		{
			name:            testCaseOrganizationTransportConstant,
			checkMembership: true,
			organizationFunc: func(string) (githubapi.Response, error) {
				return githubapi.Response{}, transportFailure
			},
			expectedStatus: transfer.OrganizationAccessTransientError,
		},
		{
			name:            testCaseMembershipSkippedConstant,
			checkMembership: false,
			expectedStatus:  transfer.OrganizationAccessValid,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testCase := testCase
		testInstance.Run(fmt.Sprintf(validatorSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			testInstance.Parallel()

			gateway := &stubAPIGateway{
				organizationFunc: testCase.organizationFunc,
				membershipFunc:   testCase.membershipFunc,
			}
			validator := newTestValidator(testInstance, gateway, testCase.checkMembership)

			result := validator.ValidateOrganizationAccess(context.Background(), testSourceOrganizationConstant)

			require.Equal(testInstance, testCase.expectedStatus, result.Status)
			require.Equal(testInstance, testCase.expectedRole, result.Role)
			if testCase.expectedStatus != transfer.OrganizationAccessValid {
				require.NotEmpty(testInstance, result.Detail)
			}
			if testCase.expectMembership {
				require.Equal(testInstance, 1, gateway.membershipCalls)
			} else {
				require.Zero(testInstance, gateway.membershipCalls)
			}
		})
	}
}

func TestValidatorValidateRepositoryAccess(testInstance *testing.T) {
	testInstance.Parallel()

	testInstance.Run("missing repository reported as not found", func(testInstance *testing.T) {
		testInstance.Parallel()

		gateway := &stubAPIGateway{
			repositoryFunc: func(string, string) (githubapi.Response, error) {
				return githubapi.Response{StatusCode: http.StatusNotFound, Body: stubNotFoundPayloadConstant}, nil
			},
		}
		validator := newTestValidator(testInstance, gateway, true)

		result := validator.ValidateRepositoryAccess(context.Background(), testSourceOrganizationConstant, testRepositoryNameConstant)
		require.Equal(testInstance, transfer.RepositoryAccessNotFound, result.Status)
	})

	testInstance.Run("redirected repository rejected with actual owner", func(testInstance *testing.T) {
		testInstance.Parallel()

		gateway := &stubAPIGateway{
			repositoryFunc: func(_ string, repositoryName string) (githubapi.Response, error) {
				return githubapi.Response{
					StatusCode: http.StatusOK,
					Body:       fmt.Sprintf(stubRepositoryPayloadTemplate, repositoryName, testDestinationOrganizationConstant),
				}, nil
			},
		}
		validator := newTestValidator(testInstance, gateway, true)

		result := validator.ValidateRepositoryAccess(context.Background(), testSourceOrganizationConstant, testRepositoryNameConstant)
		require.Equal(testInstance, transfer.RepositoryAccessWrongOwner, result.Status)
		require.Equal(testInstance, testDestinationOrganizationConstant, result.ActualOwner)
	})

	testInstance.Run("owner comparison ignores case", func(testInstance *testing.T) {
		testInstance.Parallel()

		gateway := &stubAPIGateway{
			repositoryFunc: func(_ string, repositoryName string) (githubapi.Response, error) {
				return githubapi.Response{
					StatusCode: http.StatusOK,
					Body:       fmt.Sprintf(stubRepositoryPayloadTemplate, repositoryName, "Source-Org"),
				}, nil
			},
		}
		validator := newTestValidator(testInstance, gateway, true)

		result := validator.ValidateRepositoryAccess(context.Background(), testSourceOrganizationConstant, testRepositoryNameConstant)
		require.Equal(testInstance, transfer.RepositoryAccessValid, result.Status)
	})
}

func TestValidatorValidate(testInstance *testing.T) {
	testInstance.Parallel()

	request := transfer.TransferRequest{
		SourceOrganization:      testSourceOrganizationConstant,
		RepositoryName:          testRepositoryNameConstant,
		DestinationOrganization: testDestinationOrganizationConstant,
	}

	testInstance.Run("all gates pass", func(testInstance *testing.T) {
		testInstance.Parallel()

		gateway := &stubAPIGateway{}
		validator := newTestValidator(testInstance, gateway, true)

		report, validationError := validator.Validate(context.Background(), request, false)
		require.NoError(testInstance, validationError)
		require.True(testInstance, report.Passed())
	})

	testInstance.Run("source failure short-circuits remaining gates", func(testInstance *testing.T) {
		testInstance.Parallel()

		gateway := &stubAPIGateway{
			organizationFunc: func(organizationName string) (githubapi.Response, error) {
				if organizationName == testSourceOrganizationConstant {
					return githubapi.Response{StatusCode: http.StatusNotFound, Body: stubNotFoundPayloadConstant}, nil
				}
				return githubapi.Response{StatusCode: http.StatusOK, Body: fmt.Sprintf(stubOrganizationPayloadTemplate, organizationName)}, nil
			},
		}
		validator := newTestValidator(testInstance, gateway, true)

		report, validationError := validator.Validate(context.Background(), request, false)
		require.NoError(testInstance, validationError)

		failedStage, failureReason, failed := report.FirstFailure()
		require.True(testInstance, failed)
		require.Equal(testInstance, transfer.StageSourceOrganization, failedStage)
		require.NotEmpty(testInstance, failureReason)

		require.Equal(testInstance, 1, gateway.organizationCalls)
		require.Zero(testInstance, gateway.repositoryCalls)
		require.Empty(testInstance, report.DestinationOrganization.Status)
		require.Empty(testInstance, report.Repository.Status)
	})

	testInstance.Run("continue past failures evaluates every gate", func(testInstance *testing.T) {
		testInstance.Parallel()

		gateway := &stubAPIGateway{
			organizationFunc: func(organizationName string) (githubapi.Response, error) {
				if organizationName == testSourceOrganizationConstant {
					return githubapi.Response{StatusCode: http.StatusNotFound, Body: stubNotFoundPayloadConstant}, nil
				}
				return githubapi.Response{StatusCode: http.StatusOK, Body: fmt.Sprintf(stubOrganizationPayloadTemplate, organizationName)}, nil
			},
		}
		validator := newTestValidator(testInstance, gateway, true)

		report, validationError := validator.Validate(context.Background(), request, true)
		require.NoError(testInstance, validationError)

		require.Equal(testInstance, 2, gateway.organizationCalls)
		require.Equal(testInstance, 1, gateway.repositoryCalls)
		require.Equal(testInstance, transfer.OrganizationAccessValid, report.DestinationOrganization.Status)
		require.Equal(testInstance, transfer.RepositoryAccessValid, report.Repository.Status)
		require.False(testInstance, report.Passed())
	})

	testInstance.Run("identity failure aborts validation", func(testInstance *testing.T) {
		testInstance.Parallel()

		gateway := &stubAPIGateway{
			authenticatedUserFunc: func() (githubapi.Response, error) {
				return githubapi.Response{StatusCode: http.StatusUnauthorized, Body: `{"message":"Bad credentials"}`}, nil
			},
		}
		validator := newTestValidator(testInstance, gateway, true)

		_, validationError := validator.Validate(context.Background(), request, false)
		require.Error(testInstance, validationError)
		require.Zero(testInstance, gateway.organizationCalls)
	})
}
