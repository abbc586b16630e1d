package githubapi

import "encoding/json"

const (
	// OrganizationAccountType is the account type GitHub reports for organizations.
	OrganizationAccountType = "Organization"
	// MembershipStateActive is the membership state authorizing organization operations.
	MembershipStateActive = "active"
	// MembershipRoleAdmin identifies organization administrators.
	MembershipRoleAdmin = "admin"
	// MembershipRoleMember identifies ordinary organization members.
	MembershipRoleMember = "member"
)

// AuthenticatedUser models the subset of the GET /user payload consumed here.
type AuthenticatedUser struct {
	Login string `json:"login"`
}

// Organization models the subset of the GET /orgs/{org} payload consumed here.
type Organization struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

// OrganizationMembership models the GET /orgs/{org}/memberships/{user} payload.
type OrganizationMembership struct {
	State string `json:"state"`
	Role  string `json:"role"`
}

// RepositoryOwner models the owner block of a repository payload.
type RepositoryOwner struct {
	Login string `json:"login"`
}

// Repository models the subset of the GET /repos/{owner}/{repo} payload consumed here.
type Repository struct {
	Name  string          `json:"name"`
	Owner RepositoryOwner `json:"owner"`
}

// ParseAuthenticatedUser decodes an authenticated user payload.
func ParseAuthenticatedUser(body string) (AuthenticatedUser, error) {
	var payload AuthenticatedUser
	if decodingError := json.Unmarshal([]byte(body), &payload); decodingError != nil {
		return AuthenticatedUser{}, DecodingError{Payload: userPayloadNameConstant, Cause: decodingError}
	}
	return payload, nil
}

// ParseOrganization decodes an organization payload.
func ParseOrganization(body string) (Organization, error) {
	var payload Organization
	if decodingError := json.Unmarshal([]byte(body), &payload); decodingError != nil {
		return Organization{}, DecodingError{Payload: organizationPayloadNameConstant, Cause: decodingError}
	}
	return payload, nil
}

// ParseOrganizationMembership decodes a membership payload.
func ParseOrganizationMembership(body string) (OrganizationMembership, error) {
	var payload OrganizationMembership
	if decodingError := json.Unmarshal([]byte(body), &payload); decodingError != nil {
		return OrganizationMembership{}, DecodingError{Payload: membershipPayloadNameConstant, Cause: decodingError}
	}
	return payload, nil
}

// ParseRepository decodes a repository payload.
func ParseRepository(body string) (Repository, error) {
	var payload Repository
	if decodingError := json.Unmarshal([]byte(body), &payload); decodingError != nil {
		return Repository{}, DecodingError{Payload: repositoryPayloadNameConstant, Cause: decodingError}
	}
	return payload, nil
}
