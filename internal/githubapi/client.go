package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL addresses the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	acceptHeaderNameConstant              = "Accept"
	acceptHeaderValueConstant             = "application/vnd.github.v3+json"
	contentTypeHeaderNameConstant         = "Content-Type"
	jsonContentTypeValueConstant          = "application/json"
	userEndpointConstant                  = "/user"
	organizationEndpointTemplateConstant  = "/orgs/%s"
	membershipEndpointTemplateConstant    = "/orgs/%s/memberships/%s"
	repositoryEndpointTemplateConstant    = "/repos/%s/%s"
	transferEndpointTemplateConstant      = "/repos/%s/%s/transfer"
	httpClientMissingMessageConstant      = "github api http client not configured"
	tokenMissingMessageConstant           = "github api token must be provided"
	requestCreationErrorTemplateConstant  = "unable to build %s %s request: %w"
	payloadEncodingErrorTemplateConstant  = "unable to encode %s payload: %w"
	responseBodyReadErrorTemplateConstant = "unable to read %s %s response body: %w"
	transportErrorTemplateConstant        = "%s %s transport failure: %s"
	decodingErrorTemplateConstant         = "unable to decode %s payload: %s"
	userPayloadNameConstant               = "authenticated user"
	organizationPayloadNameConstant       = "organization"
	membershipPayloadNameConstant         = "organization membership"
	repositoryPayloadNameConstant         = "repository"
	transferPayloadNameConstant           = "transfer"
)

// ErrHTTPClientMissing indicates the client was constructed without an HTTP client.
var ErrHTTPClientMissing = errors.New(httpClientMissingMessageConstant)

// ErrTokenMissing indicates token-based construction received an empty credential.
var ErrTokenMissing = errors.New(tokenMissingMessageConstant)

// HTTPClient abstracts the underlying HTTP transport for testability.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Response carries the raw outcome of a single REST API call.
type Response struct {
	StatusCode int
	Body       string
}

// TransportError reports a transport-level failure (DNS, timeout, connection reset).
type TransportError struct {
	Method   string
	Endpoint string
	Cause    error
}

// Error describes the transport failure.
func (transportError TransportError) Error() string {
	return fmt.Sprintf(transportErrorTemplateConstant, transportError.Method, transportError.Endpoint, transportError.Cause)
}

// Unwrap exposes the underlying transport error.
func (transportError TransportError) Unwrap() error {
	return transportError.Cause
}

// DecodingError reports a malformed JSON payload in a 200 response.
type DecodingError struct {
	Payload string
	Cause   error
}

// Error describes the decoding failure.
func (decodingError DecodingError) Error() string {
	return fmt.Sprintf(decodingErrorTemplateConstant, decodingError.Payload, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError DecodingError) Unwrap() error {
	return decodingError.Cause
}

// Client issues GitHub REST API calls for repository transfer workflows.
type Client struct {
	httpClient HTTPClient
	baseURL    string
}

// NewClient constructs a Client around the provided HTTP transport.
func NewClient(httpClient HTTPClient, baseURL string) (*Client, error) {
	if httpClient == nil {
		return nil, ErrHTTPClientMissing
	}

	resolvedBaseURL := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if len(resolvedBaseURL) == 0 {
		resolvedBaseURL = DefaultBaseURL
	}

	return &Client{httpClient: httpClient, baseURL: resolvedBaseURL}, nil
}

// NewTokenClient constructs a Client whose transport injects the provided token
// through an oauth2 static token source.
func NewTokenClient(clientContext context.Context, token string, baseURL string) (*Client, error) {
	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return nil, ErrTokenMissing
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: trimmedToken})
	return NewClient(oauth2.NewClient(clientContext, tokenSource), baseURL)
}

// GetAuthenticatedUser resolves the identity behind the configured credential.
func (client *Client) GetAuthenticatedUser(requestContext context.Context) (Response, error) {
	return client.get(requestContext, userEndpointConstant)
}

// GetOrganization fetches the organization account record.
func (client *Client) GetOrganization(requestContext context.Context, organizationName string) (Response, error) {
	endpoint := fmt.Sprintf(organizationEndpointTemplateConstant, url.PathEscape(organizationName))
	return client.get(requestContext, endpoint)
}

// GetOrganizationMembership fetches the membership record for a user within an organization.
func (client *Client) GetOrganizationMembership(requestContext context.Context, organizationName string, username string) (Response, error) {
	endpoint := fmt.Sprintf(membershipEndpointTemplateConstant, url.PathEscape(organizationName), url.PathEscape(username))
	return client.get(requestContext, endpoint)
}

// GetRepository fetches the repository record under the expected owner.
func (client *Client) GetRepository(requestContext context.Context, organizationName string, repositoryName string) (Response, error) {
	endpoint := fmt.Sprintf(repositoryEndpointTemplateConstant, url.PathEscape(organizationName), url.PathEscape(repositoryName))
	return client.get(requestContext, endpoint)
}

// TransferRepository initiates the asynchronous ownership transfer. GitHub
// acknowledges accepted transfers with status 202.
func (client *Client) TransferRepository(requestContext context.Context, organizationName string, repositoryName string, newOwner string) (Response, error) {
	endpoint := fmt.Sprintf(transferEndpointTemplateConstant, url.PathEscape(organizationName), url.PathEscape(repositoryName))

	payload := struct {
		NewOwner string `json:"new_owner"`
	}{NewOwner: newOwner}

	payloadBytes, encodingError := json.Marshal(payload)
	if encodingError != nil {
		return Response{}, fmt.Errorf(payloadEncodingErrorTemplateConstant, transferPayloadNameConstant, encodingError)
	}

	return client.issue(requestContext, http.MethodPost, endpoint, payloadBytes)
}

func (client *Client) get(requestContext context.Context, endpoint string) (Response, error) {
	return client.issue(requestContext, http.MethodGet, endpoint, nil)
}

func (client *Client) issue(requestContext context.Context, method string, endpoint string, payload []byte) (Response, error) {
	var requestBody io.Reader
	if payload != nil {
		requestBody = bytes.NewReader(payload)
	}

	request, requestError := http.NewRequestWithContext(requestContext, method, client.baseURL+endpoint, requestBody)
	if requestError != nil {
		return Response{}, fmt.Errorf(requestCreationErrorTemplateConstant, method, endpoint, requestError)
	}

	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)
	if payload != nil {
		request.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeValueConstant)
	}

	response, transportFailure := client.httpClient.Do(request)
	if transportFailure != nil {
		return Response{}, TransportError{Method: method, Endpoint: endpoint, Cause: transportFailure}
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		return Response{}, fmt.Errorf(responseBodyReadErrorTemplateConstant, method, endpoint, readError)
	}

	return Response{StatusCode: response.StatusCode, Body: string(responseBody)}, nil
}
