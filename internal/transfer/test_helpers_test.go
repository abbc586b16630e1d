package transfer_test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/temirov/orgshift/internal/githubapi"
)

const (
	stubAuthenticatedLoginConstant       = "octocat"
	stubUserPayloadConstant              = `{"login":"octocat"}`
	stubOrganizationPayloadTemplate      = `{"login":"%s","type":"Organization"}`
	stubUserAccountPayloadTemplate       = `{"login":"%s","type":"User"}`
	stubActiveAdminMembershipConstant    = `{"state":"active","role":"admin"}`
	stubActiveMemberMembershipConstant   = `{"state":"active","role":"member"}`
	stubPendingMembershipConstant        = `{"state":"pending","role":"admin"}`
	stubRepositoryPayloadTemplate        = `{"name":"%s","owner":{"login":"%s"}}`
	stubTransferAcceptedPayloadConstant  = `{"name":"transferred"}`
	stubNotFoundPayloadConstant          = `{"message":"Not Found"}`
)

// stubAPIGateway implements transfer.APIGateway with overridable behaviors and
// call accounting. Unset behaviors return healthy default payloads.
type stubAPIGateway struct {
	authenticatedUserFunc func() (githubapi.Response, error)
	organizationFunc      func(organizationName string) (githubapi.Response, error)
	membershipFunc        func(organizationName string, username string) (githubapi.Response, error)
	repositoryFunc        func(organizationName string, repositoryName string) (githubapi.Response, error)
	transferFunc          func(organizationName string, repositoryName string, newOwner string) (githubapi.Response, error)

	authenticatedUserCalls int
	organizationCalls      int
	membershipCalls        int
	repositoryCalls        int
	transferCalls          int
}

func (gateway *stubAPIGateway) GetAuthenticatedUser(context.Context) (githubapi.Response, error) {
	gateway.authenticatedUserCalls++
	if gateway.authenticatedUserFunc != nil {
		return gateway.authenticatedUserFunc()
	}
	return githubapi.Response{StatusCode: http.StatusOK, Body: stubUserPayloadConstant}, nil
}

func (gateway *stubAPIGateway) GetOrganization(_ context.Context, organizationName string) (githubapi.Response, error) {
	gateway.organizationCalls++
	if gateway.organizationFunc != nil {
		return gateway.organizationFunc(organizationName)
	}
	return githubapi.Response{StatusCode: http.StatusOK, Body: fmt.Sprintf(stubOrganizationPayloadTemplate, organizationName)}, nil
}

func (gateway *stubAPIGateway) GetOrganizationMembership(_ context.Context, organizationName string, username string) (githubapi.Response, error) {
	gateway.membershipCalls++
	if gateway.membershipFunc != nil {
		return gateway.membershipFunc(organizationName, username)
	}
	return githubapi.Response{StatusCode: http.StatusOK, Body: stubActiveAdminMembershipConstant}, nil
}

func (gateway *stubAPIGateway) GetRepository(_ context.Context, organizationName string, repositoryName string) (githubapi.Response, error) {
	gateway.repositoryCalls++
	if gateway.repositoryFunc != nil {
		return gateway.repositoryFunc(organizationName, repositoryName)
	}
	return githubapi.Response{StatusCode: http.StatusOK, Body: fmt.Sprintf(stubRepositoryPayloadTemplate, repositoryName, organizationName)}, nil
}

func (gateway *stubAPIGateway) TransferRepository(_ context.Context, organizationName string, repositoryName string, newOwner string) (githubapi.Response, error) {
	gateway.transferCalls++
	if gateway.transferFunc != nil {
		return gateway.transferFunc(organizationName, repositoryName, newOwner)
	}
	return githubapi.Response{StatusCode: http.StatusAccepted, Body: stubTransferAcceptedPayloadConstant}, nil
}

// recordingEventSink captures emitted pipeline events for assertions.
type recordingEventSink struct {
	sections []string
	steps    []string
	results  []string
	warnings []string
}

func (sink *recordingEventSink) SectionStarted(title string) {
	sink.sections = append(sink.sections, title)
}

func (sink *recordingEventSink) StepStarted(description string) {
	sink.steps = append(sink.steps, description)
}

func (sink *recordingEventSink) StepCompleted(succeeded bool, message string, details string) {
	sink.results = append(sink.results, fmt.Sprintf("%t|%s|%s", succeeded, message, details))
}

func (sink *recordingEventSink) WarningRaised(message string) {
	sink.warnings = append(sink.warnings, message)
}

// recordingSleeper captures requested delays without blocking.
type recordingSleeper struct {
	delays []time.Duration
}

func (sleeper *recordingSleeper) Sleep(_ context.Context, duration time.Duration) {
	sleeper.delays = append(sleeper.delays, duration)
}

// immediateTimer satisfies backoff.Timer while firing instantly, recording the
// delay each retry would have waited.
type immediateTimer struct {
	delays       []time.Duration
	firingWindow chan time.Time
}

func (timer *immediateTimer) Start(duration time.Duration) {
	timer.delays = append(timer.delays, duration)
	timer.firingWindow = make(chan time.Time, 1)
	timer.firingWindow <- time.Now()
}

func (timer *immediateTimer) Stop() {}

func (timer *immediateTimer) C() <-chan time.Time {
	return timer.firingWindow
}
