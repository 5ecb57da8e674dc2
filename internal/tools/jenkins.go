// Package tools implements the external security-testing capabilities the
// bot can invoke: the Jenkins CI scan job, the MobSF mobile static-analysis
// service, and the nmap network scanner.
//
// Every capability returns a human-readable status string and never an
// error: configuration problems, transport failures, and non-success
// responses are all folded into the returned text so the dialog layer can
// relay them verbatim.
package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nvolkov/auditbot/internal/config"
)

// JenkinsClient triggers the parameterized security-scan job.
type JenkinsClient struct {
	cfg    config.JenkinsConfig
	client *http.Client
}

// NewJenkinsClient creates a Jenkins trigger client with the standard
// 30 second request timeout.
func NewJenkinsClient(cfg config.JenkinsConfig) *JenkinsClient {
	return &JenkinsClient{
		cfg:    cfg,
		client: &http.Client{Timeout: config.JenkinsRequestTimeout},
	}
}

// TriggerBuild starts the configured job against the given endpoint and
// reports the outcome as text. No network call is made when any of the four
// required configuration values is missing.
func (j *JenkinsClient) TriggerBuild(ctx context.Context, endpoint string) string {
	if j.cfg.BaseURL == "" || j.cfg.User == "" || j.cfg.APIToken == "" || j.cfg.JobName == "" {
		return "Jenkins is not configured: JENKINS_URL, JENKINS_USER, JENKINS_API_TOKEN and JENKINS_JOB_NAME must all be set."
	}

	jobURL := fmt.Sprintf("%s/job/%s/buildWithParameters",
		strings.TrimRight(j.cfg.BaseURL, "/"), url.PathEscape(j.cfg.JobName))

	form := url.Values{
		"ENDPOINT": {endpoint},
		"SCNTYP":   {"Port scan"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, jobURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Sprintf("Failed to trigger Jenkins job '%s': %v", j.cfg.JobName, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(j.cfg.User, j.cfg.APIToken)

	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Sprintf("Failed to trigger Jenkins job '%s': %v", j.cfg.JobName, err)
	}
	defer resp.Body.Close()

	// Jenkins answers 201 Created; any 2xx counts as accepted since reverse
	// proxies in front of Jenkins commonly rewrite the status.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return fmt.Sprintf("Jenkins job '%s' triggered successfully for %s (status %d).",
			j.cfg.JobName, endpoint, resp.StatusCode)
	}
	return fmt.Sprintf("Failed to trigger Jenkins job '%s'. Status code: %d", j.cfg.JobName, resp.StatusCode)
}
