package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/manav03panchal/personalvault/internal/preload"
	"github.com/manav03panchal/personalvault/internal/repo"
)

// Job names.
const (
	JobRefresh = "refresh"
	JobPending = "pending-retry"
	JobToken   = "token-check"
)

// RefreshJob pulls every remote-backed domain, the way startup preload
// does but without the delay.
type RefreshJob struct {
	Domains []repo.Syncable
	// Session is nil for backends without sign-in.
	Session preload.Session
	Offline bool
}

func (j *RefreshJob) Name() string { return JobRefresh }

// Run refreshes every domain and joins the failures.
func (j *RefreshJob) Run(ctx context.Context) error {
	report := preload.New(j.Domains, preload.Options{Session: j.Session, Offline: j.Offline}).Run(ctx)
	var errs []error
	for _, res := range report.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Domain, res.Err()))
	}
	return stderrors.Join(errs...)
}

// PendingJob pushes domains whose last change never reached the remote.
type PendingJob struct {
	Domains []repo.Syncable
	Offline bool
}

func (j *PendingJob) Name() string { return JobPending }

// Run flushes every pending domain and joins the failures.
func (j *PendingJob) Run(ctx context.Context) error {
	if j.Offline {
		return nil
	}
	var errs []error
	for _, d := range j.Domains {
		if d.LocalOnly() || !d.Pending() {
			continue
		}
		if err := d.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	return stderrors.Join(errs...)
}

// TokenRefresher renews the session when it is close to expiry.
type TokenRefresher interface {
	CheckAndRefresh(ctx context.Context)
}

// TokenJob keeps the session token fresh.
type TokenJob struct {
	Session TokenRefresher
}

func (j *TokenJob) Name() string { return JobToken }

// Run never fails; refresh failures surface through the session's
// re-login hooks.
func (j *TokenJob) Run(ctx context.Context) error {
	j.Session.CheckAndRefresh(ctx)
	return nil
}
