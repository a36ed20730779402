package remote

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/manav03panchal/personalvault/internal/config"
)

// Backend types accepted by remote.type.
const (
	TypeDrive   = "drive"
	TypeWebDAV  = "webdav"
	TypeS3      = "s3"
	TypeLocalFS = "localfs"
)

// Open creates the Backend selected by cfg.Type. tokens supplies the
// session's access token and is only used by Drive.
func Open(ctx context.Context, cfg config.RemoteConfig, tokens oauth2.TokenSource) (Backend, error) {
	switch cfg.Type {
	case TypeDrive, "":
		if tokens == nil {
			return nil, fmt.Errorf("drive backend needs a signed-in session")
		}
		return NewDrive(ctx, option.WithTokenSource(tokens))
	case TypeWebDAV:
		return NewWebDAV(cfg.WebDAV.URL, cfg.WebDAV.User, cfg.WebDAV.Password, cfg.RequestTimeout), nil
	case TypeS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	case TypeLocalFS:
		return NewLocalFS(cfg.LocalFS.Path)
	default:
		return nil, fmt.Errorf("unknown remote type %q", cfg.Type)
	}
}

// NewFromConfig opens the configured backend and wraps it in a Store.
func NewFromConfig(ctx context.Context, cfg config.RemoteConfig, tokens oauth2.TokenSource, refresher TokenRefresher, obs Observer) (*Store, error) {
	backend, err := Open(ctx, cfg, tokens)
	if err != nil {
		return nil, err
	}
	return NewStore(backend, StoreOptions(cfg, refresher, obs)), nil
}

// StoreOptions maps the remote config section onto Store options.
func StoreOptions(cfg config.RemoteConfig, refresher TokenRefresher, obs Observer) Options {
	return Options{
		FolderName:     cfg.FolderName,
		Refresher:      refresher,
		RequestTimeout: cfg.RequestTimeout,
		Breaker: BreakerSettings{
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
		},
		Observer: obs,
	}
}

// NeedsSignIn reports whether the backend type authenticates through the
// session rather than static credentials.
func NeedsSignIn(typ string) bool {
	return typ == TypeDrive || typ == ""
}
