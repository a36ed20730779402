package remote

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/manav03panchal/personalvault/internal/errors"
)

// FolderMimeType marks a Drive file as a folder.
const FolderMimeType = "application/vnd.google-apps.folder"

// Drive stores domain files in the user's Google Drive. With the drive.file
// scope only files created by this application are visible.
type Drive struct {
	svc *drive.Service
}

var _ Backend = (*Drive)(nil)

// NewDrive creates a Drive backend. Callers pass option.WithTokenSource
// backed by the session, or option.WithHTTPClient in tests.
func NewDrive(ctx context.Context, opts ...option.ClientOption) (*Drive, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Drive{svc: svc}, nil
}

// Name implements Backend.
func (d *Drive) Name() string { return "drive" }

// FindFolder implements Backend.
func (d *Drive) FindFolder(ctx context.Context, name string) (string, bool, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", quote(name), FolderMimeType)
	return d.first(ctx, "find folder", q)
}

// CreateFolder implements Backend.
func (d *Drive) CreateFolder(ctx context.Context, name string) (string, error) {
	f, err := d.svc.Files.Create(&drive.File{Name: name, MimeType: FolderMimeType}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyDrive("create folder", err)
	}
	return f.Id, nil
}

// FindFile implements Backend.
func (d *Drive) FindFile(ctx context.Context, name, parentID string) (string, bool, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", quote(name), quote(parentID))
	return d.first(ctx, "find file", q)
}

// CreateFile implements Backend.
func (d *Drive) CreateFile(ctx context.Context, parentID, name string, content []byte) (string, error) {
	meta := &drive.File{Name: name, Parents: []string{parentID}, MimeType: ContentType}
	f, err := d.svc.Files.Create(meta).
		Media(bytes.NewReader(content), googleapi.ContentType(ContentType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyDrive("create file", err)
	}
	return f.Id, nil
}

// UpdateFile implements Backend.
func (d *Drive) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	_, err := d.svc.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(content), googleapi.ContentType(ContentType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return classifyDrive("update file", err)
	}
	return nil
}

// ReadFile implements Backend.
func (d *Drive) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, classifyDrive("read file", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport("read file", err)
	}
	return data, nil
}

func (d *Drive) first(ctx context.Context, op, q string) (string, bool, error) {
	list, err := d.svc.Files.List().
		Q(q).
		Spaces("drive").
		Fields("files(id, name)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", false, classifyDrive(op, err)
	}
	if len(list.Files) == 0 {
		return "", false, nil
	}
	return list.Files[0].Id, true, nil
}

// quote escapes a value for a Drive query string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func classifyDrive(op string, err error) error {
	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) {
		if gerr.Code == http.StatusForbidden && rateLimited(gerr) {
			return Unavailable(op, err)
		}
		return classifyStatus(op, gerr.Code, err)
	}

	// Token source failures surface as transport errors.
	var rerr *oauth2.RetrieveError
	if stderrors.As(err, &rerr) || errors.IsAuthExpired(err) || stderrors.Is(err, errors.ErrSignedOut) {
		return AuthExpired(op, err)
	}
	return classifyTransport(op, err)
}

func rateLimited(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}
