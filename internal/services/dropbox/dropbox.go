package dropbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://content.dropboxapi.com"

type DropboxService struct {
	token  string
	folder string
	client *resty.Client
}

// UploadArg is the Dropbox-API-Arg header of /2/files/upload.
type UploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

// FileMetadata is the subset of the upload response we report.
type FileMetadata struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PathDisplay    string `json:"path_display"`
	Rev            string `json:"rev"`
	Size           int64  `json:"size"`
	ServerModified string `json:"server_modified"`
}

type apiError struct {
	ErrorSummary string `json:"error_summary"`
}

// NewDropboxService uploads into folder, e.g. "/gebruikers/peter".
func NewDropboxService(token, folder, baseURL string) *DropboxService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New()
	client.SetTimeout(60 * time.Second)
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetAuthToken(token)

	return &DropboxService{
		token:  token,
		folder: folder,
		client: client,
	}
}

// RemotePath is where a local file ends up.
func (s *DropboxService) RemotePath(localPath string) string {
	folder := "/" + strings.Trim(s.folder, "/")
	return path.Join(folder, filepath.Base(localPath))
}

// Upload pushes the file to the fixed remote folder, overwriting any file
// of the same name, without notifying the account owner.
func (s *DropboxService) Upload(ctx context.Context, localPath string) (*FileMetadata, error) {
	if s.token == "" {
		return nil, fmt.Errorf("dropbox token not configured")
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", localPath, err)
	}

	arg, err := json.Marshal(UploadArg{
		Path:       s.RemotePath(localPath),
		Mode:       "overwrite",
		Autorename: false,
		Mute:       true,
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("Dropbox-API-Arg", string(arg)).
		SetBody(data).
		Post("/2/files/upload")
	if err != nil {
		return nil, fmt.Errorf("dropbox upload: %w", err)
	}

	if resp.IsError() {
		var apiErr apiError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.ErrorSummary != "" {
			return nil, fmt.Errorf("dropbox upload failed: %s: %s", resp.Status(), apiErr.ErrorSummary)
		}
		return nil, fmt.Errorf("dropbox upload failed: %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	}

	var meta FileMetadata
	if err := json.Unmarshal(resp.Body(), &meta); err != nil {
		return nil, fmt.Errorf("decode dropbox response: %w", err)
	}
	return &meta, nil
}
